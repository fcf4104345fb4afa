package model

import "time"

// RiskLevel classifies the severity of a risk factor
type RiskLevel string

const (
	RiskLevelHigh   RiskLevel = "high"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelLow    RiskLevel = "low"
)

// RiskFactor is a single concern surfaced by analysis
type RiskFactor struct {
	Title       string    `json:"title"`       // Short label, e.g. `Contains "mandatory arbitration"`
	Description string    `json:"description"` // One-sentence explanation
	Level       RiskLevel `json:"level"`       // high, medium, low
}

// Analysis is the terminal artifact produced for a tab. There is at most one
// Analysis per tab identifier, and only the orchestrator writes it.
type Analysis struct {
	Domain      string       `json:"domain"`            // Normalized domain the analysis covers
	RiskScore   int          `json:"risk_score"`        // Bounded to [0,100]
	Summary     string       `json:"summary"`           // Renderable rich text (HTML bullet list)
	RiskFactors []RiskFactor `json:"risk_factors"`      // Ordered; fallback builder guarantees >= 3
	IsFallback  bool         `json:"is_fallback"`       // True when produced by the heuristic path
	Message     string       `json:"message,omitempty"` // User-facing degradation note, fallback only
	Timestamp   time.Time    `json:"timestamp"`         // When the analysis was produced
}

// RiskLevelForScore maps a 0-100 score onto the three user-visible levels.
// Thresholds match the notification and badge rules: >= 70 high, >= 40 medium.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 70:
		return RiskLevelHigh
	case score >= 40:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

package orchestrator

import (
	"github.com/rs/zerolog/log"

	"github.com/policyscope/policyscope/internal/model"
)

// Badge is the visual state shown for a tab: nothing, work in progress, or
// a finished risk level.
type Badge int

const (
	BadgeNone Badge = iota
	BadgePending
	BadgeLow
	BadgeMedium
	BadgeHigh
)

func (b Badge) String() string {
	switch b {
	case BadgePending:
		return "pending"
	case BadgeLow:
		return "low"
	case BadgeMedium:
		return "medium"
	case BadgeHigh:
		return "high"
	default:
		return "none"
	}
}

// badgeForScore maps a risk score onto a badge level
func badgeForScore(score int) Badge {
	switch model.RiskLevelForScore(score) {
	case model.RiskLevelHigh:
		return BadgeHigh
	case model.RiskLevelMedium:
		return BadgeMedium
	default:
		return BadgeLow
	}
}

// Sink is the presentation side: badge updates, completed-analysis pushes,
// and risk notifications. The orchestrator only ever hands it finished
// records; a sink never mutates orchestrator state.
type Sink interface {
	// SetBadge updates the visual state for a tab
	SetBadge(tabID int, badge Badge)

	// AnalysisReady pushes a completed analysis for a tab. Called exactly
	// once per completed discovery cycle.
	AnalysisReady(tabID int, analysis *model.Analysis)

	// Notify raises a user-visible risk notification
	Notify(domain string, riskScore int)
}

// NopSink discards all presentation events
type NopSink struct{}

func (NopSink) SetBadge(int, Badge)                {}
func (NopSink) AnalysisReady(int, *model.Analysis) {}
func (NopSink) Notify(string, int)                 {}

// LogSink writes presentation events to the structured log. Serve mode uses
// it; clients observe results by polling the API.
type LogSink struct{}

func (LogSink) SetBadge(tabID int, badge Badge) {
	log.Debug().Int("tab", tabID).Stringer("badge", badge).Msg("badge updated")
}

func (LogSink) AnalysisReady(tabID int, analysis *model.Analysis) {
	log.Info().
		Int("tab", tabID).
		Str("domain", analysis.Domain).
		Int("score", analysis.RiskScore).
		Bool("fallback", analysis.IsFallback).
		Msg("analysis ready")
}

func (LogSink) Notify(domain string, riskScore int) {
	log.Info().Str("domain", domain).Int("score", riskScore).Msg("risk notification")
}

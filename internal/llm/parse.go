package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/policyscope/policyscope/internal/model"
)

// verdict is the JSON shape the model is asked to produce
type verdict struct {
	Summary     string `json:"summary"`
	RiskScore   int    `json:"riskScore"`
	RiskFactors []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Level       string `json:"level"`
	} `json:"riskFactors"`
}

// DecodeVerdict parses a model response leniently: first a direct JSON
// parse, then extraction of the first brace-balanced object from the
// surrounding prose. Models wrap JSON in markdown fences or commentary often
// enough that the second stage earns its keep.
func DecodeVerdict(content string) (*verdict, error) {
	trimmed := strings.TrimSpace(content)

	var v verdict
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		return validateVerdict(&v)
	}

	obj, ok := firstJSONObject(trimmed)
	if !ok {
		return nil, fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		return nil, fmt.Errorf("parse extracted JSON: %w", err)
	}
	return validateVerdict(&v)
}

// firstJSONObject scans for the first brace-balanced object, tracking string
// literals and escapes so braces inside values do not confuse the depth count
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func validateVerdict(v *verdict) (*verdict, error) {
	if v.RiskScore < 0 || v.RiskScore > 100 {
		return nil, fmt.Errorf("risk score %d out of range", v.RiskScore)
	}
	if v.Summary == "" {
		return nil, fmt.Errorf("verdict missing summary")
	}
	for i, f := range v.RiskFactors {
		switch model.RiskLevel(strings.ToLower(f.Level)) {
		case model.RiskLevelHigh, model.RiskLevelMedium, model.RiskLevelLow:
		default:
			return nil, fmt.Errorf("risk factor %d has invalid level %q", i, f.Level)
		}
	}
	return v, nil
}

// analysisFromVerdict converts a parsed verdict into the terminal Analysis
// record
func analysisFromVerdict(v *verdict, domain string) *model.Analysis {
	a := &model.Analysis{
		Domain:    domain,
		RiskScore: v.RiskScore,
		Summary:   v.Summary,
	}
	for _, f := range v.RiskFactors {
		a.RiskFactors = append(a.RiskFactors, model.RiskFactor{
			Title:       f.Title,
			Description: f.Description,
			Level:       model.RiskLevel(strings.ToLower(f.Level)),
		})
	}
	return a
}

package score

import (
	"fmt"
	"strings"
	"time"

	"github.com/policyscope/policyscope/internal/model"
)

// How many matched phrases are promoted to named risk factors
const (
	maxHighFactors   = 3
	maxMediumFactors = 2
	minFactors       = 3
)

// genericFactors pad the factor list when phrase matching produced fewer than
// three concrete concerns. Order is fixed so the output is deterministic.
var genericFactors = []model.RiskFactor{
	{
		Title:       "Limited Analysis Available",
		Description: "Could not perform full analysis of terms, which may hide potentially concerning clauses.",
		Level:       model.RiskLevelMedium,
	},
	{
		Title:       "Data Collection",
		Description: "Most websites collect some form of user data, which poses inherent privacy risks.",
		Level:       model.RiskLevelMedium,
	},
	{
		Title:       "Third-Party Sharing",
		Description: "Many services share data with third parties for various purposes including analytics and advertising.",
		Level:       model.RiskLevelMedium,
	},
}

// BuildFallback turns a heuristic scoring result into a presentable Analysis
// when no judgment provider result is available. The returned analysis always
// carries at least three risk factors and is marked as fallback.
func BuildFallback(domain string, r Result) *model.Analysis {
	analysis := &model.Analysis{
		Domain:     domain,
		RiskScore:  r.Score,
		Summary:    buildSummary(domain, r),
		IsFallback: true,
		Timestamp:  time.Now(),
	}

	for i, match := range r.HighMatches {
		if i >= maxHighFactors {
			break
		}
		analysis.RiskFactors = append(analysis.RiskFactors, model.RiskFactor{
			Title:       fmt.Sprintf("Contains %q", match),
			Description: "This pattern typically indicates higher risk to user privacy or rights.",
			Level:       model.RiskLevelHigh,
		})
	}

	for i, match := range r.MediumMatches {
		if i >= maxMediumFactors {
			break
		}
		analysis.RiskFactors = append(analysis.RiskFactors, model.RiskFactor{
			Title:       fmt.Sprintf("Contains %q", match),
			Description: "This pattern indicates moderate concern for user privacy.",
			Level:       model.RiskLevelMedium,
		})
	}

	for i := 0; len(analysis.RiskFactors) < minFactors && i < len(genericFactors); i++ {
		analysis.RiskFactors = append(analysis.RiskFactors, genericFactors[i])
	}

	return analysis
}

// buildSummary renders an HTML bullet list: one bullet per non-empty match
// tier, two generic bullets when every tier is empty, and two fixed advisory
// bullets always appended.
func buildSummary(domain string, r Result) string {
	var points []string

	if len(r.HighMatches) > 0 {
		points = append(points, fmt.Sprintf(
			"%s includes %d high-risk terms that may affect your privacy or rights.",
			domain, len(r.HighMatches)))
	}
	if len(r.MediumMatches) > 0 {
		points = append(points, fmt.Sprintf(
			"Contains %d medium-risk terms related to data usage and tracking.",
			len(r.MediumMatches)))
	}
	if len(r.LowMatches) > 0 {
		points = append(points, fmt.Sprintf(
			"Includes %d standard or low-risk terms common in most services.",
			len(r.LowMatches)))
	}

	if len(points) == 0 {
		points = append(points,
			fmt.Sprintf("%s may have terms and policies that warrant review.", domain),
			"Basic analysis could not identify specific risk patterns.")
	}

	points = append(points,
		"Be cautious about how your data may be used or shared with third parties.",
		"Consider reviewing the full terms to understand all implications before agreeing.")

	var b strings.Builder
	b.WriteString("<ul>")
	for _, point := range points {
		b.WriteString("<li>")
		b.WriteString(point)
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

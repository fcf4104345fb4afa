package score

import "strings"

// Scoring weights and bounds. A match against the high-risk dictionary adds
// 15 points, medium adds 7, low subtracts 3, on top of a fixed baseline of
// 10. The result is clamped to [5, 95], and additionally capped at 90 when a
// page saturated with boilerplate produces more than 20 total matches.
const (
	baseScore        = 10
	highRiskWeight   = 15
	mediumRiskWeight = 7
	lowRiskCredit    = 3
	minScore         = 5
	maxScore         = 95
	saturationCap    = 90
	saturationLimit  = 20
)

// highRiskPhrases are clauses that typically signal loss of user rights or
// aggressive data monetization
var highRiskPhrases = []string{
	"sell your data",
	"share with third parties",
	"unlimited license",
	"no obligation to protect",
	"waive right to class action",
	"mandatory arbitration",
	"modify terms without notice",
	"perpetual license",
	"worldwide license",
	"irrevocable license",
	"sell personal information",
	"share with partners",
	"waive rights",
	"binding arbitration",
	"no refunds",
	"no liability",
	"exclusive jurisdiction",
	"limitation of liability",
	"right to monitor",
	"retain indefinitely",
	"store your content",
	"transfer your data",
	"facial recognition",
	"sell to third parties",
	"share with advertisers",
	"biometric data",
	"waive right to sue",
}

// mediumRiskPhrases signal tracking and data-use practices worth flagging
var mediumRiskPhrases = []string{
	"collect location data",
	"track your activity",
	"personalized advertising",
	"share aggregated data",
	"retain data indefinitely",
	"automatically renew",
	"cookies and tracking",
	"third-party analytics",
	"behavioral tracking",
	"targeted advertising",
	"marketing emails",
	"data retention",
	"monitor usage",
	"track behavior",
	"cross-device tracking",
	"interest-based ads",
	"can't opt out",
	"cannot opt out",
	"may share",
	"may collect",
	"may use",
}

// lowRiskPhrases indicate user-protective language and reduce the score
var lowRiskPhrases = []string{
	"necessary cookies",
	"essential account information",
	"standard analytics",
	"communicate updates",
	"security measures",
	"data portability",
	"opt-out options",
	"delete account",
	"access your data",
	"data protection",
	"right to delete",
	"right to access",
	"right to object",
	"data subject rights",
	"can opt out",
	"may opt out",
	"gdpr compliant",
	"ccpa compliant",
}

// Result holds the matched phrases per tier and the bounded risk score
type Result struct {
	HighMatches   []string
	MediumMatches []string
	LowMatches    []string
	Score         int
}

// TotalMatches returns the match count across all three tiers
func (r Result) TotalMatches() int {
	return len(r.HighMatches) + len(r.MediumMatches) + len(r.LowMatches)
}

// Analyze scans document text against the three phrase dictionaries and
// computes the bounded risk score. Matching is case-insensitive substring
// containment, independent per phrase. The function is pure: same text in,
// same result out.
func Analyze(text string) Result {
	lower := strings.ToLower(text)

	result := Result{
		HighMatches:   matchPhrases(lower, highRiskPhrases),
		MediumMatches: matchPhrases(lower, mediumRiskPhrases),
		LowMatches:    matchPhrases(lower, lowRiskPhrases),
	}

	score := baseScore +
		len(result.HighMatches)*highRiskWeight +
		len(result.MediumMatches)*mediumRiskWeight -
		len(result.LowMatches)*lowRiskCredit

	if score < minScore {
		score = minScore
	}
	if score > maxScore {
		score = maxScore
	}

	// Pages stuffed with boilerplate match everything; keep the score out of
	// the extreme band when that happens.
	if result.TotalMatches() > saturationLimit && score > saturationCap {
		score = saturationCap
	}

	result.Score = score
	return result
}

func matchPhrases(lowerText string, phrases []string) []string {
	var matches []string
	for _, phrase := range phrases {
		if strings.Contains(lowerText, phrase) {
			matches = append(matches, phrase)
		}
	}
	return matches
}

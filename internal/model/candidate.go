package model

// PolicyType identifies which legal document a candidate URL may host
type PolicyType string

const (
	PolicyTerms   PolicyType = "terms"
	PolicyPrivacy PolicyType = "privacy"
)

// URLCandidate is a discovered or guessed address that might host a policy
// document, paired with a display label
type URLCandidate struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// CandidateLinks holds the candidate URLs for each document type, in priority
// order: site-declared links first, then guessed well-known paths, then
// www-prefixed variants. The racer consumes each list left to right.
type CandidateLinks struct {
	Terms   []URLCandidate `json:"terms"`
	Privacy []URLCandidate `json:"privacy"`
}

// Empty reports whether no candidates were found for either document type
func (c CandidateLinks) Empty() bool {
	return len(c.Terms) == 0 && len(c.Privacy) == 0
}

// For returns the candidate list for the given document type
func (c CandidateLinks) For(t PolicyType) []URLCandidate {
	if t == PolicyTerms {
		return c.Terms
	}
	return c.Privacy
}

package store

import (
	"time"

	"github.com/policyscope/policyscope/internal/model"
)

// SessionState tracks where a tab is in the discovery-fetch-analysis cycle
type SessionState int

const (
	StateIdle SessionState = iota
	StateDiscovering
	StateFetching
	StateDone
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateFetching:
		return "fetching"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// TabSession is the per-tab working state of one discovery cycle. The
// orchestrator is its only mutator; everything else reads snapshots.
type TabSession struct {
	TabID  int
	Domain string
	State  SessionState

	// Cycle identifies the discovery cycle that owns this session. A
	// completion attempt carrying a stale cycle number is discarded.
	Cycle uint64

	// Links holds the candidate URLs found or guessed for this cycle
	Links model.CandidateLinks

	// FetchStarted flips false->true exactly once per discovery cycle; it is
	// the mutual-exclusion guard against duplicate fetch races for one tab
	FetchStarted bool

	// Retrieved document text, empty until the racers report
	TermsContent   string
	PrivacyContent string

	CreatedAt   time.Time
	LastTouched time.Time
}

// NewTabSession creates an idle session for a tab/domain pair
func NewTabSession(tabID int, domain string) *TabSession {
	now := time.Now()
	return &TabSession{
		TabID:       tabID,
		Domain:      domain,
		State:       StateIdle,
		CreatedAt:   now,
		LastTouched: now,
	}
}

// Done reports whether the session reached its terminal state
func (s *TabSession) Done() bool {
	return s.State == StateDone
}

// Touch updates the last-activity timestamp
func (s *TabSession) Touch() {
	s.LastTouched = time.Now()
}

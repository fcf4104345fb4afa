// Package store owns the three process-wide caches: the per-tab session
// cache (working state plus fetched policy text), the per-tab analysis
// cache, and the best-effort domain-to-tab index. All three share one
// retention policy: entries older than the configured TTL are evicted by a
// periodic janitor, and tab-close removes entries from all three eagerly.
package store

import (
	"strconv"

	gocache "github.com/patrickmn/go-cache"
	"github.com/policyscope/policyscope/internal/model"
)

// Store holds the caches. Writers are the orchestrator (sessions, analyses,
// index) and the tab-close path; readers must treat absence as "no analysis
// yet", never as an error.
type Store struct {
	sessions *gocache.Cache
	analyses *gocache.Cache
	domains  *gocache.Cache
}

// New creates a store whose janitor sweeps expired entries every
// cfg.SweepInterval and evicts anything older than cfg.TTL.
func New(cfg model.CacheConfig) *Store {
	return &Store{
		sessions: gocache.New(cfg.TTL, cfg.SweepInterval),
		analyses: gocache.New(cfg.TTL, cfg.SweepInterval),
		domains:  gocache.New(cfg.TTL, cfg.SweepInterval),
	}
}

func key(tabID int) string {
	return strconv.Itoa(tabID)
}

// OnSessionEvicted registers a callback fired whenever a session leaves the
// cache, whether by TTL expiry or explicit delete. The orchestrator uses it
// to cancel watchdog timers whose owning session no longer exists.
func (s *Store) OnSessionEvicted(fn func(tabID int)) {
	s.sessions.OnEvicted(func(k string, _ interface{}) {
		if tabID, err := strconv.Atoi(k); err == nil {
			fn(tabID)
		}
	})
}

// Session returns the live session for a tab, if any
func (s *Store) Session(tabID int) (*TabSession, bool) {
	if v, found := s.sessions.Get(key(tabID)); found {
		return v.(*TabSession), true
	}
	return nil, false
}

// SetSession stores a session under its tab identifier
func (s *Store) SetSession(session *TabSession) {
	s.sessions.Set(key(session.TabID), session, gocache.DefaultExpiration)
}

// DeleteSession removes a tab's session
func (s *Store) DeleteSession(tabID int) {
	s.sessions.Delete(key(tabID))
}

// Analysis returns the cached analysis for a tab, if any
func (s *Store) Analysis(tabID int) (*model.Analysis, bool) {
	if v, found := s.analyses.Get(key(tabID)); found {
		return v.(*model.Analysis), true
	}
	return nil, false
}

// SetAnalysis stores the terminal analysis for a tab
func (s *Store) SetAnalysis(tabID int, a *model.Analysis) {
	s.analyses.Set(key(tabID), a, gocache.DefaultExpiration)
}

// DeleteAnalysis removes a tab's analysis
func (s *Store) DeleteAnalysis(tabID int) {
	s.analyses.Delete(key(tabID))
}

// ClearAnalyses drops every cached analysis. Used when the judgment
// credential changes and all tabs must re-derive.
func (s *Store) ClearAnalyses() {
	s.analyses.Flush()
}

// SetDomainTab records which tab most recently showed a domain. The index
// is best-effort and never authoritative.
func (s *Store) SetDomainTab(domain string, tabID int) {
	s.domains.Set(domain, tabID, gocache.DefaultExpiration)
}

// TabForDomain looks up the tab last associated with a domain
func (s *Store) TabForDomain(domain string) (int, bool) {
	if v, found := s.domains.Get(domain); found {
		return v.(int), true
	}
	return 0, false
}

// RemoveTab eagerly removes a tab from all three caches. Called on tab
// close; eviction here is synchronous, not deferred to the janitor.
func (s *Store) RemoveTab(tabID int) {
	s.sessions.Delete(key(tabID))
	s.analyses.Delete(key(tabID))
	for domain, item := range s.domains.Items() {
		if id, ok := item.Object.(int); ok && id == tabID {
			s.domains.Delete(domain)
		}
	}
}

// Tabs returns every tab identifier currently known to the session or
// analysis caches
func (s *Store) Tabs() []int {
	seen := make(map[int]struct{})
	for k := range s.sessions.Items() {
		if tabID, err := strconv.Atoi(k); err == nil {
			seen[tabID] = struct{}{}
		}
	}
	for k := range s.analyses.Items() {
		if tabID, err := strconv.Atoi(k); err == nil {
			seen[tabID] = struct{}{}
		}
	}

	tabs := make([]int, 0, len(seen))
	for tabID := range seen {
		tabs = append(tabs, tabID)
	}
	return tabs
}

// Package orchestrator drives the per-tab discovery, fetch, and analysis
// cycle. Each navigation opens a cycle that races candidate policy URLs,
// scores whatever content survives, and publishes exactly one Analysis per
// cycle, either a full verdict or a degraded fallback.
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/policyscope/policyscope/internal/discovery"
	"github.com/policyscope/policyscope/internal/fetch"
	"github.com/policyscope/policyscope/internal/llm"
	"github.com/policyscope/policyscope/internal/model"
	"github.com/policyscope/policyscope/internal/score"
	"github.com/policyscope/policyscope/internal/settings"
	"github.com/policyscope/policyscope/internal/store"
	"github.com/policyscope/policyscope/internal/util"
)

// Fallback scores for cycles that never reach the judge
const (
	noDocumentsScore = 20
	noContentScore   = 20
	timeoutScore     = 20
	analysisErrScore = 30
)

// User-facing messages attached to degraded analyses
const (
	msgNoDocuments   = "No policy documents found on this website."
	msgNoContent     = "No policy content could be retrieved. The site may not have accessible policies."
	msgTimeout       = "Analysis timed out. The policies may be difficult to locate or process."
	msgJudgeFailed   = "OpenAI API analysis failed. Using basic analysis instead."
	msgAnalysisError = "Error during analysis. Try again or check settings."
)

// ContentRacer retrieves the text of one policy document by trying candidate
// URLs in order. The boolean is false when no candidate yielded usable text.
type ContentRacer interface {
	Race(ctx context.Context, candidates []model.URLCandidate, docType model.PolicyType) (string, bool)
}

// Orchestrator owns all per-tab discovery cycles. One mutex serializes every
// state transition; the slow work (discovery waits, HTTP races, judge calls)
// runs outside the lock and re-validates its cycle before writing results.
type Orchestrator struct {
	cfg      *model.Config
	store    *store.Store
	settings *settings.Store
	racer    ContentRacer
	provider discovery.Provider
	sink     Sink

	// judgeFactory builds a judge for the credential in effect when a cycle
	// reaches analysis, so credential changes apply to the next cycle without
	// a restart
	judgeFactory func(apiKey string) (llm.Provider, error)

	// mu guards activeTab and every field of live TabSessions; the store's
	// own lock covers only its maps
	mu        sync.Mutex
	activeTab int

	watchdogs *watchdogRegistry
	cycleSeq  atomic.Uint64
}

// New wires an orchestrator over the given stores and collaborators. A nil
// sink discards presentation events; a nil provider means candidate links are
// always guessed from well-known paths.
func New(cfg *model.Config, st *store.Store, set *settings.Store, racer ContentRacer, provider discovery.Provider, sink Sink) *Orchestrator {
	if sink == nil {
		sink = NopSink{}
	}
	if provider == nil {
		provider = discovery.Unavailable
	}
	o := &Orchestrator{
		cfg:       cfg,
		store:     st,
		settings:  set,
		racer:     racer,
		provider:  provider,
		sink:      sink,
		watchdogs: newWatchdogRegistry(),
	}
	o.judgeFactory = func(apiKey string) (llm.Provider, error) {
		return llm.NewOpenAIJudge(llm.Config{
			APIKey:         apiKey,
			Model:          cfg.LLM.Model,
			BaseURL:        cfg.LLM.BaseURL,
			MaxTokens:      cfg.LLM.MaxTokens,
			Timeout:        cfg.LLM.Timeout,
			MaxPromptChars: cfg.LLM.MaxPromptChars,
		})
	}
	// a session expiring mid-cycle must not leave its watchdog pending
	st.OnSessionEvicted(o.watchdogs.Cancel)
	set.Subscribe(o.onSettingChanged)
	return o
}

// NewDefault builds an orchestrator with the real HTTP racer
func NewDefault(cfg *model.Config, st *store.Store, set *settings.Store, provider discovery.Provider, sink Sink) *Orchestrator {
	return New(cfg, st, set, fetch.NewRacer(cfg), provider, sink)
}

// TabActivated records the foreground tab and refreshes its badge
func (o *Orchestrator) TabActivated(tabID int) {
	o.mu.Lock()
	o.activeTab = tabID
	o.mu.Unlock()
	o.sink.SetBadge(tabID, o.BadgeFor(tabID))
}

// TabRemoved tears down every trace of a tab: its session, any cached
// analysis, domain mappings, and a pending watchdog. In-flight work for the
// tab finishes into the void.
func (o *Orchestrator) TabRemoved(tabID int) {
	o.mu.Lock()
	o.watchdogs.Cancel(tabID)
	o.store.RemoveTab(tabID)
	o.mu.Unlock()
}

// NavigationComplete opens a discovery cycle for the tab's new page. Non-web
// URLs are ignored. A cached analysis for the same domain short-circuits the
// cycle; an in-flight cycle for the same domain is left to run.
func (o *Orchestrator) NavigationComplete(tabID int, rawURL string) {
	if !util.IsAnalyzableURL(rawURL) {
		return
	}
	domain := util.NormalizeDomain(rawURL)
	o.store.SetDomainTab(domain, tabID)

	if !o.settings.AutoAnalyze() {
		o.sink.SetBadge(tabID, BadgeNone)
		return
	}
	if a, ok := o.store.Analysis(tabID); ok && a.Domain == domain {
		o.sink.SetBadge(tabID, o.BadgeFor(tabID))
		return
	}
	o.startCycle(tabID, domain, false)
}

// ReportLinks feeds discovered candidate links into the tab's cycle. An empty
// set is authoritative: the page has no policy links and the cycle completes
// with a degraded analysis instead of guessing.
func (o *Orchestrator) ReportLinks(tabID int, rawURL string, links model.CandidateLinks) {
	domain := util.NormalizeDomain(rawURL)

	o.mu.Lock()
	session, ok := o.store.Session(tabID)
	if !ok || session.Done() {
		session = store.NewTabSession(tabID, domain)
		session.Cycle = o.cycleSeq.Add(1)
		session.State = store.StateDiscovering
		o.store.SetSession(session)
		o.watchdogs.Arm(tabID, o.cfg.Fetch.WatchdogTimeout, o.watchdogFunc(tabID, session.Cycle))
	}
	cycle := session.Cycle
	session.Links = links
	session.Touch()
	o.mu.Unlock()

	if links.Empty() {
		fb := score.BuildFallback(domain, score.Result{Score: noDocumentsScore})
		fb.Message = msgNoDocuments
		o.finish(tabID, cycle, fb)
		return
	}
	o.startFetch(tabID, cycle, links)
}

// ManualAnalyze discards any cached result for the tab and forces a fresh
// cycle that skips the discovery provider and guesses candidates directly.
// It returns llm.ErrMissingCredential when no API key is configured; the
// heuristic cycle still proceeds.
func (o *Orchestrator) ManualAnalyze(tabID int, rawURL string) error {
	domain := util.NormalizeDomain(rawURL)

	o.mu.Lock()
	o.store.DeleteAnalysis(tabID)
	o.store.DeleteSession(tabID)
	o.mu.Unlock()

	o.startCycle(tabID, domain, true)

	if o.settings.Credential() == "" {
		return llm.ErrMissingCredential
	}
	return nil
}

// GetAnalysis returns the cached analysis for a tab, if any
func (o *Orchestrator) GetAnalysis(tabID int) (*model.Analysis, bool) {
	return o.store.Analysis(tabID)
}

// BadgeFor derives the current badge for a tab from cached state. Session
// fields are guarded by the orchestrator mutex, and holding it across both
// lookups keeps the analysis and session reads consistent with each other
// while a cycle completes.
func (o *Orchestrator) BadgeFor(tabID int) Badge {
	o.mu.Lock()
	defer o.mu.Unlock()
	if a, ok := o.store.Analysis(tabID); ok {
		return badgeForScore(a.RiskScore)
	}
	if s, ok := o.store.Session(tabID); ok && !s.Done() {
		return BadgePending
	}
	return BadgeNone
}

// AnalyzeDomain runs one synchronous cycle for a bare domain with guessed
// candidates. It always returns an analysis; degraded paths surface as
// fallback records rather than errors.
func (o *Orchestrator) AnalyzeDomain(ctx context.Context, domain string) (*model.Analysis, error) {
	domain = util.NormalizeDomain(domain)
	links := discovery.GuessCandidates(domain)

	terms, privacy := o.raceAll(ctx, links)
	if terms == "" && privacy == "" {
		fb := score.BuildFallback(domain, score.Result{Score: noContentScore})
		fb.Message = msgNoContent
		return fb, nil
	}
	return o.analyzeContent(ctx, domain, combineContent(terms, privacy)), nil
}

// startCycle creates a fresh session and launches the discovery goroutine.
// A live cycle for the same tab and domain absorbs the call.
func (o *Orchestrator) startCycle(tabID int, domain string, skipProvider bool) {
	o.mu.Lock()
	if s, ok := o.store.Session(tabID); ok && !s.Done() && s.Domain == domain {
		o.mu.Unlock()
		return
	}
	session := store.NewTabSession(tabID, domain)
	session.Cycle = o.cycleSeq.Add(1)
	session.State = store.StateDiscovering
	o.store.SetSession(session)
	cycle := session.Cycle
	o.watchdogs.Arm(tabID, o.cfg.Fetch.WatchdogTimeout, o.watchdogFunc(tabID, cycle))
	o.mu.Unlock()

	o.sink.SetBadge(tabID, BadgePending)
	log.Debug().Int("tab", tabID).Str("domain", domain).Uint64("cycle", cycle).Msg("discovery cycle started")

	go o.discover(tabID, cycle, domain, skipProvider)
}

// discover obtains candidate links, falling back to well-known path guesses
// when no provider answer arrives in time
func (o *Orchestrator) discover(tabID int, cycle uint64, domain string, skipProvider bool) {
	var links model.CandidateLinks
	guessed := false

	if skipProvider {
		links = discovery.GuessCandidates(domain)
		guessed = true
	} else {
		// give the page's link collector a moment to report on its own
		time.Sleep(o.cfg.Fetch.GraceDelay)

		if o.fetchAlreadyStarted(tabID, cycle) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Fetch.PerFetchTimeout)
		found, err := o.provider.Discover(ctx, tabID)
		cancel()
		if err != nil {
			log.Debug().Int("tab", tabID).Err(err).Msg("discovery provider unavailable, guessing candidates")
			links = discovery.GuessCandidates(domain)
			guessed = true
		} else {
			links = found
		}
	}

	if links.Empty() {
		if guessed {
			// guessing only produces nothing for a blank domain
			fb := score.BuildFallback(domain, score.Result{Score: noContentScore})
			fb.Message = msgNoContent
			o.finish(tabID, cycle, fb)
			return
		}
		fb := score.BuildFallback(domain, score.Result{Score: noDocumentsScore})
		fb.Message = msgNoDocuments
		o.finish(tabID, cycle, fb)
		return
	}
	o.startFetch(tabID, cycle, links)
}

// fetchAlreadyStarted reports whether the cycle moved past discovery while
// the grace delay was sleeping, which happens when links arrive by push
func (o *Orchestrator) fetchAlreadyStarted(tabID int, cycle uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.store.Session(tabID)
	return ok && s.Cycle == cycle && (s.FetchStarted || s.Done())
}

// startFetch flips the session's one-shot fetch guard and launches the
// racing goroutine. A second call for the same cycle is a no-op.
func (o *Orchestrator) startFetch(tabID int, cycle uint64, links model.CandidateLinks) {
	o.mu.Lock()
	session, ok := o.store.Session(tabID)
	if !ok || session.Cycle != cycle || session.Done() || session.FetchStarted {
		o.mu.Unlock()
		return
	}
	session.FetchStarted = true
	session.State = store.StateFetching
	session.Links = links
	session.Touch()
	domain := session.Domain
	o.mu.Unlock()

	o.sink.SetBadge(tabID, BadgePending)
	go o.runFetch(tabID, cycle, domain, links)
}

// runFetch races both document types under the join deadline, then analyzes
// whatever text survived
func (o *Orchestrator) runFetch(tabID int, cycle uint64, domain string, links model.CandidateLinks) {
	terms, privacy := o.raceAll(context.Background(), links)

	o.mu.Lock()
	if s, ok := o.store.Session(tabID); ok && s.Cycle == cycle && !s.Done() {
		s.TermsContent = terms
		s.PrivacyContent = privacy
		s.Touch()
	}
	o.mu.Unlock()

	if terms == "" && privacy == "" {
		fb := score.BuildFallback(domain, score.Result{Score: noContentScore})
		fb.Message = msgNoContent
		o.finish(tabID, cycle, fb)
		return
	}
	o.finish(tabID, cycle, o.analyzeContent(context.Background(), domain, combineContent(terms, privacy)))
}

// raceAll runs both racers concurrently under the shared join deadline.
// Hitting the deadline leaves both documents absent.
func (o *Orchestrator) raceAll(ctx context.Context, links model.CandidateLinks) (terms, privacy string) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Fetch.JoinTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(links.Terms) == 0 {
			return nil
		}
		if text, ok := o.racer.Race(gctx, links.Terms, model.PolicyTerms); ok {
			terms = text
		}
		return nil
	})
	g.Go(func() error {
		if len(links.Privacy) == 0 {
			return nil
		}
		if text, ok := o.racer.Race(gctx, links.Privacy, model.PolicyPrivacy); ok {
			privacy = text
		}
		return nil
	})
	_ = g.Wait()

	if ctx.Err() != nil {
		return "", ""
	}
	return terms, privacy
}

// analyzeContent scores the combined text and, when a credential is present,
// asks the judge for a full verdict. Judge failure degrades to the heuristic
// result instead of failing the cycle.
func (o *Orchestrator) analyzeContent(ctx context.Context, domain, content string) *model.Analysis {
	heuristic := score.Analyze(content)

	apiKey := o.settings.Credential()
	if apiKey == "" {
		return score.BuildFallback(domain, heuristic)
	}

	judge, err := o.judgeFactory(apiKey)
	if err != nil {
		log.Warn().Str("domain", domain).Err(err).Msg("judge unavailable")
		fb := score.BuildFallback(domain, score.Result{Score: analysisErrScore})
		fb.Message = msgAnalysisError
		return fb
	}

	a, err := judge.Judge(ctx, llm.JudgeRequest{Domain: domain, Content: content, Heuristic: heuristic})
	if err != nil {
		log.Warn().Str("domain", domain).Err(err).Msg("judge failed, keeping heuristic result")
		fb := score.BuildFallback(domain, heuristic)
		fb.Message = msgJudgeFailed
		return fb
	}
	return a
}

// finish publishes the cycle's analysis. The first writer for a cycle wins:
// a finished or replaced session discards the result, so a late racer can
// never overwrite the watchdog's verdict or a newer cycle's work.
func (o *Orchestrator) finish(tabID int, cycle uint64, analysis *model.Analysis) {
	o.mu.Lock()
	session, ok := o.store.Session(tabID)
	if !ok || session.Cycle != cycle || session.Done() {
		o.mu.Unlock()
		log.Debug().Int("tab", tabID).Uint64("cycle", cycle).Msg("late result discarded")
		return
	}
	session.State = store.StateDone
	session.Touch()
	o.watchdogs.Cancel(tabID)
	if analysis.Timestamp.IsZero() {
		analysis.Timestamp = time.Now()
	}
	o.store.SetAnalysis(tabID, analysis)
	notify := o.settings.ShowNotifications() && analysis.RiskScore >= o.cfg.Notify.MediumThreshold
	o.mu.Unlock()

	log.Info().
		Int("tab", tabID).
		Str("domain", analysis.Domain).
		Int("score", analysis.RiskScore).
		Bool("fallback", analysis.IsFallback).
		Msg("analysis complete")

	o.sink.SetBadge(tabID, badgeForScore(analysis.RiskScore))
	o.sink.AnalysisReady(tabID, analysis)
	if notify {
		o.sink.Notify(analysis.Domain, analysis.RiskScore)
	}
}

// watchdogFunc builds the deadline callback for one cycle. When it fires the
// cycle is still live, so it completes the tab with a timeout fallback.
func (o *Orchestrator) watchdogFunc(tabID int, cycle uint64) func() {
	return func() {
		o.mu.Lock()
		session, ok := o.store.Session(tabID)
		if !ok || session.Cycle != cycle || session.Done() {
			o.mu.Unlock()
			return
		}
		domain := session.Domain
		o.mu.Unlock()

		log.Warn().Int("tab", tabID).Str("domain", domain).Msg("analysis watchdog fired")
		fb := score.BuildFallback(domain, score.Result{Score: timeoutScore})
		fb.Message = msgTimeout
		o.finish(tabID, cycle, fb)
	}
}

// combineContent joins the retrieved documents under labeled headers so the
// scorer and judge see which text came from which policy
func combineContent(terms, privacy string) string {
	var out string
	if terms != "" {
		out = "TERMS OF SERVICE:\n\n" + terms
	}
	if privacy != "" {
		if out != "" {
			out += "\n\n"
		}
		out += "PRIVACY POLICY:\n\n" + privacy
	}
	return out
}

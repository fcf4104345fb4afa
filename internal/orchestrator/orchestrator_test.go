package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/policyscope/policyscope/internal/discovery"
	"github.com/policyscope/policyscope/internal/llm"
	"github.com/policyscope/policyscope/internal/model"
	"github.com/policyscope/policyscope/internal/settings"
	"github.com/policyscope/policyscope/internal/store"
)

const riskyText = "By using this service you agree to mandatory arbitration and that we may sell your data to partners."

type fakeRacer struct {
	mu    sync.Mutex
	calls int
	text  string
	block chan struct{}
}

func (f *fakeRacer) Race(ctx context.Context, candidates []model.URLCandidate, docType model.PolicyType) (string, bool) {
	f.mu.Lock()
	f.calls++
	block := f.block
	text := f.text
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", false
		}
	}
	if text == "" {
		return "", false
	}
	return text, true
}

func (f *fakeRacer) raceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRacer) setBlock(ch chan struct{}) {
	f.mu.Lock()
	f.block = ch
	f.mu.Unlock()
}

type fakeJudge struct {
	analysis *model.Analysis
	err      error
}

func (f *fakeJudge) Name() string { return "fake" }

func (f *fakeJudge) Judge(ctx context.Context, req llm.JudgeRequest) (*model.Analysis, error) {
	return f.analysis, f.err
}

type recordSink struct {
	mu      sync.Mutex
	badges  []Badge
	notices []string
	ready   chan *model.Analysis
}

func newRecordSink() *recordSink {
	return &recordSink{ready: make(chan *model.Analysis, 8)}
}

func (s *recordSink) SetBadge(tabID int, b Badge) {
	s.mu.Lock()
	s.badges = append(s.badges, b)
	s.mu.Unlock()
}

func (s *recordSink) AnalysisReady(tabID int, a *model.Analysis) {
	s.ready <- a
}

func (s *recordSink) Notify(domain string, riskScore int) {
	s.mu.Lock()
	s.notices = append(s.notices, domain)
	s.mu.Unlock()
}

func (s *recordSink) lastBadge() Badge {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.badges) == 0 {
		return BadgeNone
	}
	return s.badges[len(s.badges)-1]
}

func (s *recordSink) noticeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notices)
}

func (s *recordSink) waitReady(t *testing.T) *model.Analysis {
	t.Helper()
	select {
	case a := <-s.ready:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for analysis")
		return nil
	}
}

func (s *recordSink) expectNoReady(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case a := <-s.ready:
		t.Fatalf("unexpected analysis delivered: %+v", a)
	case <-time.After(d):
	}
}

func staticProvider(links model.CandidateLinks) discovery.Provider {
	return discovery.ProviderFunc(func(context.Context, int) (model.CandidateLinks, error) {
		return links, nil
	})
}

func testLinks() model.CandidateLinks {
	return model.CandidateLinks{
		Terms:   []model.URLCandidate{{URL: "https://example.com/terms", Label: "Terms"}},
		Privacy: []model.URLCandidate{{URL: "https://example.com/privacy", Label: "Privacy"}},
	}
}

func newTestOrchestrator(t *testing.T, racer ContentRacer, provider discovery.Provider) (*Orchestrator, *recordSink, *settings.Store, *store.Store) {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Fetch.GraceDelay = time.Millisecond
	cfg.Fetch.PerFetchTimeout = 200 * time.Millisecond
	cfg.Fetch.JoinTimeout = time.Second
	cfg.Fetch.WatchdogTimeout = 5 * time.Second

	set := settings.New(viper.New())
	st := store.New(cfg.Cache)
	sink := newRecordSink()
	return New(cfg, st, set, racer, provider, sink), sink, set, st
}

func TestAutoAnalyzeHeuristicFlow(t *testing.T) {
	racer := &fakeRacer{text: riskyText}
	o, sink, _, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))

	o.NavigationComplete(1, "https://www.example.com/page")
	a := sink.waitReady(t)

	if !a.IsFallback {
		t.Error("expected heuristic fallback without a credential")
	}
	if a.Domain != "example.com" {
		t.Errorf("domain = %q, want example.com", a.Domain)
	}
	if a.RiskScore != 40 {
		t.Errorf("risk score = %d, want 40", a.RiskScore)
	}
	if a.Message != "" {
		t.Errorf("unexpected message %q", a.Message)
	}
	if got, ok := o.GetAnalysis(1); !ok || got.RiskScore != a.RiskScore {
		t.Error("analysis not cached for tab")
	}
	if b := sink.lastBadge(); b != BadgeMedium {
		t.Errorf("badge = %v, want %v", b, BadgeMedium)
	}
	if sink.noticeCount() != 1 {
		t.Errorf("notices = %d, want 1", sink.noticeCount())
	}
}

func TestNavigationIgnoresNonWebURLs(t *testing.T) {
	racer := &fakeRacer{text: riskyText}
	o, _, _, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))

	o.NavigationComplete(1, "about:blank")
	o.NavigationComplete(1, "chrome://settings")
	time.Sleep(50 * time.Millisecond)

	if racer.raceCount() != 0 {
		t.Errorf("racer called %d times for non-web URLs", racer.raceCount())
	}
	if _, ok := o.GetAnalysis(1); ok {
		t.Error("analysis cached for non-web URL")
	}
}

func TestNavigationCacheHit(t *testing.T) {
	racer := &fakeRacer{text: riskyText}
	o, sink, _, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))

	o.NavigationComplete(1, "https://example.com/")
	sink.waitReady(t)
	first := racer.raceCount()

	o.NavigationComplete(1, "https://example.com/other-page")
	time.Sleep(50 * time.Millisecond)

	if racer.raceCount() != first {
		t.Errorf("cache hit re-raced: %d -> %d calls", first, racer.raceCount())
	}
	if b := sink.lastBadge(); b != BadgeMedium {
		t.Errorf("badge after cache hit = %v, want %v", b, BadgeMedium)
	}
}

func TestDuplicateNavigationStartsOneCycle(t *testing.T) {
	block := make(chan struct{})
	racer := &fakeRacer{text: riskyText, block: block}
	o, sink, _, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))

	o.NavigationComplete(1, "https://example.com/")
	o.NavigationComplete(1, "https://example.com/")
	time.Sleep(20 * time.Millisecond)
	close(block)
	sink.waitReady(t)

	// one cycle means exactly one race per document type
	if racer.raceCount() != 2 {
		t.Errorf("race calls = %d, want 2", racer.raceCount())
	}
}

func TestAuthoritativeEmptyLinks(t *testing.T) {
	racer := &fakeRacer{text: riskyText}
	o, sink, _, _ := newTestOrchestrator(t, racer, staticProvider(model.CandidateLinks{}))

	o.NavigationComplete(1, "https://example.com/")
	a := sink.waitReady(t)

	if a.Message != msgNoDocuments {
		t.Errorf("message = %q, want %q", a.Message, msgNoDocuments)
	}
	if a.RiskScore != noDocumentsScore {
		t.Errorf("risk score = %d, want %d", a.RiskScore, noDocumentsScore)
	}
	if !a.IsFallback {
		t.Error("expected fallback analysis")
	}
	if racer.raceCount() != 0 {
		t.Error("racer ran despite authoritative empty links")
	}
	if len(a.RiskFactors) < 3 {
		t.Errorf("risk factors = %d, want at least 3", len(a.RiskFactors))
	}
}

func TestNoContentFallback(t *testing.T) {
	racer := &fakeRacer{} // every race comes back empty
	o, sink, _, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))

	o.NavigationComplete(1, "https://example.com/")
	a := sink.waitReady(t)

	if a.Message != msgNoContent {
		t.Errorf("message = %q, want %q", a.Message, msgNoContent)
	}
	if a.RiskScore != noContentScore {
		t.Errorf("risk score = %d, want %d", a.RiskScore, noContentScore)
	}
}

func TestJudgeFailureDegradesToHeuristic(t *testing.T) {
	racer := &fakeRacer{text: riskyText}
	o, sink, set, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))
	set.Set(settings.KeyAPIKey, "sk-test")
	o.judgeFactory = func(string) (llm.Provider, error) {
		return &fakeJudge{err: errors.New("upstream 500")}, nil
	}

	o.NavigationComplete(1, "https://example.com/")
	a := sink.waitReady(t)

	if a.Message != msgJudgeFailed {
		t.Errorf("message = %q, want %q", a.Message, msgJudgeFailed)
	}
	if a.RiskScore != 40 {
		t.Errorf("risk score = %d, want heuristic 40", a.RiskScore)
	}
	if !a.IsFallback {
		t.Error("expected fallback analysis")
	}
}

func TestJudgeVerdictWins(t *testing.T) {
	verdict := &model.Analysis{
		Domain:    "example.com",
		RiskScore: 85,
		Summary:   "Sweeping data-sharing rights.",
		RiskFactors: []model.RiskFactor{
			{Title: "Data Sale", Description: "Personal data is sold.", Level: model.RiskLevelHigh},
		},
	}
	racer := &fakeRacer{text: riskyText}
	o, sink, set, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))
	set.Set(settings.KeyAPIKey, "sk-test")
	o.judgeFactory = func(string) (llm.Provider, error) {
		return &fakeJudge{analysis: verdict}, nil
	}

	o.NavigationComplete(1, "https://example.com/")
	a := sink.waitReady(t)

	if a.IsFallback {
		t.Error("judge verdict marked as fallback")
	}
	if a.RiskScore != 85 {
		t.Errorf("risk score = %d, want 85", a.RiskScore)
	}
	if b := sink.lastBadge(); b != BadgeHigh {
		t.Errorf("badge = %v, want %v", b, BadgeHigh)
	}
	if sink.noticeCount() != 1 {
		t.Errorf("notices = %d, want 1", sink.noticeCount())
	}
}

func TestWatchdogFallbackAndLateDiscard(t *testing.T) {
	block := make(chan struct{})
	racer := &fakeRacer{text: riskyText, block: block}
	cfgProvider := staticProvider(testLinks())
	o, sink, _, _ := newTestOrchestrator(t, racer, cfgProvider)
	o.cfg.Fetch.WatchdogTimeout = 50 * time.Millisecond

	o.NavigationComplete(1, "https://example.com/")
	a := sink.waitReady(t)

	if a.Message != msgTimeout {
		t.Errorf("message = %q, want %q", a.Message, msgTimeout)
	}
	if a.RiskScore != timeoutScore {
		t.Errorf("risk score = %d, want %d", a.RiskScore, timeoutScore)
	}

	// the stalled racer completing now must not displace the watchdog verdict
	close(block)
	sink.expectNoReady(t, 100*time.Millisecond)
	got, ok := o.GetAnalysis(1)
	if !ok || got.Message != msgTimeout {
		t.Error("late racer result overwrote the watchdog verdict")
	}
}

func TestManualAnalyzeForcesFreshCycle(t *testing.T) {
	racer := &fakeRacer{text: riskyText}
	o, sink, _, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))

	o.NavigationComplete(1, "https://example.com/")
	sink.waitReady(t)

	block := make(chan struct{})
	racer.setBlock(block)

	err := o.ManualAnalyze(1, "https://example.com/")
	if !errors.Is(err, llm.ErrMissingCredential) {
		t.Errorf("err = %v, want ErrMissingCredential", err)
	}
	if _, ok := o.GetAnalysis(1); ok {
		t.Error("stale analysis still cached during manual re-analysis")
	}

	close(block)
	a := sink.waitReady(t)
	if a.RiskScore != 40 {
		t.Errorf("risk score = %d, want 40", a.RiskScore)
	}
	if _, ok := o.GetAnalysis(1); !ok {
		t.Error("fresh analysis not cached")
	}
}

func TestTabRemovedDiscardsInFlightWork(t *testing.T) {
	block := make(chan struct{})
	racer := &fakeRacer{text: riskyText, block: block}
	o, sink, _, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))

	o.NavigationComplete(1, "https://example.com/")
	time.Sleep(20 * time.Millisecond)
	o.TabRemoved(1)
	close(block)

	sink.expectNoReady(t, 100*time.Millisecond)
	if _, ok := o.GetAnalysis(1); ok {
		t.Error("analysis cached for removed tab")
	}
}

func TestCredentialChangeClearsAnalyses(t *testing.T) {
	racer := &fakeRacer{text: riskyText}
	o, sink, set, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))

	o.NavigationComplete(1, "https://example.com/")
	sink.waitReady(t)

	set.Set(settings.KeyAPIKey, "sk-new")
	if _, ok := o.GetAnalysis(1); ok {
		t.Error("analysis survived credential change")
	}
}

func TestAutoAnalyzeToggle(t *testing.T) {
	racer := &fakeRacer{text: riskyText}
	o, sink, set, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))

	o.TabActivated(1)
	o.NavigationComplete(1, "https://example.com/")
	sink.waitReady(t)
	after := racer.raceCount()

	set.Set(settings.KeyAutoAnalyze, false)
	if b := sink.lastBadge(); b != BadgeNone {
		t.Errorf("badge after disabling = %v, want %v", b, BadgeNone)
	}

	o.NavigationComplete(1, "https://other.example/")
	time.Sleep(50 * time.Millisecond)
	if racer.raceCount() != after {
		t.Error("cycle started while auto-analysis disabled")
	}

	// re-enabling with a cached analysis only refreshes the badge
	set.Set(settings.KeyAutoAnalyze, true)
	time.Sleep(50 * time.Millisecond)
	if racer.raceCount() != after {
		t.Error("cache hit re-raced after re-enabling auto-analysis")
	}
	if b := sink.lastBadge(); b != BadgeMedium {
		t.Errorf("badge after re-enabling = %v, want %v", b, BadgeMedium)
	}
}

func TestReportLinksStartsCycle(t *testing.T) {
	racer := &fakeRacer{text: riskyText}
	o, sink, _, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))

	o.ReportLinks(1, "https://example.com/", testLinks())
	a := sink.waitReady(t)

	if a.Domain != "example.com" {
		t.Errorf("domain = %q, want example.com", a.Domain)
	}
	if a.RiskScore != 40 {
		t.Errorf("risk score = %d, want 40", a.RiskScore)
	}
}

func TestPushedLinksBeatSlowProvider(t *testing.T) {
	slow := discovery.ProviderFunc(func(ctx context.Context, tabID int) (model.CandidateLinks, error) {
		time.Sleep(150 * time.Millisecond)
		return testLinks(), nil
	})
	racer := &fakeRacer{text: riskyText}
	o, sink, _, _ := newTestOrchestrator(t, racer, slow)
	o.cfg.Fetch.GraceDelay = 100 * time.Millisecond

	o.NavigationComplete(1, "https://example.com/")
	o.ReportLinks(1, "https://example.com/", testLinks())
	sink.waitReady(t)

	time.Sleep(200 * time.Millisecond)
	if racer.raceCount() != 2 {
		t.Errorf("race calls = %d, want 2 despite two link sources", racer.raceCount())
	}
}

func TestAnalyzeDomainNoContent(t *testing.T) {
	racer := &fakeRacer{}
	o, _, _, _ := newTestOrchestrator(t, racer, nil)

	a, err := o.AnalyzeDomain(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("AnalyzeDomain: %v", err)
	}
	if a.Message != msgNoContent {
		t.Errorf("message = %q, want %q", a.Message, msgNoContent)
	}
}

func TestAnalyzeDomainHeuristic(t *testing.T) {
	racer := &fakeRacer{text: riskyText}
	o, _, _, _ := newTestOrchestrator(t, racer, nil)

	a, err := o.AnalyzeDomain(context.Background(), "https://www.example.com/")
	if err != nil {
		t.Fatalf("AnalyzeDomain: %v", err)
	}
	if a.Domain != "example.com" {
		t.Errorf("domain = %q, want example.com", a.Domain)
	}
	if a.RiskScore != 40 {
		t.Errorf("risk score = %d, want 40", a.RiskScore)
	}
	if !a.IsFallback {
		t.Error("expected heuristic fallback without a credential")
	}
}

func TestCombineContent(t *testing.T) {
	got := combineContent("T", "P")
	want := "TERMS OF SERVICE:\n\nT\n\nPRIVACY POLICY:\n\nP"
	if got != want {
		t.Errorf("combined = %q, want %q", got, want)
	}
	if combineContent("T", "") != "TERMS OF SERVICE:\n\nT" {
		t.Error("terms-only combination wrong")
	}
	if combineContent("", "P") != "PRIVACY POLICY:\n\nP" {
		t.Error("privacy-only combination wrong")
	}
}

func TestWatchdogRegistryReplaceAndCancel(t *testing.T) {
	r := newWatchdogRegistry()
	fired := make(chan int, 2)

	r.Arm(1, 10*time.Millisecond, func() { fired <- 1 })
	r.Arm(1, 30*time.Millisecond, func() { fired <- 2 })

	select {
	case got := <-fired:
		if got != 2 {
			t.Errorf("replaced timer fired (%d)", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	r.Arm(2, 20*time.Millisecond, func() { fired <- 3 })
	r.Cancel(2)
	select {
	case got := <-fired:
		t.Errorf("cancelled timer fired (%d)", got)
	case <-time.After(60 * time.Millisecond):
	}
	if r.len() != 1 {
		t.Errorf("registry len = %d, want 1", r.len())
	}
}

func TestBadgeForConcurrentWithCycle(t *testing.T) {
	racer := &fakeRacer{text: riskyText}
	block := make(chan struct{})
	racer.setBlock(block)
	o, sink, _, _ := newTestOrchestrator(t, racer, staticProvider(testLinks()))

	o.NavigationComplete(1, "https://example.com/page")

	// Session state mutates while readers poll; the badge must only ever be
	// one of the states a live or finished cycle can produce.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if b := o.BadgeFor(1); b != BadgePending && b != BadgeMedium {
					t.Errorf("badge = %v during cycle", b)
					return
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(block)
	sink.waitReady(t)
	close(stop)
	wg.Wait()

	if b := o.BadgeFor(1); b != BadgeMedium {
		t.Errorf("final badge = %v, want %v", b, BadgeMedium)
	}
}

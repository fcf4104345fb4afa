package orchestrator

import (
	"github.com/rs/zerolog/log"

	"github.com/policyscope/policyscope/internal/settings"
)

// onSettingChanged reacts to a changed setting. Credential changes invalidate
// every cached analysis so the next cycle re-derives with the new provider
// state. Toggling auto-analysis off clears every badge; toggling it on
// re-triggers the active tab.
func (o *Orchestrator) onSettingChanged(key string) {
	switch key {
	case settings.KeyAPIKey:
		o.store.ClearAnalyses()
		log.Info().Msg("credential changed, analysis cache cleared")
	case settings.KeyAutoAnalyze:
		if o.settings.AutoAnalyze() {
			o.reanalyzeActiveTab()
			return
		}
		for _, tabID := range o.store.Tabs() {
			o.sink.SetBadge(tabID, BadgeNone)
		}
	}
}

// reanalyzeActiveTab starts a cycle for the foreground tab when its analysis
// is missing or belongs to another domain
func (o *Orchestrator) reanalyzeActiveTab() {
	o.mu.Lock()
	tabID := o.activeTab
	domain := ""
	if s, ok := o.store.Session(tabID); ok {
		domain = s.Domain
	}
	o.mu.Unlock()
	if tabID == 0 {
		return
	}

	if domain == "" {
		if a, ok := o.store.Analysis(tabID); ok {
			domain = a.Domain
		}
	}
	if domain == "" {
		return
	}

	if a, ok := o.store.Analysis(tabID); ok && a.Domain == domain {
		o.sink.SetBadge(tabID, o.BadgeFor(tabID))
		return
	}
	o.startCycle(tabID, domain, true)
}

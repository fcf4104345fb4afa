package settings

import (
	"testing"

	"github.com/spf13/viper"
)

func TestStore_Defaults(t *testing.T) {
	s := New(viper.New())

	if !s.AutoAnalyze() {
		t.Error("auto-analyze must default to enabled")
	}
	if !s.ShowNotifications() {
		t.Error("notifications must default to enabled")
	}
	if s.Credential() != "" {
		t.Error("credential must default to empty")
	}
}

func TestStore_SetNotifiesSubscribers(t *testing.T) {
	s := New(viper.New())

	var changed []string
	s.Subscribe(func(key string) { changed = append(changed, key) })

	s.Set(KeyAPIKey, "sk-test")
	s.Set(KeyAutoAnalyze, false)

	if len(changed) != 2 || changed[0] != KeyAPIKey || changed[1] != KeyAutoAnalyze {
		t.Errorf("unexpected change notifications: %v", changed)
	}
	if s.Credential() != "sk-test" {
		t.Errorf("expected credential to be stored, got %q", s.Credential())
	}
	if s.AutoAnalyze() {
		t.Error("expected auto-analyze off after Set")
	}
}

func TestStore_SetSameValueDoesNotNotify(t *testing.T) {
	s := New(viper.New())
	s.Set(KeyAPIKey, "sk-test")

	var fired int
	s.Subscribe(func(string) { fired++ })

	s.Set(KeyAPIKey, "sk-test")

	if fired != 0 {
		t.Errorf("expected no notification for unchanged value, got %d", fired)
	}
}

func TestStore_MultipleSubscribers(t *testing.T) {
	s := New(viper.New())

	var first, second bool
	s.Subscribe(func(string) { first = true })
	s.Subscribe(func(string) { second = true })

	s.Set(KeyShowNotifications, false)

	if !first || !second {
		t.Error("every subscriber must be notified")
	}
}

// Package settings is the persisted user-settings store: the auto-analyze
// toggle, the notification toggle, and the judgment API credential. Changes,
// whether programmatic or from an edited config file, are pushed to
// subscribers so the orchestrator can react.
package settings

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings keys
const (
	KeyAutoAnalyze       = "auto_analyze"
	KeyShowNotifications = "show_notifications"
	KeyAPIKey            = "openai_api_key"
)

// watchedKeys are the keys whose changes are diffed and pushed to subscribers
var watchedKeys = []string{KeyAutoAnalyze, KeyShowNotifications, KeyAPIKey}

// Store wraps a viper instance with typed getters and change notification
type Store struct {
	v        *viper.Viper
	mu       sync.RWMutex
	subs     []func(key string)
	snapshot map[string]interface{}
}

// New creates a settings store over the given viper instance and installs
// the defaults: auto-analyze on, notifications on, no credential.
func New(v *viper.Viper) *Store {
	v.SetDefault(KeyAutoAnalyze, true)
	v.SetDefault(KeyShowNotifications, true)
	v.SetDefault(KeyAPIKey, "")

	s := &Store{v: v}
	s.snapshot = s.takeSnapshot()
	return s
}

// AutoAnalyze reports whether navigation events trigger analysis
func (s *Store) AutoAnalyze() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetBool(KeyAutoAnalyze)
}

// ShowNotifications reports whether risk notifications are enabled
func (s *Store) ShowNotifications() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetBool(KeyShowNotifications)
}

// Credential returns the judgment provider API key, empty when unset
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(KeyAPIKey)
}

// Set updates one setting and notifies subscribers when the value changed
func (s *Store) Set(key string, value interface{}) {
	s.mu.Lock()
	old := s.v.Get(key)
	s.v.Set(key, value)
	s.snapshot[key] = value
	subs := append([]func(string){}, s.subs...)
	s.mu.Unlock()

	if old == value {
		return
	}
	for _, fn := range subs {
		fn(key)
	}
}

// Subscribe registers a callback invoked with the key of every changed
// setting. Callbacks run on the mutating goroutine and must not block.
func (s *Store) Subscribe(fn func(key string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Watch follows the backing config file and pushes changes for the watched
// keys. A store with no config file is still usable; Set drives all
// notifications then.
func (s *Store) Watch() {
	if s.v.ConfigFileUsed() == "" {
		return
	}

	s.v.OnConfigChange(func(fsnotify.Event) {
		s.mu.Lock()
		old := s.snapshot
		s.snapshot = s.takeSnapshot()
		current := s.snapshot
		subs := append([]func(string){}, s.subs...)
		s.mu.Unlock()

		for _, key := range watchedKeys {
			if old[key] != current[key] {
				for _, fn := range subs {
					fn(key)
				}
			}
		}
	})
	s.v.WatchConfig()
}

func (s *Store) takeSnapshot() map[string]interface{} {
	snap := make(map[string]interface{}, len(watchedKeys))
	for _, key := range watchedKeys {
		snap[key] = s.v.Get(key)
	}
	return snap
}

package settings

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/qalobby/internal/engine"
	"github.com/kalambet/qalobby/internal/storage"
)

// Store defines the storage operations the Manager needs.
// Implemented by history.Store.
type Store interface {
	SetSetting(key, value string) error
	GetAllSettings() (map[string]string, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager provides cached access to the remembered LLM settings.
type Manager struct {
	store    Store
	defaults LLM
	clock    Clock
	ttl      time.Duration

	mu       sync.RWMutex
	cached   *LLM
	cachedAt time.Time
}

// NewManager creates a Manager with a 60-second cache TTL. defaults fill in
// values that were never saved.
func NewManager(store Store, defaults LLM) *Manager {
	return NewManagerWithClock(store, defaults, realClock{}, 60*time.Second)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store Store, defaults LLM, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		store:    store,
		defaults: defaults,
		clock:    clock,
		ttl:      ttl,
	}
}

// Get returns the saved settings merged over the defaults.
func (m *Manager) Get() (LLM, error) {
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		s := *m.cached
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		return *m.cached, nil
	}

	keys, err := m.store.GetAllSettings()
	if err != nil {
		return LLM{}, fmt.Errorf("loading settings: %w", err)
	}

	s := m.build(keys)
	m.cached = &s
	m.cachedAt = m.clock.Now()
	return s, nil
}

// Update persists the non-nil fields of p and invalidates the cache.
// The provider must be exactly "ollama" or "openai"; the model must be non-blank.
func (m *Manager) Update(p Patch) (LLM, error) {
	updates := make(map[string]string, 2)
	if p.Provider != nil {
		provider, ok := engine.ParseProvider(strings.TrimSpace(*p.Provider))
		if !ok {
			return LLM{}, &storage.ValidationError{Field: "provider", Message: "provider must be \"ollama\" or \"openai\""}
		}
		updates[KeyProvider] = string(provider)
	}
	if p.Model != nil {
		model := strings.TrimSpace(*p.Model)
		if model == "" {
			return LLM{}, &storage.ValidationError{Field: "model", Message: "model is required"}
		}
		updates[KeyModel] = model
	}

	m.mu.Lock()
	for _, key := range []string{KeyProvider, KeyModel} {
		value, ok := updates[key]
		if !ok {
			continue
		}
		if err := m.store.SetSetting(key, value); err != nil {
			m.mu.Unlock()
			return LLM{}, fmt.Errorf("saving setting %q: %w", key, err)
		}
	}
	m.cached = nil
	m.mu.Unlock()

	return m.Get()
}

func (m *Manager) build(keys map[string]string) LLM {
	s := m.defaults
	if v, ok := keys[KeyProvider]; ok {
		if provider, valid := engine.ParseProvider(v); valid {
			s.Provider = string(provider)
		} else {
			slog.Warn("ignoring malformed setting", "key", KeyProvider, "value", v)
		}
	}
	if v, ok := keys[KeyModel]; ok && strings.TrimSpace(v) != "" {
		s.Model = v
	}
	return s
}

// Package secrets loads credentials with a remote-store-first,
// env-var-fallback policy, TTL caching, and a fail-fast switch for
// required secrets — grounded on the teacher's internal/secrets
// provider/manager split (env.go, interfaces.go).
package secrets

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// Provider retrieves a single secret by key.
type Provider interface {
	Name() string
	GetSecret(ctx context.Context, key string) (string, bool, error)
}

// EnvProvider reads secrets from environment variables, optionally
// prefixed.
type EnvProvider struct{ Prefix string }

func (p EnvProvider) Name() string { return "env" }

func (p EnvProvider) GetSecret(_ context.Context, key string) (string, bool, error) {
	v := os.Getenv(p.Prefix + key)
	if v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// RemoteProvider is the interface a remote secret store would satisfy.
// No concrete remote backend ships in this module (see SPEC_FULL.md); it
// exists so Manager's "remote first" policy is expressible and
// testable with a fake.
type RemoteProvider interface {
	Provider
}

type cacheEntry struct {
	value     string
	fetchedAt time.Time
}

// Manager tries a remote provider first, then falls back to a local
// env-var provider, caching resolved values for TTL.
type Manager struct {
	remote   RemoteProvider // nil if none configured
	fallback Provider
	ttl      time.Duration
	required bool

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewManager builds a Manager. remote may be nil.
func NewManager(remote RemoteProvider, fallback Provider, ttl time.Duration, requireSecrets bool) *Manager {
	return &Manager{
		remote:   remote,
		fallback: fallback,
		ttl:      ttl,
		required: requireSecrets,
		cache:    make(map[string]cacheEntry),
	}
}

// Get resolves key, consulting the TTL cache first, then the remote
// provider, then the env fallback. When REQUIRE_SECRETS is set and no
// provider has the key, Get returns an error (the caller treats this
// as a fatal-config condition and aborts the process).
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	if entry, ok := m.cache[key]; ok && time.Since(entry.fetchedAt) < m.ttl {
		m.mu.Unlock()
		return entry.value, nil
	}
	m.mu.Unlock()

	if m.remote != nil {
		if v, ok, err := m.remote.GetSecret(ctx, key); err == nil && ok {
			m.store(key, v)
			return v, nil
		}
	}

	v, ok, err := m.fallback.GetSecret(ctx, key)
	if err != nil {
		return "", fmt.Errorf("fallback provider: %w", err)
	}
	if !ok {
		if m.required {
			return "", fmt.Errorf("required secret %q not found in any provider", key)
		}
		return "", nil
	}
	m.store(key, v)
	return v, nil
}

func (m *Manager) store(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = cacheEntry{value: value, fetchedAt: time.Now()}
}

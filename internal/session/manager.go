package session

import (
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Manager keeps live sessions keyed by ID. A session that is not used for
// ttl expires and is closed.
type Manager struct {
	cache *cache.Cache
	opts  Options
	log   *zap.Logger
}

// NewManager returns a Manager that purges expired sessions every cleanup.
func NewManager(ttl, cleanup time.Duration, opts Options) *Manager {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	m := &Manager{cache: cache.New(ttl, cleanup), opts: opts, log: opts.Log}
	m.cache.OnEvicted(func(id string, v any) {
		if s, ok := v.(*Session); ok {
			s.Close()
		}
		m.log.Info("session ended", zap.String("session", id))
	})
	return m
}

// Create starts and stores a new session.
func (m *Manager) Create() *Session {
	s := New(m.opts)
	m.cache.Set(s.ID, s, cache.DefaultExpiration)
	m.log.Info("session created", zap.String("session", s.ID))
	return s
}

// Get returns the session and extends its lifetime.
func (m *Manager) Get(id string) (*Session, bool) {
	x, found := m.cache.Get(id)
	if !found {
		return nil, false
	}
	s := x.(*Session)
	m.cache.Set(id, s, cache.DefaultExpiration)
	return s, true
}

// Delete ends a session. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	if _, found := m.cache.Get(id); !found {
		return false
	}
	m.cache.Delete(id)
	return true
}

// Count returns the number of stored sessions, including expired ones not
// yet purged.
func (m *Manager) Count() int { return m.cache.ItemCount() }

// Sweep closes expired sessions now.
func (m *Manager) Sweep() { m.cache.DeleteExpired() }

// Close ends every session.
func (m *Manager) Close() {
	for id := range m.cache.Items() {
		m.cache.Delete(id)
	}
}

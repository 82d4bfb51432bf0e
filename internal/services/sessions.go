package services

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"custdash/internal/cache"
	applog "custdash/internal/log"
)

// SessionConfig bounds the number and lifetime of dashboard sessions.
type SessionConfig struct {
	TTL         time.Duration
	MaxSessions int
}

// SessionStore keeps one Controller per browser session. All sessions share
// the loader's snapshot; filter state stays per session.
type SessionStore struct {
	mu       sync.Mutex
	sessions *cache.LRUCache[*Controller]
	loader   *SnapshotLoader
	renderer ChartRenderer
	ttl      time.Duration
	logger   *applog.Logger

	created atomic.Int64
	evicted atomic.Int64
}

// NewSessionStore creates a session store. Controllers of evicted or expired
// sessions are closed so their chart canvas is released.
func NewSessionStore(loader *SnapshotLoader, renderer ChartRenderer, cfg SessionConfig, logger *applog.Logger) *SessionStore {
	if logger == nil {
		logger = applog.Discard()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}

	s := &SessionStore{
		loader:   loader,
		renderer: renderer,
		ttl:      cfg.TTL,
		logger:   logger.WithComponent(applog.ComponentSession),
	}
	s.sessions = cache.NewLRUCacheWithOptions[*Controller](cfg.MaxSessions, cfg.TTL, cache.Options[*Controller]{
		OnEvict: s.onEvict,
		Sliding: true,
	})
	return s
}

func (s *SessionStore) onEvict(id string, ctrl *Controller) {
	s.evicted.Add(1)
	if err := ctrl.Close(); err != nil {
		s.logger.Warn("Failed to close evicted session",
			applog.FieldSessionID, id, applog.FieldError, err)
		return
	}
	s.logger.Debug("Session closed", applog.FieldSessionID, id)
}

// NewSessionID returns a random (version 4) session identifier.
func NewSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return id.String(), nil
}

// Get returns the controller for id, loading the shared snapshot into it once
// the fetch has resolved.
func (s *SessionStore) Get(id string) (*Controller, bool) {
	if id == "" {
		return nil, false
	}
	ctrl, ok := s.sessions.Get(id)
	if !ok {
		return nil, false
	}
	s.attach(ctrl)
	return ctrl, true
}

// GetOrCreate returns the controller for id, creating a fresh session when id
// is unknown or expired. The boolean reports whether a session was created.
func (s *SessionStore) GetOrCreate(id string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctrl, ok := s.Get(id); ok {
		return ctrl, false
	}

	ctrl := NewController(s.renderer, s.logger)
	s.sessions.Set(id, ctrl)
	s.created.Add(1)
	s.attach(ctrl)
	s.logger.Debug("Session created", applog.FieldSessionID, id)
	return ctrl, true
}

func (s *SessionStore) attach(ctrl *Controller) {
	if s.loader == nil {
		return
	}
	if snap := s.loader.Snapshot(); snap != nil {
		ctrl.Load(snap)
	}
}

// Delete ends a session.
func (s *SessionStore) Delete(id string) {
	s.sessions.Delete(id)
}

// CleanExpired closes sessions past their TTL. It lets the store register
// with a cache.Manager.
func (s *SessionStore) CleanExpired() int {
	return s.sessions.CleanExpired()
}

// TTL returns the idle lifetime of a session.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Size returns the number of live sessions.
func (s *SessionStore) Size() int {
	return s.sessions.Size()
}

// Stats returns lifetime counters for created and evicted sessions.
func (s *SessionStore) Stats() (created, evicted int64) {
	return s.created.Load(), s.evicted.Load()
}

// Close ends every session.
func (s *SessionStore) Close() {
	if n := s.sessions.Purge(); n > 0 {
		s.logger.Info("Sessions closed", "count", n, applog.FieldOperation, applog.OpShutdown)
	}
}

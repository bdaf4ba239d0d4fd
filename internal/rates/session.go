package rates

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"example.com/legacyfund/internal/domain"
)

// loadTimeout bounds a shared fetch, which runs detached from any one caller.
const loadTimeout = 30 * time.Second

// Session loads the snapshot once and serves it from memory afterwards.
// A snapshot stays until Invalidate is called or a Refresh succeeds.
// Concurrent callers during a load share a single fetch.
type Session struct {
	provider Provider
	logger   *zap.Logger
	group    singleflight.Group

	mu     sync.RWMutex
	snap   domain.ExchangeRateSnapshot
	loaded bool
}

func NewSession(provider Provider, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{provider: provider, logger: logger}
}

// Snapshot returns the cached snapshot, loading it on first use. A failed or
// all-zero load is not cached, so the next call tries again.
func (s *Session) Snapshot(ctx context.Context) (domain.ExchangeRateSnapshot, error) {
	if snap, ok := s.cached(); ok {
		return snap, nil
	}
	return s.load(ctx, "load", false)
}

// Refresh fetches a new snapshot and replaces the cached one only when the
// fetch succeeds. On failure the previous snapshot keeps being served.
func (s *Session) Refresh(ctx context.Context) (domain.ExchangeRateSnapshot, error) {
	return s.load(ctx, "refresh", true)
}

// load runs one fetch per key at a time. The fetch is detached from ctx so a
// caller that goes away does not fail the others waiting on it; ctx only
// bounds how long this caller waits.
func (s *Session) load(ctx context.Context, key string, force bool) (domain.ExchangeRateSnapshot, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		if !force {
			if snap, ok := s.cached(); ok {
				return snap, nil
			}
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		snap, err := s.provider.Fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if !snap.Loaded() {
			return nil, ErrNotLoaded
		}
		s.mu.Lock()
		s.snap, s.loaded = snap, true
		s.mu.Unlock()
		s.logger.Info("exchange rates loaded",
			zap.Float64("mxn_rate", snap.MXNRate),
			zap.Float64("cop_rate", snap.COPRate),
			zap.Float64("clp_rate", snap.CLPRate),
			zap.Time("date", snap.Date))
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return domain.ExchangeRateSnapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.ExchangeRateSnapshot{}, res.Err
		}
		return res.Val.(domain.ExchangeRateSnapshot), nil
	}
}

// Current returns whatever is cached without loading; the zero snapshot means
// nothing has been loaded yet.
func (s *Session) Current() domain.ExchangeRateSnapshot {
	snap, _ := s.cached()
	return snap
}

// Invalidate drops the cached snapshot.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.snap, s.loaded = domain.ExchangeRateSnapshot{}, false
	s.mu.Unlock()
}

func (s *Session) cached() (domain.ExchangeRateSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.loaded
}

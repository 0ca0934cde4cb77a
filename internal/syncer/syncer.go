package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/skladsync/skladsync/internal/db"
)

// Syncer drives the engine on a fixed interval: one product pass followed by
// one stock pass per tick, first tick immediately on start.
type Syncer struct {
	log     zerolog.Logger
	engine  *Engine
	mu      sync.Mutex
	seconds int
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	ticks   uint64
}

func New(log zerolog.Logger, engine *Engine, intervalSeconds int) *Syncer {
	return &Syncer{log: log, engine: engine, seconds: intervalSeconds}
}

func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.ticks = 0
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Info().Msg("syncer: start")
	go s.loop(ctx)
	return nil
}

func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.log.Info().Msg("syncer: stop")
}

// UpdateInterval takes effect on the next tick.
func (s *Syncer) UpdateInterval(seconds int) {
	s.mu.Lock()
	s.seconds = seconds
	s.mu.Unlock()
	s.log.Info().Int("seconds", seconds).Msg("syncer: interval updated")
}

func (s *Syncer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Syncer) interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seconds > 0 {
		return time.Duration(s.seconds) * time.Second
	}
	return time.Hour
}

func (s *Syncer) loop(ctx context.Context) {
	defer s.wg.Done()

	// first pass right away
	s.tickOnce(ctx)

	current := s.interval()
	ticker := time.NewTicker(current)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("syncer: loop done")
			return
		case <-ticker.C:
			if next := s.interval(); next != current {
				current = next
				ticker.Reset(current)
			}
			s.tickOnce(ctx)
		}
	}
}

func (s *Syncer) tickOnce(ctx context.Context) {
	s.mu.Lock()
	s.ticks++
	n := s.ticks
	s.mu.Unlock()

	s.log.Info().Uint64("tick", n).Msg("syncer: scheduled pass")

	// Stock after products so fresh products can be correlated.
	for _, syncType := range []string{db.SyncTypeProducts, db.SyncTypeStock} {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.engine.Run(ctx, syncType); err != nil {
			s.log.Error().Err(err).Str("sync", syncType).Msg("scheduled sync failed")
		}
	}
}

package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/ports/input"
)

// ErrRateLimited is returned when the reload API rate limit is exceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// reloadCooldown is the minimum time between two API triggered reloads.
const reloadCooldown = 30 * time.Second

// Loader reads the current results.
type Loader interface {
	Load(ctx context.Context) ([]*domain.Result, error)
}

// ResultSink receives freshly loaded results.
type ResultSink interface {
	ReplaceResults(rs []*domain.Result)
}

// ReloadService reloads results periodically and on demand.
type ReloadService struct {
	loader   Loader
	sink     ResultSink
	interval time.Duration
	logger   *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Rate limiting for API triggers
	lastAPIReload time.Time
	apiMutex      sync.Mutex

	// Prevents concurrent reloads and guards loaded
	reloadMu sync.Mutex
	loaded   map[string]bool

	nextReload time.Time
	nextMu     sync.RWMutex
}

// NewReloadService creates a reload service. A non-positive interval disables the scheduler.
func NewReloadService(loader Loader, sink ResultSink, interval time.Duration, logger *slog.Logger) *ReloadService {
	return &ReloadService{
		loader:   loader,
		sink:     sink,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		// Allow an immediate first API call
		lastAPIReload: time.Now().Add(-reloadCooldown - time.Second),
		loaded:        make(map[string]bool),
	}
}

// Start begins the periodic reload scheduler.
func (s *ReloadService) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("periodic reload disabled")
		return
	}
	s.logger.Info("starting reload service", "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx)
}

func (s *ReloadService) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.setNextReload(time.Now().Add(s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reload service stopped: context canceled")
			return
		case <-s.stopCh:
			s.logger.Info("reload service stopped")
			return
		case <-ticker.C:
			s.logger.Debug("scheduled reload triggered")
			if _, err := s.Reload(ctx); err != nil {
				s.logger.Error("reload failed", "error", err)
			}
			s.setNextReload(time.Now().Add(s.interval))
		}
	}
}

// Stop stops the scheduler and waits for a running reload to finish.
func (s *ReloadService) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("stopping reload service")
		close(s.stopCh)
	})
	s.wg.Wait()
}

// TriggerReload implements input.ReloadTrigger.
// Returns ErrRateLimited if called again within the cooldown.
func (s *ReloadService) TriggerReload(ctx context.Context) (input.ReloadResult, error) {
	s.apiMutex.Lock()
	defer s.apiMutex.Unlock()

	if time.Since(s.lastAPIReload) < reloadCooldown {
		return input.ReloadResult{}, ErrRateLimited
	}
	s.lastAPIReload = time.Now()

	return s.Reload(ctx)
}

// Reload loads results and hands them to the sink. On failure the current results stay.
func (s *ReloadService) Reload(ctx context.Context) (input.ReloadResult, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	rs, err := s.loader.Load(ctx)
	if err != nil {
		return input.ReloadResult{}, err
	}

	next := make(map[string]bool, len(rs))
	added := 0
	for _, r := range rs {
		next[r.ID] = true
		if !s.loaded[r.ID] {
			added++
		}
	}
	removed := 0
	for id := range s.loaded {
		if !next[id] {
			removed++
		}
	}
	s.loaded = next

	s.sink.ReplaceResults(rs)
	s.logger.Info("results reloaded",
		"added", added,
		"removed", removed,
		"total", len(rs),
	)

	return input.ReloadResult{
		Loaded:          len(rs),
		Added:           added,
		Removed:         removed,
		ReloadedAt:      time.Now(),
		NextScheduledAt: s.getNextReload(),
	}, nil
}

func (s *ReloadService) setNextReload(t time.Time) {
	s.nextMu.Lock()
	defer s.nextMu.Unlock()
	s.nextReload = t
}

func (s *ReloadService) getNextReload() time.Time {
	s.nextMu.RLock()
	defer s.nextMu.RUnlock()
	return s.nextReload
}

// Interval returns the reload interval.
func (s *ReloadService) Interval() time.Duration {
	return s.interval
}

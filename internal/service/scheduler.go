package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// SyncConfig holds configuration for the sync scheduler.
type SyncConfig struct {
	// Interval is how often a full reconciliation pass runs.
	// Default: 1 minute
	Interval time.Duration

	// RunTimeout bounds one full pass.
	// Default: 5 minutes
	RunTimeout time.Duration
}

// DefaultSyncConfig returns default sync scheduler configuration.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Interval:   1 * time.Minute,
		RunTimeout: 5 * time.Minute,
	}
}

// SyncScheduler periodically triggers offer reconciliation. Runs never
// overlap: the next tick waits for the previous pass to finish, so no two
// passes touch the same product's offer set concurrently.
type SyncScheduler struct {
	syncService *SyncService
	config      SyncConfig
	ticker      *time.Ticker
	stopCh      chan struct{}
	stopOnce    sync.Once
	isRunning   bool
	mu          sync.Mutex
}

// NewSyncScheduler creates a new sync scheduler.
func NewSyncScheduler(syncService *SyncService, config SyncConfig) *SyncScheduler {
	if config.Interval == 0 {
		config.Interval = 1 * time.Minute
	}
	if config.RunTimeout == 0 {
		config.RunTimeout = 5 * time.Minute
	}

	return &SyncScheduler{
		syncService: syncService,
		config:      config,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic reconciliation loop.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Printf("[SyncScheduler] Started - Interval: %v", s.config.Interval)

	go s.run()
}

// run is the main reconciliation loop.
func (s *SyncScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runOnce()
		case <-s.stopCh:
			log.Printf("[SyncScheduler] Stopped")
			return
		}
	}
}

func (s *SyncScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	log.Printf("[SyncScheduler] Starting offers reconciliation pass")
	s.syncService.ReconcileAll(ctx)
}

// Stop stops the scheduler.
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate reconciliation pass.
func (s *SyncScheduler) RunNow() {
	s.runOnce()
}

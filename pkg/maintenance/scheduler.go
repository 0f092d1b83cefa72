// Package maintenance runs the periodic jobs the memory store needs:
// scheduled backups, backup pruning, inactive-record cleanup, and per-user
// dedup sweeps.
package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lumina-ai/recall-go/pkg/core"
)

// Config sets the job intervals. A zero interval disables that job.
type Config struct {
	// BackupInterval is how often a daily-tier snapshot is taken.
	BackupInterval time.Duration

	// PruneInterval is how often snapshot retention is enforced.
	PruneInterval time.Duration

	// CleanupInterval is how often expired inactive records are removed.
	CleanupInterval time.Duration

	// DedupInterval is how often the per-user dedup sweep runs.
	DedupInterval time.Duration
}

// DefaultConfig returns the standard schedule: daily backups, daily pruning
// and cleanup, six-hourly dedup sweeps.
func DefaultConfig() Config {
	return Config{
		BackupInterval:  24 * time.Hour,
		PruneInterval:   24 * time.Hour,
		CleanupInterval: 24 * time.Hour,
		DedupInterval:   6 * time.Hour,
	}
}

// Scheduler drives the periodic maintenance jobs of a memory store client.
//
// Every job run is logged; a failing run is logged and retried at the next
// tick rather than stopping the schedule.
type Scheduler struct {
	client *core.Client
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler for the given client.
func NewScheduler(client *core.Client, config Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{client: client, config: config, logger: logger}
}

// Start launches the enabled jobs. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.launch(ctx, "backup", s.config.BackupInterval, s.runBackup)
	s.launch(ctx, "prune", s.config.PruneInterval, s.runPrune)
	s.launch(ctx, "cleanup", s.config.CleanupInterval, s.runCleanup)
	s.launch(ctx, "dedup", s.config.DedupInterval, s.runDedup)
}

// Stop cancels the jobs and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

func (s *Scheduler) launch(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := run(ctx); err != nil {
					s.logger.Error("maintenance job failed",
						slog.String("job", name),
						slog.String("error", err.Error()))
				}
			}
		}
	}()
}

func (s *Scheduler) runBackup(ctx context.Context) error {
	info, err := s.client.CreateBackup(ctx, core.WithBackupType(core.BackupDaily))
	if err != nil {
		return err
	}
	s.logger.Info("scheduled backup complete",
		slog.String("id", info.ID),
		slog.Int64("records", info.RecordCount))
	return nil
}

func (s *Scheduler) runPrune(ctx context.Context) error {
	_, err := s.client.PruneBackups(ctx)
	return err
}

func (s *Scheduler) runCleanup(ctx context.Context) error {
	_, err := s.client.Cleanup(ctx, -1)
	return err
}

func (s *Scheduler) runDedup(ctx context.Context) error {
	userIDs, err := s.client.ListUserIDs(ctx)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.client.Deduplicate(ctx, userID); err != nil {
			s.logger.Error("dedup sweep failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

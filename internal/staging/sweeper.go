package staging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/abduss/ingest/internal/metrics"
	"go.uber.org/zap"
)

// Sweep removes sessions whose directory has not been modified for olderThan.
// Sessions currently locked by an upload are skipped. A session that cannot be
// removed does not stop the pass; its error is joined into the result.
func (s *Store) Sweep(locks *Locks, olderThan time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("list staging root: %w", err)
	}

	cutoff := now.Add(-olderThan)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() || checkFileID(entry.Name()) != nil {
			continue
		}
		ok, err := s.sweepOne(locks, entry.Name(), cutoff)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

func (s *Store) sweepOne(locks *Locks, fileID string, cutoff time.Time) (bool, error) {
	unlock, ok := locks.TryLock(fileID)
	if !ok {
		return false, nil
	}
	defer unlock()

	dir := filepath.Join(s.root, fileID)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat session %s: %w", fileID, err)
	}
	if !info.ModTime().Before(cutoff) {
		return false, nil
	}
	if err := s.removeAll(dir); err != nil {
		return false, fmt.Errorf("remove session %s: %w", fileID, err)
	}
	return true, nil
}

// Sweeper periodically removes abandoned upload sessions.
type Sweeper struct {
	store    *Store
	locks    *Locks
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper constructs a sweeper. A non-positive interval or ttl disables it.
func NewSweeper(store *Store, locks *Locks, ttl, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		store:    store,
		locks:    locks,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	if w.ttl <= 0 || w.interval <= 0 {
		w.logger.Info("staging sweeper disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.sweep(now)
		}
	}
}

func (w *Sweeper) sweep(now time.Time) {
	removed, err := w.store.Sweep(w.locks, w.ttl, now)
	if removed > 0 {
		metrics.StagingSessionsSwept.Add(float64(removed))
		w.logger.Info("swept abandoned upload sessions", zap.Int("removed", removed))
	}
	if err != nil {
		w.logger.Error("staging sweep failed", zap.Error(err))
	}
}

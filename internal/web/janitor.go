package web

// janitor.go removes the run directories of the HTTP surface once they
// are older than ResultsRetention. Runs recorded in the history keep
// their entry after pruning; their file links then answer 404.

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// StartResultsJanitor prunes expired run directories now and then every
// CleanupInterval until ctx is cancelled. A zero retention disables it.
func (s *Server) StartResultsJanitor(ctx context.Context) {
	if s.cfg.ResultsRetention <= 0 {
		return
	}
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	slog.Info("results janitor started", "dir", s.cfg.ResultsDir, "retention", s.cfg.ResultsRetention)

	s.pruneResults(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("results janitor stopped")
			return
		case now := <-ticker.C:
			s.pruneResults(now)
		}
	}
}

func (s *Server) pruneResults(now time.Time) {
	removed, err := s.PruneResults(now)
	if err != nil {
		slog.Error("prune results failed", "error", err)
	}
	if removed > 0 {
		slog.Info("pruned run directories", "removed", removed)
	}
}

// PruneResults removes run directories last modified before now minus
// ResultsRetention and returns how many were removed. Only directories
// named by a run ID are touched.
func (s *Server) PruneResults(now time.Time) (int, error) {
	if s.cfg.ResultsRetention <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(s.cfg.ResultsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-s.cfg.ResultsRetention)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.cfg.ResultsDir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

package web

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/ibreport/internal/config"
	"github.com/google/uuid"
)

func TestPruneResults(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	mkRunDir := func(name string, age time.Duration) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Join(path, "out"), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(path, "out", "result.csv"), []byte("a;b\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		mtime := now.Add(-age)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
		return path
	}

	expired := mkRunDir(uuid.NewString(), 8*24*time.Hour)
	recent := mkRunDir(uuid.NewString(), time.Hour)
	foreign := mkRunDir("keep-me", 30*24*time.Hour)

	s := NewServer(config.ServerConfig{ResultsDir: dir}, nil, nil, nil)
	if n, err := s.PruneResults(now); err != nil || n != 0 {
		t.Fatalf("PruneResults() without retention = %d, %v", n, err)
	}

	s.cfg.ResultsRetention = 7 * 24 * time.Hour
	n, err := s.PruneResults(now)
	if err != nil {
		t.Fatalf("PruneResults() error = %v", err)
	}
	if n != 1 {
		t.Errorf("PruneResults() removed %d, want 1", n)
	}
	if _, err := os.Stat(expired); !os.IsNotExist(err) {
		t.Errorf("expired run dir still present: %v", err)
	}
	for _, path := range []string{recent, foreign} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s removed: %v", filepath.Base(path), err)
		}
	}
}

func TestPruneResults_MissingDir(t *testing.T) {
	cfg := config.ServerConfig{ResultsDir: filepath.Join(t.TempDir(), "none"), ResultsRetention: time.Hour}
	s := NewServer(cfg, nil, nil, nil)
	if n, err := s.PruneResults(time.Now()); err != nil || n != 0 {
		t.Errorf("PruneResults() = %d, %v, want 0, nil", n, err)
	}
}

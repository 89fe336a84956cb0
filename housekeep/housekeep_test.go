package housekeep

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSweepOrphanedSpillsRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.bin")
	fresh := filepath.Join(dir, "fresh.bin")

	os.WriteFile(old, []byte("x"), 0o644)
	os.WriteFile(fresh, []byte("x"), 0o644)

	oldTime := time.Now().Add(-time.Hour)
	os.Chtimes(old, oldTime, oldTime)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sweepOrphanedSpills(dir, log, 10*time.Minute)

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expected stale spill file to be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("expected fresh file to survive the sweep")
	}
}

func TestSweepOrphanedSpillsToleratesMissingDir(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sweepOrphanedSpills(filepath.Join(t.TempDir(), "nope"), log, time.Minute)
}

// Package housekeep runs the server's periodic background jobs: stat
// logging and a sweep of upload spill files orphaned by a worker that
// crashed or was killed before httpctx.HttpContext.Close ran. It adapts
// the teacher's scheduler package (ticker-driven jobs of reflect-invoked
// tasks) to this domain's two concrete chores.
package housekeep

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/larkhttp/larkhttpd/httpserver"
	"github.com/larkhttp/larkhttpd/scheduler"
)

// Run starts the housekeeping scheduler and blocks until ctx is done.
// statInterval and sweepInterval mirror scheduler.Job.WithInterval; a
// zero value disables that job.
func Run(ctx context.Context, rt *httpserver.Runtime, uploadsDir string, log *slog.Logger, statInterval, sweepInterval time.Duration) {
	s := scheduler.NewScheduler()

	if statInterval > 0 {
		statTask := scheduler.NewTask(logStat, rt, log)
		s.AddJob(*scheduler.NewJob().WithTasks(*statTask).WithInterval(statInterval))
	}

	if sweepInterval > 0 && uploadsDir != "" {
		sweepTask := scheduler.NewTask(sweepOrphanedSpills, uploadsDir, log, sweepRetention)
		s.AddJob(*scheduler.NewJob().WithTasks(*sweepTask).WithInterval(sweepInterval))
	}

	s.Run(ctx)
}

// sweepRetention is how old a file in the uploads directory must be
// before the sweep treats it as orphaned (left behind by a crashed
// worker that never reached httpctx.HttpContext.Close) rather than an
// in-flight upload.
const sweepRetention = 10 * time.Minute

func logStat(rt *httpserver.Runtime, log *slog.Logger) {
	stat := rt.Stat()
	log.Info("housekeep: pool stat",
		"requests", stat.TotalRequests,
		"workers", stat.TotalWorkers,
		"idle", stat.IdleWorkers,
	)
}

func sweepOrphanedSpills(uploadsDir string, log *slog.Logger, retention time.Duration) {
	entries, err := os.ReadDir(uploadsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("housekeep: reading uploads dir failed", "err", err, "dir", uploadsDir)
		}
		return
	}

	cutoff := time.Now().Add(-retention)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(uploadsDir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn("housekeep: failed to remove orphaned spill file", "err", err, "path", path)
		}
	}
}

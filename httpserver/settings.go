// Package httpserver implements spec components C1 (via package sockio)
// and C2: the connection acceptor and the bounded worker pool with its
// keep-alive handoff queue.
package httpserver

import (
	"errors"
	"time"
)

// ErrAlreadyStarted is returned by Start when the runtime is already
// listening (spec §4.2).
var ErrAlreadyStarted = errors.New("httpserver: already started")

// Settings is the server's immutable per-run tuning (spec §3
// ServerSettings).
type Settings struct {
	Addr    string
	// Backlog is accepted and validated (config.validateDocument) but not
	// applied: net.ListenConfig.Listen does not expose the listen(2)
	// backlog argument, and reaching past it would mean dropping to a raw
	// syscall.Listen the rest of this package has no other use for.
	Backlog            int
	ReuseAddress       bool
	PoolingEnabled     bool
	MaxWorkers         int
	IdleWorkerLifetime time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	KeepAliveEnabled   bool
	KeepAliveTimeout   time.Duration
	ServerName         string
	UploadsDir         string
}

// DefaultSettings returns reasonable defaults; config.Load overrides them
// from the on-disk document.
func DefaultSettings() Settings {
	return Settings{
		Addr:               ":8080",
		Backlog:            128,
		ReuseAddress:       true,
		PoolingEnabled:     true,
		MaxWorkers:         64,
		IdleWorkerLifetime: 30 * time.Second,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		KeepAliveEnabled:   true,
		KeepAliveTimeout:   15 * time.Second,
		ServerName:         "larkhttpd",
		UploadsDir:         "uploads",
	}
}

package httpserver

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/larkhttp/larkhttpd/httpctx"
	"github.com/larkhttp/larkhttpd/telemetry"
)

// Runtime is the C2 acceptor and bounded worker pool. The zero value is
// not usable; build one with New.
//
// Two mutexes guard disjoint state and are never held together, per
// spec §5: handoffMu guards the handoff FIFO, the idle-worker count and
// the generation counter used to detect real handoffs; finishedMu
// guards the total-worker count. stopMu exists only to make Start/Stop
// idempotent.
type Runtime struct {
	Settings  Settings
	Log       *slog.Logger
	Resolve   Resolver
	Telemetry *telemetry.Providers

	stopMu   sync.Mutex
	stopped  atomic.Bool
	listener net.Listener

	handoffMu    sync.Mutex
	handoffCond  *sync.Cond
	handoffQueue []net.Conn
	handoffGen   uint64
	idleWorkers  int

	finishedMu   sync.Mutex
	finishedCond *sync.Cond
	totalWorkers int

	requests atomic.Int64
}

// Resolver drives a fully-initialized request to completion; wired to
// webdir.Resolver.Resolve by cmd/larkhttpd. It is an alias for
// httpctx.Resolver so a Runtime can pass it straight through to
// httpctx.Process without httpserver importing webdir.
type Resolver = httpctx.Resolver

// New builds a Runtime ready for Start.
func New(settings Settings, log *slog.Logger, resolve Resolver) *Runtime {
	rt := &Runtime{Settings: settings, Log: log, Resolve: resolve}
	rt.handoffCond = sync.NewCond(&rt.handoffMu)
	rt.finishedCond = sync.NewCond(&rt.finishedMu)
	return rt
}

// Start implements the Stopped→Running transition of spec §4.2: bind,
// listen, and spawn the accept loop. Settings.Backlog is not applied.
func (rt *Runtime) Start() error {
	rt.stopMu.Lock()
	defer rt.stopMu.Unlock()

	if rt.listener != nil {
		return ErrAlreadyStarted
	}

	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp", rt.Settings.Addr)
	if err != nil {
		return err
	}
	// Go's net.Listen already sets SO_REUSEADDR for TCP listeners on
	// Unix; Settings.ReuseAddress is honored by that default rather
	// than by explicit socket-option plumbing. Settings.Backlog has no
	// equivalent hook in net.ListenConfig and is documented as a no-op
	// on Settings itself.

	rt.listener = listener
	rt.stopped.Store(false)

	if rt.Telemetry != nil {
		if err := rt.Telemetry.ObserveWorkerGauges(func() (int, int) {
			stat := rt.Stat()
			return stat.TotalWorkers, stat.IdleWorkers
		}); err != nil {
			rt.Log.Warn("failed to register worker gauges", "err", err)
		}
	}

	go rt.acceptLoop()
	return nil
}

// Stop implements Running→Stopped (spec §4.2): set the stopped flag,
// wake every idle worker, optionally block until the pool has drained,
// then close the listener.
func (rt *Runtime) Stop(wait bool) error {
	rt.stopMu.Lock()
	defer rt.stopMu.Unlock()

	if rt.listener == nil {
		return nil
	}

	rt.stopped.Store(true)

	rt.handoffMu.Lock()
	rt.handoffGen++
	rt.handoffCond.Broadcast()
	rt.handoffMu.Unlock()

	if wait {
		rt.finishedMu.Lock()
		for rt.totalWorkers > 0 {
			rt.finishedCond.Wait()
		}
		rt.finishedMu.Unlock()
	}

	err := rt.listener.Close()
	rt.listener = nil
	return err
}

// Stat reports the counters exposed to the admin control channel
// (spec §6.5).
type Stat struct {
	TotalRequests int64
	TotalWorkers  int
	IdleWorkers   int
}

func (rt *Runtime) Stat() Stat {
	rt.handoffMu.Lock()
	idle := rt.idleWorkers
	rt.handoffMu.Unlock()

	rt.finishedMu.Lock()
	total := rt.totalWorkers
	rt.finishedMu.Unlock()

	return Stat{TotalRequests: rt.requests.Load(), TotalWorkers: total, IdleWorkers: idle}
}

// acceptLoop is the server's single acceptor task (spec §4.2 steps 1-6).
func (rt *Runtime) acceptLoop() {
	println("DEBUG acceptLoop", rt, "rt.listener nil?", rt.listener == nil)
	for {
		conn, err := rt.listener.Accept()
		if err != nil {
			if rt.stopped.Load() {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				rt.Log.Debug("accept timeout, retrying")
				continue
			}
			rt.Log.Error("accept failed", "err", err)
			continue
		}

		if rt.stopped.Load() {
			conn.Close()
			return
		}

		if rt.Settings.PoolingEnabled {
			rt.handoffMu.Lock()
			if rt.idleWorkers > 0 {
				rt.handoffQueue = append(rt.handoffQueue, conn)
				rt.handoffGen++
				rt.handoffCond.Signal()
				rt.handoffMu.Unlock()
				continue
			}
			rt.handoffMu.Unlock()
		}

		rt.finishedMu.Lock()
		headroom := rt.totalWorkers < rt.Settings.MaxWorkers
		if headroom {
			rt.totalWorkers++
		}
		rt.finishedMu.Unlock()

		if headroom {
			go rt.runWorker(conn)
			continue
		}

		// No headroom: wait for a worker to finish, then spawn for
		// this connection (spec §4.2 step 6).
		rt.finishedMu.Lock()
		for rt.totalWorkers >= rt.Settings.MaxWorkers {
			rt.finishedCond.Wait()
		}
		rt.totalWorkers++
		rt.finishedMu.Unlock()

		go rt.runWorker(conn)
	}
}

// runWorker implements the worker task pseudocode of spec §4.2.
func (rt *Runtime) runWorker(conn net.Conn) {
	defer rt.retire()

	for !rt.stopped.Load() {
		rt.processConnection(conn)
		conn.Close()

		if !rt.Settings.PoolingEnabled {
			return
		}
		if !rt.idleWait(rt.Settings.IdleWorkerLifetime) {
			return
		}
		conn = rt.dequeueHandoff()
		if conn == nil {
			return
		}
	}
}

func (rt *Runtime) retire() {
	rt.finishedMu.Lock()
	rt.totalWorkers--
	rt.finishedCond.Broadcast()
	rt.finishedMu.Unlock()
}

// idleWait atomically marks the worker idle, waits on the handoff
// condition bounded by timeout, then unmarks it. The wait ends when the
// generation counter moves (a handoff or a stop-broadcast), the stopped
// flag is set, or the timeout fires. It returns true iff the handoff
// queue is non-empty at that point, so a timeout or stop-broadcast with
// an empty queue reports false.
//
// sync.Cond has no native timed wait, so the bound is implemented with
// a timer that re-acquires the same lock and broadcasts to unstick
// this and any other waiters once it fires.
func (rt *Runtime) idleWait(timeout time.Duration) bool {
	rt.handoffMu.Lock()
	defer rt.handoffMu.Unlock()

	rt.idleWorkers++
	defer func() { rt.idleWorkers-- }()

	startGen := rt.handoffGen
	timedOut := false

	timer := time.AfterFunc(timeout, func() {
		rt.handoffMu.Lock()
		timedOut = true
		rt.handoffCond.Broadcast()
		rt.handoffMu.Unlock()
	})
	defer timer.Stop()

	for rt.handoffGen == startGen && !rt.stopped.Load() && !timedOut {
		rt.handoffCond.Wait()
	}

	// A handoff that lands in the window between the timer firing and
	// this goroutine re-acquiring the lock must still be honored: the
	// acceptor already counted this worker as idle and handed it a
	// connection, so returning false here would strand that conn in
	// the queue, unclosed, forever.
	if len(rt.handoffQueue) > 0 {
		return true
	}
	return false
}

func (rt *Runtime) dequeueHandoff() net.Conn {
	rt.handoffMu.Lock()
	defer rt.handoffMu.Unlock()

	if len(rt.handoffQueue) == 0 {
		return nil
	}
	conn := rt.handoffQueue[0]
	rt.handoffQueue = rt.handoffQueue[1:]
	return conn
}

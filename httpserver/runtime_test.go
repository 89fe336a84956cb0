package httpserver

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/larkhttp/larkhttpd/httpctx"
	"github.com/larkhttp/larkhttpd/httpmsg"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoResolver(ctx *httpctx.HttpContext) error {
	ctx.Response.Status = httpmsg.StatusOK
	return ctx.Response.WriteCompleteHTML("ok")
}

func TestStartStopLifecycle(t *testing.T) {
	settings := DefaultSettings()
	settings.Addr = "127.0.0.1:0"
	rt := New(settings, discardLogger(), echoResolver)

	if err := rt.Start(); err != nil {
		t.Fatal(err)
	}
	if err := rt.Start(); err != ErrAlreadyStarted {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}
	if err := rt.Stop(true); err != nil {
		t.Fatal(err)
	}

	stat := rt.Stat()
	if stat.TotalWorkers != 0 {
		t.Errorf("TotalWorkers after Stop(true) = %d, want 0", stat.TotalWorkers)
	}
}

func TestAcceptLoopServesRequest(t *testing.T) {
	settings := DefaultSettings()
	settings.Addr = "127.0.0.1:0"
	settings.KeepAliveEnabled = false
	rt := New(settings, discardLogger(), echoResolver)

	if err := rt.Start(); err != nil {
		t.Fatal(err)
	}
	defer rt.Stop(true)

	conn, err := net.Dial("tcp", rt.listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(2 * time.Second))
	io.WriteString(conn, "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
}

func TestIdleWaitTimesOutAndRetires(t *testing.T) {
	rt := New(DefaultSettings(), discardLogger(), echoResolver)
	rt.Settings.IdleWorkerLifetime = 20 * time.Millisecond

	start := time.Now()
	woken := rt.idleWait(rt.Settings.IdleWorkerLifetime)
	elapsed := time.Since(start)

	if woken {
		t.Error("idleWait() = true on a pure timeout, want false")
	}
	if elapsed < rt.Settings.IdleWorkerLifetime {
		t.Errorf("idleWait returned after %v, want at least %v", elapsed, rt.Settings.IdleWorkerLifetime)
	}
}

func TestIdleWaitWokenByHandoff(t *testing.T) {
	rt := New(DefaultSettings(), discardLogger(), echoResolver)
	rt.Settings.IdleWorkerLifetime = time.Second

	_, server := net.Pipe()
	defer server.Close()

	done := make(chan bool, 1)
	go func() { done <- rt.idleWait(rt.Settings.IdleWorkerLifetime) }()

	time.Sleep(10 * time.Millisecond)
	rt.handoffMu.Lock()
	rt.handoffQueue = append(rt.handoffQueue, server)
	rt.handoffGen++
	rt.handoffCond.Signal()
	rt.handoffMu.Unlock()

	select {
	case woken := <-done:
		if !woken {
			t.Error("idleWait() = false after a real handoff, want true")
		}
	case <-time.After(time.Second):
		t.Fatal("idleWait did not return after handoff")
	}
}

func TestIdleWaitStopBroadcastReturnsFalse(t *testing.T) {
	rt := New(DefaultSettings(), discardLogger(), echoResolver)
	rt.Settings.IdleWorkerLifetime = time.Second

	done := make(chan bool, 1)
	go func() { done <- rt.idleWait(rt.Settings.IdleWorkerLifetime) }()

	time.Sleep(10 * time.Millisecond)
	rt.stopped.Store(true)
	rt.handoffMu.Lock()
	rt.handoffGen++
	rt.handoffCond.Broadcast()
	rt.handoffMu.Unlock()

	select {
	case woken := <-done:
		if woken {
			t.Error("idleWait() = true after a stop broadcast, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("idleWait did not return after stop")
	}
}

func TestIdleWaitHandoffWinsOverConcurrentTimeout(t *testing.T) {
	rt := New(DefaultSettings(), discardLogger(), echoResolver)
	rt.Settings.IdleWorkerLifetime = 15 * time.Millisecond

	_, server := net.Pipe()
	defer server.Close()

	done := make(chan bool, 1)
	go func() { done <- rt.idleWait(rt.Settings.IdleWorkerLifetime) }()

	// Race a real handoff against the timer: hold the handoff lock while
	// the timer fires, so its timeout broadcast and the handoff below
	// both land before idleWait can re-check the queue.
	time.Sleep(5 * time.Millisecond)
	rt.handoffMu.Lock()
	time.Sleep(rt.Settings.IdleWorkerLifetime)
	rt.handoffQueue = append(rt.handoffQueue, server)
	rt.handoffGen++
	rt.handoffCond.Signal()
	rt.handoffMu.Unlock()

	select {
	case woken := <-done:
		if !woken {
			t.Error("idleWait() = false despite a queued handoff, want true (would leak the connection)")
		}
	case <-time.After(time.Second):
		t.Fatal("idleWait did not return")
	}
	if got := rt.dequeueHandoff(); got != server {
		t.Error("handoff connection was not left in the queue for the worker to dequeue")
	}
}

func TestDequeueHandoffFIFO(t *testing.T) {
	rt := New(DefaultSettings(), discardLogger(), echoResolver)

	_, a := net.Pipe()
	_, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	rt.handoffQueue = append(rt.handoffQueue, a, b)

	if got := rt.dequeueHandoff(); got != a {
		t.Error("dequeueHandoff did not return the first enqueued connection")
	}
	if got := rt.dequeueHandoff(); got != b {
		t.Error("dequeueHandoff did not return the second enqueued connection")
	}
	if got := rt.dequeueHandoff(); got != nil {
		t.Error("dequeueHandoff on empty queue should return nil")
	}
}

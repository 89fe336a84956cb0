package httpserver

import (
	"context"
	"net"
	"time"

	"github.com/larkhttp/larkhttpd/httpctx"
	"github.com/larkhttp/larkhttpd/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// processConnection drives the keep-alive request loop for one
// accepted connection (spec §4.9's per-request lifecycle).
func (rt *Runtime) processConnection(conn net.Conn) {
	isKeepAlive := false

	for {
		ctx := httpctx.New(conn, rt.contextSettings(), rt.Log, uuid.NewV4().String())

		ok, err := ctx.Init(isKeepAlive)
		if err != nil {
			rt.Log.Warn("request init failed", "err", err, "req_id", ctx.ReqID)
			return
		}
		if !ok {
			return
		}

		rt.requests.Add(1)
		start := time.Now()

		spanCtx, span := rt.startSpan(ctx)
		processErr := httpctx.Process(ctx, rt.Resolve)
		rt.recordRequest(spanCtx, span, ctx, start, processErr)

		if processErr != nil {
			rt.Log.Warn("request processing failed", "err", processErr, "req_id", ctx.ReqID)
			ctx.Close()
			return
		}

		ctx.Close()

		if !ctx.WantsKeepAlive() {
			return
		}
		isKeepAlive = true
	}
}

// startSpan opens the per-request "http.request" span the telemetry
// section of SPEC_FULL.md calls for, a no-op when telemetry isn't
// wired (e.g. in package tests).
func (rt *Runtime) startSpan(ctx *httpctx.HttpContext) (context.Context, trace.Span) {
	if rt.Telemetry == nil {
		return context.Background(), noopSpan{}
	}
	return rt.Telemetry.Tracer.Start(context.Background(), "http.request",
		trace.WithAttributes(
			attribute.String("http.request_id", ctx.ReqID),
			attribute.String("http.path", ctx.VirtualPath),
		))
}

func (rt *Runtime) recordRequest(spanCtx context.Context, span trace.Span, ctx *httpctx.HttpContext, start time.Time, err error) {
	elapsed := time.Since(start)
	span.End()

	if rt.Telemetry == nil {
		return
	}

	status := ctx.Response.Status
	rt.Telemetry.RequestsCounter.Add(spanCtx, 1, metric.WithAttributes(attribute.Int("http.status", status)))
	rt.Telemetry.Log.InfoContext(spanCtx, "request completed",
		"req_id", ctx.ReqID,
		"method", ctx.Header.Method,
		"path", ctx.VirtualPath,
		"status", status,
		"elapsed_ms", elapsed.Milliseconds(),
		"err", err,
	)
}

// noopSpan satisfies trace.Span when no telemetry provider is wired.
type noopSpan struct{ trace.Span }

func (noopSpan) End(...trace.SpanEndOption) {}

func (rt *Runtime) contextSettings() httpctx.Settings {
	return httpctx.Settings{
		ServerName:       rt.Settings.ServerName,
		ReadTimeout:      rt.Settings.ReadTimeout,
		WriteTimeout:     rt.Settings.WriteTimeout,
		KeepAliveEnabled: rt.Settings.KeepAliveEnabled,
		KeepAliveTimeout: rt.Settings.KeepAliveTimeout,
		UploadsDir:       rt.Settings.UploadsDir,
	}
}

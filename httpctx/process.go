package httpctx

import (
	"fmt"
	"html"

	"github.com/larkhttp/larkhttpd/httpmsg"
)

// Resolver is the callback the worker supplies to drive a request once its
// header has been parsed — in practice webdir.Resolve, kept out of this
// package's import graph to avoid a cycle (webdir depends on httpctx).
type Resolver func(ctx *HttpContext) error

// Process runs one request through resolve and applies spec §4.9's
// response-finalization rules: unknown methods get 501, a RequestProcessing
// error becomes an inline 500, and a resolver that never set a status or
// never called End gets one of those two outcomes decided for it.
func Process(ctx *HttpContext, resolve Resolver) error {
	if ctx.Method == httpmsg.MethodUnknown {
		ctx.Response.Status = httpmsg.StatusNotImplemented
		ctx.Response.Header.Set("Allow", "GET, POST, HEAD")
		return ctx.Response.WriteCompleteHTML(errorPage(httpmsg.StatusNotImplemented, "unrecognized method "+ctx.Header.Method))
	}

	if err := ctx.DecodeBody(); err != nil {
		if handled, herr := handleRequestProcessingError(ctx, err); handled {
			return herr
		}
		return err
	}

	if err := resolve(ctx); err != nil {
		if handled, herr := handleRequestProcessingError(ctx, err); handled {
			return herr
		}
		return err
	}

	if !ctx.Response.Finished() {
		if !ctx.Response.StatusKnown() {
			ctx.Response.Status = httpmsg.StatusNotFound
			return ctx.Response.WriteCompleteHTML(errorPage(httpmsg.StatusNotFound, "resource not found"))
		}
		if err := ctx.Response.End(); err != nil {
			return err
		}
	}

	if ctx.Body != nil && !ctx.Body.IsRead() {
		// The handler never drained the request body; the connection is no
		// longer in a consistent state for the next keep-alive request.
		return httpmsg.NewRequestProcessingError("request body not fully consumed")
	}

	return nil
}

// handleRequestProcessingError turns a RequestProcessing error into an
// inline 500 (spec §7) when headers haven't already gone out. The bool
// return reports whether err was a RequestProcessing kind at all — a
// false lets the caller propagate anything else (a fatal SocketError) up
// to the worker unchanged.
func handleRequestProcessingError(ctx *HttpContext, err error) (bool, error) {
	rp, ok := err.(*httpmsg.ErrRequestProcessing)
	if !ok {
		return false, err
	}
	if ctx.Response.Finished() {
		return true, nil
	}
	ctx.Response.Status = httpmsg.StatusInternalServerError
	return true, ctx.Response.WriteCompleteHTML(errorPage(httpmsg.StatusInternalServerError, rp.Reason))
}

func errorPage(status int, message string) string {
	return fmt.Sprintf(
		"<html><head><title>%d %s</title></head><body><h1>%d %s</h1><p>%s</p></body></html>",
		status, httpmsg.Phrase(status), status, httpmsg.Phrase(status), html.EscapeString(message))
}

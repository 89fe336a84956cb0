// Package httpctx implements spec component C9: the per-request glue
// object composing the parsed request, the response, decoded parameters,
// uploaded files, and the resolved paths a request carries through C7/C8.
package httpctx

import (
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/larkhttp/larkhttpd/httpmsg"
	"github.com/larkhttp/larkhttpd/params"
	"github.com/larkhttp/larkhttpd/sockio"
)

// Settings is the slice of server-wide configuration C9 needs; httpserver
// builds one of these from its own ServerSettings when wiring a worker.
type Settings struct {
	ServerName        string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	KeepAliveEnabled  bool
	KeepAliveTimeout  time.Duration
	UploadsDir        string
}

// HttpContext is created fresh for each request on a connection and
// destroyed (via Close) once the response has gone out.
type HttpContext struct {
	Conn     net.Conn
	Settings Settings
	Log      *slog.Logger
	ReqID    string

	Header   *httpmsg.RequestHeader
	Body     *httpmsg.BodyReader
	Response *httpmsg.ResponseWriter

	Query   map[string]string
	Post    map[string]string
	Cookies map[string]string
	Uploads map[string]*params.UploadedFile

	VirtualPath string
	FilePath    string
	Method      httpmsg.MethodKind
}

// New allocates a context bound to conn, ready for Init.
func New(conn net.Conn, settings Settings, log *slog.Logger, reqID string) *HttpContext {
	return &HttpContext{
		Conn:     conn,
		Settings: settings,
		Log:      log,
		ReqID:    reqID,
	}
}

// Init reads and parses the next request's header block (spec §4.9). It
// returns false, nil when the peer closed the connection without sending
// anything — the expected, error-free end of a keep-alive chain.
func (ctx *HttpContext) Init(isKeepAlive bool) (bool, error) {
	if err := sockio.SetReadTimeout(ctx.Conn, ctx.Settings.ReadTimeout); err != nil {
		return false, httpmsg.NewSocketError("set read timeout", err)
	}

	raw, matchEnd, err := sockio.ReadUntil(ctx.Conn, sockio.UntilEndMark{Mark: httpmsg.EndMark}, true)
	if err != nil {
		if err == sockio.ErrClosedByPeer && len(raw) == 0 {
			return false, nil
		}
		return false, httpmsg.NewSocketError("header read", err)
	}
	if len(raw) == 0 {
		return false, nil
	}

	header, err := httpmsg.ParseRequestHeader(raw[:matchEnd])
	if err != nil {
		return false, err
	}

	ctx.Header = header
	ctx.Method = header.Kind
	ctx.VirtualPath = header.Path()
	ctx.Body = httpmsg.NewBodyReader(ctx.Conn, header.Length, raw[matchEnd:])
	ctx.Response = httpmsg.NewResponseWriter(ctx.Conn, header.Kind == httpmsg.MethodHEAD)
	ctx.Response.Header.Set("Server", ctx.Settings.ServerName)

	ctx.Query = params.ParseQueryString(header.PathQuery)
	ctx.Cookies = map[string]string{}
	if cookieHeader, ok := header.Get("Cookie"); ok {
		ctx.Cookies = httpmsg.ParseCookieHeader(cookieHeader)
	}
	ctx.Post = map[string]string{}
	ctx.Uploads = map[string]*params.UploadedFile{}

	_ = isKeepAlive
	return true, nil
}

// DecodeBody consumes the request body according to its Content-Type,
// populating Post and Uploads (spec §4.6). It is a no-op for bodyless
// requests. Process calls it before the resolver runs. After a multipart
// body's closing boundary, any remaining body bytes are drained.
func (ctx *HttpContext) DecodeBody() error {
	if ctx.Header.Kind != httpmsg.MethodPOST || !ctx.Header.HasLength || ctx.Header.Length == 0 {
		return nil
	}

	contentType, _ := ctx.Header.Get("Content-Type")
	switch {
	case params.IsMultipart(contentType):
		boundary := params.Boundary(contentType)
		post, files, err := params.ParseMultipart(ctx.Body, boundary, ctx.Settings.UploadsDir)
		if err != nil {
			return err
		}
		ctx.Post = post
		ctx.Uploads = files
		return ctx.Body.Drain()

	case params.IsURLEncodedForm(contentType):
		post, err := params.DecodeURLEncodedForm(ctx.Body)
		if err != nil {
			return err
		}
		ctx.Post = post
		return nil
	}

	return nil
}

// IsClientConnected implements spec §4.9's liveness probe used before
// committing to write a response.
func (ctx *HttpContext) IsClientConnected() bool {
	if ctx.Body.HasBuffered() {
		return true
	}
	if !ctx.Body.IsRead() {
		return sockio.CheckReadReady(ctx.Conn, ctx.Settings.ReadTimeout)
	}
	return sockio.CheckWriteReady(ctx.Conn, ctx.Settings.WriteTimeout)
}

// WantsKeepAlive inspects the Connection/Proxy-Connection headers the way
// the per-request driver in the worker loop does (spec §4.9).
func (ctx *HttpContext) WantsKeepAlive() bool {
	if !ctx.Settings.KeepAliveEnabled {
		return false
	}
	value, ok := ctx.Header.Get("Proxy-Connection")
	if !ok {
		value, ok = ctx.Header.Get("Connection")
	}
	return ok && strings.EqualFold(value, "Keep-Alive")
}

// Close releases resources owned by the context: any spilled upload
// files. Deletion errors are logged and swallowed (spec §4.6).
func (ctx *HttpContext) Close() {
	for _, err := range params.CleanupUploads(ctx.Uploads) {
		if ctx.Log != nil {
			ctx.Log.Warn("failed to remove upload spill file", "err", err, "req_id", ctx.ReqID)
		}
	}
}

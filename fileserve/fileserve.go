// Package fileserve implements spec component C8: conditional GET against
// a single file, with ETag/Last-Modified negotiation and a streamed body.
package fileserve

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/larkhttp/larkhttpd/filesystem"
	"github.com/larkhttp/larkhttpd/httpctx"
	"github.com/larkhttp/larkhttpd/httpmsg"
	"github.com/larkhttp/larkhttpd/mimetype"
)

const streamChunkSize = 64 * 1024

// Serve streams path as the response body, or fails it with the status
// spec §4.8 prescribes: 405 for a disallowed method, 403 for an open
// failure, 304 on a matching If-None-Match.
func Serve(fs filesystem.Filesystem, ctx *httpctx.HttpContext, path string) error {
	if ctx.Method != httpmsg.MethodGET && ctx.Method != httpmsg.MethodHEAD {
		ctx.Response.Status = httpmsg.StatusMethodNotAllowed
		ctx.Response.Header.Set("Allow", "GET, HEAD")
		return ctx.Response.WriteCompleteHTML("<html><body><h1>405 Method Not Allowed</h1></body></html>")
	}

	f, err := os.Open(path)
	if err != nil {
		ctx.Response.Status = httpmsg.StatusForbidden
		return ctx.Response.WriteCompleteHTML("<html><body><h1>403 Forbidden</h1></body></html>")
	}
	defer f.Close()

	info, err := fs.FileMetaData(path)
	if err != nil {
		ctx.Response.Status = httpmsg.StatusForbidden
		return ctx.Response.WriteCompleteHTML("<html><body><h1>403 Forbidden</h1></body></html>")
	}

	absPath, err := fs.GetAbsolutePath(path)
	if err != nil {
		absPath = path
	}
	etag := computeETag(absPath, info.ModTime())

	if match, ok := ctx.Header.Get("If-None-Match"); ok && match == etag {
		ctx.Response.Status = httpmsg.StatusNotModified
		ctx.Response.Header.Set("ETag", etag)
		ctx.Response.Header.Set("Content-Length", "0")
		return ctx.Response.End()
	}

	ctx.Response.Status = httpmsg.StatusOK
	ctx.Response.Header.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	ctx.Response.Header.Set("Content-Type", mimetype.ForPath(path))
	ctx.Response.Header.Set("ETag", etag)
	ctx.Response.Header.Set("Last-Modified", info.ModTime().UTC().Format(time.RFC1123))

	if ctx.Response.IsHead() {
		return ctx.Response.End()
	}

	buf := make([]byte, streamChunkSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := ctx.Response.Write(buf[:n]); werr != nil {
				return werr
			}
			if ferr := ctx.Response.Flush(); ferr != nil {
				return ferr
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return httpmsg.NewSocketError("file stream read", rerr)
		}
		if n == 0 {
			break
		}
	}

	return ctx.Response.End()
}

// computeETag hashes the file's absolute path and modification time into
// a stable, opaque token (spec §4.8).
func computeETag(absPath string, modTime time.Time) string {
	h := sha256.New()
	h.Write([]byte(absPath))
	h.Write([]byte(modTime.UTC().Format(time.RFC3339Nano)))
	return `"` + hex.EncodeToString(h.Sum(nil))[:16] + `"`
}

package httpmsg

import (
	"fmt"
	"net"
	"strconv"

	"github.com/larkhttp/larkhttpd/sockio"
)

// Default buffering thresholds (spec §4.4 Response Buffering Behavior).
// A handler can override both per response.
const (
	DefaultMaxBuffer    = 64 * 1024
	DefaultMaxChunkSize = 32 * 1024
)

type responseState int

const (
	responseFresh responseState = iota
	responseHeadersSent
	responseFinished
)

// ResponseWriter accumulates a response body in memory and only decides
// fixed-length vs. chunked framing once it either runs out of buffer room
// or the handler calls End (spec §4.4).
type ResponseWriter struct {
	conn net.Conn

	Status int
	Header Header

	isHead       bool
	maxBuffer    int
	maxChunkSize int

	buf          []byte
	headBodySize int64

	state    responseState
	chunked  bool
}

// NewResponseWriter wires a fresh ResponseWriter to conn. isHead marks a
// HEAD request, whose body bytes spec §4.9 requires be suppressed while
// still reporting the size the body would have had.
func NewResponseWriter(conn net.Conn, isHead bool) *ResponseWriter {
	return &ResponseWriter{
		conn:         conn,
		Status:       StatusUnknown,
		isHead:       isHead,
		maxBuffer:    DefaultMaxBuffer,
		maxChunkSize: DefaultMaxChunkSize,
	}
}

// SetMaxBuffer overrides the fixed-length/chunked switchover threshold.
func (w *ResponseWriter) SetMaxBuffer(n int) { w.maxBuffer = n }

// SetMaxChunkSize overrides the size of each chunk emitted once streaming.
func (w *ResponseWriter) SetMaxChunkSize(n int) { w.maxChunkSize = n }

// IsHead reports whether this response suppresses body bytes.
func (w *ResponseWriter) IsHead() bool { return w.isHead }

// Finished reports whether End or WriteComplete* has already run.
func (w *ResponseWriter) Finished() bool { return w.state == responseFinished }

// StatusKnown reports whether a handler ever set a status code, as opposed
// to the writer still holding its initial StatusUnknown (spec §4.9's
// "status is still unknown" fallback to 404).
func (w *ResponseWriter) StatusKnown() bool { return w.Status != StatusUnknown }

// Write appends to the response's buffer. Once the buffered size would
// reach maxBuffer, headers are sent (switching to chunked framing) and the
// buffer starts draining to the socket as it fills (spec §4.4).
func (w *ResponseWriter) Write(p []byte) (int, error) {
	if w.state == responseFinished {
		return 0, ErrResponseAlreadySent
	}

	if w.isHead {
		w.headBodySize += int64(len(p))
		return len(p), nil
	}

	if w.state == responseFresh && !w.hasExplicitLength() {
		if int64(len(w.buf)+len(p)) >= int64(w.maxBuffer) {
			w.chunked = true
			if err := w.sendHeaders(); err != nil {
				return 0, err
			}
		}
	}

	w.buf = append(w.buf, p...)

	if w.state == responseHeadersSent {
		if err := w.drainBuffer(); err != nil {
			return 0, err
		}
	}

	return len(p), nil
}

// WriteString is a convenience wrapper around Write.
func (w *ResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *ResponseWriter) hasExplicitLength() bool {
	_, ok := w.Header.Get("Content-Length")
	return ok
}

// Flush sends headers if they haven't gone out yet and drains whatever is
// currently buffered.
func (w *ResponseWriter) Flush() error {
	if w.state == responseFinished {
		return ErrResponseAlreadySent
	}
	if w.state == responseFresh {
		if err := w.sendHeaders(); err != nil {
			return err
		}
	}
	return w.drainBuffer()
}

// End finalizes the response: a body that never crossed maxBuffer is sent
// fixed-length with an implicit Content-Length; one that did is already
// streaming chunked and just needs its terminating chunk (spec §4.4, §4.9).
func (w *ResponseWriter) End() error {
	if w.state == responseFinished {
		return ErrResponseAlreadySent
	}

	if w.isHead {
		if !w.hasExplicitLength() {
			w.Header.Set("Content-Length", strconv.FormatInt(w.headBodySize, 10))
		}
		if err := w.sendHeaders(); err != nil {
			return err
		}
		w.state = responseFinished
		return nil
	}

	if w.state == responseFresh {
		if !w.hasExplicitLength() {
			w.Header.Set("Content-Length", strconv.Itoa(len(w.buf)))
		}
		if err := w.sendHeaders(); err != nil {
			return err
		}
	}

	if err := w.drainBuffer(); err != nil {
		return err
	}

	if w.chunked {
		if err := sockio.WriteAll(w.conn, []byte("0\r\n\r\n")); err != nil {
			return socketError("chunk terminator write", err)
		}
	}

	w.state = responseFinished
	return nil
}

// WriteComplete sends a whole response in one shot, bypassing the
// buffering machinery entirely. Only valid before any other write.
func (w *ResponseWriter) WriteComplete(payload []byte) error {
	if w.state != responseFresh {
		return ErrResponseAlreadySent
	}
	w.Header.Set("Content-Length", strconv.Itoa(len(payload)))
	if err := w.sendHeaders(); err != nil {
		return err
	}
	if !w.isHead {
		if err := sockio.WriteAll(w.conn, payload); err != nil {
			return socketError("complete response write", err)
		}
	}
	w.state = responseFinished
	return nil
}

// WriteCompleteHTML is WriteComplete with Content-Type set to text/html.
func (w *ResponseWriter) WriteCompleteHTML(html string) error {
	w.Header.Set("Content-Type", "text/html; charset=utf-8")
	return w.WriteComplete([]byte(html))
}

func (w *ResponseWriter) sendHeaders() error {
	if w.chunked {
		w.Header.Set("Transfer-Encoding", "chunked")
	}

	line := fmt.Sprintf("HTTP/1.1 %d %s\r\n", w.Status, Phrase(w.Status))
	out := make([]byte, 0, 256)
	out = append(out, line...)
	w.Header.Each(func(name, value string) {
		out = append(out, name...)
		out = append(out, ':', ' ')
		out = append(out, value...)
		out = append(out, '\r', '\n')
	})
	out = append(out, '\r', '\n')

	if err := sockio.WriteAll(w.conn, out); err != nil {
		return socketError("header write", err)
	}
	w.state = responseHeadersSent
	return nil
}

func (w *ResponseWriter) drainBuffer() error {
	if len(w.buf) == 0 {
		return nil
	}
	if w.isHead {
		w.buf = w.buf[:0]
		return nil
	}

	if !w.chunked {
		err := sockio.WriteAll(w.conn, w.buf)
		w.buf = w.buf[:0]
		if err != nil {
			return socketError("fixed body write", err)
		}
		return nil
	}

	for len(w.buf) > 0 {
		n := len(w.buf)
		if n > w.maxChunkSize {
			n = w.maxChunkSize
		}
		chunk := w.buf[:n]
		header := fmt.Sprintf("%x\r\n", n)
		if err := sockio.WriteAll(w.conn, []byte(header)); err != nil {
			return socketError("chunk size write", err)
		}
		if err := sockio.WriteAll(w.conn, chunk); err != nil {
			return socketError("chunk body write", err)
		}
		if err := sockio.WriteAll(w.conn, []byte("\r\n")); err != nil {
			return socketError("chunk trailer write", err)
		}
		w.buf = w.buf[n:]
	}
	return nil
}

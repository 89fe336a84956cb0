// Package sockio provides the low-level socket helpers the HTTP engine is
// built on: timeouts, readiness checks, framed writes, and a small
// completion-policy abstraction for bounded reads.
package sockio

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"time"
)

// ErrClosedByPeer marks a read that ended because the peer closed the
// connection rather than because of a genuine socket failure.
var ErrClosedByPeer = errors.New("sockio: closed by peer")

// SetReadTimeout arms conn's read deadline, or clears it when d <= 0.
func SetReadTimeout(conn net.Conn, d time.Duration) error {
	if d <= 0 {
		return conn.SetReadDeadline(time.Time{})
	}
	return conn.SetReadDeadline(time.Now().Add(d))
}

// SetWriteTimeout arms conn's write deadline, or clears it when d <= 0.
func SetWriteTimeout(conn net.Conn, d time.Duration) error {
	if d <= 0 {
		return conn.SetWriteDeadline(time.Time{})
	}
	return conn.SetWriteDeadline(time.Now().Add(d))
}

// WriteAll writes b to conn in full, retrying on short writes, and fails on
// the first error the underlying connection returns.
func WriteAll(conn net.Conn, b []byte) error {
	for len(b) > 0 {
		n, err := conn.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// Completion is the predicate a bounded Read call is driven by. It decides,
// after each chunk arrives, whether the accumulated buffer is "done".
type Completion interface {
	// Done inspects buf (everything read so far) and reports whether
	// reading should stop, plus the offset of the first byte past
	// whatever terminator it matched (len(buf) when the policy has no
	// terminator, e.g. idle-based).
	Done(buf []byte) (done bool, matchEnd int)

	// Deadline is the per-chunk read deadline this policy wants armed
	// before each underlying Read, or 0 for "use the socket's default".
	Deadline() time.Duration
}

// UntilEndMark completes as soon as mark appears anywhere in the
// accumulated buffer (e.g. CRLFCRLF for HTTP header termination). Bytes
// past the match (the start of a request body that arrived in the same
// read) are left in the buffer for the caller to reclaim via matchEnd.
type UntilEndMark struct {
	Mark []byte
}

func (p UntilEndMark) Done(buf []byte) (bool, int) {
	if idx := bytes.Index(buf, p.Mark); idx >= 0 {
		return true, idx + len(p.Mark)
	}
	return false, 0
}

func (p UntilEndMark) Deadline() time.Duration { return 0 }

// UntilQuietPeriod completes once no further bytes arrive within d of the
// last successful read. It is used by the administrative control channel
// (see package admin), not by the request path.
type UntilQuietPeriod struct {
	Quiet time.Duration
}

func (p UntilQuietPeriod) Done(buf []byte) (bool, int) {
	// Completion comes only from ReadUntil observing a quiet-period timeout.
	return false, len(buf)
}

func (p UntilQuietPeriod) Deadline() time.Duration { return p.Quiet }

// ReadUntil accumulates bytes from conn into a growable buffer until
// policy reports completion, the overall deadline elapses, or a read
// error occurs. ignoreResetByPeer controls whether a connection-reset/
// aborted error is surfaced as an error or folded into ErrClosedByPeer
// with whatever was read so far. matchEnd reports where policy's
// terminator ended inside the returned buffer, so callers that over-read
// into the next message can split on it.
func ReadUntil(conn net.Conn, policy Completion, ignoreResetByPeer bool) (buf []byte, matchEnd int, err error) {
	buf = make([]byte, 0, 1024)
	chunk := make([]byte, 4096)

	if d := policy.Deadline(); d > 0 {
		if err := SetReadTimeout(conn, d); err != nil {
			return buf, 0, err
		}
	}

	for {
		if done, end := policy.Done(buf); done {
			return buf, end, nil
		}

		if d := policy.Deadline(); d > 0 {
			// Re-arm for each chunk so an UntilQuietPeriod policy measures
			// quiet time between reads, not total elapsed time.
			if err := SetReadTimeout(conn, d); err != nil {
				return buf, 0, err
			}
		}

		n, readErr := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if readErr != nil {
			if isQuietTimeout(policy, readErr) {
				return buf, len(buf), nil
			}
			if n == 0 && isPeerReset(readErr) {
				if ignoreResetByPeer {
					return buf, 0, ErrClosedByPeer
				}
				return buf, 0, readErr
			}
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, net.ErrClosed) {
				return buf, 0, ErrClosedByPeer
			}
			return buf, 0, readErr
		}
	}
}

func isQuietTimeout(policy Completion, err error) bool {
	if _, ok := policy.(UntilQuietPeriod); !ok {
		return false
	}
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func isPeerReset(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "reset by peer") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection aborted")
}

package sockio

import (
	"errors"
	"net"
	"time"
)

// CheckReadReady probes, within timeout, whether conn is still alive from
// the reader's side (spec §4.9 isClientConnected). It is a liveness probe,
// not a peek: a stray byte arriving here is, per this protocol's
// non-pipelined request model, always a sign the peer misbehaved or reset
// the connection, so consuming it carries no risk of eating a legitimate
// next request. A timeout with no error means the peer is simply quiet,
// which still counts as connected.
func CheckReadReady(conn net.Conn, timeout time.Duration) bool {
	if err := SetReadTimeout(conn, timeout); err != nil {
		return false
	}
	defer conn.SetReadDeadline(time.Time{})

	var probe [1]byte
	_, err := conn.Read(probe[:])
	if err == nil {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// CheckWriteReady probes, within timeout, whether conn can still accept
// writes. TCP write buffers are effectively always free for the small,
// buffered responses this server emits, so this degrades to a deadline
// sanity check rather than a genuine readiness poll.
func CheckWriteReady(conn net.Conn, timeout time.Duration) bool {
	if err := SetWriteTimeout(conn, timeout); err != nil {
		return false
	}
	defer conn.SetWriteDeadline(time.Time{})

	_, err := conn.Write(nil)
	return err == nil
}

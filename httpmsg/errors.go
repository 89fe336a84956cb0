package httpmsg

import "fmt"

// ErrRequestProcessing marks a malformed request: a header line with no
// colon, bad multipart boundaries, and the like. The worker boundary turns
// it into a 500 response (spec §7).
type ErrRequestProcessing struct {
	Reason string
}

func (e *ErrRequestProcessing) Error() string {
	return fmt.Sprintf("request processing: %s", e.Reason)
}

func requestProcessingError(format string, args ...any) error {
	return &ErrRequestProcessing{Reason: fmt.Sprintf(format, args...)}
}

// NewRequestProcessingError lets sibling packages (params, webdir) raise
// the same RequestProcessing kind the parser does, so the worker boundary
// handles every malformed-request case the same way.
func NewRequestProcessingError(format string, args ...any) error {
	return requestProcessingError(format, args...)
}

// ErrResponseAlreadySent is returned by ResponseWriter methods once the
// response has reached the Finished state.
var ErrResponseAlreadySent = fmt.Errorf("httpmsg: response already sent")

// SocketError wraps an I/O failure observed while talking to a client
// connection, carrying the OS-level error as-is.
type SocketError struct {
	Op  string
	Err error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("socket error during %s: %v", e.Op, e.Err)
}

func (e *SocketError) Unwrap() error { return e.Err }

func socketError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SocketError{Op: op, Err: err}
}

// NewSocketError lets sibling packages wrap OS errors the same way C1/C4/C5
// do, so every layer's I/O failures surface as the same SocketError kind.
func NewSocketError(op string, err error) error {
	return socketError(op, err)
}

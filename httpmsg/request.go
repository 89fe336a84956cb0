package httpmsg

import (
	"bytes"
	"strconv"
	"strings"
)

// EndMark terminates an HTTP/1.1 header block.
var EndMark = []byte("\r\n\r\n")

// MethodKind is the classification spec §4.9 dispatches on: GET, POST, HEAD,
// or anything else.
type MethodKind int

const (
	MethodUnknown MethodKind = iota
	MethodGET
	MethodPOST
	MethodHEAD
)

// ClassifyMethod maps a request-line method token onto the kinds the
// resolver and context distinguish; everything else is MethodUnknown.
func ClassifyMethod(method string) MethodKind {
	switch method {
	case "GET":
		return MethodGET
	case "POST":
		return MethodPOST
	case "HEAD":
		return MethodHEAD
	default:
		return MethodUnknown
	}
}

// RequestHeader is the parsed request line and header block (spec §3). The
// generic Fields map preserves the spelling headers arrived with; Get looks
// them up case-insensitively as spec requires, and Content-Length is kept
// out of the map entirely in its own numeric field.
type RequestHeader struct {
	Method     string
	Kind       MethodKind
	PathQuery  string
	Major      int
	Minor      int
	HasLength  bool
	Length     int64
	Fields     map[string]string
}

// Get performs the case-insensitive header lookup spec §3 requires.
func (h *RequestHeader) Get(name string) (string, bool) {
	for k, v := range h.Fields {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Path returns PathQuery with any query string stripped.
func (h *RequestHeader) Path() string {
	if i := strings.IndexByte(h.PathQuery, '?'); i >= 0 {
		return h.PathQuery[:i]
	}
	return h.PathQuery
}

// ParseRequestHeader parses a CRLF-delimited header block (not including
// the terminating blank line's own content) per spec §4.3. A header line
// without a colon fails with ErrRequestProcessing.
func ParseRequestHeader(block []byte) (*RequestHeader, error) {
	block = bytes.TrimSuffix(block, []byte("\r\n\r\n"))
	lines := bytes.Split(block, []byte("\r\n"))
	if len(lines) == 0 || len(lines[0]) == 0 {
		return nil, requestProcessingError("empty request line")
	}

	parts := strings.SplitN(string(lines[0]), " ", 3)
	if len(parts) < 2 {
		return nil, requestProcessingError("malformed request line %q", lines[0])
	}

	h := &RequestHeader{
		Method:    parts[0],
		PathQuery: parts[1],
		Major:     1,
		Minor:     0,
		Fields:    make(map[string]string),
	}
	h.Kind = ClassifyMethod(h.Method)

	if len(parts) == 3 {
		major, minor := parseHTTPVersion(parts[2])
		h.Major, h.Minor = major, minor
	}

	for _, line := range lines[1:] {
		if len(line) == 0 {
			continue
		}
		idx := bytes.IndexByte(line, ':')
		if idx < 0 {
			return nil, requestProcessingError("header line missing colon: %q", line)
		}
		name := string(line[:idx])
		value := strings.TrimLeft(string(line[idx+1:]), " \t")

		if strings.EqualFold(name, "Content-Length") {
			n, err := strconv.ParseUint(value, 10, 63)
			if err != nil {
				return nil, requestProcessingError("bad Content-Length %q", value)
			}
			h.HasLength = true
			h.Length = int64(n)
			continue
		}
		h.Fields[name] = value
	}

	return h, nil
}

// parseHTTPVersion parses "HTTP/1.1"-shaped tokens; a missing minor
// component (just "HTTP/1") defaults minor to 0 per spec §4.3.
func parseHTTPVersion(token string) (major, minor int) {
	token = strings.TrimPrefix(token, "HTTP/")
	dot := strings.IndexByte(token, '.')
	if dot < 0 {
		major, _ = strconv.Atoi(token)
		return major, 0
	}
	major, _ = strconv.Atoi(token[:dot])
	minor, _ = strconv.Atoi(token[dot+1:])
	return major, minor
}

package params

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/larkhttp/larkhttpd/httpmsg"
)

// UploadedFile describes one file part of a multipart/form-data upload
// (spec §3 UploadedFile). Its spill file lives under the context's uploads
// directory for the lifetime of the owning HttpContext.
type UploadedFile struct {
	FieldName   string
	Filename    string
	ContentType string
	SpillPath   string
	Size        int64
}

const multipartReadChunk = 32 * 1024

// ParseMultipart streams a multipart/form-data body (spec §4.6) off body,
// splitting on the boundary derived from the Content-Type's boundary=
// parameter. Non-file parts land in the returned postParams map; file
// parts spill to uploadsDir and are returned in the files map, keyed by
// field name.
func ParseMultipart(body io.Reader, boundary string, uploadsDir string) (postParams map[string]string, files map[string]*UploadedFile, err error) {
	postParams = make(map[string]string)
	files = make(map[string]*UploadedFile)

	marker := []byte("--" + boundary)
	final := []byte("--" + boundary + "--")

	buf := make([]byte, 0, 4*multipartReadChunk)
	chunk := make([]byte, multipartReadChunk)

	fill := func() (int, error) {
		n, rerr := body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		return n, rerr
	}

	// Skip to the first boundary line.
	for {
		if idx := bytes.Index(buf, marker); idx >= 0 {
			buf = buf[idx:]
			break
		}
		n, rerr := fill()
		if n == 0 && rerr != nil {
			return postParams, files, requestProcessingError("multipart body ended before first boundary")
		}
	}

	for {
		if bytes.HasPrefix(buf, final) {
			break
		}
		if !bytes.HasPrefix(buf, marker) {
			return postParams, files, requestProcessingError("multipart stream desynchronized at boundary")
		}
		buf = buf[len(marker):]

		// consume CRLF after the boundary, growing buf if needed
		for len(buf) < 2 {
			if _, rerr := fill(); rerr != nil && len(buf) < 2 {
				return postParams, files, requestProcessingError("multipart boundary truncated")
			}
		}
		if !bytes.HasPrefix(buf, []byte("\r\n")) {
			// could be the closing "--" suffix already consumed by HasPrefix(final) above
			return postParams, files, requestProcessingError("malformed multipart boundary line")
		}
		buf = buf[2:]

		// read part headers up to the blank line
		var headerEnd int
		for {
			if idx := bytes.Index(buf, []byte("\r\n\r\n")); idx >= 0 {
				headerEnd = idx + 4
				break
			}
			n, rerr := fill()
			if n == 0 && rerr != nil {
				return postParams, files, requestProcessingError("multipart part headers truncated")
			}
		}

		headerBlock := buf[:headerEnd]
		buf = buf[headerEnd:]

		fieldName, filename, contentType, herr := parsePartHeaders(headerBlock)
		if herr != nil {
			return postParams, files, herr
		}

		var spill *os.File
		var upload *UploadedFile
		var value bytes.Buffer

		if filename != "" {
			path, perr := spillPath(uploadsDir, filename)
			if perr != nil {
				return postParams, files, socketError("multipart spill open", perr)
			}
			f, oerr := os.Create(path)
			if oerr != nil {
				return postParams, files, socketError("multipart spill open", oerr)
			}
			spill = f
			upload = &UploadedFile{FieldName: fieldName, Filename: filename, ContentType: contentType, SpillPath: path}
		}

		delim := []byte("\r\n" + "--" + boundary)
		for {
			if idx := bytes.Index(buf, delim); idx >= 0 {
				if spill != nil {
					spill.Write(buf[:idx])
				} else {
					value.Write(buf[:idx])
				}
				buf = buf[idx+2:] // leave the "--boundary..." at buf[0:], drop the leading CRLF
				break
			}

			// keep everything that could still be a partial delimiter match
			safe := len(buf) - (len(delim) - 1)
			if safe < 0 {
				safe = 0
			}
			if safe > 0 {
				if spill != nil {
					spill.Write(buf[:safe])
				} else {
					value.Write(buf[:safe])
				}
				buf = buf[safe:]
			}

			n, rerr := fill()
			if n == 0 && rerr != nil {
				if spill != nil {
					spill.Close()
				}
				return postParams, files, requestProcessingError("multipart part body truncated")
			}
		}

		if spill != nil {
			spill.Close()
			if info, serr := os.Stat(upload.SpillPath); serr == nil {
				upload.Size = info.Size()
			}
			files[fieldName] = upload
		} else {
			postParams[fieldName] = percentDecode(value.String())
		}
	}

	return postParams, files, nil
}

// parsePartHeaders reads Content-Disposition and Content-Type out of one
// part's header block. A missing "name" attribute fails the request.
func parsePartHeaders(block []byte) (fieldName, filename, contentType string, err error) {
	for _, line := range strings.Split(string(block), "\r\n") {
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		switch strings.ToLower(name) {
		case "content-disposition":
			fieldName = dispositionAttr(value, "name")
			filename = dispositionAttr(value, "filename")
		case "content-type":
			contentType = value
		}
	}
	if fieldName == "" {
		return "", "", "", requestProcessingError("multipart part missing name attribute")
	}
	return fieldName, filename, contentType, nil
}

func dispositionAttr(header, attr string) string {
	needle := attr + "=\""
	idx := strings.Index(header, needle)
	if idx < 0 {
		return ""
	}
	rest := header[idx+len(needle):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// spillPath builds a non-colliding path under dir for filename, prefixing
// '$' characters (spec §6.3) until no file exists at that path.
func spillPath(dir, filename string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	candidate := filename
	for {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
		candidate = "$" + candidate
	}
}

func requestProcessingError(format string, args ...any) error {
	return httpmsg.NewRequestProcessingError(format, args...)
}

func socketError(op string, err error) error {
	return httpmsg.NewSocketError(op, err)
}

package params

import (
	"os"
	"strings"
)

// Boundary extracts the boundary= parameter from a multipart/form-data
// Content-Type header value, or "" if none is present.
func Boundary(contentType string) string {
	parts := strings.Split(contentType, ";")
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if !strings.HasPrefix(strings.ToLower(p), "boundary=") {
			continue
		}
		v := p[len("boundary="):]
		return strings.Trim(v, `"`)
	}
	return ""
}

// IsMultipart reports whether contentType names multipart/form-data.
func IsMultipart(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "multipart/form-data")
}

// IsURLEncodedForm reports whether contentType names
// application/x-www-form-urlencoded.
func IsURLEncodedForm(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "application/x-www-form-urlencoded")
}

// CleanupUploads removes every spill file recorded in files, swallowing
// errors (spec §4.6: "deletion errors are logged and swallowed"). Returns
// the errors it swallowed so the caller can log them.
func CleanupUploads(files map[string]*UploadedFile) []error {
	var errs []error
	for _, f := range files {
		if err := removeSpill(f.SpillPath); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func removeSpill(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

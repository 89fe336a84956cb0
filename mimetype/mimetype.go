// Package mimetype resolves a file's Content-Type from its extension,
// standing in for the out-of-scope MIME table spec §1 names as an external
// collaborator.
package mimetype

import (
	"mime"
	"path/filepath"
	"strings"
	"sync"
)

const fallback = "application/octet-stream"

var (
	mu       sync.RWMutex
	overrides = map[string]string{
		".txt":  "text/plain; charset=utf-8",
		".html": "text/html; charset=utf-8",
		".htm":  "text/html; charset=utf-8",
		".css":  "text/css; charset=utf-8",
		".js":   "text/javascript; charset=utf-8",
		".json": "application/json",
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".gif":  "image/gif",
		".svg":  "image/svg+xml",
		".pdf":  "application/pdf",
	}
)

// ForPath returns the Content-Type for path's extension, falling back to
// application/octet-stream when the extension is unknown (spec §4.8).
func ForPath(path string) string {
	return ForExt(filepath.Ext(path))
}

// ForExt returns the Content-Type registered for ext (case-insensitive,
// with or without the leading dot).
func ForExt(ext string) string {
	if ext == "" {
		return fallback
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	ext = strings.ToLower(ext)

	mu.RLock()
	if v, ok := overrides[ext]; ok {
		mu.RUnlock()
		return v
	}
	mu.RUnlock()

	if v := mime.TypeByExtension(ext); v != "" {
		return v
	}
	return fallback
}

// Register adds or replaces the Content-Type used for ext, letting
// configuration extend the table (spec §1's external MIME collaborator).
func Register(ext, contentType string) {
	if ext == "" {
		return
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	mu.Lock()
	overrides[strings.ToLower(ext)] = contentType
	mu.Unlock()
}

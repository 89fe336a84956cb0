package webdir

import "sync"

// handlerRegistry is the seam spec.md §1 leaves for "dynamic code loading
// for third-party handlers": a real plugin loader would populate this at
// startup from .so files or subprocesses; here Go functions are added by
// name with RegisterHandler before config.Load runs. cmd/larkhttpd
// registers none, so a config document that names a handler fails to load.
var handlerRegistry = struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}{handlers: map[string]Handler{}}

// RegisterHandler makes a named handler available to config.Load, which
// resolves each directory's configured handler names against this
// registry when building a DirectoryTree.
func RegisterHandler(name string, fn Handler) {
	handlerRegistry.mu.Lock()
	defer handlerRegistry.mu.Unlock()
	handlerRegistry.handlers[name] = fn
}

// LookupHandler returns the handler registered under name, if any.
func LookupHandler(name string) (Handler, bool) {
	handlerRegistry.mu.RLock()
	defer handlerRegistry.mu.RUnlock()
	fn, ok := handlerRegistry.handlers[name]
	return fn, ok
}

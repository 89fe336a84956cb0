package webdir

import (
	"strings"
	"sync"
)

// DirectoryTree is the map virtual_path -> DirectoryEntry (spec §3),
// built once at load and swapped atomically on reload (spec §5).
type DirectoryTree struct {
	mu     sync.RWMutex
	byPath map[string]*DirectoryEntry
	byName map[string]*DirectoryEntry
}

// NewDirectoryTree validates entries and computes each one's merged
// default-document list before exposing them by virtual path.
func NewDirectoryTree(entries []*DirectoryEntry) (*DirectoryTree, error) {
	byName := make(map[string]*DirectoryEntry, len(entries))
	for _, e := range entries {
		e.VirtualPath = normalizeVirtualPath(e.VirtualPath)
		byName[e.Name] = e
	}
	if err := validateEntries(byName); err != nil {
		return nil, err
	}

	byPath := make(map[string]*DirectoryEntry, len(entries))
	for _, e := range entries {
		e.effectiveDefaultDocuments = mergeDefaultDocuments(ancestorDocuments(e, byName), e.DefaultDocuments)
		byPath[e.VirtualPath] = e
	}

	return &DirectoryTree{byPath: byPath, byName: byName}, nil
}

// ResolveBrowsable walks e's ancestors until one has an explicit
// true/false Browsable setting, defaulting to false if none do.
func (t *DirectoryTree) ResolveBrowsable(e *DirectoryEntry) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for cur := e; cur != nil; {
		if cur.Browsable != TristateUnknown {
			return cur.Browsable == TristateTrue
		}
		if cur.ParentName == "" {
			break
		}
		cur = t.byName[cur.ParentName]
	}
	return false
}

// IsLinkedDirectory reports whether e's real path lies outside its
// parent's real path (the glossary's "linked (virtual) directory").
func (t *DirectoryTree) IsLinkedDirectory(e *DirectoryEntry) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	parent, ok := t.byName[e.ParentName]
	if !ok {
		return false
	}
	return !strings.HasPrefix(e.RealPath, parent.RealPath)
}

func ancestorDocuments(e *DirectoryEntry, byName map[string]*DirectoryEntry) []string {
	if e.ParentName == "" {
		return nil
	}
	parent, ok := byName[e.ParentName]
	if !ok {
		return nil
	}
	return mergeDefaultDocuments(ancestorDocuments(parent, byName), parent.DefaultDocuments)
}

// Lookup returns the entry at exactly virtualPath, if any.
func (t *DirectoryTree) Lookup(virtualPath string) (*DirectoryEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.byPath[virtualPath]
	return e, ok
}

// NearestAncestor walks virtualPath's "/"-separated prefixes and returns
// the deepest one registered in the tree (spec §4.7 Step 1).
func (t *DirectoryTree) NearestAncestor(virtualPath string) (*DirectoryEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	path := normalizeVirtualPath(virtualPath)
	for {
		if e, ok := t.byPath[path]; ok {
			return e, true
		}
		if path == "/" {
			return nil, false
		}
		path = parentVirtualPath(path)
	}
}

// Children returns the DirectoryEntries whose ParentName is parent.Name,
// for rendering virtual-directory rows in a listing (spec §4.7.1 step 5).
func (t *DirectoryTree) Children(parent *DirectoryEntry) []*DirectoryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*DirectoryEntry
	for _, e := range t.byPath {
		if e.ParentName == parent.Name {
			out = append(out, e)
		}
	}
	return out
}

// LinkedChildAt returns the entry whose virtual path equals virtualPath
// with a trailing slash added, if any (spec §4.7 Step 5's dangling-target
// redirect case). It does not check that the entry is linked; callers use
// IsLinkedDirectory for that.
func (t *DirectoryTree) LinkedChildAt(virtualPath string) (*DirectoryEntry, bool) {
	return t.Lookup(normalizeVirtualPath(virtualPath))
}

// Replace atomically swaps the tree's contents (spec §5 reload).
func (t *DirectoryTree) Replace(entries []*DirectoryEntry) error {
	fresh, err := NewDirectoryTree(entries)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.byPath = fresh.byPath
	t.byName = fresh.byName
	t.mu.Unlock()
	return nil
}

func parentVirtualPath(p string) string {
	// p is slash-terminated and not "/"; drop the trailing slash, then
	// everything after the previous slash.
	trimmed := p[:len(p)-1]
	if i := lastSlash(trimmed); i >= 0 {
		return trimmed[:i+1]
	}
	return "/"
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

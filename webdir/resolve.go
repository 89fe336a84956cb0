package webdir

import (
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/larkhttp/larkhttpd/fileserve"
	"github.com/larkhttp/larkhttpd/filesystem"
	"github.com/larkhttp/larkhttpd/httpctx"
	"github.com/larkhttp/larkhttpd/httpmsg"
)

// Resolver ties a DirectoryTree and a Filesystem together into an
// httpctx.Resolver, so httpserver's worker never needs to import webdir
// directly to build one.
type Resolver struct {
	Tree *DirectoryTree
	FS   filesystem.Filesystem
}

// Resolve implements spec §4.7's five-step algorithm.
func (r *Resolver) Resolve(ctx *httpctx.HttpContext) error {
	originalVirtualPath := ctx.VirtualPath

	parent, ok := r.Tree.NearestAncestor(originalVirtualPath)
	if !ok {
		ctx.Response.Status = httpmsg.StatusNotFound
		return ctx.Response.WriteCompleteHTML("<html><body><h1>404 Not Found</h1></body></html>")
	}

	mappedPath := applyMappings(parent, originalVirtualPath)
	ctx.VirtualPath = mappedPath

	fsPath, err := filesystemTarget(parent, mappedPath)
	if err != nil {
		return err
	}
	ctx.FilePath = fsPath

	if dispatchHandlers(parent, ctx) {
		return nil
	}

	return r.resolveTarget(parent, ctx, originalVirtualPath, fsPath)
}

func (r *Resolver) resolveTarget(parent *DirectoryEntry, ctx *httpctx.HttpContext, originalVirtualPath, fsPath string) error {
	isDir, statErr := r.FS.IsDirectory(fsPath)
	exists, existsErr := r.FS.FileExists(fsPath)

	switch {
	case statErr == nil && isDir:
		if !strings.HasSuffix(originalVirtualPath, "/") {
			return redirect(ctx, originalVirtualPath+"/")
		}
		return r.serveDirectory(parent, ctx, fsPath)

	case (existsErr != nil || !exists) && !isDir:
		if linked, ok := r.Tree.LinkedChildAt(originalVirtualPath); ok && r.Tree.IsLinkedDirectory(linked) {
			return redirect(ctx, normalizeVirtualPath(originalVirtualPath))
		}
		ctx.Response.Status = httpmsg.StatusNotFound
		return ctx.Response.WriteCompleteHTML("<html><body><h1>404 Not Found</h1></body></html>")

	default:
		return fileserve.Serve(r.FS, ctx, fsPath)
	}
}

func redirect(ctx *httpctx.HttpContext, location string) error {
	ctx.Response.Status = httpmsg.StatusFound
	ctx.Response.Header.Set("Location", location)
	return ctx.Response.WriteCompleteHTML(`<html><body>Redirecting to ` + location + `</body></html>`)
}

// applyMappings runs every (regex, template) rule in parent.Mappings in
// order against the path relative to parent; each rule sees the previous
// rule's rewrite (spec §4.7 Step 2, an intentionally preserved ambiguity —
// see the open question in spec §9).
func applyMappings(parent *DirectoryEntry, virtualPath string) string {
	mapped := virtualPath
	for _, m := range parent.Mappings {
		relative := strings.TrimPrefix(mapped, parent.VirtualPath)
		groups := m.Pattern.FindStringSubmatch(relative)
		if groups == nil {
			continue
		}
		mapped = parent.VirtualPath + substituteTemplate(m.Template, groups[1:])
	}
	return mapped
}

func substituteTemplate(template string, groups []string) string {
	out := template
	for i, g := range groups {
		out = strings.ReplaceAll(out, "{"+strconv.Itoa(i)+"}", g)
	}
	return out
}

func filesystemTarget(parent *DirectoryEntry, mappedPath string) (string, error) {
	if mappedPath == parent.VirtualPath {
		return parent.RealPath, nil
	}
	suffix := strings.TrimPrefix(mappedPath, parent.VirtualPath)
	decoded, err := url.PathUnescape(suffix)
	if err != nil {
		return "", httpmsg.NewRequestProcessingError("bad percent-encoding in path %q", suffix)
	}
	return filepath.Join(parent.RealPath, decoded), nil
}

// dispatchHandlers runs parent.Handlers in registration order, honoring
// the first one that returns true (spec §4.7 Step 4, §9 open question).
func dispatchHandlers(parent *DirectoryEntry, ctx *httpctx.HttpContext) bool {
	ext := filepath.Ext(ctx.FilePath)
	for _, h := range parent.Handlers {
		if h.Ext == "*" || strings.EqualFold(h.Ext, ext) {
			if h.Fn(ctx) {
				return true
			}
		}
	}
	return false
}

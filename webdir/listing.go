package webdir

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/larkhttp/larkhttpd/fileserve"
	"github.com/larkhttp/larkhttpd/httpctx"
	"github.com/larkhttp/larkhttpd/httpmsg"
)

// serveDirectory implements spec §4.7.1: default document, browsing gate,
// method/charset checks, then a rendered listing.
func (r *Resolver) serveDirectory(parent *DirectoryEntry, ctx *httpctx.HttpContext, fsPath string) error {
	for _, name := range parent.EffectiveDefaultDocuments() {
		candidate := filepath.Join(fsPath, name)
		if exists, _ := r.FS.FileExists(candidate); !exists {
			continue
		}
		ctx.VirtualPath = normalizeVirtualPath(ctx.VirtualPath) + name
		ctx.FilePath = candidate
		ctx.Response.Header.Set("Content-Location", ctx.VirtualPath)
		if dispatchHandlers(parent, ctx) {
			return nil
		}
		return fileserve.Serve(r.FS, ctx, candidate)
	}

	if !r.Tree.ResolveBrowsable(parent) {
		ctx.Response.Status = httpmsg.StatusForbidden
		return ctx.Response.WriteCompleteHTML("<html><body><h1>403 Forbidden</h1><p>browsing not allowed</p></body></html>")
	}

	if ctx.Method != httpmsg.MethodGET && ctx.Method != httpmsg.MethodHEAD {
		ctx.Response.Status = httpmsg.StatusMethodNotAllowed
		ctx.Response.Header.Set("Allow", "GET, HEAD")
		return ctx.Response.WriteCompleteHTML("<html><body><h1>405 Method Not Allowed</h1></body></html>")
	}

	charset := parent.Charset
	if charset == "" {
		charset = defaultCharset
	}
	if accept, ok := ctx.Header.Get("Accept-Charset"); ok && charset != defaultCharset {
		if !strings.Contains(accept, "*") && !strings.Contains(strings.ToLower(accept), strings.ToLower(charset)) {
			ctx.Response.Status = httpmsg.StatusNotAcceptable
			return ctx.Response.WriteCompleteHTML("<html><body><h1>406 Not Acceptable</h1></body></html>")
		}
	}

	return r.renderListing(parent, ctx, fsPath)
}

type listingRow struct {
	url  string
	name string
	size string
	when string
	dir  bool
}

func (r *Resolver) renderListing(parent *DirectoryEntry, ctx *httpctx.HttpContext, fsPath string) error {
	pageURL := ctx.VirtualPath

	var body strings.Builder
	body.WriteString(substitutePage(parent.Templates.Header, pageURL))

	if pageURL != "/" {
		parentURL := formatParentDirRecord(pageURL)
		body.WriteString(strings.ReplaceAll(parent.Templates.ParentLink, "{parent-url}", parentURL))
	}

	var virtualRows, dirRows, fileRows []listingRow
	errorsCount := 0

	for _, child := range r.Tree.Children(parent) {
		virtualRows = append(virtualRows, listingRow{
			url:  child.VirtualPath,
			name: child.Name,
			dir:  true,
		})
	}

	entries, err := r.FS.ListDirectory(fsPath)
	if err != nil {
		errorsCount++
	}
	for _, info := range entries {
		row := listingRow{
			url:  pageURL + info.Name(),
			name: info.Name(),
			size: strconv.FormatInt(info.Size(), 10),
			when: info.ModTime().UTC().Format(time.RFC1123),
			dir:  info.IsDir(),
		}
		if row.dir {
			row.url += "/"
			dirRows = append(dirRows, row)
		} else {
			fileRows = append(fileRows, row)
		}
	}

	sort.Slice(dirRows, func(i, j int) bool { return dirRows[i].name < dirRows[j].name })
	sort.Slice(fileRows, func(i, j int) bool { return fileRows[i].name < fileRows[j].name })

	for _, row := range virtualRows {
		body.WriteString(substituteRow(parent.Templates.VirtualDirRow, row))
	}
	for _, row := range dirRows {
		body.WriteString(substituteRow(parent.Templates.DirectoryRow, row))
	}
	for _, row := range fileRows {
		body.WriteString(substituteRow(parent.Templates.FileRow, row))
	}

	footer := parent.Templates.Footer
	footer = strings.ReplaceAll(footer, "{files-count}", strconv.Itoa(len(fileRows)))
	footer = strings.ReplaceAll(footer, "{directories-count}", strconv.Itoa(len(dirRows)+len(virtualRows)))
	footer = strings.ReplaceAll(footer, "{errors-count}", strconv.Itoa(errorsCount))
	body.WriteString(footer)

	ctx.Response.Status = httpmsg.StatusOK
	return ctx.Response.WriteCompleteHTML(body.String())
}

func substitutePage(template, pageURL string) string {
	return strings.ReplaceAll(template, "{page-url}", pageURL)
}

func substituteRow(template string, row listingRow) string {
	out := template
	out = strings.ReplaceAll(out, "{url}", row.url)
	out = strings.ReplaceAll(out, "{name}", row.name)
	out = strings.ReplaceAll(out, "{size}", row.size)
	out = strings.ReplaceAll(out, "{time}", row.when)
	out = strings.ReplaceAll(out, "{tab}", "\t")
	return out
}

// formatParentDirRecord truncates at the last non-terminal slash — a
// simple heuristic that does not normalize ".." (spec §9 open question,
// treated as intentional).
func formatParentDirRecord(virtualPath string) string {
	trimmed := strings.TrimSuffix(virtualPath, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i+1]
	}
	return "/"
}

package server

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rathix/devserve/internal/fsutil"
	"github.com/rathix/devserve/internal/livereload"
)

// Resolution is the file chosen for a request path.
type Resolution struct {
	// Path is the file on disk.
	Path string
	// Document is true when Path is an HTML page that receives the
	// live-reload client.
	Document bool
}

// Resolver maps request paths onto files under the served root. Every path
// resolves to something: an exact file, a matching .html page, or the root
// index.html.
type Resolver struct {
	base   string
	logger *slog.Logger
}

// NewResolver serves files from base.
func NewResolver(base string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{base: base, logger: logger}
}

// Resolve picks the file for urlPath. The path is cleaned before joining so
// it cannot reach outside the root.
func (r *Resolver) Resolve(urlPath string) Resolution {
	dir := strings.HasSuffix(urlPath, "/")
	clean := path.Clean("/" + urlPath)

	if !dir {
		exact := r.join(clean)
		if fsutil.IsRegularFile(exact) {
			return Resolution{Path: exact}
		}
	}

	page := clean
	if dir && page != "/" {
		page += "/"
	}
	if html := r.join(page + ".html"); fsutil.IsRegularFile(html) {
		return Resolution{Path: html, Document: true}
	}
	return Resolution{Path: r.join("/index.html"), Document: true}
}

func (r *Resolver) join(p string) string {
	return filepath.Join(r.base, filepath.FromSlash(p))
}

func (r *Resolver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	res := r.Resolve(req.URL.Path)
	if !res.Document {
		r.serveFile(w, req, res.Path)
		return
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		r.logger.Warn("no page to serve", "path", req.URL.Path, "file", res.Path, "error", err)
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(livereload.Inject(data))
}

// serveFile streams p as-is. Conditional and range requests are not
// honoured so a reload always fetches the current build output.
func (r *Resolver) serveFile(w http.ResponseWriter, req *http.Request, p string) {
	f, err := os.Open(p)
	if err != nil {
		r.logger.Warn("failed to open file", "file", p, "error", err)
		http.NotFound(w, req)
		return
	}
	defer f.Close()

	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, f); err != nil {
		r.logger.Debug("file write interrupted", "file", p, "error", err)
	}
}

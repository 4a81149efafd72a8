package offline

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// Handler intercepts resource requests and decides cache-vs-network per
// request: cache-first for same-origin assets, network-first for vendor
// scripts, with a cached-root-document fallback for offline navigations.
// Non-GET requests are never intercepted; they pass straight through.
type Handler struct {
	mgr    *Manager
	next   http.Handler
	logger *slog.Logger
}

// NewHandler creates the interception handler. next serves whatever the
// cache layer does not handle (non-GET requests); when nil, such requests
// get 405.
func NewHandler(mgr *Manager, next http.Handler) *Handler {
	return &Handler{mgr: mgr, next: next, logger: mgr.logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		if h.next != nil {
			h.next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Path
	if strings.HasPrefix(path, "/vendor/") {
		h.networkFirst(w, r, path)
		return
	}
	h.cacheFirst(w, r, path)
}

// cacheFirst serves same-origin assets: the current bucket wins, a miss
// goes to the origin and the successful response is cached best-effort,
// and an unreachable origin on a navigation falls back to the cached root
// document.
func (h *Handler) cacheFirst(w http.ResponseWriter, r *http.Request, path string) {
	bucket := h.mgr.CurrentBucket()

	if bucket != "" {
		entry, err := h.mgr.store.Match(bucket, path)
		if err != nil {
			h.logger.Warn("offline: cache match failed", slog.String("path", path), slog.String("error", err.Error()))
		} else if entry != nil {
			h.serveEntry(w, path, entry)
			return
		}
	}

	entry, err := h.mgr.assets.Fetch(path)
	if err == nil {
		if bucket != "" {
			// Cache-write failures must never block the response.
			if putErr := h.mgr.store.Put(bucket, entry); putErr != nil {
				h.logger.Warn("offline: runtime cache write failed",
					slog.String("path", path), slog.String("error", putErr.Error()))
			}
		}
		h.serveEntry(w, path, &entry)
		return
	}

	// Origin unreachable or asset gone: best-effort offline page for
	// navigations, plain failure for everything else.
	if isNavigation(r) {
		if offline := h.offlineDocument(bucket); offline != nil {
			h.serveEntry(w, "/", offline)
			return
		}
	}
	if errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	h.logger.Error("offline: origin fetch failed", slog.String("path", path), slog.String("error", err.Error()))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// networkFirst serves vendor scripts: upstream wins while reachable (and
// refreshes the cache), the cached copy serves when it is not.
func (h *Handler) networkFirst(w http.ResponseWriter, r *http.Request, path string) {
	upstream := h.mgr.manifest.vendorURL(path)
	if upstream == "" {
		http.NotFound(w, r)
		return
	}
	bucket := h.mgr.CurrentBucket()

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, upstream, nil)
	if err == nil {
		var resp *http.Response
		resp, err = h.mgr.client.Do(req)
		if err == nil {
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				// Pass the upstream response through uncached.
				copyHeader(w.Header(), resp.Header)
				w.WriteHeader(resp.StatusCode)
				_, _ = io.Copy(w, resp.Body)
				return
			}

			body, readErr := io.ReadAll(io.LimitReader(resp.Body, vendorFetchLimit))
			if readErr == nil {
				header := http.Header{}
				if ct := resp.Header.Get("Content-Type"); ct != "" {
					header.Set("Content-Type", ct)
				}
				entry := Entry{URL: path, Status: http.StatusOK, Header: header, Body: body}
				if bucket != "" {
					if putErr := h.mgr.store.Put(bucket, entry); putErr != nil {
						h.logger.Warn("offline: vendor cache write failed",
							slog.String("path", path), slog.String("error", putErr.Error()))
					}
				}
				h.serveEntry(w, path, &entry)
				return
			}
			err = readErr
		}
	}

	// Network unreachable: fall back to the cached copy.
	if bucket != "" {
		if entry, matchErr := h.mgr.store.Match(bucket, path); matchErr == nil && entry != nil {
			h.serveEntry(w, path, entry)
			return
		}
	}
	h.logger.Warn("offline: vendor fetch failed with no cached copy",
		slog.String("path", path), slog.String("error", err.Error()))
	http.Error(w, "upstream unavailable", http.StatusBadGateway)
}

// offlineDocument returns the cached root document, if any.
func (h *Handler) offlineDocument(bucket string) *Entry {
	if bucket == "" {
		return nil
	}
	for _, key := range []string{"/", "/index.html"} {
		if entry, err := h.mgr.store.Match(bucket, key); err == nil && entry != nil {
			return entry
		}
	}
	return nil
}

func (h *Handler) serveEntry(w http.ResponseWriter, path string, e *Entry) {
	copyHeader(w.Header(), e.Header)
	// Root documents and the web manifest carry fixed names, so clients
	// must revalidate them to pick up new versions.
	switch path {
	case "/", "/index.html", "/manifest.json":
		w.Header().Set("Cache-Control", "no-cache")
	}
	w.WriteHeader(e.Status)
	_, _ = w.Write(e.Body)
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

// isNavigation reports whether the request is a full-page navigation, the
// only case that gets a synthetic offline response.
func isNavigation(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

package offline

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// AssetSource is the origin the cache manager fetches same-origin
// resources from. It plays the role the network plays for a service
// worker: a miss here is "offline" for that path.
type AssetSource interface {
	// Fetch returns the current response for a request path. A path that
	// does not resolve to an asset returns an error.
	Fetch(path string) (Entry, error)
}

// FSAssets serves the static asset directory as an AssetSource. The root
// path maps onto the root document.
type FSAssets struct {
	dir string
}

// NewFSAssets creates an asset source rooted at dir. The directory must
// already exist.
func NewFSAssets(dir string) (*FSAssets, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("offline: resolve asset dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("offline: stat asset dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("offline: asset root is not a directory: %s", abs)
	}
	return &FSAssets{dir: abs}, nil
}

// Fetch reads the asset backing a request path.
func (a *FSAssets) Fetch(path string) (Entry, error) {
	rel := strings.TrimPrefix(path, "/")
	if rel == "" {
		rel = "index.html"
	}
	cleaned := filepath.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return Entry{}, fmt.Errorf("offline: path escapes asset root: %s", path)
	}

	abs := filepath.Join(a.dir, filepath.FromSlash(cleaned))
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entry{}, fmt.Errorf("offline: asset %s: %w", path, os.ErrNotExist)
		}
		return Entry{}, fmt.Errorf("offline: read asset %s: %w", path, err)
	}

	header := http.Header{}
	if ct := contentType(cleaned); ct != "" {
		header.Set("Content-Type", ct)
	}
	return Entry{URL: path, Status: http.StatusOK, Header: header, Body: data}, nil
}

func contentType(name string) string {
	switch ext := filepath.Ext(name); ext {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript"
	case ".json":
		return "application/json"
	case ".ico":
		return "image/x-icon"
	default:
		return mime.TypeByExtension(ext)
	}
}

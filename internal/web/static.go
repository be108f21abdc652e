package web

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// staticHandler serves the built dashboard from dir. Paths that match no
// file fall back to index.html so client-side routes work on reload. API
// paths and an empty dir answer with the JSON 404.
func (s *Server) staticHandler(dir string) http.HandlerFunc {
	if dir == "" {
		return routeNotFound
	}
	root := http.Dir(dir)
	files := http.FileServer(root)
	index := filepath.Join(dir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
			routeNotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, r)
			return
		}

		f, err := root.Open(path.Clean("/" + r.URL.Path))
		if err == nil {
			info, statErr := f.Stat()
			f.Close()
			if statErr == nil && !info.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			routeNotFound(w, r)
			return
		}

		if _, err := os.Stat(index); err != nil {
			routeNotFound(w, r)
			return
		}
		http.ServeFile(w, r, index)
	}
}

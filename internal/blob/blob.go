// Package blob stores item images as files and serves them back.
package blob

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrForeignURL is returned when a URL does not point into the store.
var ErrForeignURL = errors.New("url is not managed by this store")

// Store keeps files in Dir and exposes them under URLPrefix.
type Store struct {
	dir    string
	prefix string
}

// New creates the directory if needed and returns a Store.
func New(dir, urlPrefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &Store{dir: dir, prefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

// Prefix returns the URL path the files are served under.
func (s *Store) Prefix() string { return s.prefix }

// Put writes data under a fresh name with the given extension and returns
// its public URL path.
func (s *Store) Put(data []byte, ext string) (string, error) {
	name := uuid.NewString() + "." + strings.TrimPrefix(ext, ".")
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("storing blob: %w", err)
	}
	return path.Join(s.prefix, name), nil
}

// Delete removes the file behind url. Missing files are not an error.
func (s *Store) Delete(url string) error {
	name, err := s.name(url)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// Owns reports whether url points into the store.
func (s *Store) Owns(url string) bool {
	_, err := s.name(url)
	return err == nil
}

func (s *Store) name(url string) (string, error) {
	rest, ok := strings.CutPrefix(url, s.prefix+"/")
	if !ok || rest == "" || strings.ContainsAny(rest, `/\`) || strings.HasPrefix(rest, ".") {
		return "", ErrForeignURL
	}
	return rest, nil
}

// Handler serves stored files. Directory listings are refused.
func (s *Store) Handler() http.Handler {
	files := http.StripPrefix(s.prefix, http.FileServer(http.Dir(s.dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(w, r)
	})
}

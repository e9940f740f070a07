package blob

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPutServeDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "/uploads/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	url, err := s.Put([]byte("jpeg bytes"), ".jpg")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/") || !strings.HasSuffix(url, ".jpg") {
		t.Errorf("unexpected url %q", url)
	}
	if !s.Owns(url) {
		t.Errorf("expected store to own %q", url)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "jpeg bytes" {
		t.Errorf("unexpected body %q", body)
	}

	if err := s.Delete(url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/"))); !os.IsNotExist(err) {
		t.Errorf("expected file to be removed, stat err = %v", err)
	}
	if err := s.Delete(url); err != nil {
		t.Errorf("deleting a missing file should succeed, got %v", err)
	}
}

func TestForeignURLs(t *testing.T) {
	s, err := New(t.TempDir(), "uploads")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, url := range []string{
		"https://example.com/a.jpg",
		"/uploads/",
		"/uploads/../secret",
		"/uploads/sub/a.jpg",
		"/other/a.jpg",
		"/uploads/.hidden",
	} {
		if s.Owns(url) {
			t.Errorf("expected %q to be foreign", url)
		}
		if err := s.Delete(url); !errors.Is(err, ErrForeignURL) {
			t.Errorf("Delete(%q): expected ErrForeignURL, got %v", url, err)
		}
	}
}

func TestHandlerRefusesListing(t *testing.T) {
	s, err := New(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

package fetch_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/orbit-lang/orbitpkg/internal/fetch"
)

func digest(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

func TestFetchAllDownloadsAndVerifies(t *testing.T) {
	const body = "package contents go here"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := fetch.New(fetch.WithConcurrency(2), fetch.WithPerHostRate(100))

	specs := []fetch.Spec{
		{Name: "pkg-a.tar.gz", URL: srv.URL + "/a", SHA256: digest(body)},
		{Name: "pkg-b.tar.gz", URL: srv.URL + "/b", SHA256: digest(body)},
	}

	results, err := f.FetchAll(context.Background(), specs, dir)
	if err != nil {
		t.Fatalf("FetchAll() unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	for _, r := range results {
		if _, err := os.Stat(r.Path); err != nil {
			t.Fatalf("expected %s to exist: %v", r.Path, err)
		}
	}
}

func TestFetchAllFallsBackToMirror(t *testing.T) {
	const body = "mirrored contents"

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer dead.Close()

	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer live.Close()

	dir := t.TempDir()
	f := fetch.New(fetch.WithPerHostRate(100))

	specs := []fetch.Spec{
		{Name: "pkg.tar.gz", URL: dead.URL, Mirrors: []string{live.URL}, SHA256: digest(body)},
	}

	results, err := f.FetchAll(context.Background(), specs, dir)
	if err != nil {
		t.Fatalf("FetchAll() unexpected error: %v", err)
	}
	if got := results[0].Path; got != filepath.Join(dir, "pkg.tar.gz") {
		t.Fatalf("Path = %q, want %q", got, filepath.Join(dir, "pkg.tar.gz"))
	}
}

func TestFetchAllFailsOnHashMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "actual contents")
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := fetch.New(fetch.WithPerHostRate(100))

	specs := []fetch.Spec{
		{Name: "pkg.tar.gz", URL: srv.URL, SHA256: digest("expected contents")},
	}

	if _, err := f.FetchAll(context.Background(), specs, dir); err == nil {
		t.Fatal("expected a hash mismatch error")
	}
}

func TestFetchAllExhaustsAllMirrorsOnFailure(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer dead.Close()

	dir := t.TempDir()
	f := fetch.New(fetch.WithPerHostRate(100))

	specs := []fetch.Spec{
		{Name: "pkg.tar.gz", URL: dead.URL, Mirrors: []string{dead.URL}},
	}

	if _, err := f.FetchAll(context.Background(), specs, dir); err == nil {
		t.Fatal("expected an error when every source 404s")
	}
}

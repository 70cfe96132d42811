// Package fetch is orbitpkg's bounded-concurrency download
// orchestrator: it pulls registry tarballs and artifact archives over
// HTTP(S), respecting a per-run concurrency cap and a per-host rate
// limit, with mirror fallback and a split-retry for servers that
// reject an oversized single request.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/orbit-lang/orbitpkg/internal/fsutil"
	"github.com/orbit-lang/orbitpkg/internal/pkgerrors"
)

// Spec describes one file to fetch: a primary URL, any number of
// fallback mirrors tried in order after the primary fails, and the
// expected sha256 digest to verify the download against.
type Spec struct {
	Name    string
	URL     string
	Mirrors []string
	SHA256  string
}

// Result is where a successfully fetched Spec landed on disk.
type Result struct {
	Name string
	Path string
}

// Fetcher downloads a batch of Specs with bounded concurrency and
// per-host rate limiting. The zero value is not usable; build one
// with New.
type Fetcher struct {
	client      *http.Client
	concurrency int
	rps         float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConcurrency bounds how many downloads run at once.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) { f.concurrency = n }
}

// WithPerHostRate bounds requests per second to any single host.
func WithPerHostRate(rps float64) Option {
	return func(f *Fetcher) { f.rps = rps }
}

// WithHTTPClient overrides the default http.Client (e.g. for tests,
// or to inject proxy/TLS configuration).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// New builds a Fetcher; concurrency defaults to 8 and the per-host
// rate limit to 4 requests/sec, matching a conservative default for
// shared package registries.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      http.DefaultClient,
		concurrency: 8,
		rps:         4,
		limiters:    make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) limiterFor(rawURL string) *rate.Limiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.rps), 1)
		f.limiters[host] = l
	}
	return l
}

// Fetch downloads a single url to a fresh temp file and returns its
// path, satisfying internal/artifact.Fetcher so a *Fetcher can be
// passed directly as the download backend for artifact installation.
func (f *Fetcher) Fetch(url string) (string, error) {
	tmp, err := os.CreateTemp("", "orbitpkg-fetch-*")
	if err != nil {
		return "", errors.Wrap(err, "creating temp file for fetch")
	}
	dest := tmp.Name()
	tmp.Close()

	if err := f.download(context.Background(), url, dest); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}

// FetchAll downloads every spec into destDir, named by its Name
// field, running up to f.concurrency at a time. It returns as soon as
// every spec has either succeeded or exhausted its mirrors; the first
// unrecoverable error cancels the rest via ctx.
func (f *Fetcher) FetchAll(ctx context.Context, specs []Spec, destDir string) ([]Result, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating fetch destination directory")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	results := make([]Result, len(specs))
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			path, err := f.fetchOne(gctx, spec, destDir)
			if err != nil {
				return errors.Wrapf(err, "fetching %s", spec.Name)
			}
			results[i] = Result{Name: spec.Name, Path: path}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// fetchOne tries spec.URL, then each of spec.Mirrors in order, until
// one downloads successfully and verifies against spec.SHA256.
func (f *Fetcher) fetchOne(ctx context.Context, spec Spec, destDir string) (string, error) {
	candidates := append([]string{spec.URL}, spec.Mirrors...)
	dest := filepath.Join(destDir, spec.Name)

	var lastErr error
	for _, u := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := f.download(ctx, u, dest); err != nil {
			lastErr = err
			continue
		}
		if spec.SHA256 != "" {
			got, err := sha256File(dest)
			if err != nil {
				lastErr = err
				continue
			}
			if got != spec.SHA256 {
				lastErr = &pkgerrors.HashMismatch{Source: u, Expected: spec.SHA256, Got: got}
				continue
			}
		}
		return dest, nil
	}
	return "", errors.Wrap(lastErr, "every source (primary and mirrors) failed")
}

// download performs a rate-limited GET of u into dest, retrying once
// with a split range-request pair if the server reports the request
// as too large (413). A plain HEAD is issued first so a dead mirror
// fails fast without reserving a body-sized buffer.
func (f *Fetcher) download(ctx context.Context, u, dest string) error {
	limiter := f.limiterFor(u)
	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	head, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return errors.Wrap(err, "building HEAD request")
	}
	if resp, err := f.client.Do(head); err == nil {
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return errors.Errorf("HEAD %s: status %d", u, resp.StatusCode)
		}
	}

	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "building GET request")
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", u)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return f.downloadSplit(ctx, u, dest)
	}
	if resp.StatusCode >= 400 {
		return errors.Errorf("GET %s: status %d", u, resp.StatusCode)
	}

	return writeBody(resp.Body, dest)
}

// downloadSplit retries a 413 response as two half-sized range
// requests, concatenated back together. Servers that reject a single
// large body often still serve ranged requests within the usual
// per-request size cap.
func (f *Fetcher) downloadSplit(ctx context.Context, u, dest string) error {
	limiter := f.limiterFor(u)

	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	head, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(head)
	if err != nil {
		return errors.Wrap(err, "HEAD before split retry")
	}
	resp.Body.Close()
	total := resp.ContentLength
	if total <= 0 {
		return errors.New("server returned 413 but content length is unknown; cannot split")
	}

	mid := total / 2
	tmp, err := os.Create(dest)
	if err != nil {
		return errors.Wrap(err, "creating destination for split download")
	}
	defer tmp.Close()

	for _, rng := range [][2]int64{{0, mid}, {mid + 1, total - 1}} {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", rng[0], rng[1]))
		partResp, err := f.client.Do(req)
		if err != nil {
			return errors.Wrap(err, "ranged GET during split retry")
		}
		_, copyErr := fsutil.CopyStream(tmp, partResp.Body)
		partResp.Body.Close()
		if copyErr != nil {
			return errors.Wrap(copyErr, "writing ranged response body")
		}
	}
	return nil
}

func writeBody(r io.Reader, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return errors.Wrap(err, "creating download destination")
	}
	defer f.Close()
	if _, err := fsutil.CopyStream(f, r); err != nil {
		return errors.Wrap(err, "writing download body")
	}
	return nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

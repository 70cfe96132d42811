// Package pkgctx carries orbitpkg's per-invocation configuration and
// session state in an explicit struct, the way golang-dep's context.go
// threads a *Ctx rather than relying on package-level globals. Every
// operation in internal/ops takes a *Ctx so that concurrent environments
// (e.g. two depots on the same host) never share hidden mutable state.
package pkgctx

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ServerPreference orders which kind of registry server orbitpkg
// prefers to talk to first when more than one mirrors the same UUID.
type ServerPreference int

const (
	// PreferPrimary always tries the registry's declared primary host
	// first, falling back to its mirrors in listed order.
	PreferPrimary ServerPreference = iota
	// PreferFastest races the primary and mirrors and keeps whichever
	// answers first, used when latency matters more than provenance
	// order.
	PreferFastest
)

// DefaultConcurrency is the default bounded worker pool size for the
// download orchestrator and install pipeline.
const DefaultConcurrency = 8

// DefaultUndoDepth bounds the in-memory undo/redo session history.
const DefaultUndoDepth = 50

// Ctx is the supporting context threaded through every orbitpkg
// operation. It is built once per process invocation by New and passed
// explicitly; nothing in this module reaches for a package-level
// global equivalent to it.
type Ctx struct {
	// DepotDirs lists the depot search path, first entry first, the
	// way GOPATH lists multiple roots. The first entry is also the
	// install target for new content.
	DepotDirs []string

	// Offline disables all registry refreshes and network fetches;
	// the resolver and installer are restricted to what's already in
	// the depot.
	Offline bool

	// ServerPref chooses between trying a registry's primary host
	// first or racing it against its mirrors.
	ServerPref ServerPreference

	// TrustedRegistries is the mutual-trust set: UUIDs of registries
	// that need no interactive confirmation before being added to a
	// project's registry preference list.
	TrustedRegistries []string

	// Concurrency bounds simultaneous network fetches and CPU-bound
	// hashing/extraction workers.
	Concurrency int

	// UndoDepth bounds the session undo/redo history kept by
	// internal/ops. Zero disables undo/redo tracking entirely.
	UndoDepth int

	history *sessionHistory
}

// Option configures a Ctx at construction time.
type Option func(*Ctx)

// WithOffline sets offline mode.
func WithOffline(offline bool) Option {
	return func(c *Ctx) { c.Offline = offline }
}

// WithConcurrency overrides the default worker pool size. Values <= 0
// are ignored and DefaultConcurrency is kept.
func WithConcurrency(n int) Option {
	return func(c *Ctx) {
		if n > 0 {
			c.Concurrency = n
		}
	}
}

// WithServerPreference overrides the default server preference.
func WithServerPreference(p ServerPreference) Option {
	return func(c *Ctx) { c.ServerPref = p }
}

// WithTrustedRegistries sets the initial trusted-registry UUID set.
func WithTrustedRegistries(uuids []string) Option {
	return func(c *Ctx) { c.TrustedRegistries = append([]string(nil), uuids...) }
}

// WithDepotDirs overrides the depot search path. If never supplied,
// New falls back to the ORBIT_PKG_DEPOT_PATH environment variable and
// then a per-user default.
func WithDepotDirs(dirs []string) Option {
	return func(c *Ctx) { c.DepotDirs = append([]string(nil), dirs...) }
}

// New builds a Ctx, applying options over defaults derived from the
// environment (mirroring NewContext's GOPATH-discovery role in the
// teacher, but for the depot path list instead of a GOPATH).
func New(opts ...Option) (*Ctx, error) {
	c := &Ctx{
		Concurrency: DefaultConcurrency,
		UndoDepth:   DefaultUndoDepth,
		ServerPref:  PreferPrimary,
		history:     newSessionHistory(DefaultUndoDepth),
	}

	if dp := os.Getenv("ORBIT_PKG_DEPOT_PATH"); dp != "" {
		c.DepotDirs = filepath.SplitList(dp)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "determining default depot location")
		}
		c.DepotDirs = []string{filepath.Join(home, ".orbit", "depot")}
	}

	if os.Getenv("ORBIT_PKG_OFFLINE") != "" {
		c.Offline = true
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.UndoDepth != DefaultUndoDepth {
		c.history = newSessionHistory(c.UndoDepth)
	}

	if len(c.DepotDirs) == 0 {
		return nil, errors.New("no depot directories configured")
	}
	return c, nil
}

// PrimaryDepot is the first entry of DepotDirs, the one new content
// installs into.
func (c *Ctx) PrimaryDepot() string {
	return c.DepotDirs[0]
}

// History returns the Ctx's bounded undo/redo session stack.
func (c *Ctx) History() *sessionHistory {
	return c.history
}

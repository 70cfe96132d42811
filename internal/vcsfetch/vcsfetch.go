// Package vcsfetch adapts github.com/Masterminds/vcs for packages that
// track a git branch, tag, or commit directly instead of a registry
// entry: `develop`'d local checkouts and tracked-branch/commit
// dependencies both resolve through a Checkout.
package vcsfetch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"
)

// commandTimeout bounds the total time a single git subprocess may
// run before it is killed.
const commandTimeout = 2 * time.Minute

// Checkout wraps a vcs.GitRepo with the clone/update/pin behavior
// orbitpkg's tracked-source packages need.
type Checkout struct {
	repo *vcs.GitRepo
}

// New creates a Checkout for the git repository at remote, local to
// localPath. It does not touch the filesystem; call Get to clone.
func New(remote, localPath string) (*Checkout, error) {
	repo, err := vcs.NewGitRepo(remote, localPath)
	if err != nil {
		return nil, errors.Wrap(err, "constructing git repo handle")
	}
	return &Checkout{repo: repo}, nil
}

// LocalPath reports where the checkout lives on disk.
func (c *Checkout) LocalPath() string { return c.repo.LocalPath() }

// Get clones the repository if it is not already present locally.
// Submodules are cloned recursively, matching the behavior expected of
// a `develop`'d dependency that may itself vendor submodules.
func (c *Checkout) Get(ctx context.Context) error {
	if c.repo.CheckLocal() {
		return nil
	}
	out, err := c.runFromCwd(ctx, "git", "clone", "--recursive", c.repo.Remote(), c.repo.LocalPath())
	if err == nil {
		return nil
	}

	if !isUnableToCreateDir(err) {
		return vcs.NewRemoteError("unable to clone repository", err, string(out))
	}

	basePath := filepath.Dir(filepath.FromSlash(c.repo.LocalPath()))
	if _, statErr := os.Stat(basePath); !os.IsNotExist(statErr) {
		return vcs.NewRemoteError("unable to clone repository", err, string(out))
	}
	if mkErr := os.MkdirAll(basePath, 0o755); mkErr != nil {
		return vcs.NewLocalError("unable to create parent directory for checkout", mkErr, "")
	}

	out, err = c.runFromCwd(ctx, "git", "clone", "--recursive", c.repo.Remote(), c.repo.LocalPath())
	if err != nil {
		return vcs.NewRemoteError("unable to clone repository", err, string(out))
	}
	return nil
}

// Update fetches new refs and fast-forwards the working tree, unless
// the checkout is pinned to a specific commit (detached HEAD), in
// which case fetching tags is all that's needed: the pinned commit
// itself never moves.
func (c *Checkout) Update(ctx context.Context) error {
	out, err := c.runFromRepoDir(ctx, "git", "fetch", "--tags", c.repo.Remote())
	if err != nil {
		return vcs.NewRemoteError("unable to fetch repository updates", err, string(out))
	}

	detached, err := c.isDetachedHead()
	if err != nil {
		return vcs.NewLocalError("unable to determine checkout state", err, "")
	}
	if detached {
		return nil
	}

	out, err = c.runFromRepoDir(ctx, "git", "pull")
	if err != nil {
		return vcs.NewRemoteError("unable to pull repository updates", err, string(out))
	}

	return c.defendAgainstSubmodules(ctx)
}

// CheckoutRev switches the working tree to rev, which may be a branch
// name, tag, or commit hash, matching the tracked-branch/commit and
// pinned lifecycle states a dependency can be in.
func (c *Checkout) CheckoutRev(ctx context.Context, rev string) error {
	out, err := c.runFromRepoDir(ctx, "git", "checkout", rev)
	if err != nil {
		return vcs.NewRemoteError(fmt.Sprintf("unable to checkout %s", rev), err, string(out))
	}
	return c.defendAgainstSubmodules(ctx)
}

// CurrentRev reports the commit hash currently checked out.
func (c *Checkout) CurrentRev() (string, error) {
	v, err := c.repo.Version()
	if err != nil {
		return "", errors.Wrap(err, "reading current revision")
	}
	return v, nil
}

// defendAgainstSubmodules re-syncs submodules to the state implied by
// the current commit, then aggressively cleans anything a version
// change left behind. Nested submodules require repeating the clean
// once more after the first pass.
func (c *Checkout) defendAgainstSubmodules(ctx context.Context) error {
	out, err := c.runFromRepoDir(ctx, "git", "submodule", "update", "--init", "--recursive")
	if err != nil {
		return vcs.NewLocalError("unexpected error while updating submodules", err, string(out))
	}

	out, err = c.runFromRepoDir(ctx, "git", "clean", "-x", "-d", "-f", "-f")
	if err != nil {
		return vcs.NewLocalError("unexpected error cleaning derelict submodule directories", err, string(out))
	}

	out, err = c.runFromRepoDir(ctx, "git", "submodule", "foreach", "--recursive", "git", "clean", "-x", "-d", "-f", "-f")
	if err != nil {
		return vcs.NewLocalError("unexpected error cleaning nested submodule directories", err, string(out))
	}
	return nil
}

func (c *Checkout) isDetachedHead() (bool, error) {
	p := filepath.Join(c.repo.LocalPath(), ".git", "HEAD")
	contents, err := os.ReadFile(p)
	if err != nil {
		return false, err
	}
	contents = bytes.TrimSpace(contents)
	return !bytes.HasPrefix(contents, []byte("ref: ")), nil
}

// isUnableToCreateDir recognizes git's "could not create work tree
// dir" family of errors across the locales git is known to emit them
// in, since the one-shot mkdir retry only applies to that failure.
func isUnableToCreateDir(err error) bool {
	msg := err.Error()
	prefixes := []string{
		"could not create work tree dir",
		"不能创建工作区目录",
		"no s'ha pogut crear el directori d'arbre de treball",
		"impossible de créer le répertoire de la copie de travail",
		"kunde inte skapa arbetskatalogen",
	}
	for _, p := range prefixes {
		if strings.HasPrefix(msg, p) {
			return true
		}
	}
	return strings.HasPrefix(msg, "Konnte Arbeitsverzeichnis") && strings.Contains(msg, "nicht erstellen")
}

func (c *Checkout) runFromCwd(ctx context.Context, name string, args ...string) ([]byte, error) {
	return run(ctx, exec.Command(name, args...))
}

func (c *Checkout) runFromRepoDir(ctx context.Context, name string, args ...string) ([]byte, error) {
	return run(ctx, c.repo.CmdFromDir(name, args...))
}

// run executes cmd, killing it if the deadline or caller's context is
// exceeded first, whichever comes sooner.
func run(ctx context.Context, cmd *exec.Cmd) ([]byte, error) {
	var stdout, stderr activityBuffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	deadline, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	done := make(chan error, 1)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return stderr.buf.Bytes(), err
		}
		return stdout.buf.Bytes(), nil
	case <-deadline.Done():
		if killErr := cmd.Process.Kill(); killErr != nil {
			return nil, errors.Wrap(killErr, "killing unresponsive git subprocess")
		}
		return nil, deadline.Err()
	}
}

// activityBuffer is a concurrency-safe io.Writer sink for a
// subprocess's stdout/stderr.
type activityBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *activityBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

package depot

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// DefaultCollectDelay is the orphan-aging window, at the low end of the
// spec's stated 7-30 day range: an installed package that no manifest has
// referenced for longer than this is eligible for collection.
const DefaultCollectDelay = 7 * 24 * time.Hour

// GCOptions configures a collection pass.
type GCOptions struct {
	// CollectDelay overrides DefaultCollectDelay.
	CollectDelay time.Duration
	// DryRun reports what would be collected without deleting anything.
	DryRun bool
	// LiveHashes is the set of (name, hash) pairs referenced by any
	// on-disk manifest the caller knows about; anything else in the
	// depot is a GC candidate once it's aged past CollectDelay.
	LiveHashes map[string]bool
}

// GCResult summarizes a collection pass.
type GCResult struct {
	Collected []string
	Skipped   []string
}

// Key builds the LiveHashes lookup key for a (name, hash) pair.
func Key(name, hash string) string { return name + "@" + hash }

// GC walks the writable depot's packages/ directory and removes any
// content-addressed slot that is both absent from LiveHashes and older
// than CollectDelay (last use per the usage log, else the slot's
// modification time). The artifacts/ directory is not walked, so
// orphaned artifacts are never collected.
func (stack Stack) GC(opts GCOptions) (GCResult, error) {
	d := stack[0]
	if d.ReadOnly {
		return GCResult{}, errors.New("cannot gc a read-only depot")
	}
	delay := opts.CollectDelay
	if delay == 0 {
		delay = DefaultCollectDelay
	}

	records, err := readUsageLog(d)
	if err != nil {
		return GCResult{}, err
	}

	var result GCResult
	cutoff := time.Now().Add(-delay)

	names, err := os.ReadDir(d.packagesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return GCResult{}, err
	}

	for _, nameEnt := range names {
		if !nameEnt.IsDir() {
			continue
		}
		name := nameEnt.Name()
		pkgDir := filepath.Join(d.packagesDir(), name)
		hashes, err := os.ReadDir(pkgDir)
		if err != nil {
			return GCResult{}, err
		}
		for _, hashEnt := range hashes {
			if !hashEnt.IsDir() {
				continue
			}
			hash := hashEnt.Name()
			key := Key(name, hash)
			slot := filepath.Join(pkgDir, hash)

			if opts.LiveHashes[key] {
				result.Skipped = append(result.Skipped, key)
				continue
			}

			age := lastUsed(records, name, hash)
			if age.IsZero() {
				if fi, statErr := os.Stat(slot); statErr == nil {
					age = fi.ModTime()
				}
			}
			if age.After(cutoff) {
				result.Skipped = append(result.Skipped, key)
				continue
			}

			if !opts.DryRun {
				if err := os.RemoveAll(slot); err != nil {
					return GCResult{}, errors.Wrapf(err, "removing orphaned slot %s", slot)
				}
			}
			result.Collected = append(result.Collected, key)
		}
	}
	return result, nil
}

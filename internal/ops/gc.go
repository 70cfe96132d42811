package ops

import (
	"os"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/depot"
	"github.com/orbit-lang/orbitpkg/internal/manifest"
)

// GC runs depot orphan collection, treating every package referenced
// by any Manifest file found under the given project roots as live.
// Roots with a missing, unreadable or unparsable manifest simply
// contribute no live hashes rather than failing the whole pass -- a
// single broken environment shouldn't block collection for every other
// one. A stale manifest is still read and its packages count as live.
func (o *Operations) GC(roots []string, opts depot.GCOptions) (depot.GCResult, error) {
	live := make(map[string]bool)
	for _, dir := range roots {
		path := manifest.SelectManifestPath(dir, hostMajor, hostMinor)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		m, err := manifest.ParseManifest(data)
		if err != nil {
			continue
		}
		// m.Names covers every locked package, including transitive
		// dependencies that never get an entry in Project.Deps; using
		// Project.Deps alone would make every transitive dependency
		// GC-eligible regardless of how recently it was resolved.
		for id, rec := range m.Packages {
			name, ok := m.Names[id]
			if !ok {
				continue
			}
			// GC's live set and the usage log both key by the
			// HASH_PREFIX install slots are named with, not the full
			// tree hash.
			live[depot.Key(name, depot.HashPrefix(rec.TreeHash))] = true
		}
	}

	opts.LiveHashes = live
	result, err := o.Depot.GC(opts)
	if err != nil {
		return depot.GCResult{}, errors.Wrap(err, "collecting depot")
	}
	return result, nil
}

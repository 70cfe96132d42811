package depot

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// overrideChain is the merged view of every depot layer's
// Overrides.toml, inner (earlier, writable) depots taking precedence
// over outer (later, read-only) ones. An empty-string value for a key
// removes any override an outer depot declared for that hash.
//
// byHash holds the flat top-level table (content hash -> replacement
// hash or absolute path). byPackageArtifact holds the package-bound
// overrides nested under a [UUID] table, keyed by artifact name; no
// caller resolves against it yet (see DESIGN.md), but it's parsed and
// merged here so that wiring it later is a matter of adding a lookup,
// not a format change.
type overrideChain struct {
	byHash            map[string]string
	byPackageArtifact map[string]map[string]string
}

// loadOverrides reads and merges artifacts/Overrides.toml from every
// depot in the stack, outer depots first so inner depots win ties and
// can explicitly remove an outer override with an empty string. The
// file is a flat table: top-level keys are content hashes mapping to a
// replacement hash or absolute path; a [UUID] table holds package-bound
// overrides keyed by artifact name.
func (stack Stack) loadOverrides() (overrideChain, error) {
	byHash := make(map[string]string)
	byPackageArtifact := make(map[string]map[string]string)

	for i := len(stack) - 1; i >= 0; i-- {
		path := filepath.Join(stack[i].artifactsDir(), "Overrides.toml")
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return overrideChain{}, errors.Wrapf(err, "reading %s", path)
		}

		var raw map[string]interface{}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return overrideChain{}, errors.Wrapf(err, "parsing %s", path)
		}
		for key, value := range raw {
			switch v := value.(type) {
			case string:
				if v == "" {
					delete(byHash, key)
					continue
				}
				byHash[key] = v
			case map[string]interface{}:
				table := byPackageArtifact[key]
				if table == nil {
					table = make(map[string]string)
					byPackageArtifact[key] = table
				}
				for artifactName, repl := range v {
					replStr, ok := repl.(string)
					if !ok {
						continue
					}
					if replStr == "" {
						delete(table, artifactName)
						continue
					}
					table[artifactName] = replStr
				}
			}
		}
	}
	return overrideChain{byHash: byHash, byPackageArtifact: byPackageArtifact}, nil
}

// resolve follows the override chain for hash to its final
// replacement hash (or path), or returns hash unchanged if no override
// applies. Chains are followed to a fixed point to allow an override
// to itself be overridden, except that an absolute-path replacement
// terminates the chain immediately: it names a location on disk, not a
// content hash to keep resolving.
func (o overrideChain) resolve(hash string) string {
	seen := map[string]bool{hash: true}
	cur := hash
	for {
		if filepath.IsAbs(cur) {
			return cur
		}
		next, ok := o.byHash[cur]
		if !ok || seen[next] {
			return cur
		}
		seen[next] = true
		cur = next
	}
}

// resolveArtifactName looks up a package-bound override for a named
// artifact of package uuid, returning ok=false if none applies. Not
// called anywhere yet: no current ResolveArtifactPath call site has
// the (package UUID, artifact name) context this needs, only a bare
// content hash (see DESIGN.md).
func (o overrideChain) resolveArtifactName(uuid, artifactName string) (string, bool) {
	table, ok := o.byPackageArtifact[uuid]
	if !ok {
		return "", false
	}
	v, ok := table[artifactName]
	return v, ok
}

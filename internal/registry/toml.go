package registry

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// rawPackage mirrors a package directory's Package.toml: its name and
// UUID, plus the repository it was registered from.
type rawPackage struct {
	Name string `toml:"name"`
	UUID string `toml:"uuid"`
	Repo string `toml:"repo,omitempty"`
}

// rawVersions mirrors Versions.toml: one tree-hash entry per released
// version, keyed by version string.
type rawVersions struct {
	Versions map[string]rawVersionEntry `toml:"versions"`
}

type rawVersionEntry struct {
	GitTreeSHA1 string `toml:"git-tree-sha1,omitempty"`
	TreeHash256 string `toml:"tree-hash-sha256,omitempty"`
	Yanked      bool   `toml:"yanked,omitempty"`
}

// rawDeps mirrors Deps.toml: version-range-keyed blocks of dependency
// name -> UUID, so a single dependency set can cover many versions at
// once (`["1.2.0-1.5.0"]`-style section keys).
type rawDeps struct {
	Deps map[string]map[string]string `toml:"deps"`
}

// rawCompat mirrors Compat.toml: version-range-keyed blocks of
// dependency name -> compat range string.
type rawCompat struct {
	Compat map[string]map[string]string `toml:"compat"`
}

func unmarshalTOML(data []byte, v interface{}) error {
	if err := toml.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "parsing registry TOML")
	}
	return nil
}

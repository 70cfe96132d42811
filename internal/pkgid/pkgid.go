// Package pkgid defines the stable package identifier used throughout
// orbitpkg. Resolution, locking, and depot addressing all key off this
// type rather than a package's human-readable name.
package pkgid

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ID is a 128-bit package identifier. Two packages with the same Name
// are different packages if their ID differs; renames never change
// identity.
type ID struct {
	u uuid.UUID
}

// Nil is the zero ID, used as a sentinel for "no identifier yet".
var Nil = ID{}

// New generates a fresh random ID, suitable for a brand-new project
// that has never been registered anywhere.
func New() ID {
	return ID{u: uuid.New()}
}

// Parse interprets s as a canonical (hyphenated, lowercase-insensitive)
// UUID string.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, errors.Wrapf(err, "invalid package id %q", s)
	}
	return ID{u: u}, nil
}

// MustParse is Parse, panicking on error. Intended for tests and
// compile-time-known constants.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string {
	return id.u.String()
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id.u == uuid.Nil
}

// Compare provides a total order over IDs, used for stable sort of
// manifest entries and registry indices.
func (id ID) Compare(other ID) int {
	a, b := id.u.String(), other.u.String()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.u.String()), nil
}

func (id *ID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return errors.Wrapf(err, "invalid package id %q", string(b))
	}
	id.u = u
	return nil
}

var _ json.Marshaler = ID{}
var _ json.Unmarshaler = &ID{}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.u.String())
}

func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return errors.Wrapf(err, "invalid package id %q", s)
	}
	id.u = u
	return nil
}

// Package pkgerrors defines the typed error taxonomy every orbitpkg
// component returns, per the error handling design: each kind is a
// distinct Go struct type so callers can switch on it. The types
// carry no cause of their own; callers add context with Wrap/Wrapf,
// and Cause() unwraps back to the typed error.
package pkgerrors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ConstraintOrigin names where a constraint on a conflicting package
// came from, for conflict diagnostics.
type ConstraintOrigin int

const (
	OriginExplicit ConstraintOrigin = iota
	OriginCompat
	OriginTransitive
)

func (o ConstraintOrigin) String() string {
	switch o {
	case OriginExplicit:
		return "explicit requirement"
	case OriginCompat:
		return "compat entry"
	case OriginTransitive:
		return "transitive closure"
	default:
		return "unknown"
	}
}

// ConflictEdge is one constraining package in a conflict tree: the
// range it imposes on the offending package, and where that range
// came from.
type ConflictEdge struct {
	From   string
	Range  string
	Origin ConstraintOrigin
}

// ResolverUnsat reports that the resolver's constraints have no
// satisfying assignment. Core lists every constraint recorded on the
// offending package at the point of failure; it is not reduced to a
// minimal conflicting subset.
type ResolverUnsat struct {
	Package string
	Core    []ConflictEdge
}

func (e *ResolverUnsat) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no satisfying version of %s: ", e.Package)
	for i, edge := range e.Core {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s requires %s (%s)", edge.From, edge.Range, edge.Origin)
	}
	return b.String()
}

// ResolverUnknown reports that resolution stopped before a satisfying
// assignment or an unsatisfiable core could be established: the step
// budget ran out, or the greedy AlgoMaxSum strategy gave up. No
// wall-clock deadline is applied. Distinct from ResolverUnsat: the
// answer is unknown, not negative.
type ResolverUnknown struct {
	Reason string
}

func (e *ResolverUnknown) Error() string {
	return fmt.Sprintf("resolution deadline exceeded: %s; try narrowing the requested change", e.Reason)
}

// HashMismatch reports that a downloaded or installed artifact's
// content hash did not match what the registry recorded.
type HashMismatch struct {
	Source   string
	Expected string
	Got      string
}

func (e *HashMismatch) Error() string {
	return fmt.Sprintf("hash mismatch for %s: expected %s, got %s", e.Source, e.Expected, e.Got)
}

// NotFound reports a missing package, version, or registry.
type NotFound struct {
	Kind string // "package", "version", "registry", "artifact"
	ID   string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// Offline reports that offline mode blocked a fetch that would
// otherwise have been required.
type Offline struct {
	Resource string
}

func (e *Offline) Error() string {
	return fmt.Sprintf("offline mode: cannot fetch %s", e.Resource)
}

// TrustViolation reports that a registry would serve a known package
// UUID without the mutual trust relationship required by the trust
// model.
type TrustViolation struct {
	UUID       string
	Registries []string
}

func (e *TrustViolation) Error() string {
	return fmt.Sprintf("registries %s are not mutually trusted to serve %s", strings.Join(e.Registries, ", "), e.UUID)
}

// Corruption reports that depot invariants were violated: an
// installed tree no longer matches its recorded hash. The offending
// path is expected to be quarantined by the caller.
type Corruption struct {
	Path   string
	Detail string
}

func (e *Corruption) Error() string {
	return fmt.Sprintf("depot corruption at %s: %s", e.Path, e.Detail)
}

// ConfigError reports a malformed project, manifest, or binding file.
type ConfigError struct {
	File     string
	Location string
	Detail   string
}

func (e *ConfigError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s (%s): %s", e.File, e.Location, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Detail)
}

// Cancelled reports that the caller's cancellation signal fired.
// Partial state is expected to have been rolled back already.
type Cancelled struct {
	Op string
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("%s was cancelled", e.Op)
}

// Wrap is a thin re-export of pkg/errors.Wrap so callers need only
// import this package for both the taxonomy and the wrapping idiom.
func Wrap(err error, msg string) error { return errors.Wrap(err, msg) }

// Wrapf is the formatted form of Wrap.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Cause unwraps a chain of Wrap/Wrapf calls back to the root cause.
func Cause(err error) error { return errors.Cause(err) }

// Package trust is the policy layer that sits above
// internal/registry's per-lookup mutual-trust check and
// internal/pkgctx's offline flag: it decides what to DO about an
// untrusted registry or a blocked network operation, rather than just
// detecting the condition.
package trust

import (
	"fmt"

	"github.com/orbit-lang/orbitpkg/internal/pkgerrors"
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/registry"
)

// Decision is the outcome of evaluating a new registry against the
// current trust set.
type Decision int

const (
	// Accepted means the registry was already trusted; nothing to
	// record.
	Accepted Decision = iota
	// AcceptedWithOverride means the registry was not trusted, but the
	// caller's policy allows extending trust automatically; the new
	// UUID must be recorded in the manifest's trust list so the
	// override is durable and visible.
	AcceptedWithOverride
	// Rejected means the registry is untrusted and no override policy
	// permits proceeding.
	Rejected
)

// Policy decides how untrusted registries and offline restrictions
// are handled for one invocation.
type Policy struct {
	// Trusted is the mutual-trust set: registries already accepted
	// without prompting, keyed by UUID.
	Trusted map[pkgid.ID]bool

	// AllowRegistryExtension mirrors the `allow_registry_extension`
	// config knob: when set, an untrusted registry is accepted and
	// folded into Trusted instead of being rejected outright.
	AllowRegistryExtension bool

	// Offline mirrors pkgctx.Ctx.Offline: when set, every network
	// operation evaluated through Policy is rejected with Offline.
	Offline bool

	// Warn receives a human-readable message whenever a registry is
	// accepted via override or outright rejected, so the caller (the
	// CLI, typically) can surface it. Nil is a valid no-op sink.
	Warn func(msg string)
}

// NewPolicy builds a Policy from an explicit trusted-UUID set.
func NewPolicy(trusted []pkgid.ID, allowExtension, offline bool) *Policy {
	p := &Policy{
		Trusted:                make(map[pkgid.ID]bool, len(trusted)),
		AllowRegistryExtension: allowExtension,
		Offline:                offline,
	}
	for _, id := range trusted {
		p.Trusted[id] = true
	}
	return p
}

// EvaluateRegistry decides whether info's registry may be added to
// the active registry preference list, per the warning/override
// semantics: an already-trusted registry is silently accepted; an
// unknown one either warns-and-rejects or, if AllowRegistryExtension
// is set, warns-and-accepts while extending Trusted so the decision
// is not asked again this session.
func (p *Policy) EvaluateRegistry(info registry.Info) (Decision, error) {
	if p.Trusted[info.UUID] {
		return Accepted, nil
	}

	if !p.AllowRegistryExtension {
		p.warnf("registry %q (%s) is not in the trusted set; refusing to use it", info.Name, info.UUID)
		return Rejected, &pkgerrors.TrustViolation{
			UUID:       info.UUID.String(),
			Registries: []string{info.Name},
		}
	}

	p.warnf("registry %q (%s) is not in the trusted set; accepted via allow_registry_extension", info.Name, info.UUID)
	p.Trusted[info.UUID] = true
	return AcceptedWithOverride, nil
}

// GuardNetwork rejects a network-dependent operation outright when
// Offline is set, identifying the blocked resource in the returned
// error.
func (p *Policy) GuardNetwork(resource string) error {
	if p.Offline {
		return &pkgerrors.Offline{Resource: resource}
	}
	return nil
}

func (p *Policy) warnf(format string, args ...interface{}) {
	if p.Warn == nil {
		return
	}
	p.Warn(fmt.Sprintf(format, args...))
}

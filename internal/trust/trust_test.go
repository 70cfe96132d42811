package trust_test

import (
	"testing"

	"github.com/orbit-lang/orbitpkg/internal/pkgerrors"
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/registry"
	"github.com/orbit-lang/orbitpkg/internal/trust"
)

func TestEvaluateRegistryAlreadyTrusted(t *testing.T) {
	id := pkgid.MustParse("11111111-1111-1111-1111-111111111111")
	p := trust.NewPolicy([]pkgid.ID{id}, false, false)

	decision, err := p.EvaluateRegistry(registry.Info{UUID: id, Name: "General"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != trust.Accepted {
		t.Fatalf("decision = %v, want Accepted", decision)
	}
}

func TestEvaluateRegistryUntrustedRejected(t *testing.T) {
	id := pkgid.MustParse("22222222-2222-2222-2222-222222222222")
	var warnings []string
	p := trust.NewPolicy(nil, false, false)
	p.Warn = func(msg string) { warnings = append(warnings, msg) }

	decision, err := p.EvaluateRegistry(registry.Info{UUID: id, Name: "Untrusted"})
	if decision != trust.Rejected {
		t.Fatalf("decision = %v, want Rejected", decision)
	}
	if _, ok := err.(*pkgerrors.TrustViolation); !ok {
		t.Fatalf("expected *pkgerrors.TrustViolation, got %T: %v", err, err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(warnings))
	}
}

func TestEvaluateRegistryUntrustedAcceptedWithOverride(t *testing.T) {
	id := pkgid.MustParse("33333333-3333-3333-3333-333333333333")
	p := trust.NewPolicy(nil, true, false)

	decision, err := p.EvaluateRegistry(registry.Info{UUID: id, Name: "NewRegistry"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != trust.AcceptedWithOverride {
		t.Fatalf("decision = %v, want AcceptedWithOverride", decision)
	}
	if !p.Trusted[id] {
		t.Fatal("expected the registry to be folded into Trusted after override")
	}

	// Second evaluation of the same registry should now short-circuit
	// to Accepted rather than warning again.
	decision, err = p.EvaluateRegistry(registry.Info{UUID: id, Name: "NewRegistry"})
	if err != nil {
		t.Fatalf("unexpected error on second evaluation: %v", err)
	}
	if decision != trust.Accepted {
		t.Fatalf("decision on repeat evaluation = %v, want Accepted", decision)
	}
}

func TestGuardNetworkBlocksWhenOffline(t *testing.T) {
	p := trust.NewPolicy(nil, false, true)

	err := p.GuardNetwork("registry refresh for General")
	if err == nil {
		t.Fatal("expected an error in offline mode")
	}
	if _, ok := err.(*pkgerrors.Offline); !ok {
		t.Fatalf("expected *pkgerrors.Offline, got %T: %v", err, err)
	}
}

func TestGuardNetworkAllowsWhenOnline(t *testing.T) {
	p := trust.NewPolicy(nil, false, false)

	if err := p.GuardNetwork("registry refresh for General"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

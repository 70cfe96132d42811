package pkgid_test

import (
	"encoding/json"
	"testing"

	"github.com/orbit-lang/orbitpkg/internal/pkgid"
)

func TestParseRoundTrip(t *testing.T) {
	id, err := pkgid.Parse("f47ac10b-58cc-4372-a567-0e02b2c3d479")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id.String() != "f47ac10b-58cc-4372-a567-0e02b2c3d479" {
		t.Fatalf("unexpected string form: %s", id.String())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := pkgid.Parse("not-a-uuid"); err == nil {
		t.Fatal("expected error for malformed id")
	}
}

func TestNilID(t *testing.T) {
	if !pkgid.Nil.IsNil() {
		t.Fatal("Nil should report IsNil")
	}
	if pkgid.New().IsNil() {
		t.Fatal("New() should not be nil")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	id := pkgid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")
	b, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got pkgid.ID
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != id {
		t.Fatalf("round trip mismatch: %v != %v", got, id)
	}
}

func TestCompare(t *testing.T) {
	a := pkgid.MustParse("00000000-0000-0000-0000-000000000001")
	b := pkgid.MustParse("00000000-0000-0000-0000-000000000002")
	if a.Compare(b) >= 0 {
		t.Fatal("expected a < b")
	}
	if b.Compare(a) <= 0 {
		t.Fatal("expected b > a")
	}
	if a.Compare(a) != 0 {
		t.Fatal("expected a == a")
	}
}

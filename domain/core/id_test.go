package core

import (
	"testing"
)

func TestNewID_UniqueAndNonEmpty(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Fatalf("generated empty ID")
		}
		if seen[id] {
			t.Fatalf("duplicate ID %s", id)
		}
		seen[id] = true
	}
}

func TestParseHelpers(t *testing.T) {
	if _, err := ParseRunID("  "); err == nil {
		t.Fatalf("blank run ID should fail")
	}
	rid, err := ParseRunID("run-7")
	if err != nil || rid.String() != "run-7" {
		t.Fatalf("parse run ID: %v %q", err, rid)
	}

	if _, err := ParseCovariateKey(""); err == nil {
		t.Fatalf("empty covariate key should fail")
	}
	ck, err := ParseCovariateKey("age_index")
	if err != nil || ck.String() != "age_index" {
		t.Fatalf("parse covariate key: %v %q", err, ck)
	}
}

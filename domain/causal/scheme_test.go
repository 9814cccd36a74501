package causal

import (
	"testing"
)

func TestWeightScheme_Validate(t *testing.T) {
	for _, s := range []WeightScheme{IPTW(), StabilizedIPTW(), Overlap(), Matching(), Entropy()} {
		if err := s.Validate(); err != nil {
			t.Fatalf("scheme %s should validate: %v", s, err)
		}
	}

	if err := (WeightScheme{Kind: "banana"}).Validate(); err == nil {
		t.Fatalf("unknown kind should fail validation")
	}

	// simple schemes must not carry trim baggage
	p := TrimPolicy{Kind: TrimRange, Low: 0.1, High: 0.9}
	bad := WeightScheme{Kind: SchemeIPTW, Trim: &p}
	if err := bad.Validate(); err == nil {
		t.Fatalf("simple scheme with trim policy should fail validation")
	}

	if err := (WeightScheme{Kind: SchemeTrimmed}).Validate(); err == nil {
		t.Fatalf("trimmed scheme without base and policy should fail validation")
	}
}

func TestWeightScheme_TrimmedDoesNotNest(t *testing.T) {
	inner := TrimmedRange(IPTW(), 0.1, 0.9)
	outer := TrimmedRange(inner, 0.2, 0.8)
	if err := outer.Validate(); err == nil {
		t.Fatalf("nested trimmed scheme should fail validation")
	}
}

func TestTrimPolicy_Validate(t *testing.T) {
	cases := []struct {
		policy TrimPolicy
		ok     bool
	}{
		{TrimPolicy{Kind: TrimRange, Low: 0.1, High: 0.9}, true},
		{TrimPolicy{Kind: TrimRange, Low: 0.9, High: 0.1}, false},
		{TrimPolicy{Kind: TrimRange, Low: -0.1, High: 0.9}, false},
		{TrimPolicy{Kind: TrimRange, Low: 0.1, High: 1.1}, false},
		{TrimPolicy{Kind: TrimQuantile, Quantile: 0.05}, true},
		{TrimPolicy{Kind: TrimQuantile, Quantile: 0}, false},
		{TrimPolicy{Kind: TrimQuantile, Quantile: 0.5}, false},
		{TrimPolicy{Kind: "percentile"}, false},
	}
	for _, c := range cases {
		err := c.policy.Validate()
		if c.ok && err != nil {
			t.Fatalf("policy %+v should validate: %v", c.policy, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("policy %+v should fail validation", c.policy)
		}
	}
}

func TestWeightScheme_NaturalEstimand(t *testing.T) {
	cases := []struct {
		scheme WeightScheme
		want   Estimand
	}{
		{IPTW(), EstimandATE},
		{StabilizedIPTW(), EstimandATE},
		{Matching(), EstimandATT},
		{Overlap(), EstimandATO},
		{Entropy(), EstimandATO},
		{TrimmedRange(Matching(), 0.1, 0.9), EstimandATT},
		{TrimmedQuantile(IPTW(), 0.05), EstimandATE},
	}
	for _, c := range cases {
		if got := c.scheme.NaturalEstimand(); got != c.want {
			t.Fatalf("scheme %s natural estimand = %s, want %s", c.scheme, got, c.want)
		}
	}
}

func TestWeightScheme_String(t *testing.T) {
	if got := Overlap().String(); got != "overlap" {
		t.Fatalf("overlap string: %q", got)
	}
	if got := TrimmedRange(IPTW(), 0.1, 0.9).String(); got != "trimmed(iptw, range[0.1,0.9])" {
		t.Fatalf("trimmed range string: %q", got)
	}
	if got := TrimmedQuantile(Overlap(), 0.05).String(); got != "trimmed(overlap, q=0.05)" {
		t.Fatalf("trimmed quantile string: %q", got)
	}
}

func TestWeightVector_ExcludedCount(t *testing.T) {
	wv := WeightVector{
		Scheme:   IPTW(),
		Values:   []float64{1, 0, 2, 0},
		Excluded: []bool{false, true, false, true},
	}
	if wv.Len() != 4 {
		t.Fatalf("len: %d", wv.Len())
	}
	if wv.ExcludedCount() != 2 {
		t.Fatalf("excluded count: %d", wv.ExcludedCount())
	}
	untrimmed := WeightVector{Scheme: IPTW(), Values: []float64{1, 1}}
	if untrimmed.ExcludedCount() != 0 {
		t.Fatalf("nil Excluded should count zero")
	}
}

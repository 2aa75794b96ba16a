package idgen_test

import (
	"testing"

	. "ssp/internal/idgen"
)

func TestCounterIncrements(t *testing.T) {
	c := NewCounter(1000)

	if got := c.Next(); got != 1000 {
		t.Errorf("first Next() = %d, want 1000", got)
	}

	if got := c.Next(); got != 1001 {
		t.Errorf("second Next() = %d, want 1001", got)
	}
}

func TestRandomStringLengthAndAlphabet(t *testing.T) {
	s, err := RandomString(20)
	if err != nil {
		t.Fatalf("RandomString: %s", err)
	}

	if len(s) != 20 {
		t.Fatalf("len = %d, want 20", len(s))
	}

	for _, r := range s {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			t.Fatalf("unexpected character %q in %q", r, s)
		}
	}
}

func TestRandomStringNotConstant(t *testing.T) {
	a, _ := RandomString(40)
	b, _ := RandomString(40)

	if a == b {
		t.Error("two RandomString(40) calls produced the same string")
	}
}

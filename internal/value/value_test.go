package value_test

import (
	"testing"

	. "ssp/internal/value"
)

func TestArithmetic(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want Value
	}{
		{"int+int", Int(2), Int(3), Int(5)},
		{"int+real promotes", Int(2), Real(0.5), Real(2.5)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Add(c.a, c.b)
			if err != nil {
				t.Fatalf("Add: %s", err)
			}

			if !got.Equal(c.want) {
				t.Errorf("Add(%s, %s) = %s, want %s", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestDivByZero(t *testing.T) {
	if _, err := Div(Int(1), Int(0)); err == nil {
		t.Fatal("Div by zero: want error, got nil")
	}
}

func TestListAppendImmutable(t *testing.T) {
	base := List(Int(1), Int(2))

	appended, err := base.Append(Int(3))
	if err != nil {
		t.Fatalf("Append: %s", err)
	}

	if n, _ := base.Len(); n != 2 {
		t.Errorf("base mutated: len = %d, want 2", n)
	}

	if n, _ := appended.Len(); n != 3 {
		t.Errorf("appended: len = %d, want 3", n)
	}
}

func TestDictLookupMissingIsNilNotError(t *testing.T) {
	d := Dict(map[MapKey]Value{StringKey("a"): Int(1)})

	got, err := d.Lookup(String("missing"))
	if err != nil {
		t.Fatalf("Lookup: %s", err)
	}

	if !got.IsNil() {
		t.Errorf("Lookup(missing) = %s, want nil", got)
	}
}

func TestListLookupOutOfRange(t *testing.T) {
	l := List(Int(1))

	if _, err := l.Lookup(Int(5)); err == nil {
		t.Fatal("out-of-range lookup: want error, got nil")
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Nil, false},
		{Int(0), false},
		{Int(1), true},
		{String(""), false},
		{String("x"), true},
		{List(), false},
		{Bool(true), true},
	}

	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("%s.Truthy() = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestEqualNumericCrossKind(t *testing.T) {
	if !Int(2).Equal(Real(2)) {
		t.Error("Int(2).Equal(Real(2)) = false, want true")
	}
}

func TestStringLiteralSyntax(t *testing.T) {
	if got := List(Int(1), String("a")).String(); got != `[1, "a"]` {
		t.Errorf("String() = %q", got)
	}
}

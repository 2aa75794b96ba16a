// Package value implements the tagged dynamic value that flows through the stack machine: on the
// operand stack, in instruction parameters, and in IPC payloads.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the concrete type carried by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindInt
	KindReal
	KindString
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	case KindList:
		return "list"
	case KindMap:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is the universal datum: a tagged union of integer, real, string, boolean, ordered list and
// string/integer-keyed mapping. The zero Value is KindNil.
//
// Values are immutable by convention: List and Dict return copies of their backing slice/map
// rather than the original, so callers mutating a popped value never alias the stack.
type Value struct {
	kind Kind
	i    int64
	r    float64
	s    string
	b    bool
	list []Value
	dict map[MapKey]Value
}

// MapKey is the restricted key type for mappings: a string or an integer, per spec.
type MapKey struct {
	kind Kind
	i    int64
	s    string
}

// StringKey builds a string-valued map key.
func StringKey(s string) MapKey { return MapKey{kind: KindString, s: s} }

// IntKey builds an integer-valued map key.
func IntKey(i int64) MapKey { return MapKey{kind: KindInt, i: i} }

// Kind returns the key's underlying kind (KindString or KindInt).
func (k MapKey) Kind() Kind { return k.kind }

func (k MapKey) String() string {
	if k.kind == KindInt {
		return strconv.FormatInt(k.i, 10)
	}

	return k.s
}

// ToValue converts a key back to a Value bearing the same kind and payload.
func (k MapKey) ToValue() Value {
	if k.kind == KindInt {
		return Int(k.i)
	}

	return String(k.s)
}

// KeyOf converts a Value to a MapKey. It errors if the value is not a string or integer.
func KeyOf(v Value) (MapKey, error) {
	switch v.kind {
	case KindInt:
		return IntKey(v.i), nil
	case KindString:
		return StringKey(v.s), nil
	default:
		return MapKey{}, fmt.Errorf("%w: map keys must be string or integer, got %s", ErrType, v.kind)
	}
}

// Nil is the zero value.
var Nil = Value{kind: KindNil}

// Int constructs an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Real constructs a floating-point Value.
func Real(r float64) Value { return Value{kind: KindReal, r: r} }

// String constructs a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List constructs a list Value. The backing slice is copied.
func List(items ...Value) Value {
	list := make([]Value, len(items))
	copy(list, items)

	return Value{kind: KindList, list: list}
}

// Dict constructs a mapping Value from key/value pairs. The backing map is copied.
func Dict(pairs map[MapKey]Value) Value {
	dict := make(map[MapKey]Value, len(pairs))
	for k, v := range pairs {
		dict[k] = v
	}

	return Value{kind: KindMap, dict: dict}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }

// Int64 returns the integer payload. Valid only when Kind() == KindInt.
func (v Value) Int64() int64 { return v.i }

// Float64 returns the real payload, converting from an integer if necessary.
func (v Value) Float64() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}

	return v.r
}

// Str returns the string payload. Valid only when Kind() == KindString.
func (v Value) Str() string { return v.s }

// BoolValue returns the boolean payload. Valid only when Kind() == KindBool.
func (v Value) BoolValue() bool { return v.b }

// Items returns a copy of the list's backing slice. Valid only when Kind() == KindList.
func (v Value) Items() []Value {
	out := make([]Value, len(v.list))
	copy(out, v.list)

	return out
}

// Len returns the length of a list or mapping.
func (v Value) Len() (int, error) {
	switch v.kind {
	case KindList:
		return len(v.list), nil
	case KindMap:
		return len(v.dict), nil
	default:
		return 0, fmt.Errorf("%w: len expects list or mapping, got %s", ErrType, v.kind)
	}
}

// Lookup resolves a key against a list (integer index) or mapping (string/integer key). Looking up
// an absent map key returns Nil, not an error; an out-of-range list index is an error.
func (v Value) Lookup(key Value) (Value, error) {
	switch v.kind {
	case KindList:
		if key.kind != KindInt {
			return Nil, fmt.Errorf("%w: list lookup key must be integer, got %s", ErrType, key.kind)
		}

		idx := key.i
		if idx < 0 || idx >= int64(len(v.list)) {
			return Nil, fmt.Errorf("%w: index %d out of bounds (len %d)", ErrBounds, idx, len(v.list))
		}

		return v.list[idx], nil
	case KindMap:
		mk, err := KeyOf(key)
		if err != nil {
			return Nil, err
		}

		result, ok := v.dict[mk]
		if !ok {
			return Nil, nil
		}

		return result, nil
	default:
		return Nil, fmt.Errorf("%w: lookup target must be list or mapping, got %s", ErrType, v.kind)
	}
}

// Append returns a new list with values appended after the receiver's items.
func (v Value) Append(values ...Value) (Value, error) {
	if v.kind != KindList {
		return Nil, fmt.Errorf("%w: append target must be a list, got %s", ErrType, v.kind)
	}

	items := make([]Value, 0, len(v.list)+len(values))
	items = append(items, v.list...)
	items = append(items, values...)

	return Value{kind: KindList, list: items}, nil
}

// Put returns a new mapping with the given pairs merged over the receiver's entries.
func (v Value) Put(pairs map[MapKey]Value) (Value, error) {
	if v.kind != KindMap {
		return Nil, fmt.Errorf("%w: put target must be a mapping, got %s", ErrType, v.kind)
	}

	merged := make(map[MapKey]Value, len(v.dict)+len(pairs))

	for k, val := range v.dict {
		merged[k] = val
	}

	for k, val := range pairs {
		merged[k] = val
	}

	return Value{kind: KindMap, dict: merged}, nil
}

// Numeric reports whether the value is an integer or real, and is usable in arithmetic.
func (v Value) Numeric() bool {
	return v.kind == KindInt || v.kind == KindReal
}

// Zero reports whether an integer or real value equals zero.
func (v Value) Zero() (bool, error) {
	switch v.kind {
	case KindInt:
		return v.i == 0, nil
	case KindReal:
		return v.r == 0, nil
	default:
		return false, fmt.Errorf("%w: zero check expects a numeric value, got %s", ErrType, v.kind)
	}
}

// Truthy reports whether a value should be treated as true for JI/JN. Integers and reals are
// truthy when non-zero; booleans use their own value; nil is always falsy; strings, lists and
// mappings are truthy when non-empty.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindInt:
		return v.i != 0
	case KindReal:
		return v.r != 0
	case KindBool:
		return v.b
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return len(v.dict) > 0
	default:
		return false
	}
}

// Equal reports deep value equality. Integers and reals compare equal across kinds when numerically
// equal (e.g. Int(2).Equal(Real(2)) is true), matching Python's loose numeric comparison that the
// original implementation relied on.
func (v Value) Equal(other Value) bool {
	if v.kind == KindNil || other.kind == KindNil {
		return v.kind == other.kind
	}

	if v.Numeric() && other.Numeric() {
		return v.Float64() == other.Float64() && (v.kind != KindInt || other.kind != KindInt || v.i == other.i)
	}

	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindString:
		return v.s == other.s
	case KindBool:
		return v.b == other.b
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}

		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}

		return true
	case KindMap:
		if len(v.dict) != len(other.dict) {
			return false
		}

		for k, val := range v.dict {
			ov, ok := other.dict[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

// String renders the value using the assembly language's canonical literal syntax, suitable for the
// disassembler.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		s := strconv.FormatFloat(v.r, 'f', -1, 64)
		if !math.IsInf(v.r, 0) && !math.IsNaN(v.r) && !strings.Contains(s, ".") {
			s += ".0"
		}

		return s
	case KindBool:
		if v.b {
			return "true"
		}

		return "false"
	case KindString:
		return strconv.Quote(v.s)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}

		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := make([]MapKey, 0, len(v.dict))
		for k := range v.dict {
			keys = append(keys, k)
		}

		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%q: %s", k.String(), v.dict[k].String())
		}

		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<unknown>"
	}
}

// Arithmetic errors.
var (
	ErrType   = errArithmeticType("type error")
	ErrBounds = errArithmeticType("bounds error")
	ErrDivide = errArithmeticType("division by zero")
)

type errArithmeticType string

func (e errArithmeticType) Error() string { return string(e) }

// Add, Sub, Mul and Div implement the binary arithmetic opcodes. Operands must both be numeric;
// if either is real, the result is real.
func Add(a, b Value) (Value, error) { return arith(a, b, func(x, y float64) float64 { return x + y }, func(x, y int64) int64 { return x + y }) }
func Sub(a, b Value) (Value, error) { return arith(a, b, func(x, y float64) float64 { return x - y }, func(x, y int64) int64 { return x - y }) }
func Mul(a, b Value) (Value, error) { return arith(a, b, func(x, y float64) float64 { return x * y }, func(x, y int64) int64 { return x * y }) }

// Div always returns a real result as the source does (true division), and is a hard error on
// division by zero.
func Div(a, b Value) (Value, error) {
	if !a.Numeric() || !b.Numeric() {
		return Nil, fmt.Errorf("%w: arithmetic operands must be numeric, got %s and %s", ErrType, a.kind, b.kind)
	}

	if b.Float64() == 0 {
		return Nil, fmt.Errorf("%w", ErrDivide)
	}

	return Real(a.Float64() / b.Float64()), nil
}

func arith(a, b Value, realOp func(float64, float64) float64, intOp func(int64, int64) int64) (Value, error) {
	if !a.Numeric() || !b.Numeric() {
		return Nil, fmt.Errorf("%w: arithmetic operands must be numeric, got %s and %s", ErrType, a.kind, b.kind)
	}

	if a.kind == KindInt && b.kind == KindInt {
		return Int(intOp(a.i, b.i)), nil
	}

	return Real(realOp(a.Float64(), b.Float64())), nil
}

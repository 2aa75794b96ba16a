package value_test

import (
	"bytes"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	. "ssp/internal/value"
)

func TestMsgpackRoundTrip(t *testing.T) {
	cases := []Value{
		Nil,
		Int(42),
		Real(3.5),
		String("hello"),
		Bool(true),
		List(Int(1), String("x"), List(Int(2))),
		Dict(map[MapKey]Value{StringKey("k"): Int(1), IntKey(2): String("v")}),
	}

	for _, v := range cases {
		var buf bytes.Buffer

		if err := msgpack.NewEncoder(&buf).Encode(v); err != nil {
			t.Fatalf("encode %s: %s", v, err)
		}

		var got Value

		if err := msgpack.NewDecoder(&buf).Decode(&got); err != nil {
			t.Fatalf("decode %s: %s", v, err)
		}

		if !got.Equal(v) {
			t.Errorf("round trip: got %s, want %s", got, v)
		}
	}
}

package disasm_test

import (
	"bytes"
	"testing"

	. "ssp/internal/disasm"
	"ssp/internal/codec"
	"ssp/internal/isa"
	"ssp/internal/value"
)

func TestDisassemble(t *testing.T) {
	program := []isa.Instruction{
		{Op: isa.PUSH, Params: []value.Value{value.Int(1)}},
		{Op: isa.PUSH, Params: []value.Value{value.Int(2)}},
		{Op: isa.ADD},
	}

	var encoded bytes.Buffer
	if err := codec.NewEncoder(&encoded).EncodeProgram(program); err != nil {
		t.Fatalf("encode: %s", err)
	}

	var out bytes.Buffer
	if err := Disassemble(&encoded, &out); err != nil {
		t.Fatalf("Disassemble: %s", err)
	}

	want := "PUSH 1\nPUSH 2\nADD\n"
	if got := out.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

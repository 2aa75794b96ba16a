package isa_test

import (
	"testing"

	. "ssp/internal/isa"
	"ssp/internal/value"
)

func TestOpcodeStringRoundTrip(t *testing.T) {
	for op := NOP; op <= JMP; op++ {
		name := op.String()

		got, ok := FromString(name)
		if !ok {
			t.Errorf("FromString(%q): not found", name)
			continue
		}

		if got != op {
			t.Errorf("FromString(%q) = %d, want %d", name, got, op)
		}
	}
}

func TestFromStringUnknown(t *testing.T) {
	if _, ok := FromString("BOGUS"); ok {
		t.Error("FromString(BOGUS): want not-ok")
	}
}

func TestRequiredContracts(t *testing.T) {
	required := map[Opcode]bool{
		PUSH: true, SWAP: true, LISTEN: true, JI: true, JN: true, JMP: true,
	}

	for op, contract := range Contracts {
		want := required[op]
		if contract.Required != want {
			t.Errorf("%s: Required = %v, want %v", op, contract.Required, want)
		}
	}
}

func TestInstructionString(t *testing.T) {
	in := Instruction{Op: PUSH, Params: []value.Value{value.Int(1)}}
	if got, want := in.String(), "PUSH 1"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

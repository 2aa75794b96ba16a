package codec_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	. "ssp/internal/codec"
	"ssp/internal/isa"
	"ssp/internal/value"
)

func TestEncodeDecodeProgram(t *testing.T) {
	program := []isa.Instruction{
		{Op: isa.PUSH, Params: []value.Value{value.Int(1)}},
		{Op: isa.PUSH, Params: []value.Value{value.Int(2)}},
		{Op: isa.ADD},
		{Op: isa.POP, Params: []value.Value{value.Int(1)}},
	}

	var buf bytes.Buffer

	if err := NewEncoder(&buf).EncodeProgram(program); err != nil {
		t.Fatalf("EncodeProgram: %s", err)
	}

	got, err := DecodeProgram(&buf)
	if err != nil {
		t.Fatalf("DecodeProgram: %s", err)
	}

	if len(got) != len(program) {
		t.Fatalf("got %d instructions, want %d", len(got), len(program))
	}

	for i := range program {
		if got[i].Op != program[i].Op {
			t.Errorf("instruction %d: op = %s, want %s", i, got[i].Op, program[i].Op)
		}

		if len(got[i].Params) != len(program[i].Params) {
			t.Errorf("instruction %d: %d params, want %d", i, len(got[i].Params), len(program[i].Params))
			continue
		}

		for j := range program[i].Params {
			if !got[i].Params[j].Equal(program[i].Params[j]) {
				t.Errorf("instruction %d param %d: got %s, want %s", i, j, got[i].Params[j], program[i].Params[j])
			}
		}
	}
}

func TestDecodePartialFrame(t *testing.T) {
	var buf bytes.Buffer

	if err := NewEncoder(&buf).Encode(isa.Instruction{Op: isa.NOP}); err != nil {
		t.Fatalf("Encode: %s", err)
	}

	truncated := bytes.NewReader(buf.Bytes()[:1])

	_, err := NewDecoder(truncated).Decode()
	if !errors.Is(err, ErrPartialFrame) && !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want ErrPartialFrame (or an underlying EOF)", err)
	}
}

func TestDecodeEmptyStreamIsEOF(t *testing.T) {
	_, err := NewDecoder(bytes.NewReader(nil)).Decode()
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

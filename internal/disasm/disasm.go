// Package disasm reverses the binary instruction stream into canonical assembly text, one
// instruction at a time.
package disasm

import (
	"fmt"
	"io"

	"ssp/internal/codec"
	"ssp/internal/isa"
)

// Disassemble reads every instruction from r and renders it as "OPCODE param1 param2 …" using each
// parameter's canonical literal syntax, one instruction per line.
func Disassemble(r io.Reader, w io.Writer) error {
	dec := codec.NewDecoder(r)

	for {
		in, err := dec.Decode()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return err
		}

		if _, err := fmt.Fprintln(w, Format(in)); err != nil {
			return err
		}
	}
}

// Format renders a single instruction in canonical disassembly syntax.
func Format(in isa.Instruction) string {
	return in.String()
}

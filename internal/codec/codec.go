// Package codec implements the binary instruction-stream encoding: each instruction occupies two
// consecutive self-describing MessagePack values, an opcode integer followed by its parameter list.
package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"ssp/internal/isa"
	"ssp/internal/value"
)

// ErrPartialFrame is returned when the stream ends after an opcode frame but before its matching
// parameter-list frame: end-of-stream is only a normal termination at an instruction boundary.
var ErrPartialFrame = errors.New("codec: partial instruction frame at end of stream")

// Encoder writes an instruction stream to an underlying writer.
type Encoder struct {
	enc *msgpack.Encoder
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	enc := msgpack.NewEncoder(w)
	enc.UseArrayEncodedStructs(false)

	return &Encoder{enc: enc}
}

// Encode writes one instruction as two consecutive frames: its opcode, then its parameter list.
func (e *Encoder) Encode(in isa.Instruction) error {
	if err := e.enc.EncodeInt(int64(in.Op)); err != nil {
		return fmt.Errorf("codec: encode opcode: %w", err)
	}

	params := in.Params
	if params == nil {
		params = []value.Value{}
	}

	if err := e.enc.Encode(value.List(params...)); err != nil {
		return fmt.Errorf("codec: encode parameters: %w", err)
	}

	return nil
}

// EncodeProgram writes every instruction in order.
func (e *Encoder) EncodeProgram(instructions []isa.Instruction) error {
	for _, in := range instructions {
		if err := e.Encode(in); err != nil {
			return err
		}
	}

	return nil
}

// Decoder reads an instruction stream from an underlying reader.
type Decoder struct {
	dec *msgpack.Decoder
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: msgpack.NewDecoder(r)}
}

// Decode reads one instruction. It returns io.EOF if the stream is exhausted exactly at an
// instruction boundary, or ErrPartialFrame if only the opcode frame was present.
func (d *Decoder) Decode() (isa.Instruction, error) {
	op, err := d.dec.DecodeInt64()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return isa.Instruction{}, io.EOF
		}

		return isa.Instruction{}, fmt.Errorf("codec: decode opcode: %w", err)
	}

	var params value.Value
	if err := d.dec.Decode(&params); err != nil {
		if errors.Is(err, io.EOF) {
			return isa.Instruction{}, ErrPartialFrame
		}

		return isa.Instruction{}, fmt.Errorf("codec: decode parameters: %w", err)
	}

	return isa.Instruction{Op: isa.Opcode(op), Params: params.Items()}, nil
}

// DecodeProgram reads every instruction until a clean end-of-stream.
func DecodeProgram(r io.Reader) ([]isa.Instruction, error) {
	dec := NewDecoder(r)

	var instructions []isa.Instruction

	for {
		in, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return instructions, nil
		}

		if err != nil {
			return instructions, err
		}

		instructions = append(instructions, in)
	}
}

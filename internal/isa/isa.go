// Package isa defines the instruction set architecture of the stack machine: the opcode enum, the
// post-assembly Instruction record, and the argument-arity/type contract each opcode imposes on the
// assembler's label-and-type-check pass.
package isa

import (
	"fmt"

	"ssp/internal/value"
)

// Opcode is the small stable integer identifying an operation. Values are assigned in declaration
// order and are part of the wire format: do not renumber without a migration.
type Opcode int

const (
	NOP Opcode = iota
	PUSH
	SEND
	SENDI
	SWAP
	DUP
	APPEND
	POP
	ADD
	SUB
	MUL
	DIV
	RECV
	LISTEN
	DICT
	LIST
	PUT
	LOOKUP
	LEN
	GT
	LT
	ZERO
	JI
	JN
	JMP
)

var names = [...]string{
	NOP: "NOP", PUSH: "PUSH", SEND: "SEND", SENDI: "SENDI", SWAP: "SWAP",
	DUP: "DUP", APPEND: "APPEND", POP: "POP", ADD: "ADD", SUB: "SUB",
	MUL: "MUL", DIV: "DIV", RECV: "RECV", LISTEN: "LISTEN", DICT: "DICT",
	LIST: "LIST", PUT: "PUT", LOOKUP: "LOOKUP", LEN: "LEN", GT: "GT",
	LT: "LT", ZERO: "ZERO", JI: "JI", JN: "JN", JMP: "JMP",
}

func (op Opcode) String() string {
	if int(op) < 0 || int(op) >= len(names) {
		return fmt.Sprintf("OPCODE(%d)", int(op))
	}

	return names[op]
}

// FromString resolves an assembly mnemonic to its opcode. It does not recognize LABEL: that is a
// pseudo-op consumed entirely by the assembler's ingest pass and never becomes an Instruction.
func FromString(s string) (Opcode, bool) {
	for op, name := range names {
		if name == s {
			return Opcode(op), true
		}
	}

	return 0, false
}

// ArgKind restricts the node type an opcode's sole parameter may resolve to, after label
// resolution.
type ArgKind uint8

const (
	// ArgAny accepts any literal kind, including lists and mappings (PUSH).
	ArgAny ArgKind = iota
	// ArgIntLiteral requires the parameter to resolve to an integer.
	ArgIntLiteral
	// ArgIntOrStringLiteral accepts either an integer or a string (LOOKUP's key).
	ArgIntOrStringLiteral
	// ArgListLiteral requires a list literal (SEND/SENDI's payload).
	ArgListLiteral
)

// Contract describes one opcode's argument-count and argument-type requirements, consulted by the
// assembler's label-and-type-check pass.
type Contract struct {
	MaxArgs  int // 0 or 1; every opcode in this ISA takes at most one parameter.
	Arg      ArgKind
	Required bool // when false, the 0-arg form is legal: the emulator pops the argument from the stack.
}

// Contracts is the complete, authoritative arity/type table (spec.md §4.3). Opcodes absent from the
// map take zero arguments. Required is true only for opcodes whose parameter has no sensible
// stack-popped form: PUSH's argument is the literal value to push, JI/JN/JMP's is a jump target, and
// SWAP/LISTEN are not documented with a 0-arg variant. Every other opcode's "n" may instead be popped
// from the stack at run time, per spec.md §4.4.
var Contracts = map[Opcode]Contract{
	PUSH:   {MaxArgs: 1, Arg: ArgAny, Required: true},
	SEND:   {MaxArgs: 1, Arg: ArgListLiteral},
	SENDI:  {MaxArgs: 1, Arg: ArgListLiteral},
	SWAP:   {MaxArgs: 1, Arg: ArgIntLiteral, Required: true},
	DUP:    {MaxArgs: 1, Arg: ArgIntLiteral},
	APPEND: {MaxArgs: 1, Arg: ArgIntLiteral},
	POP:    {MaxArgs: 1, Arg: ArgIntLiteral},
	LISTEN: {MaxArgs: 1, Arg: ArgIntLiteral, Required: true},
	DICT:   {MaxArgs: 1, Arg: ArgIntLiteral},
	LIST:   {MaxArgs: 1, Arg: ArgIntLiteral},
	PUT:    {MaxArgs: 1, Arg: ArgIntLiteral},
	LOOKUP: {MaxArgs: 1, Arg: ArgIntOrStringLiteral},
	JI:     {MaxArgs: 1, Arg: ArgIntLiteral, Required: true},
	JN:     {MaxArgs: 1, Arg: ArgIntLiteral, Required: true},
	JMP:    {MaxArgs: 1, Arg: ArgIntLiteral, Required: true},
}

// Instruction is the post-assembly, on-wire unit: an opcode plus its resolved parameter list. Line
// and column are retained only for assembly-time diagnostics; they play no part in execution or
// encoding identity.
type Instruction struct {
	Op     Opcode
	Params []value.Value
	Line   int
	Column int
}

// Param returns the instruction's sole parameter, or value.Nil if it takes none.
func (in Instruction) Param() value.Value {
	if len(in.Params) == 0 {
		return value.Nil
	}

	return in.Params[0]
}

func (in Instruction) String() string {
	if len(in.Params) == 0 {
		return in.Op.String()
	}

	s := in.Op.String()
	for _, p := range in.Params {
		s += " " + p.String()
	}

	return s
}

// Package asm implements the scripting language's parser and three-pass assembler: ingest, label
// resolution and type-check, and emission of the binary instruction stream.
//
// A user typically assembles a source file with the "ssp asm" command:
//
//	go run ssp asm -o program.bin program.asm
//
// See Assembler for the programmatic API.
package asm

import (
	"ssp/internal/ast"
	"ssp/internal/isa"
	"ssp/internal/lexer"
	"ssp/internal/log"
	"ssp/internal/value"
)

// labelPseudoOp is the spelling reserved for the label-defining pseudo-op. It never becomes an
// Instruction; it only records an offset in the label table for the assembler's ingest pass.
const labelPseudoOp = "LABEL"

// Assembler runs the three passes described by the language's assembly model over parsed Lines,
// producing a Program and any diagnostics. Diagnostics accumulate across all three passes; emission
// is suppressed if any is ERROR or INT_ERROR severity.
type Assembler struct {
	log *log.Logger
}

// New creates an Assembler.
func New(logger *log.Logger) *Assembler {
	return &Assembler{log: logger}
}

// ingested is one instruction after pass 1: its opcode resolved, its argument nodes still
// unresolved against the label table.
type ingested struct {
	op           isa.Opcode
	args         []ast.Node
	line, column int
}

// Assemble runs all three passes over src and returns the resulting Program. If diagnostics contain
// any ERROR or INT_ERROR, the returned Program is empty and must not be used.
func (a *Assembler) Assemble(src lexer.Source) (Program, Diagnostics) {
	parser := NewParser(src, a.log)

	lines, diag := parser.Parse()
	if !diag.OK() {
		return Program{}, diag
	}

	ingest, labels, d2 := a.ingest(lines)
	diag = append(diag, d2...)

	if !diag.OK() {
		return Program{}, diag
	}

	program, d3 := a.typeCheckAndCollapse(ingest, labels)
	diag = append(diag, d3...)

	if !diag.OK() {
		return Program{}, diag
	}

	if a.log != nil {
		a.log.Info("assembled program", log.Any("instructions", len(program.Instructions)))
	}

	return program, diag
}

// ingest is pass 1: resolves each line's opcode, records LABEL pseudo-ops into the label table at
// their current offset, and assigns offsets to real instructions. Argument nodes are carried
// through unresolved.
func (a *Assembler) ingest(lines []Line) ([]ingested, ast.Labels, Diagnostics) {
	var (
		diag   Diagnostics
		result []ingested
		labels = make(ast.Labels)
		offset int64
	)

	for _, line := range lines {
		if line.Opcode == labelPseudoOp {
			if len(line.Params) != 1 || line.Params[0].Kind != ast.KindIdentifier {
				diag.Add(ERROR, line.Line, line.Column, "LABEL requires exactly one identifier parameter")

				continue
			}

			name := line.Params[0].Identifier
			if _, exists := labels[name]; exists {
				diag.Add(ERROR, line.Line, line.Column, "label %q redefined", name)

				continue
			}

			labels[name] = offset

			continue
		}

		op, ok := isa.FromString(line.Opcode)
		if !ok {
			diag.Add(ERROR, line.Line, line.Column, "unknown opcode %q", line.Opcode)

			continue
		}

		result = append(result, ingested{op: op, args: line.Params, line: line.Line, column: line.Column})
		offset++
	}

	return result, labels, diag
}

// typeCheckAndCollapse is passes 2 and 3 combined: for each ingested instruction, check its
// argument count and type against isa.Contracts, then collapse its argument nodes to concrete
// Values using the label table.
func (a *Assembler) typeCheckAndCollapse(ingest []ingested, labels ast.Labels) (Program, Diagnostics) {
	var (
		diag    Diagnostics
		program Program
	)

	for _, in := range ingest {
		contract, hasArgs := isa.Contracts[in.op]

		switch {
		case !hasArgs && len(in.args) != 0:
			diag.Add(ERROR, in.line, in.column, "%s takes no arguments, got %d", in.op, len(in.args))

			continue
		case hasArgs && len(in.args) > contract.MaxArgs:
			diag.Add(ERROR, in.line, in.column, "%s takes at most %d argument(s), got %d", in.op, contract.MaxArgs, len(in.args))

			continue
		case hasArgs && contract.Required && len(in.args) == 0:
			diag.Add(ERROR, in.line, in.column, "%s requires an argument", in.op)

			continue
		}

		var params []value.Value

		if hasArgs && len(in.args) == 1 {
			arg := in.args[0]

			if !argMatches(contract.Arg, arg) {
				diag.Add(ERROR, arg.Line, arg.Column, "%s: argument has wrong type for %s", in.op, contract.Arg)

				continue
			}

			v, err := arg.CollapseToValue(labels)
			if err != nil {
				diag.Add(ERROR, arg.Line, arg.Column, "%s", err)

				continue
			}

			params = []value.Value{v}
		}

		program.Instructions = append(program.Instructions, isa.Instruction{
			Op:     in.op,
			Params: params,
			Line:   in.line,
			Column: in.column,
		})
	}

	return program, diag
}

// argMatches reports whether a node's resolved kind satisfies an opcode's declared argument kind
// contract.
func argMatches(kind isa.ArgKind, node ast.Node) bool {
	switch kind {
	case isa.ArgAny:
		return true
	case isa.ArgIntLiteral:
		return node.ResolvedKind() == ast.KindInt
	case isa.ArgIntOrStringLiteral:
		rk := node.ResolvedKind()

		return rk == ast.KindInt || rk == ast.KindString
	case isa.ArgListLiteral:
		return node.Kind == ast.KindList
	default:
		return false
	}
}

// Program is the ordered instruction stream produced by assembly.
type Program struct {
	Instructions []isa.Instruction
}

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ssp/internal/asm"
	"ssp/internal/cli"
	"ssp/internal/codec"
	"ssp/internal/lexer"
	"ssp/internal/log"
)

// Assembler is the command that translates source into the binary instruction stream.
//
//	ssp asm -o program.bin program.asm
func Assembler() cli.Command {
	return new(assembler)
}

type assembler struct {
	debug  bool
	output string
	disasm bool
}

func (assembler) Description() string {
	return "assemble source into the binary instruction stream"
}

func (assembler) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `asm [-o file.bin] [-disasm] file.asm

Assemble source into the binary instruction stream.`)

	return err
}

func (a *assembler) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("asm", flag.ExitOnError)
	fs.BoolVar(&a.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&a.debug, "v", false, "shorthand for -debug")
	fs.BoolVar(&a.disasm, "disasm", false, "print the assembled instructions instead of writing them")
	fs.BoolVar(&a.disasm, "d", false, "shorthand for -disasm")
	fs.StringVar(&a.output, "o", "", "output `filename` (default: input with .bin extension)")

	return fs
}

// Run assembles each file named in args, reporting diagnostics and writing (or printing) the
// resulting instruction stream. It returns a nonzero exit code if any file fails to assemble.
func (a *assembler) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	if a.debug {
		log.LogLevel.Set(log.Debug)
	}

	if len(args) == 0 {
		fmt.Fprintln(stdout, "asm: no input files")
		return 1
	}

	status := 0

	for _, fn := range args {
		if !a.assembleOne(fn, stdout, logger) {
			status = 1
		}
	}

	return status
}

func (a *assembler) assembleOne(fn string, stdout io.Writer, logger *log.Logger) bool {
	src, err := os.ReadFile(fn)
	if err != nil {
		logger.Error("read failed", "file", fn, "err", err)
		return false
	}

	assembler := asm.New(logger)
	program, diag := assembler.Assemble(lexer.NewSource(string(src)))

	for _, d := range diag {
		fmt.Fprintln(stdout, d.String())
	}

	fmt.Fprintln(stdout, diag.Summary())

	_, errs, internal := diag.Counts()
	if errs+internal > 0 {
		return false
	}

	if a.disasm {
		for _, in := range program.Instructions {
			fmt.Fprintln(stdout, in.String())
		}

		return true
	}

	out := a.output
	if out == "" {
		out = defaultOutputName(fn)
	}

	f, err := os.Create(out)
	if err != nil {
		logger.Error("open failed", "out", out, "err", err)
		return false
	}
	defer f.Close()

	enc := codec.NewEncoder(f)
	if err := enc.EncodeProgram(program.Instructions); err != nil {
		logger.Error("encode failed", "out", out, "err", err)
		return false
	}

	logger.Info("assembled", "in", fn, "out", out, "instructions", len(program.Instructions))

	return true
}

// defaultOutputName derives "basename.bin" from an input file name.
func defaultOutputName(fn string) string {
	base := filepath.Base(fn)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}

	return base + ".bin"
}

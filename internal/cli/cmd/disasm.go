package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"ssp/internal/cli"
	"ssp/internal/disasm"
	"ssp/internal/log"
)

// Disassembler is the command that renders the binary instruction stream as assembly text.
//
//	ssp disasm program.bin
func Disassembler() cli.Command {
	return new(disassembler)
}

type disassembler struct{}

func (disassembler) Description() string {
	return "disassemble the binary instruction stream into assembly text"
}

func (disassembler) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `disasm file.bin

Disassemble the binary instruction stream into assembly text.`)

	return err
}

func (disassembler) FlagSet() *cli.FlagSet {
	return flag.NewFlagSet("disasm", flag.ExitOnError)
}

func (disassembler) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	if len(args) == 0 {
		fmt.Fprintln(stdout, "disasm: no input file")
		return 1
	}

	for _, fn := range args {
		f, err := os.Open(fn)
		if err != nil {
			logger.Error("open failed", "file", fn, "err", err)
			return 1
		}

		err = disasm.Disassemble(f, stdout)
		f.Close()

		if err != nil {
			logger.Error("disassemble failed", "file", fn, "err", err)
			return 1
		}
	}

	return 0
}

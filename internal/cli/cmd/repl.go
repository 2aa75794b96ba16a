package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"ssp/internal/cli"
	"ssp/internal/codec"
	"ssp/internal/emulator"
	"ssp/internal/log"
	"ssp/internal/tty"
)

// Repl is the single-step debugger command: it loads an assembled program and steps the emulator
// one instruction per key press, printing the instruction pointer and operand stack after each
// step.
//
//	ssp repl program.bin
func Repl() cli.Command {
	return new(repl)
}

type repl struct{}

func (repl) Description() string {
	return "step through an assembled program one instruction at a time"
}

func (repl) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `repl program.bin

Step through an assembled program one instruction at a time. Press any key to single-step,
Ctrl-C to quit.`)

	return err
}

func (repl) FlagSet() *cli.FlagSet {
	return flag.NewFlagSet("repl", flag.ExitOnError)
}

func (repl) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	if len(args) == 0 {
		fmt.Fprintln(stdout, "repl: no input file")
		return 1
	}

	f, err := os.Open(args[0])
	if err != nil {
		logger.Error("open failed", "file", args[0], "err", err)
		return 1
	}

	program, err := codec.DecodeProgram(f)
	f.Close()

	if err != nil {
		logger.Error("decode failed", "file", args[0], "err", err)
		return 1
	}

	emu := emulator.New(logger)
	emu.SetProgram(program)
	emu.Resume()

	ctx, console, cancel := tty.ConsoleContext(ctx)
	defer cancel()

	if err := context.Cause(ctx); err != nil {
		fmt.Fprintln(stdout, "repl requires an interactive terminal; stepping to completion instead")

		for emu.Status() == emulator.RUNNING {
			emu.SingleStep()
			printState(stdout, emu)
		}

		return 0
	}

	out := console.Writer()
	fmt.Fprintln(out, "press any key to single-step, Ctrl-C to quit")

	for emu.Status() == emulator.RUNNING {
		select {
		case <-ctx.Done():
			return 0
		case key := <-console.Keys():
			if key == 0x03 { // Ctrl-C
				return 0
			}

			emu.SingleStep()
			printState(out, emu)
		}
	}

	fmt.Fprintf(out, "halted (status=%s)\r\n", emu.Status())

	return 0
}

func printState(out io.Writer, emu *emulator.Emulator) {
	fmt.Fprintf(out, "ip=%-4d stack=%v\r\n", emu.IP(), emu.Stack())
}

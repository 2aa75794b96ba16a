package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"ssp/internal/cli"
	"ssp/internal/codec"
	"ssp/internal/emulator"
	"ssp/internal/log"
	"ssp/internal/universe"
	"ssp/internal/value"
)

// Runner is the command that loads an assembled program into a fresh machine and drives it to
// completion, printing whatever the program eventually sends back to the caller.
//
//	ssp run program.bin
func Runner() cli.Command {
	return &runner{maxTicks: 10_000}
}

type runner struct {
	debug    bool
	maxTicks int
}

func (runner) Description() string {
	return "run an assembled program to completion"
}

func (runner) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `run program.bin

Load an assembled program into a new machine and run it to completion.`)

	return err
}

func (r *runner) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.BoolVar(&r.debug, "debug", false, "enable debug logging")
	fs.IntVar(&r.maxTicks, "max-ticks", r.maxTicks, "give up after this many scheduler ticks")

	return fs
}

func (r *runner) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	if r.debug {
		log.LogLevel.Set(log.Debug)
	}

	if len(args) == 0 {
		fmt.Fprintln(stdout, "run: no input file")
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

	u := universe.New(logger)

	m, err := u.CreateMachine()
	if err != nil {
		logger.Error("create machine failed", "err", err)
		return 1
	}

	done := make(chan struct{})

	var (
		replyValues []value.Value
		replyErr    error
	)

	_, childPid := m.StartProcess(program, u, func(values []value.Value, err error) {
		replyValues, replyErr = values, err
		close(done)
	})

	proc, _ := m.Process(childPid)
	emu := proc.(interface{ Emulator() *emulator.Emulator }).Emulator()

	for tick := 0; tick < r.maxTicks; tick++ {
		select {
		case <-done:
			return r.report(stdout, replyValues, replyErr)
		default:
		}

		u.Tick()

		if emu.Status() == emulator.HALTED {
			break
		}

		time.Sleep(time.Millisecond)
	}

	select {
	case <-done:
		return r.report(stdout, replyValues, replyErr)
	default:
	}

	fmt.Fprintf(stdout, "run: process did not reply (status=%s)\n", emu.Status())

	return 0
}

func (r *runner) report(stdout io.Writer, values []value.Value, err error) int {
	if err != nil {
		fmt.Fprintf(stdout, "run: error: %s\n", err)
		return 1
	}

	for _, v := range values {
		fmt.Fprintln(stdout, v.String())
	}

	return 0
}

// Command ssp is the command-line interface to the stack-machine runtime: assemble source,
// disassemble the binary instruction stream, run a program to completion, or step it one
// instruction at a time.
package main

import (
	"context"
	"os"

	"ssp/internal/cli"
	"ssp/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Assembler(),
	cmd.Disassembler(),
	cmd.Runner(),
	cmd.Repl(),
}

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}

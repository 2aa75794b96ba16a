package emulator_test

import (
	"errors"
	"log/slog"
	"testing"

	. "ssp/internal/emulator"
	"ssp/internal/isa"
	"ssp/internal/log"
	"ssp/internal/value"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newEmulator() *Emulator {
	return New(slog.New(slog.NewTextHandler(discard{}, log.Options)))
}

func run(e *Emulator, program []isa.Instruction) {
	e.SetProgram(program)
	e.Resume()

	for e.Status() == RUNNING {
		e.SingleStep()
	}
}

func TestArithmeticHalts(t *testing.T) {
	e := newEmulator()

	run(e, []isa.Instruction{
		{Op: isa.PUSH, Params: []value.Value{value.Int(2)}},
		{Op: isa.PUSH, Params: []value.Value{value.Int(3)}},
		{Op: isa.ADD},
	})

	if e.Status() != HALTED {
		t.Fatalf("status = %s, want HALTED", e.Status())
	}

	stack := e.Stack()
	if len(stack) != 1 || !stack[0].Equal(value.Int(5)) {
		t.Fatalf("stack = %v, want [5]", stack)
	}
}

func TestZeroArgFormPopsArgument(t *testing.T) {
	e := newEmulator()

	// DUP with no literal argument pops its offset (-1, the top) from the stack first.
	run(e, []isa.Instruction{
		{Op: isa.PUSH, Params: []value.Value{value.Int(7)}},
		{Op: isa.PUSH, Params: []value.Value{value.Int(-1)}},
		{Op: isa.DUP},
	})

	stack := e.Stack()
	if len(stack) != 2 || !stack[0].Equal(value.Int(7)) || !stack[1].Equal(value.Int(7)) {
		t.Fatalf("stack = %v, want [7 7]", stack)
	}
}

func TestUnderflowFaults(t *testing.T) {
	e := newEmulator()

	var faulted error

	e.SetHooks(Hooks{OnError: func(err error, addr int) { faulted = err }})
	run(e, []isa.Instruction{{Op: isa.ADD}})

	if faulted == nil {
		t.Fatal("want an underflow fault, got none")
	}

	if e.Status() != HALTED {
		t.Errorf("status = %s, want HALTED after fault", e.Status())
	}
}

func TestJumpIfTrue(t *testing.T) {
	e := newEmulator()

	run(e, []isa.Instruction{
		{Op: isa.PUSH, Params: []value.Value{value.Bool(true)}},
		{Op: isa.JI, Params: []value.Value{value.Int(3)}},
		{Op: isa.PUSH, Params: []value.Value{value.Int(999)}}, // skipped
		{Op: isa.PUSH, Params: []value.Value{value.Int(1)}},
	})

	stack := e.Stack()
	if len(stack) != 1 || !stack[0].Equal(value.Int(1)) {
		t.Fatalf("stack = %v, want [1]", stack)
	}
}

func TestListenBlocksThenReceiveResumes(t *testing.T) {
	e := newEmulator()

	blocked := false
	e.SetHooks(Hooks{OnBlock: func(reason BlockingReason) { blocked = true }})

	e.SetProgram([]isa.Instruction{
		{Op: isa.LISTEN, Params: []value.Value{value.Int(1)}},
		{Op: isa.NOP},
	})
	e.Resume()
	e.SingleStep()

	if !blocked || e.Status() != BLOCKED {
		t.Fatalf("status = %s, blocked = %v, want BLOCKED/true", e.Status(), blocked)
	}

	// Receive resumes the emulator with the payload pushed below the sender.
	e.Receive(value.String("peer"), []value.Value{value.Int(1), value.Int(2)})

	if e.Status() != RUNNING {
		t.Fatalf("status = %s, want RUNNING after receive", e.Status())
	}

	stack := e.Stack()
	want := []value.Value{value.Int(1), value.Int(2), value.String("peer")}

	if len(stack) != len(want) {
		t.Fatalf("stack = %v, want %v", stack, want)
	}

	for i := range want {
		if !stack[i].Equal(want[i]) {
			t.Fatalf("stack = %v, want %v", stack, want)
		}
	}
}

func TestJumpOutOfRangeFaults(t *testing.T) {
	e := newEmulator()

	var faulted error

	e.SetHooks(Hooks{OnError: func(err error, addr int) { faulted = err }})
	run(e, []isa.Instruction{{Op: isa.JMP, Params: []value.Value{value.Int(99)}}})

	if !errors.Is(faulted, ErrOutOfRange) {
		t.Fatalf("faulted = %v, want ErrOutOfRange", faulted)
	}

	if e.Status() != HALTED {
		t.Errorf("status = %s, want HALTED after fault", e.Status())
	}
}

func TestConditionalJumpOutOfRangeFaults(t *testing.T) {
	e := newEmulator()

	var faulted error

	e.SetHooks(Hooks{OnError: func(err error, addr int) { faulted = err }})
	run(e, []isa.Instruction{
		{Op: isa.PUSH, Params: []value.Value{value.Bool(true)}},
		{Op: isa.JI, Params: []value.Value{value.Int(99)}},
	})

	if !errors.Is(faulted, ErrOutOfRange) {
		t.Fatalf("faulted = %v, want ErrOutOfRange", faulted)
	}

	if e.Status() != HALTED {
		t.Errorf("status = %s, want HALTED after fault", e.Status())
	}
}

func TestZeroNonNumericIsFalseNotFault(t *testing.T) {
	e := newEmulator()

	var faulted error

	e.SetHooks(Hooks{OnError: func(err error, addr int) { faulted = err }})
	run(e, []isa.Instruction{
		{Op: isa.PUSH, Params: []value.Value{value.String("x")}},
		{Op: isa.ZERO},
	})

	if faulted != nil {
		t.Fatalf("faulted = %v, want no fault for a non-numeric ZERO operand", faulted)
	}

	stack := e.Stack()
	if len(stack) != 1 || !stack[0].Equal(value.Bool(false)) {
		t.Fatalf("stack = %v, want [false]", stack)
	}
}

func TestSendFiresHookAndBlocks(t *testing.T) {
	e := newEmulator()

	var target value.Value
	var payload []value.Value

	e.SetHooks(Hooks{OnSend: func(tgt value.Value, p []value.Value) { target, payload = tgt, p }})

	e.SetProgram([]isa.Instruction{
		{Op: isa.PUSH, Params: []value.Value{value.List(value.String("svc"), value.Int(1))}},
		{Op: isa.SEND},
	})
	e.Resume()
	e.SingleStep()
	e.SingleStep()

	if !target.Equal(value.String("svc")) {
		t.Errorf("target = %s, want svc", target)
	}

	if len(payload) != 1 || !payload[0].Equal(value.Int(1)) {
		t.Errorf("payload = %v, want [1]", payload)
	}

	if e.Status() != BLOCKED || e.BlockingReason() != SendResp {
		t.Errorf("status = %s/%s, want BLOCKED/SendResp", e.Status(), e.BlockingReason())
	}
}

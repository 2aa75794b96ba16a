// Package emulator implements the stack machine: its value stack, run/block/halt states, and
// instruction dispatch table. The emulator knows nothing of IPC routing or scheduling; it exposes
// five hooks so a host (the process package) can bridge its send/block/error/halt events to the
// wider system.
package emulator

import (
	"errors"
	"fmt"

	"ssp/internal/isa"
	"ssp/internal/log"
	"ssp/internal/value"
)

// Status is the emulator's run state.
type Status uint8

const (
	HALTED Status = iota
	RUNNING
	BLOCKED
)

func (s Status) String() string {
	switch s {
	case HALTED:
		return "HALTED"
	case RUNNING:
		return "RUNNING"
	case BLOCKED:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}

// BlockingReason explains why a BLOCKED emulator is paused.
type BlockingReason uint8

const (
	NotBlocked BlockingReason = iota
	SendResp
	Recv
	Listen
)

func (r BlockingReason) String() string {
	switch r {
	case NotBlocked:
		return "NOT_BLOCKED"
	case SendResp:
		return "SEND_RESP"
	case Recv:
		return "RECV"
	case Listen:
		return "LISTEN"
	default:
		return "UNKNOWN"
	}
}

// Runtime errors. Each is reported to the on_error hook via *Fault, which carries the faulting
// instruction pointer.
var (
	ErrUnderflow    = errors.New("emulator: stack underflow")
	ErrOutOfRange   = errors.New("emulator: instruction pointer out of range")
	ErrUnknownOp    = errors.New("emulator: unknown opcode")
	ErrType         = errors.New("emulator: type error")
	ErrDivideByZero = errors.New("emulator: division by zero")
)

// Fault wraps a runtime error with the instruction pointer at which it occurred.
type Fault struct {
	Addr int
	Err  error
}

func (f *Fault) Error() string { return fmt.Sprintf("fault at %d: %s", f.Addr, f.Err) }
func (f *Fault) Unwrap() error { return f.Err }

// Hooks are the five host callbacks an embedder installs before running an emulator. All are
// optional; a nil hook is simply not called.
type Hooks struct {
	OnError  func(err error, addr int)
	OnHalted func()
	OnSend   func(target value.Value, payload []value.Value)
	OnBlock  func(reason BlockingReason)
	OnResume func()
}

// Emulator is one instance of the stack machine.
type Emulator struct {
	program []isa.Instruction
	stack   []value.Value
	ip      int

	status  Status
	reason  BlockingReason
	listenN int64 // LISTEN's reserved parameter, valid only while reason == Listen.

	cycles int

	hooks Hooks
	log   *log.Logger
}

// New creates a halted Emulator with no program loaded.
func New(logger *log.Logger) *Emulator {
	return &Emulator{log: logger, status: HALTED}
}

// SetHooks installs the host callbacks. Call before Resume.
func (e *Emulator) SetHooks(h Hooks) { e.hooks = h }

// SetProgram loads a program and resets execution state, leaving the emulator HALTED until Resume.
func (e *Emulator) SetProgram(program []isa.Instruction) {
	e.program = program
	e.Reset()
}

// Status reports the current run state.
func (e *Emulator) Status() Status { return e.status }

// BlockingReason reports why the emulator is blocked; NotBlocked if not BLOCKED.
func (e *Emulator) BlockingReason() BlockingReason { return e.reason }

// BlockContext returns LISTEN's reserved parameter. Valid only while BlockingReason() == Listen.
func (e *Emulator) BlockContext() int64 { return e.listenN }

// IP returns the current instruction pointer.
func (e *Emulator) IP() int { return e.ip }

// Cycles returns the number of instructions single_step has dispatched since the last Reset.
func (e *Emulator) Cycles() int { return e.cycles }

// Stack returns a copy of the current value stack, bottom first.
func (e *Emulator) Stack() []value.Value {
	out := make([]value.Value, len(e.stack))
	copy(out, e.stack)

	return out
}

// Reset clears the stack, resets the instruction pointer to zero, and transitions to HALTED.
func (e *Emulator) Reset() {
	e.stack = nil
	e.ip = 0
	e.cycles = 0
	e.status = HALTED
	e.reason = NotBlocked
}

// Resume transitions a HALTED emulator to RUNNING. It is a no-op if already RUNNING or BLOCKED.
func (e *Emulator) Resume() {
	if e.status == HALTED {
		e.status = RUNNING
	}
}

// Halt forces the emulator into HALTED, firing on_halted.
func (e *Emulator) Halt() {
	e.status = HALTED
	e.reason = NotBlocked

	if e.hooks.OnHalted != nil {
		e.hooks.OnHalted()
	}
}

// TriggerError halts the emulator and fires on_error with the current instruction pointer.
func (e *Emulator) TriggerError(err error) {
	e.status = HALTED
	e.reason = NotBlocked

	if e.hooks.OnError != nil {
		e.hooks.OnError(err, e.ip)
	}
}

// Receive resumes a BLOCKED emulator: values are pushed first (in order), then sender on top, so a
// subsequent POP 1 discards the sender. It is a no-op if the emulator is not BLOCKED.
func (e *Emulator) Receive(sender value.Value, values []value.Value) {
	if e.status != BLOCKED {
		return
	}

	e.stack = append(e.stack, values...)
	e.stack = append(e.stack, sender)

	e.status = RUNNING
	e.reason = NotBlocked

	if e.hooks.OnResume != nil {
		e.hooks.OnResume()
	}
}

// SingleStep decodes and dispatches the instruction at IP. It is a no-op if HALTED or BLOCKED. If
// dispatch advances IP past the program's end, the emulator transitions to HALTED.
func (e *Emulator) SingleStep() {
	if e.status != RUNNING {
		return
	}

	if e.ip < 0 || e.ip >= len(e.program) {
		e.fault(fmt.Errorf("%w: ip=%d, len=%d", ErrOutOfRange, e.ip, len(e.program)))

		return
	}

	in := e.program[e.ip]
	e.cycles++

	if e.log != nil {
		e.log.Debug("step", log.Any("ip", e.ip), log.String("op", in.Op.String()))
	}

	e.dispatch(in)

	if e.status == RUNNING && e.ip >= len(e.program) {
		e.Halt()
	}
}

func (e *Emulator) fault(err error) {
	e.TriggerError(&Fault{Addr: e.ip, Err: err})
}

func (e *Emulator) push(v value.Value) {
	e.stack = append(e.stack, v)
}

func (e *Emulator) pop() (value.Value, bool) {
	if len(e.stack) == 0 {
		return value.Nil, false
	}

	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]

	return top, true
}

// popN pops n values, returning them in their original bottom-to-top (push) order.
func (e *Emulator) popN(n int) ([]value.Value, bool) {
	if n < 0 || len(e.stack) < n {
		return nil, false
	}

	start := len(e.stack) - n
	out := make([]value.Value, n)
	copy(out, e.stack[start:])
	e.stack = e.stack[:start]

	return out, true
}

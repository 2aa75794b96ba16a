// Package process wraps one emulator instance, bridging its hooks to asynchronous IPC: outgoing
// sends are routed through a Router (implemented by the machine package), inbound messages resume a
// blocked emulator, and tick registration tracks whether the process currently wants scheduler time.
package process

import (
	"errors"
	"strconv"

	"ssp/internal/emulator"
	"ssp/internal/isa"
	"ssp/internal/log"
	"ssp/internal/value"
)

// DefaultStepsPerTick is how many single_step calls a process's on_tick may spend before yielding,
// absent an override.
const DefaultStepsPerTick = 150

// ReplyFunc completes a pending request: values is the reply payload, or err if the request could
// not be serviced (no receiver, or the receiver was killed).
type ReplyFunc func(values []value.Value, err error)

// Router resolves and dispatches an outgoing IPC send. Implemented by *machine.Machine; held here
// as an interface so process never imports machine, avoiding the process/machine ownership cycle
// the design favors a weak back-reference for.
type Router interface {
	SendIPC(sender, target value.Value, payload []value.Value, reply ReplyFunc) error
}

// Ticker registers and unregisters a process's per-tick callback with the scheduler.
type Ticker interface {
	RegisterTick(onTick func()) int64
	UnregisterTick(id int64)
}

// ErrKilled is the error a pending reply promise is resolved with when the process holding it is
// killed before it can reply.
var ErrKilled = errors.New("process: killed with pending reply")

// ErrNoRouter is returned when a process attempts to send before a Router is attached.
var ErrNoRouter = errors.New("process: no router attached")

// Process is a scheduled unit wrapping one Emulator, addressed by pid within its machine.
type Process struct {
	Pid       int64
	ParentPid *int64

	emu    *emulator.Emulator
	router Router
	ticker Ticker

	stepsPerTick int
	tickID       int64
	registered   bool
	killed       bool

	// incomingSender/incomingReply implement the reply fast-path: the sender of the most recent
	// unresolved incoming message and the function that resumes it. When this process's own SEND
	// targets that same sender, the reply is completed directly instead of re-routing through the
	// machine.
	incomingSender value.Value
	incomingReply  ReplyFunc

	log *log.Logger
}

// New creates a Process wrapping emu, owned by the given parent pid (nil for a root process).
func New(pid int64, parentPid *int64, emu *emulator.Emulator, router Router, ticker Ticker, logger *log.Logger) *Process {
	p := &Process{
		Pid:            pid,
		ParentPid:      parentPid,
		emu:            emu,
		router:         router,
		ticker:         ticker,
		stepsPerTick:   DefaultStepsPerTick,
		incomingSender: value.Nil,
		log:            logger,
	}

	emu.SetHooks(emulator.Hooks{
		OnSend:   p.onSend,
		OnBlock:  p.onBlock,
		OnResume: p.onResume,
		OnError:  p.onError,
		OnHalted: p.onHalted,
	})

	return p
}

// SetStepsPerTick overrides the default steps-per-tick budget.
func (p *Process) SetStepsPerTick(n int) { p.stepsPerTick = n }

// Emulator returns the wrapped emulator, for loading a program or inspecting state.
func (p *Process) Emulator() *emulator.Emulator { return p.emu }

// Start loads a program and transitions the emulator to RUNNING, registering for ticks.
func (p *Process) Start(program []isa.Instruction) {
	p.emu.SetProgram(program)
	p.emu.Resume()
	p.registerTick()
}

// Deliver is called by the machine to hand an inbound message to this process. It resumes a
// blocked emulator (a no-op if not blocked, per spec) and remembers sender/reply for the fast-path.
func (p *Process) Deliver(sender value.Value, payload []value.Value, reply ReplyFunc) {
	p.incomingSender = sender
	p.incomingReply = reply

	p.emu.Receive(sender, payload)
}

// onTick executes up to stepsPerTick single_step calls, stopping early on block or halt.
func (p *Process) onTick() {
	for i := 0; i < p.stepsPerTick; i++ {
		if p.emu.Status() != emulator.RUNNING {
			return
		}

		p.emu.SingleStep()
	}
}

func (p *Process) registerTick() {
	if p.registered || p.ticker == nil {
		return
	}

	p.tickID = p.ticker.RegisterTick(p.onTick)
	p.registered = true
}

func (p *Process) unregisterTick() {
	if !p.registered {
		return
	}

	p.ticker.UnregisterTick(p.tickID)
	p.registered = false
}

// onBlock unregisters the process's tick callback: a blocked process does nothing until receive.
func (p *Process) onBlock(_ emulator.BlockingReason) {
	p.unregisterTick()
}

// onResume re-registers the process's tick callback.
func (p *Process) onResume() {
	p.registerTick()
}

func (p *Process) onHalted() {
	p.unregisterTick()
}

func (p *Process) onError(err error, addr int) {
	if p.log != nil {
		p.log.Error("process fault", log.Any("pid", p.Pid), log.Any("addr", addr), log.Any("err", err))
	}

	p.unregisterTick()
}

// onSend is the emulator's on_send hook: it resolves the "." parent-pid shorthand, applies the
// reply fast-path, and otherwise routes the send through the Router.
func (p *Process) onSend(target value.Value, payload []value.Value) {
	target = p.resolveTarget(target)

	if !p.incomingSender.IsNil() && p.incomingReply != nil && target.Equal(p.incomingSender) {
		reply := p.incomingReply
		p.incomingReply = nil
		p.incomingSender = value.Nil

		reply(payload, nil)

		return
	}

	if p.router == nil {
		p.emu.TriggerError(ErrNoRouter)

		return
	}

	if err := p.router.SendIPC(value.Int(p.Pid), target, payload, p.handleReply); err != nil {
		p.emu.TriggerError(err)
	}
}

// resolveTarget rewrites the literal "." target to the parent pid's string form.
func (p *Process) resolveTarget(target value.Value) value.Value {
	if target.Kind() == value.KindString && target.Str() == "." && p.ParentPid != nil {
		return value.String(strconv.FormatInt(*p.ParentPid, 10))
	}

	return target
}

// handleReply resumes this process's own blocked emulator once a reply to its SEND arrives. Per
// spec, the sender pushed onto the stack for an IPC reply is always the nil/None sentinel; the
// real addressing information already lives in the reply payload where the protocol needs it.
func (p *Process) handleReply(values []value.Value, err error) {
	if p.killed {
		return
	}

	if err != nil {
		p.emu.TriggerError(err)

		return
	}

	p.emu.Receive(value.Nil, values)
}

// Kill unregisters the process from the scheduler and resolves any pending incoming reply with
// ErrKilled, so an upstream sender blocked on this process's reply unblocks instead of hanging.
func (p *Process) Kill() {
	if p.killed {
		return
	}

	p.killed = true

	p.unregisterTick()

	if p.incomingReply != nil {
		reply := p.incomingReply
		p.incomingReply = nil
		p.incomingSender = value.Nil

		reply(nil, ErrKilled)
	}

	p.emu.Halt()
}

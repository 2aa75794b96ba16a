// Package machine implements the tenant container: a process table, named services, and IPC
// address resolution and dispatch.
package machine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"ssp/internal/emulator"
	"ssp/internal/idgen"
	"ssp/internal/isa"
	"ssp/internal/log"
	"ssp/internal/process"
	"ssp/internal/value"
)

// newIdleEmulator creates a freshly constructed, halted emulator for a new process. The interface
// process never loads a program into it; an ordinary child process does via Process.Start.
func newIdleEmulator(logger *log.Logger) *emulator.Emulator {
	return emulator.New(logger)
}

// PidBase is the first pid a machine ever allocates.
const PidBase = 1000

// SecretLength is the length, in characters, of a machine's shared secret.
const SecretLength = 40

// Addressable is anything a pid or service name in a machine's tables can resolve to: a running
// process, or an interface process standing in for an external request.
type Addressable interface {
	Deliver(sender value.Value, payload []value.Value, reply process.ReplyFunc)
	Kill()
}

// Resolver looks up a sibling machine by id, so Machine can route a "HOST:REST" remote address.
// Implemented by *universe.Universe; held as an interface to keep machine from importing universe.
type Resolver interface {
	Machine(id string) (*Machine, bool)
}

// Errors returned by address resolution and dispatch, per spec.md §4.6/§7.
var (
	ErrNoReceiver    = errors.New("machine: no receiver")
	ErrRemoteMissing = errors.New("machine: remote machine not found")
)

// EventKind names the lifecycle events a Machine emits.
type EventKind string

const (
	EventProcessCreated EventKind = "process_created"
	EventProcessKilled  EventKind = "process_killed"
)

// EventListener observes a Machine's lifecycle events.
type EventListener func(kind EventKind, pid int64)

// Machine is a tenant: a process table, a registry of named services, and the address resolution
// that routes IPC among them and to other machines.
type Machine struct {
	ID     string
	Secret string

	universe Resolver

	pids     *idgen.Counter
	procs    map[int64]Addressable
	services map[string]Addressable

	listeners []EventListener

	log *log.Logger
}

// New creates a Machine with a fresh random id and secret, owned by universe for remote routing.
func New(universe Resolver, logger *log.Logger) (*Machine, error) {
	id, err := idgen.RandomString(20)
	if err != nil {
		return nil, fmt.Errorf("machine: generating id: %w", err)
	}

	secret, err := idgen.RandomString(SecretLength)
	if err != nil {
		return nil, fmt.Errorf("machine: generating secret: %w", err)
	}

	return &Machine{
		ID:       id,
		Secret:   secret,
		universe: universe,
		pids:     idgen.NewCounter(PidBase),
		procs:    make(map[int64]Addressable),
		services: make(map[string]Addressable),
		log:      logger,
	}, nil
}

// OnEvent registers a listener for process_created/process_killed events.
func (m *Machine) OnEvent(l EventListener) {
	m.listeners = append(m.listeners, l)
}

func (m *Machine) emit(kind EventKind, pid int64) {
	for _, l := range m.listeners {
		l(kind, pid)
	}
}

// CreateProcess allocates a pid, constructs a process via factory, registers it in the process
// table, and fires process_created.
func (m *Machine) CreateProcess(factory func(pid int64) Addressable) (int64, Addressable) {
	pid := m.pids.Next()
	p := factory(pid)

	m.procs[pid] = p

	if m.log != nil {
		m.log.Info("process created", log.Any("pid", pid), log.String("machine", m.ID))
	}

	m.emit(EventProcessCreated, pid)

	return pid, p
}

// RegisterService names an existing process as a well-known IPC endpoint.
func (m *Machine) RegisterService(name string, p Addressable) {
	m.services[name] = p
}

// Process returns the process registered under pid, if any.
func (m *Machine) Process(pid int64) (Addressable, bool) {
	p, ok := m.procs[pid]

	return p, ok
}

// Processes returns every pid currently in the process table, in no particular order. Halted
// processes remain listed until an explicit KillProcess, matching the source's documented
// non-behavior (spec.md §9).
func (m *Machine) Processes() []int64 {
	pids := make([]int64, 0, len(m.procs))
	for pid := range m.procs {
		pids = append(pids, pid)
	}

	return pids
}

// KillProcess removes pid from the process table, fires process_killed, and invokes the process's
// kill routine, which must unregister its tick callback and fail any pending reply promise.
func (m *Machine) KillProcess(pid int64) error {
	p, ok := m.procs[pid]
	if !ok {
		return fmt.Errorf("%w: pid %d", ErrNoReceiver, pid)
	}

	delete(m.procs, pid)

	if m.log != nil {
		m.log.Info("process killed", log.Any("pid", pid), log.String("machine", m.ID))
	}

	m.emit(EventProcessKilled, pid)

	p.Kill()

	return nil
}

// SendIPC resolves target and dispatches payload to it, per spec.md §4.6's resolution order:
//  1. "HOST:REST" remote address: look up machine HOST in the universe, recurse with sender
//     rewritten as "this_machine_id:sender".
//  2. A numeric pid: dispatch to that local process.
//  3. A service name: dispatch to that local service.
//  4. Otherwise, ErrNoReceiver.
func (m *Machine) SendIPC(sender, target value.Value, payload []value.Value, reply process.ReplyFunc) error {
	targetStr := addressString(target)

	if host, rest, ok := maybeRemoteAddress(targetStr); ok {
		remote, ok := m.universe.Machine(host)
		if !ok {
			return fmt.Errorf("%w: %q", ErrRemoteMissing, host)
		}

		rewrittenSender := value.String(m.ID + ":" + addressString(sender))

		return remote.SendIPC(rewrittenSender, value.String(rest), payload, reply)
	}

	if pid, ok := parsePid(targetStr); ok {
		if p, ok := m.procs[pid]; ok {
			p.Deliver(sender, payload, reply)

			return nil
		}
	}

	if svc, ok := m.services[targetStr]; ok {
		svc.Deliver(sender, payload, reply)

		return nil
	}

	return fmt.Errorf("%w: %q", ErrNoReceiver, targetStr)
}

// addressString renders a Value as the string form SendIPC resolves against: strings pass through,
// integers render as decimal.
func addressString(v value.Value) string {
	if v.Kind() == value.KindString {
		return v.Str()
	}

	if v.Kind() == value.KindInt {
		return strconv.FormatInt(v.Int64(), 10)
	}

	return v.String()
}

// maybeRemoteAddress splits a "HOST:REST" target. A bare pid or service name never contains ':'.
func maybeRemoteAddress(target string) (host, rest string, ok bool) {
	idx := strings.IndexByte(target, ':')
	if idx < 0 {
		return "", "", false
	}

	return target[:idx], target[idx+1:], true
}

func parsePid(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}

	return n, true
}

// interfaceProcess is an ephemeral process representing an external request inside the
// process-addressing space so replies have somewhere to go (spec.md GLOSSARY, "Interface process").
// It never executes bytecode: its embedded Process exists only to hold a pid, and Deliver is
// overridden to forward the reply straight to the host callback instead of waiting on an emulator
// that never runs.
type interfaceProcess struct {
	*process.Process
	onReply func(values []value.Value, err error)
}

func (ip *interfaceProcess) Deliver(sender value.Value, payload []value.Value, reply process.ReplyFunc) {
	if ip.onReply != nil {
		onReply := ip.onReply
		ip.onReply = nil

		onReply(payload, nil)
	}

	if reply != nil {
		reply(nil, nil)
	}
}

// StartProcess creates a short-lived interface parent process and a child process running
// program, returning the child's pid. onReply is invoked (once) with whatever the child eventually
// sends to its parent ("." in the child's own SEND/SENDI). Each call is tagged with a fresh
// correlation id, logged alongside the pids it allocates, so an operator can follow one external
// request through the log even once its interface process has been reaped.
func (m *Machine) StartProcess(program []isa.Instruction, ticker process.Ticker, onReply func([]value.Value, error)) (int64, int64) {
	requestID := uuid.New()

	ifacePid, _ := m.CreateProcess(func(pid int64) Addressable {
		base := process.New(pid, nil, newIdleEmulator(m.log), m, ticker, m.log)

		return &interfaceProcess{Process: base, onReply: onReply}
	})

	childPid, child := m.CreateProcess(func(pid int64) Addressable {
		p := process.New(pid, &ifacePid, newIdleEmulator(m.log), m, ticker, m.log)

		return p
	})

	if cp, ok := child.(*process.Process); ok {
		cp.Start(program)
	}

	if m.log != nil {
		m.log.Info("process started",
			log.String("request", requestID.String()),
			log.String("machine", m.ID),
			log.Any("interface_pid", ifacePid),
			log.Any("pid", childPid),
		)
	}

	return ifacePid, childPid
}

// CreateService creates a process running program and registers it under name as a well-known IPC
// endpoint (e.g. "fs", "sys").
func (m *Machine) CreateService(name string, program []isa.Instruction, ticker process.Ticker) int64 {
	pid, p := m.CreateProcess(func(pid int64) Addressable {
		return process.New(pid, nil, newIdleEmulator(m.log), m, ticker, m.log)
	})

	m.RegisterService(name, p)

	if cp, ok := p.(*process.Process); ok {
		cp.Start(program)
	}

	return pid
}

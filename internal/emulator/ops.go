package emulator

import (
	"fmt"

	"ssp/internal/isa"
	"ssp/internal/value"
)

// dispatch executes one instruction. Every opcode either advances ip by one, jumps to an explicit
// target, or halts/blocks the emulator; dispatch itself never advances ip after a jump, block, or
// halt, since those paths set ip (or status) to their final value directly.
func (e *Emulator) dispatch(in isa.Instruction) {
	switch in.Op {
	case isa.NOP:
		e.ip++
	case isa.PUSH:
		e.push(in.Param())
		e.ip++
	case isa.SEND:
		e.execSend(in, true)
	case isa.SENDI:
		e.execSend(in, false)
	case isa.SWAP:
		e.execSwap()
	case isa.DUP:
		e.execDup(in)
	case isa.APPEND:
		e.execAppend(in)
	case isa.POP:
		e.execPop(in)
	case isa.ADD:
		e.execBinary(value.Add)
	case isa.SUB:
		e.execBinary(value.Sub)
	case isa.MUL:
		e.execBinary(value.Mul)
	case isa.DIV:
		e.execDiv()
	case isa.RECV:
		e.block(Recv, 0)
	case isa.LISTEN:
		e.block(Listen, in.Param().Int64())
	case isa.DICT:
		e.execDict(in)
	case isa.LIST:
		e.execList(in)
	case isa.PUT:
		e.execPut(in)
	case isa.LOOKUP:
		e.execLookup(in)
	case isa.LEN:
		e.execLen()
	case isa.GT:
		e.execCompare(func(f float64) bool { return f > 0 })
	case isa.LT:
		e.execCompare(func(f float64) bool { return f < 0 })
	case isa.ZERO:
		e.execZero()
	case isa.JI:
		e.execJump(in.Param(), true)
	case isa.JN:
		e.execJump(in.Param(), false)
	case isa.JMP:
		e.jump(in.Param())
	default:
		e.fault(fmt.Errorf("%w: %s", ErrUnknownOp, in.Op))
	}
}

// argOrPop returns an instruction's literal parameter if it has one, else pops the argument from
// the stack: the "0-arg form" the language permits for most parameterized opcodes.
func (e *Emulator) argOrPop(in isa.Instruction) (value.Value, bool) {
	if len(in.Params) > 0 {
		return in.Params[0], true
	}

	return e.pop()
}

func (e *Emulator) block(reason BlockingReason, n int64) {
	e.status = BLOCKED
	e.reason = reason
	e.listenN = n
	e.ip++

	if e.hooks.OnBlock != nil {
		e.hooks.OnBlock(reason)
	}
}

// execSend implements both SEND (blocking=true) and SENDI (blocking=false). In the 0-arg form the
// payload list is popped from the stack instead of read from the instruction; either way the
// first list element is the target, the remainder the payload.
func (e *Emulator) execSend(in isa.Instruction, blocking bool) {
	list, ok := e.argOrPop(in)
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	if list.Kind() != value.KindList {
		e.fault(fmt.Errorf("%w: SEND/SENDI requires a list argument, got %s", ErrType, list.Kind()))

		return
	}

	items := list.Items()
	if len(items) == 0 {
		e.fault(fmt.Errorf("%w: SEND/SENDI requires a non-empty list", ErrType))

		return
	}

	target := items[0]
	payload := items[1:]

	e.ip++

	if e.hooks.OnSend != nil {
		e.hooks.OnSend(target, payload)
	}

	if blocking {
		e.status = BLOCKED
		e.reason = SendResp

		if e.hooks.OnBlock != nil {
			e.hooks.OnBlock(SendResp)
		}
	}
}

func (e *Emulator) execSwap() {
	n := len(e.stack)
	if n < 2 {
		e.fault(ErrUnderflow)

		return
	}

	e.stack[n-1], e.stack[n-2] = e.stack[n-2], e.stack[n-1]
	e.ip++
}

// execDup pushes a copy of the value at offset n from the top, where n <= -1 and -1 is the top
// itself. This negative-offset convention is the spec's, left unnormalized relative to POP's
// non-negative depth.
func (e *Emulator) execDup(in isa.Instruction) {
	arg, ok := e.argOrPop(in)
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	n := arg.Int64()
	if n > -1 {
		e.fault(fmt.Errorf("%w: DUP offset must be <= -1, got %d", ErrType, n))

		return
	}

	idx := len(e.stack) + int(n)
	if idx < 0 || idx >= len(e.stack) {
		e.fault(fmt.Errorf("%w: DUP offset %d out of range", ErrUnderflow, n))

		return
	}

	e.push(e.stack[idx])
	e.ip++
}

func (e *Emulator) execAppend(in isa.Instruction) {
	arg, ok := e.argOrPop(in)
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	n := int(arg.Int64())

	values, ok := e.popN(n)
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	list, ok := e.pop()
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	result, err := list.Append(values...)
	if err != nil {
		e.fault(err)

		return
	}

	e.push(result)
	e.ip++
}

func (e *Emulator) execPop(in isa.Instruction) {
	arg, ok := e.argOrPop(in)
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	n := int(arg.Int64())

	if _, ok := e.popN(n); !ok {
		e.fault(ErrUnderflow)

		return
	}

	e.ip++
}

func (e *Emulator) execBinary(op func(a, b value.Value) (value.Value, error)) {
	b, ok1 := e.pop()
	a, ok2 := e.pop()

	if !ok1 || !ok2 {
		e.fault(ErrUnderflow)

		return
	}

	result, err := op(a, b)
	if err != nil {
		e.fault(err)

		return
	}

	e.push(result)
	e.ip++
}

func (e *Emulator) execDiv() {
	b, ok1 := e.pop()
	a, ok2 := e.pop()

	if !ok1 || !ok2 {
		e.fault(ErrUnderflow)

		return
	}

	result, err := value.Div(a, b)
	if err != nil {
		e.fault(err)

		return
	}

	e.push(result)
	e.ip++
}

func (e *Emulator) execList(in isa.Instruction) {
	arg, ok := e.argOrPop(in)
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	n := int(arg.Int64())

	items, ok := e.popN(n)
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	e.push(value.List(items...))
	e.ip++
}

func (e *Emulator) execDict(in isa.Instruction) {
	arg, ok := e.argOrPop(in)
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	n := int(arg.Int64())

	items, ok := e.popN(2 * n)
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	pairs := make(map[value.MapKey]value.Value, n)

	for i := 0; i < n; i++ {
		k, v := items[2*i], items[2*i+1]

		mk, err := value.KeyOf(k)
		if err != nil {
			e.fault(err)

			return
		}

		pairs[mk] = v
	}

	e.push(value.Dict(pairs))
	e.ip++
}

// execPut pops 2n key/value pairs, then the mapping underneath, merges the pairs into it, and
// pushes the updated mapping back on top: the net effect is a mapping with the pairs merged in ends
// up on top, per the chosen PUT semantics (see DESIGN.md).
func (e *Emulator) execPut(in isa.Instruction) {
	arg, ok := e.argOrPop(in)
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	n := int(arg.Int64())

	items, ok := e.popN(2 * n)
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	dict, ok := e.pop()
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	pairs := make(map[value.MapKey]value.Value, n)

	for i := 0; i < n; i++ {
		k, v := items[2*i], items[2*i+1]

		mk, err := value.KeyOf(k)
		if err != nil {
			e.fault(err)

			return
		}

		pairs[mk] = v
	}

	result, err := dict.Put(pairs)
	if err != nil {
		e.fault(err)

		return
	}

	e.push(result)
	e.ip++
}

func (e *Emulator) execLookup(in isa.Instruction) {
	key, ok1 := e.argOrPop(in)
	container, ok2 := e.pop()

	if !ok1 || !ok2 {
		e.fault(ErrUnderflow)

		return
	}

	result, err := container.Lookup(key)
	if err != nil {
		e.fault(err)

		return
	}

	e.push(result)
	e.ip++
}

func (e *Emulator) execLen() {
	top, ok := e.pop()
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	n, err := top.Len()
	if err != nil {
		e.fault(err)

		return
	}

	e.push(value.Int(int64(n)))
	e.ip++
}

func (e *Emulator) execCompare(pred func(float64) bool) {
	top, ok := e.pop()
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	if !top.Numeric() {
		e.fault(fmt.Errorf("%w: comparison requires a numeric operand, got %s", ErrType, top.Kind()))

		return
	}

	e.push(value.Bool(pred(top.Float64())))
	e.ip++
}

// execZero pushes whether the popped top equals zero. A non-numeric top is simply not zero: ZERO
// never faults on type, unlike the other numeric ops.
func (e *Emulator) execZero() {
	top, ok := e.pop()
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	if !top.Numeric() {
		e.push(value.Bool(false))
		e.ip++

		return
	}

	isZero, _ := top.Zero()

	e.push(value.Bool(isZero))
	e.ip++
}

func (e *Emulator) execJump(target value.Value, onTrue bool) {
	top, ok := e.pop()
	if !ok {
		e.fault(ErrUnderflow)

		return
	}

	if top.Truthy() == onTrue {
		e.jump(target)
	} else {
		e.ip++
	}
}

// jump installs target as ip, faulting instead of installing it when it falls outside
// [0,len(program)). A program ending normally still runs off the end through SingleStep's ordinary
// post-dispatch halt; only an explicit out-of-range jump target takes the error path.
func (e *Emulator) jump(target value.Value) {
	n := int(target.Int64())
	if n < 0 || n >= len(e.program) {
		e.fault(fmt.Errorf("%w: jump target %d, len=%d", ErrOutOfRange, n, len(e.program)))

		return
	}

	e.ip = n
}

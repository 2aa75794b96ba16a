package universe_test

import (
	"log/slog"
	"testing"
	"time"

	. "ssp/internal/universe"
	"ssp/internal/isa"
	"ssp/internal/log"
	"ssp/internal/value"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func discardLogger() *log.Logger {
	return slog.New(slog.NewTextHandler(discard{}, log.Options))
}

func TestTickRunsInRegistrationOrder(t *testing.T) {
	u := New(discardLogger())

	var order []int

	for i := 0; i < 5; i++ {
		i := i
		u.RegisterTick(func() { order = append(order, i) })
	}

	u.Tick()

	for i, got := range order {
		if got != i {
			t.Fatalf("tick order = %v, want registration order 0..4", order)
		}
	}
}

func TestStartProcessRunsAcrossTicks(t *testing.T) {
	u := New(discardLogger())

	m, err := u.CreateMachine()
	if err != nil {
		t.Fatalf("CreateMachine: %s", err)
	}

	done := make(chan struct{})

	var (
		gotValues []value.Value
		gotErr    error
	)

	// A program that immediately sends "hi" to its parent process ("."), no LISTEN needed.
	program := []isa.Instruction{
		{Op: isa.PUSH, Params: []value.Value{value.String(".")}},
		{Op: isa.PUSH, Params: []value.Value{value.String("hi")}},
		{Op: isa.LIST, Params: []value.Value{value.Int(2)}},
		{Op: isa.SENDI},
	}

	m.StartProcess(program, u, func(values []value.Value, err error) {
		gotValues, gotErr = values, err
		close(done)
	})

	deadline := time.After(time.Second)

	for {
		select {
		case <-done:
			if gotErr != nil {
				t.Fatalf("reply error: %s", gotErr)
			}

			if len(gotValues) != 1 || !gotValues[0].Equal(value.String("hi")) {
				t.Fatalf("reply = %v, want [hi]", gotValues)
			}

			return
		case <-deadline:
			t.Fatal("timed out waiting for reply")
		default:
			u.Tick()
		}
	}
}

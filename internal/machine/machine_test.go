package machine_test

import (
	"log/slog"
	"testing"

	. "ssp/internal/machine"
	"ssp/internal/log"
	"ssp/internal/process"
	"ssp/internal/value"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func discardLogger() *log.Logger {
	return slog.New(slog.NewTextHandler(discard{}, log.Options))
}

type stubResolver struct {
	machines map[string]*Machine
}

func (r stubResolver) Machine(id string) (*Machine, bool) {
	m, ok := r.machines[id]
	return m, ok
}

type recordingAddressable struct {
	delivered []value.Value
}

func (r *recordingAddressable) Deliver(sender value.Value, payload []value.Value, reply process.ReplyFunc) {
	r.delivered = append(r.delivered, payload...)
}

func (r *recordingAddressable) Kill() {}

func TestSendIPCServiceNameResolution(t *testing.T) {
	m, err := New(stubResolver{}, discardLogger())
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	svc := &recordingAddressable{}
	m.RegisterService("fs", svc)

	if err := m.SendIPC(value.Int(1), value.String("fs"), []value.Value{value.Int(42)}, nil); err != nil {
		t.Fatalf("SendIPC: %s", err)
	}

	if len(svc.delivered) != 1 || !svc.delivered[0].Equal(value.Int(42)) {
		t.Fatalf("delivered = %v, want [42]", svc.delivered)
	}
}

func TestSendIPCNoReceiver(t *testing.T) {
	m, err := New(stubResolver{}, discardLogger())
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	err = m.SendIPC(value.Int(1), value.String("nobody"), nil, nil)
	if err == nil {
		t.Fatal("want ErrNoReceiver, got nil")
	}
}

func TestSendIPCRemoteAddress(t *testing.T) {
	resolver := stubResolver{machines: map[string]*Machine{}}

	remote, err := New(resolver, discardLogger())
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	resolver.machines[remote.ID] = remote

	svc := &recordingAddressable{}
	remote.RegisterService("fs", svc)

	local, err := New(resolver, discardLogger())
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	target := value.String(remote.ID + ":fs")

	if err := local.SendIPC(value.Int(7), target, []value.Value{value.Int(1)}, nil); err != nil {
		t.Fatalf("SendIPC: %s", err)
	}

	if len(svc.delivered) != 1 {
		t.Fatalf("delivered = %v, want one item", svc.delivered)
	}
}

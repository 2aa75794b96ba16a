// Package tty_test tries to test ttys.
//
// The test is skipped when stdin is not a terminal (ErrNoTTY). Notably, this includes when run with
// "go test" because it redirects tests' standard input/output streams. You can test it by building
// a test binary and running it directly:
//
//	$ go test -c && ./tty.test
package tty_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ssp/internal/tty"
)

type testHarness struct {
	*testing.T
}

const timeout = 100 * time.Millisecond

func (testHarness) Context() (context.Context, context.CancelFunc) {
	ctx := context.Background()
	return context.WithTimeoutCause(ctx, timeout, context.DeadlineExceeded)
}

func TestConsole(tt *testing.T) {
	t := testHarness{tt}

	ctx, cancel := t.Context()
	defer cancel()

	ctx, console, cancel := tty.ConsoleContext(ctx)
	defer cancel()

	if err := context.Cause(ctx); errors.Is(err, tty.ErrNoTTY) {
		t.Skipf("error: %s", context.Cause(ctx))
		t.SkipNow()
	}

	select {
	case <-ctx.Done():
	case <-console.Keys():
	case <-time.After(timeout):
	}
}

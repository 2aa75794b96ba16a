// Package idgen generates the identifiers the runtime hands out: increasing integer counters for
// pids and tick ids, and random charset strings for machine ids and secrets.
package idgen

import (
	"crypto/rand"
	"fmt"
)

// Counter is an increasing integer id generator starting at a configurable base. It is not safe
// for concurrent use; callers in this codebase only ever touch one from the single-threaded
// scheduler goroutine.
type Counter struct {
	next int64
}

// NewCounter creates a Counter whose first Next() returns base.
func NewCounter(base int64) *Counter {
	return &Counter{next: base}
}

// Next returns the next id and advances the counter.
func (c *Counter) Next() int64 {
	id := c.next
	c.next++

	return id
}

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString returns a random string of length n drawn from [A-Z0-9], using crypto/rand so
// machine ids and secrets are not guessable. Length is spec-defined: 20 for machine ids, 40 for
// machine secrets.
func RandomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("idgen: reading random bytes: %w", err)
	}

	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}

	return string(out), nil
}

// MustRandomString is RandomString but panics on error, for call sites during startup where a
// failure to read the system CSPRNG is unrecoverable anyway.
func MustRandomString(n int) string {
	s, err := RandomString(n)
	if err != nil {
		panic(err)
	}

	return s
}

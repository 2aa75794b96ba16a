// Package universe implements the root scheduler: it owns every machine and drives the cooperative
// tick loop that advances all of their processes.
package universe

import (
	"fmt"
	"sort"
	"sync"

	"ssp/internal/idgen"
	"ssp/internal/log"
	"ssp/internal/machine"
)

// TickBase is the first tick id ever allocated.
const TickBase = 1337

// MachineIDLength is the length of a random machine id.
const MachineIDLength = 20

// DefaultTickRate is the scheduler's default drive rate, in Hz.
const DefaultTickRate = 10

// Universe owns every machine and the tick table that drives them.
type Universe struct {
	mu sync.Mutex

	machines map[string]*machine.Machine
	ticks    map[int64]func()
	tickIDs  *idgen.Counter

	log *log.Logger
}

// New creates an empty Universe.
func New(logger *log.Logger) *Universe {
	return &Universe{
		machines: make(map[string]*machine.Machine),
		ticks:    make(map[int64]func()),
		tickIDs:  idgen.NewCounter(TickBase),
		log:      logger,
	}
}

// CreateMachine allocates a new tenant machine.
func (u *Universe) CreateMachine() (*machine.Machine, error) {
	m, err := machine.New(u, u.log)
	if err != nil {
		return nil, fmt.Errorf("universe: creating machine: %w", err)
	}

	u.mu.Lock()
	u.machines[m.ID] = m
	u.mu.Unlock()

	if u.log != nil {
		u.log.Info("machine created", log.String("machine", m.ID))
	}

	return m, nil
}

// RemoveMachine deletes a machine from the universe. It does not kill the machine's processes;
// callers should do so first if a clean shutdown is wanted.
func (u *Universe) RemoveMachine(id string) {
	u.mu.Lock()
	delete(u.machines, id)
	u.mu.Unlock()
}

// Machine looks up a machine by id, implementing machine.Resolver for remote address routing.
func (u *Universe) Machine(id string) (*machine.Machine, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	m, ok := u.machines[id]

	return m, ok
}

// RegisterTick adds a callback to the tick table, returning its id. Implements process.Ticker
// directly, so a process can register/unregister itself with the universe as it blocks and resumes.
func (u *Universe) RegisterTick(cb func()) int64 {
	u.mu.Lock()
	defer u.mu.Unlock()

	id := u.tickIDs.Next()
	u.ticks[id] = cb

	return id
}

// UnregisterTick removes a callback from the tick table.
func (u *Universe) UnregisterTick(id int64) {
	u.mu.Lock()
	defer u.mu.Unlock()

	delete(u.ticks, id)
}

// Tick runs one scheduler iteration: every registered callback, in a snapshot taken at entry, gets
// one turn in tick-registration order (ascending tick id, since ids are handed out by a monotonic
// counter). Callbacks registered during this tick run only on the next one. A callback that panics
// is recovered and logged so one faulty process cannot crash the loop.
func (u *Universe) Tick() {
	u.mu.Lock()
	ids := make([]int64, 0, len(u.ticks))
	for id := range u.ticks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	snapshot := make([]func(), 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, u.ticks[id])
	}
	u.mu.Unlock()

	for _, cb := range snapshot {
		u.runTick(cb)
	}
}

func (u *Universe) runTick(cb func()) {
	defer func() {
		if r := recover(); r != nil && u.log != nil {
			u.log.Error("tick callback panicked", log.Any("recovered", r))
		}
	}()

	cb()
}

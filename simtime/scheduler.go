// Package simtime is the discrete-event scheduler seam: virtual time,
// delayed callbacks and cancellation. The scheduler is treated as an
// external collaborator ("now", "schedule_after", cancellation of pending
// events) normally provided by a surrounding network simulator; this
// package supplies a standard-library reference implementation of that
// boundary (see DESIGN.md) good enough to drive and test the rest of the
// module single-threaded and deterministically.
package simtime

import (
	"fmt"

	"github.com/google/uuid"
)

// EventID is a cancellation handle for a scheduled callback. The zero value
// never matches a live event, so Cancel is a safe no-op on it.
type EventID uint64

// Scheduler is the seam the rest of this module programs against. A single
// implementation drives everything: there is no preemption, and handlers
// always run to completion on the thread that calls Run/RunUntil.
type Scheduler interface {
	// Now returns the current virtual time.
	Now() Time
	// ScheduleAfter runs fn at Now()+d. Returns a handle that Cancel can
	// use to suppress the call if it has not fired yet.
	ScheduleAfter(d Duration, fn func()) EventID
	// Cancel suppresses a pending event. Idempotent: cancelling an
	// already-fired or already-cancelled id is a no-op.
	Cancel(id EventID)
}

// Time is virtual simulation time, measured in the smallest representable
// tick (see Epsilon).
type Time int64

// Duration is a span of virtual time in the same unit as Time.
type Duration int64

// Epsilon is the minimum representable tick, used by the stagger-send rule
// to give same-instant sends distinct timestamps.
const Epsilon Duration = 1

// Context bundles a Scheduler with the monotonically increasing counters
// (xid, datapath id, serial numbers) so that they are scoped
// per simulation run instead of process-wide globals. RunID distinguishes
// contexts when more than one simulation executes in the same process
// (e.g. parallel test runs).
type Context struct {
	Scheduler
	RunID uuid.UUID

	xid      uint32
	serial   uint32
	datapath uint64
}

// NewContext wraps a Scheduler with a fresh set of counters.
func NewContext(s Scheduler) *Context {
	return &Context{Scheduler: s, RunID: uuid.New()}
}

// NextXid returns the next transaction id for messages originated by this
// context (a connection normally owns one Context-derived counter).
func (c *Context) NextXid() uint32 {
	c.xid++
	return c.xid
}

// NextSerial returns the next serial number (used for group/meter ids and
// other monotonic counters outside the xid space).
func (c *Context) NextSerial() uint32 {
	c.serial++
	return c.serial
}

// NextDatapathID allocates a 48-bit-plus-padding datapath id by combining a MAC-like base with this context's
// monotonic counter; real deployments seed base from a port's hardware
// address instead.
func (c *Context) NextDatapathID(base uint64) uint64 {
	c.datapath++
	return base + c.datapath
}

func (t Time) String() string {
	return fmt.Sprintf("%dtk", int64(t))
}

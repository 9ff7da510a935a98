package flowtable

import (
	"fmt"
	"sort"

	"github.com/jaredivey/ns-3-sdn/ofp10"
	"github.com/jaredivey/ns-3-sdn/simtime"
)

// RemovedFunc is invoked whenever a flow leaves the table, whether by
// timeout or explicit delete with the send-flow-removed flag set.
type RemovedFunc func(f *Flow, reason ofp10.FlowRemovedReason)

// Table is a single OpenFlow 1.0 flow table: flows ordered by priority
// (highest first), ties broken by insertion order, so Lookup always
// finds the same entry a strictly-sorted scan would.
type Table struct {
	id       uint8
	sched    simtime.Scheduler
	onRemove RemovedFunc
	flows    []*Flow
	nextSeq  uint64

	LookupCount  uint64
	MatchedCount uint64
}

func New(id uint8, sched simtime.Scheduler, onRemove RemovedFunc) *Table {
	return &Table{id: id, sched: sched, onRemove: onRemove}
}

func (t *Table) TableID() uint8 { return t.id }

// sortFlows keeps flows ordered by descending priority, insertion order
// as the tiebreak (stable sort preserves relative order of equal keys).
func (t *Table) sortFlows() {
	sort.SliceStable(t.flows, func(i, j int) bool {
		return t.flows[i].Priority > t.flows[j].Priority
	})
}

// conflicts reports whether existing overlaps a candidate flow's match
// under CHECK_OVERLAP semantics: same priority and one match at least as
// general as the other.
func conflicts(existing *Flow, priority uint16, m *ofp10.Match) bool {
	if existing.Priority != priority {
		return false
	}
	return ofp10.NonStrictMatch(&existing.Match, m) || ofp10.NonStrictMatch(m, &existing.Match)
}

var ErrOverlap = fmt.Errorf("flowtable: overlapping flow at same priority")

// Add installs a new flow. When checkOverlap is set (FlowMod's
// CHECK_OVERLAP flag) and an existing same-priority flow's match is at
// least as general as the new one's, or the new one's is at least as
// general as it, the add is rejected with ErrOverlap instead
// of silently shadowing an entry.
func (t *Table) Add(f *Flow, checkOverlap bool) error {
	if checkOverlap {
		for _, existing := range t.flows {
			if conflicts(existing, f.Priority, &f.Match) {
				return ErrOverlap
			}
		}
	}
	f.TableID = t.id
	f.InstallTime = t.sched.Now()
	t.nextSeq++
	f.insertSeq = t.nextSeq
	t.scheduleTimers(f)
	t.flows = append(t.flows, f)
	t.sortFlows()
	return nil
}

func (t *Table) scheduleTimers(f *Flow) {
	if f.IdleTimeout > 0 {
		f.idleTimer = t.sched.ScheduleAfter(simtime.Duration(f.IdleTimeout)*1_000_000_000, func() {
			t.evict(f, ofp10.ReasonIdleTimeout)
		})
	}
	if f.HardTimeout > 0 {
		f.hardTimer = t.sched.ScheduleAfter(simtime.Duration(f.HardTimeout)*1_000_000_000, func() {
			t.evict(f, ofp10.ReasonHardTimeout)
		})
	}
}

func (t *Table) cancelTimers(f *Flow) {
	t.sched.Cancel(f.idleTimer)
	t.sched.Cancel(f.hardTimer)
}

func (t *Table) evict(f *Flow, reason ofp10.FlowRemovedReason) {
	for i, existing := range t.flows {
		if existing == f {
			t.flows = append(t.flows[:i], t.flows[i+1:]...)
			break
		}
	}
	t.cancelTimers(f)
	if t.onRemove != nil && (reason != ofp10.ReasonDelete || f.Flags&ofp10.FlagSendFlowRem != 0) {
		t.onRemove(f, reason)
	}
}

// ModifyStrict replaces the action list and cookie of the one flow whose
// match is identical to m at priority; the flow's idle/hard timeouts and
// its pending timers are left unchanged. Matching
// entries that don't exist are silently ignored by OFPFC_MODIFY_STRICT
// per the OpenFlow spec's "no-op if absent" rule.
func (t *Table) ModifyStrict(m *ofp10.Match, priority uint16, actions []ofp10.Action, cookie uint64) {
	for _, f := range t.flows {
		if f.Priority == priority && ofp10.StrictMatch(&f.Match, m) {
			f.Actions = actions
			f.Cookie = cookie
		}
	}
}

// Modify replaces the action list of every flow m is at least as general
// as (non-strict), regardless of priority.
func (t *Table) Modify(m *ofp10.Match, actions []ofp10.Action, cookie uint64) {
	for _, f := range t.flows {
		if ofp10.NonStrictMatch(m, &f.Match) {
			f.Actions = actions
			f.Cookie = cookie
		}
	}
}

// DeleteStrict removes the one flow whose match and priority are
// identical to m/priority.
func (t *Table) DeleteStrict(m *ofp10.Match, priority uint16) {
	for _, f := range append([]*Flow(nil), t.flows...) {
		if f.Priority == priority && ofp10.StrictMatch(&f.Match, m) {
			t.evict(f, ofp10.ReasonDelete)
		}
	}
}

// Delete removes every flow m is at least as general as (non-strict).
func (t *Table) Delete(m *ofp10.Match) {
	for _, f := range append([]*Flow(nil), t.flows...) {
		if ofp10.NonStrictMatch(m, &f.Match) {
			t.evict(f, ofp10.ReasonDelete)
		}
	}
}

// MatchingFlows returns every flow whose match m is non-strictly at
// least as general as (strict=false), or exactly equal to (strict=true),
// used by stats requests rather than packet lookup.
func (t *Table) MatchingFlows(m *ofp10.Match, strict bool) []*Flow {
	var out []*Flow
	for _, f := range t.flows {
		if strict {
			if ofp10.StrictMatch(&f.Match, m) {
				out = append(out, f)
			}
		} else if ofp10.NonStrictMatch(m, &f.Match) {
			out = append(out, f)
		}
	}
	return out
}

// Lookup implements the core of handlePacket's step 2-3: walk every flow,
// highest priority first, counting a lookup against each one visited.
// Every flow whose match is satisfied by pkt is touched (counters, idle
// timer reset) and returned, in priority order, for the caller to run
// actions against in turn. Returns nil on a table miss.
func (t *Table) Lookup(pkt *ofp10.Match, byteCount int) []*Flow {
	var matched []*Flow
	for _, f := range t.flows {
		t.LookupCount++
		if f.Matches(pkt) {
			t.MatchedCount++
			f.Touch(t.sched, byteCount, func() { t.evict(f, ofp10.ReasonIdleTimeout) })
			matched = append(matched, f)
		}
	}
	return matched
}

// Stats summarizes this table for a StatsReply{Type: StatsTable}.
func (t *Table) Stats() ofp10.TableStats {
	return ofp10.TableStats{
		TableID:      t.id,
		ActiveCount:  uint32(len(t.flows)),
		LookupCount:  t.LookupCount,
		MatchedCount: t.MatchedCount,
	}
}

// Flows returns the table's entries, highest priority first.
func (t *Table) Flows() []*Flow { return t.flows }

// Package flowtable13 implements the OpenFlow 1.3 multi-table pipeline:
// 64 flow tables chained by GoToTable, an accumulating action set,
// and a group table. Storage and eviction mirror package flowtable's
// priority-ordered design (itself grounded on SdnFlowTable.h); the
// pipeline-execution loop is new, since OF1.0 has no multi-table
// re-entrancy to draw from.
package flowtable13

import (
	"fmt"
	"sort"

	"github.com/jaredivey/ns-3-sdn/ofp13"
	"github.com/jaredivey/ns-3-sdn/simtime"
)

// Flow is one installed flow entry in one table of the pipeline.
type Flow struct {
	TableID      uint8
	Priority     uint16
	Cookie       uint64
	Match        ofp13.Match
	Instructions ofp13.InstructionSet
	IdleTimeout  uint16
	HardTimeout  uint16
	Flags        uint16

	InstallTime simtime.Time
	PacketCount uint64
	ByteCount   uint64

	insertSeq uint64

	idleTimer simtime.EventID
	hardTimer simtime.EventID
}

func (f *Flow) Matches(pkt *ofp13.Match) bool {
	return ofp13.PktMatch(&f.Match, pkt)
}

// RemovedFunc is invoked whenever a flow leaves a table.
type RemovedFunc func(f *Flow, reason ofp13.FlowRemovedReason)

// Table is one table of the pipeline, storage identical in shape to
// package flowtable's Table.
type Table struct {
	id       uint8
	sched    simtime.Scheduler
	onRemove RemovedFunc
	flows    []*Flow
	nextSeq  uint64

	LookupCount  uint64
	MatchedCount uint64
}

func newTable(id uint8, sched simtime.Scheduler, onRemove RemovedFunc) *Table {
	return &Table{id: id, sched: sched, onRemove: onRemove}
}

func (t *Table) sortFlows() {
	sort.SliceStable(t.flows, func(i, j int) bool {
		return t.flows[i].Priority > t.flows[j].Priority
	})
}

var ErrOverlap = fmt.Errorf("flowtable13: overlapping flow at same priority")

func conflicts(existing *Flow, priority uint16, m *ofp13.Match) bool {
	if existing.Priority != priority {
		return false
	}
	return ofp13.NonStrictMatch(&existing.Match, m) || ofp13.NonStrictMatch(m, &existing.Match)
}

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
			t.evict(f, ofp13.ReasonIdleTimeout)
		})
	}
	if f.HardTimeout > 0 {
		f.hardTimer = t.sched.ScheduleAfter(simtime.Duration(f.HardTimeout)*1_000_000_000, func() {
			t.evict(f, ofp13.ReasonHardTimeout)
		})
	}
}

func (t *Table) cancelTimers(f *Flow) {
	t.sched.Cancel(f.idleTimer)
	t.sched.Cancel(f.hardTimer)
}

func (t *Table) evict(f *Flow, reason ofp13.FlowRemovedReason) {
	for i, existing := range t.flows {
		if existing == f {
			t.flows = append(t.flows[:i], t.flows[i+1:]...)
			break
		}
	}
	t.cancelTimers(f)
	if t.onRemove != nil && (reason != ofp13.ReasonDelete || ofp13.FlowModFlags(f.Flags)&ofp13.FlagSendFlowRem != 0) {
		t.onRemove(f, reason)
	}
}

func (t *Table) ModifyStrict(m *ofp13.Match, priority uint16, instr ofp13.InstructionSet, cookie uint64) {
	for _, f := range t.flows {
		if f.Priority == priority && ofp13.StrictMatch(&f.Match, m) {
			f.Instructions = instr
			f.Cookie = cookie
		}
	}
}

func (t *Table) Modify(m *ofp13.Match, instr ofp13.InstructionSet, cookie uint64) {
	for _, f := range t.flows {
		if ofp13.NonStrictMatch(m, &f.Match) {
			f.Instructions = instr
			f.Cookie = cookie
		}
	}
}

func (t *Table) DeleteStrict(m *ofp13.Match, priority uint16) {
	for _, f := range append([]*Flow(nil), t.flows...) {
		if f.Priority == priority && ofp13.StrictMatch(&f.Match, m) {
			t.evict(f, ofp13.ReasonDelete)
		}
	}
}

func (t *Table) Delete(m *ofp13.Match) {
	for _, f := range append([]*Flow(nil), t.flows...) {
		if ofp13.NonStrictMatch(m, &f.Match) {
			t.evict(f, ofp13.ReasonDelete)
		}
	}
}

func (t *Table) MatchingFlows(m *ofp13.Match, strict bool) []*Flow {
	var out []*Flow
	for _, f := range t.flows {
		if strict {
			if ofp13.StrictMatch(&f.Match, m) {
				out = append(out, f)
			}
		} else if ofp13.NonStrictMatch(m, &f.Match) {
			out = append(out, f)
		}
	}
	return out
}

// lookup walks every flow in the table, highest priority first, counting
// a lookup against each one visited, and returns every flow satisfied by
// pkt in that same order (nil on a table miss). Does not touch counters;
// Pipeline.Execute does that as it processes each match's instructions.
func (t *Table) lookup(pkt *ofp13.Match) []*Flow {
	var matched []*Flow
	for _, f := range t.flows {
		t.LookupCount++
		if f.Matches(pkt) {
			matched = append(matched, f)
		}
	}
	return matched
}

func (t *Table) touch(f *Flow, byteCount int) {
	t.MatchedCount++
	f.PacketCount++
	f.ByteCount += uint64(byteCount)
	if f.IdleTimeout > 0 {
		t.sched.Cancel(f.idleTimer)
		f.idleTimer = t.sched.ScheduleAfter(simtime.Duration(f.IdleTimeout)*1_000_000_000, func() {
			t.evict(f, ofp13.ReasonIdleTimeout)
		})
	}
}

func (t *Table) Stats() ofp13.TableStats {
	return ofp13.TableStats{
		TableID:      t.id,
		ActiveCount:  uint32(len(t.flows)),
		LookupCount:  t.LookupCount,
		MatchedCount: t.MatchedCount,
	}
}

func (t *Table) Flows() []*Flow { return t.flows }
func (t *Table) TableID() uint8 { return t.id }

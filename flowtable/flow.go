// Package flowtable implements the OpenFlow 1.0 single-table flow store
// and the packet-handling algorithm a switch runs against it: match,
// execute actions, maintain counters, and evict on timeout. Grounded on
// SdnFlowTable.h's responsibilities (handlePacket, addFlow/modifyFlow/
// deleteFlow, matchingFlows, table stats, idle/hard timeout events), with
// its set-sorted-by-priority storage replaced by an explicit slice kept
// sorted on insert (this module has no std::set equivalent worth
// reaching for outside the stdlib).
package flowtable

import (
	"github.com/jaredivey/ns-3-sdn/ofp10"
	"github.com/jaredivey/ns-3-sdn/simtime"
)

// Flow is one installed flow entry.
type Flow struct {
	TableID     uint8
	Priority    uint16
	Cookie      uint64
	Match       ofp10.Match
	Actions     []ofp10.Action
	IdleTimeout uint16
	HardTimeout uint16
	Flags       ofp10.FlowModFlags

	InstallTime simtime.Time
	PacketCount uint64
	ByteCount   uint64

	insertSeq uint64 // insertion sequence number; equal-priority order comes from sortFlows' stable sort

	idleTimer simtime.EventID
	hardTimer simtime.EventID
}

// Matches reports whether this flow matches m one-sidedly, as a packet
// would be matched against it (PktMatch semantics).
func (f *Flow) Matches(pkt *ofp10.Match) bool {
	return ofp10.PktMatch(&f.Match, pkt)
}

// Touch records a hit: bumps counters and reschedules the idle timer.
func (f *Flow) Touch(sched simtime.Scheduler, byteCount int, onIdle func()) {
	f.PacketCount++
	f.ByteCount += uint64(byteCount)
	if f.IdleTimeout == 0 {
		return
	}
	sched.Cancel(f.idleTimer)
	f.idleTimer = sched.ScheduleAfter(simtime.Duration(f.IdleTimeout)*1_000_000_000, onIdle)
}

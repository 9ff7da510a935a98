package flowtable13

import (
	"fmt"

	"github.com/jaredivey/ns-3-sdn/ofp13"
	"github.com/jaredivey/ns-3-sdn/simtime"
)

const numTables = 64

// Pipeline is a switch's full OpenFlow 1.3 processing pipeline: its
// ordered tables plus the group table those tables' GROUP actions
// reference.
type Pipeline struct {
	tables [numTables]*Table
	groups *ofp13.GroupTable
}

// New builds a pipeline with all tables present but empty, and its own
// group table, wiring onRemove to every table's evictions.
func New(sched simtime.Scheduler, onRemove RemovedFunc) *Pipeline {
	p := &Pipeline{groups: ofp13.NewGroupTable()}
	for i := range p.tables {
		p.tables[i] = newTable(uint8(i), sched, onRemove)
	}
	return p
}

// Table returns the table at id, which must be in [0, 64).
func (p *Pipeline) Table(id uint8) *Table { return p.tables[id] }

// Groups returns the pipeline's group table.
func (p *Pipeline) Groups() *ofp13.GroupTable { return p.groups }

// Result is what running a packet through the pipeline produced.
type Result struct {
	TableID   uint8
	Flow      *Flow // the last matching flow, nil on a miss
	ActionSet *ofp13.ActionSet
	Immediate []ofp13.Action // APPLY_ACTIONS entries, in encounter order
	Miss      bool
}

var ErrBadGoto = fmt.Errorf("flowtable13: GOTO_TABLE must target a higher-numbered table")

// Execute runs pkt through the pipeline starting at table 0. Within a
// table, every matching flow's instructions run, highest priority first
// (accumulating a WRITE_ACTIONS action set and executing APPLY_ACTIONS
// entries immediately, in instruction order: CLEAR_ACTIONS,
// WRITE_METADATA, WRITE_ACTIONS, APPLY_ACTIONS; METER is not acted on),
// until one carries
// GOTO_TABLE, at which point that table's scan stops and the pipeline
// advances: a lower-priority match behind a goto never runs in the table
// it was superseded out of.
func (p *Pipeline) Execute(pkt *ofp13.Match, byteCount int) (Result, error) {
	tableID := uint8(0)
	actionSet := ofp13.NewActionSet()
	var immediate []ofp13.Action

	for {
		tbl := p.tables[tableID]
		flows := tbl.lookup(pkt)
		if len(flows) == 0 {
			return Result{TableID: tableID, ActionSet: actionSet, Immediate: immediate, Miss: true}, nil
		}

		var lastFlow *Flow
		nextTable, hasGoto := uint8(0), false
		for _, flow := range flows {
			tbl.touch(flow, byteCount)
			lastFlow = flow

			if _, ok := flow.Instructions.Find(ofp13.InstructionClearActions); ok {
				actionSet.Clear()
			}
			if wm, ok := flow.Instructions.Find(ofp13.InstructionWriteMetadata); ok {
				applyMetadata(pkt, wm.Metadata, wm.MetadataMask)
			}
			if wa, ok := flow.Instructions.Find(ofp13.InstructionWriteActions); ok {
				actionSet.Write(wa.Actions)
			}
			if aa, ok := flow.Instructions.Find(ofp13.InstructionApplyActions); ok {
				immediate = append(immediate, aa.Actions...)
			}

			if goTo, ok := flow.Instructions.Find(ofp13.InstructionGotoTable); ok {
				if goTo.TableID <= tableID {
					return Result{}, ErrBadGoto
				}
				nextTable, hasGoto = goTo.TableID, true
				break
			}
		}

		if !hasGoto {
			return Result{TableID: tableID, Flow: lastFlow, ActionSet: actionSet, Immediate: immediate}, nil
		}
		tableID = nextTable
	}
}

func applyMetadata(pkt *ofp13.Match, value, mask uint64) {
	existing, _ := pkt.Find(ofp13.FieldMetadata)
	cur := bytesToU64(existing.Value)
	merged := (cur &^ mask) | (value & mask)
	pkt.Set(ofp13.FieldMetadata, u64BytesLocal(merged), nil)
}

func u64BytesLocal(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
	return b
}

func bytesToU64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

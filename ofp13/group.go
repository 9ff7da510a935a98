package ofp13

import "fmt"

// Reserved group numbers (group.go's OFPG_* constants, carried through
// unchanged: OFPG_MAX is the last usable id, OFPG_ALL/OFPG_ANY are
// wildcards never stored in a real group table).
const (
	GroupMax Uint32Group = 0xffffff00
	GroupAll Uint32Group = 0xfffffffc
	GroupAny Uint32Group = 0xffffffff
)

// Uint32Group is a group identifier.
type Uint32Group uint32

// GroupType selects a group's bucket-selection semantics.
type GroupType uint8

const (
	GroupAllType GroupType = iota // execute every bucket
	GroupSelect                   // execute exactly one bucket, load-balanced
	GroupIndirect                 // exactly one bucket, no selection algorithm
	GroupFastFailover              // first bucket; watch_port/watch_group liveness is not checked
)

// Bucket is one group action bucket: a weight (carried, but not used by
// SelectBuckets' round-robin) and an action list executed against the
// packet's action set.
type Bucket struct {
	Weight     uint16
	WatchPort  uint32
	WatchGroup uint32
	Actions    []Action
}

// Group is one entry of a switch's group table.
type Group struct {
	ID      Uint32Group
	Type    GroupType
	Buckets []Bucket

	PacketCount uint64
	ByteCount   uint64
}

// GroupTable is a switch's group table: add/modify/delete by id, with
// duplicate-add rejected the way flow installation rejects CHECK_OVERLAP
// collisions.
type GroupTable struct {
	groups map[Uint32Group]*Group
}

func NewGroupTable() *GroupTable {
	return &GroupTable{groups: make(map[Uint32Group]*Group)}
}

var ErrGroupExists = fmt.Errorf("ofp13: group already exists")
var ErrGroupNotFound = fmt.Errorf("ofp13: group not found")

// Add installs a new group. Adding over an existing id is a
// GROUP_MOD_FAILED/GROUP_EXISTS error, mirroring FlowMod's
// CHECK_OVERLAP rejection for duplicate flow adds.
func (t *GroupTable) Add(g *Group) error {
	if _, exists := t.groups[g.ID]; exists {
		return ErrGroupExists
	}
	t.groups[g.ID] = g
	return nil
}

// Modify replaces an existing group's type and buckets in place,
// preserving its counters.
func (t *GroupTable) Modify(id Uint32Group, typ GroupType, buckets []Bucket) error {
	g, ok := t.groups[id]
	if !ok {
		return ErrGroupNotFound
	}
	g.Type = typ
	g.Buckets = buckets
	return nil
}

// Delete removes a group. Deleting GroupAll removes every group.
func (t *GroupTable) Delete(id Uint32Group) {
	if id == GroupAll {
		t.groups = make(map[Uint32Group]*Group)
		return
	}
	delete(t.groups, id)
}

// Get returns a group by id.
func (t *GroupTable) Get(id Uint32Group) (*Group, bool) {
	g, ok := t.groups[id]
	return g, ok
}

// SelectBuckets returns the buckets a pipeline execution should apply
// for this group's type: all of them for GroupAllType, the first one
// for GroupIndirect/GroupFastFailover (bucket liveness is not checked),
// and a round-robin pick for
// GroupSelect using n as an external counter (e.g. a flow's hit count)
// so selection is deterministic without a random source.
func (g *Group) SelectBuckets(n uint64) []Bucket {
	switch g.Type {
	case GroupAllType:
		return g.Buckets
	case GroupIndirect, GroupFastFailover:
		if len(g.Buckets) == 0 {
			return nil
		}
		return g.Buckets[:1]
	case GroupSelect:
		if len(g.Buckets) == 0 {
			return nil
		}
		return g.Buckets[n%uint64(len(g.Buckets)) : n%uint64(len(g.Buckets))+1]
	default:
		return nil
	}
}

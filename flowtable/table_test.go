package flowtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaredivey/ns-3-sdn/ofp10"
	"github.com/jaredivey/ns-3-sdn/simtime"
)

func newTestTable() (*Table, *simtime.Queue) {
	q := simtime.NewQueue()
	return New(0, q, nil), q
}

func TestLookupReturnsEveryMatchInPriorityOrder(t *testing.T) {
	tbl, _ := newTestTable()
	low := &Flow{Priority: 10, Match: ofp10.Match{Wildcards: ^ofp10.Wildcards(0)}, Actions: []ofp10.Action{ofp10.NewOutput(1, 0)}}
	high := &Flow{Priority: 20, Match: ofp10.Match{Wildcards: ^ofp10.Wildcards(0)}, Actions: []ofp10.Action{ofp10.NewOutput(2, 0)}}
	require.NoError(t, tbl.Add(low, false))
	require.NoError(t, tbl.Add(high, false))

	got := tbl.Lookup(&ofp10.Match{InPort: 5}, 64)
	require.Len(t, got, 2)
	assert.Equal(t, uint16(20), got[0].Priority)
	assert.Equal(t, uint16(10), got[1].Priority)
	assert.EqualValues(t, 1, got[0].PacketCount)
	assert.EqualValues(t, 1, got[1].PacketCount)
	assert.EqualValues(t, 2, tbl.LookupCount)
	assert.EqualValues(t, 2, tbl.MatchedCount)
}

func TestLookupCountsEveryFlowVisitedNotJustTheMatch(t *testing.T) {
	tbl, _ := newTestTable()
	noMatch := &Flow{Priority: 20, Match: ofp10.Match{InPort: 1, Wildcards: ^ofp10.Wildcards(0) &^ ofp10.WildcardInPort}}
	wildcard := &Flow{Priority: 10, Match: ofp10.Match{Wildcards: ^ofp10.Wildcards(0)}}
	require.NoError(t, tbl.Add(noMatch, false))
	require.NoError(t, tbl.Add(wildcard, false))

	got := tbl.Lookup(&ofp10.Match{InPort: 5}, 64)
	require.Len(t, got, 1)
	assert.Equal(t, uint16(10), got[0].Priority)
	assert.EqualValues(t, 2, tbl.LookupCount)
	assert.EqualValues(t, 1, tbl.MatchedCount)
}

func TestLookupMissReturnsNil(t *testing.T) {
	tbl, _ := newTestTable()
	f := &Flow{Priority: 10, Match: ofp10.Match{InPort: 1, Wildcards: ^ofp10.Wildcards(0) &^ ofp10.WildcardInPort}}
	require.NoError(t, tbl.Add(f, false))

	assert.Empty(t, tbl.Lookup(&ofp10.Match{InPort: 5}, 64))
	assert.EqualValues(t, 1, tbl.LookupCount)
	assert.EqualValues(t, 0, tbl.MatchedCount)
}

func TestAddOverlapRejected(t *testing.T) {
	tbl, _ := newTestTable()
	exact := ofp10.Match{InPort: 1, Wildcards: ^ofp10.Wildcards(0) &^ ofp10.WildcardInPort}
	f1 := &Flow{Priority: 10, Match: exact}
	require.NoError(t, tbl.Add(f1, true))

	f2 := &Flow{Priority: 10, Match: exact}
	err := tbl.Add(f2, true)
	assert.ErrorIs(t, err, ErrOverlap)
}

func TestIdleTimeoutEvictsAndNotifies(t *testing.T) {
	var removed *Flow
	var reason ofp10.FlowRemovedReason
	q := simtime.NewQueue()
	tbl := New(0, q, func(f *Flow, r ofp10.FlowRemovedReason) { removed = f; reason = r })

	f := &Flow{Priority: 1, Match: ofp10.Match{Wildcards: ^ofp10.Wildcards(0)}, IdleTimeout: 5, Flags: ofp10.FlagSendFlowRem}
	require.NoError(t, tbl.Add(f, false))

	q.RunUntil(simtime.Time(5 * 1_000_000_000))

	require.NotNil(t, removed)
	assert.Equal(t, ofp10.ReasonIdleTimeout, reason)
	assert.Empty(t, tbl.Flows())
}

func TestDeleteStrictOnlyRemovesExactMatch(t *testing.T) {
	tbl, _ := newTestTable()
	m := ofp10.Match{InPort: 1, Wildcards: ^ofp10.Wildcards(0) &^ ofp10.WildcardInPort}
	f := &Flow{Priority: 10, Match: m}
	require.NoError(t, tbl.Add(f, false))

	other := ofp10.Match{InPort: 2, Wildcards: ^ofp10.Wildcards(0) &^ ofp10.WildcardInPort}
	tbl.DeleteStrict(&other, 10)
	assert.Len(t, tbl.Flows(), 1)

	tbl.DeleteStrict(&m, 10)
	assert.Empty(t, tbl.Flows())
}

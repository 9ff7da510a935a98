package ofcontroller

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/ofconn"
	"github.com/jaredivey/ns-3-sdn/ofp10"
	"github.com/jaredivey/ns-3-sdn/port"
	"github.com/jaredivey/ns-3-sdn/simtime"
	"github.com/jaredivey/ns-3-sdn/wire"
)

func newTestSwitch(t *testing.T, dpid uint64) (*Switch, func() []interface{}) {
	t.Helper()
	q := simtime.NewQueue()
	ctx := simtime.NewContext(q)
	local, peer := ofconn.NewSimTransportPair(1_000_000)

	var captured []interface{}
	peer.SetReceiveCallback(func(msg wire.Message) { captured = append(captured, msg) })

	conn := ofconn.New(ctx, local, common.VersionOF10)
	sw := &Switch{DatapathID: dpid, Version: common.VersionOF10, conn: conn, ctx: ctx}
	drain := func() []interface{} {
		q.Run()
		out := captured
		captured = nil
		return out
	}
	return sw, drain
}

func TestL2LearningFloodsOnUnknownDestination(t *testing.T) {
	l := NewL2Learning()
	sw, drain := newTestSwitch(t, 1)
	l.SwitchUp(sw)

	aMac := net.HardwareAddr{0, 0, 0, 0, 0, 1}
	bMac := net.HardwareAddr{0, 0, 0, 0, 0, 2}
	data := append(append([]byte{}, bMac...), aMac...)
	pkt := &ofp10.PacketIn{InPort: 1, BufferID: -1, Data: data}

	l.PacketIn(sw, pkt)
	sent := drain()
	require.Len(t, sent, 1)
	po, ok := sent[0].(*ofp10.PacketOut)
	require.True(t, ok)
	require.Len(t, po.Actions, 1)
	assert.EqualValues(t, port.PortFlood, po.Actions[0].OutPort)
}

func TestL2LearningInstallsFlowOnceDestinationKnown(t *testing.T) {
	l := NewL2Learning()
	sw, drain := newTestSwitch(t, 1)
	l.SwitchUp(sw)

	aMac := net.HardwareAddr{0, 0, 0, 0, 0, 1}
	bMac := net.HardwareAddr{0, 0, 0, 0, 0, 2}

	// B speaks first so the table learns B is on port 2.
	bToA := append(append([]byte{}, aMac...), bMac...)
	l.PacketIn(sw, &ofp10.PacketIn{InPort: 2, BufferID: -1, Data: bToA})
	drain()

	// Now A sends to B; B's location is known, so this should install a
	// flow and packet-out to port 2 instead of flooding.
	aToB := append(append([]byte{}, bMac...), aMac...)
	l.PacketIn(sw, &ofp10.PacketIn{InPort: 1, BufferID: -1, Data: aToB})
	sent := drain()

	require.Len(t, sent, 2)
	fm, ok := sent[0].(*ofp10.FlowMod)
	require.True(t, ok)
	assert.EqualValues(t, 2, fm.Actions[0].OutPort)

	po, ok := sent[1].(*ofp10.PacketOut)
	require.True(t, ok)
	assert.EqualValues(t, 2, po.Actions[0].OutPort)
}

func TestL2LearningSwitchDownClearsTable(t *testing.T) {
	l := NewL2Learning()
	sw, _ := newTestSwitch(t, 1)
	l.SwitchUp(sw)
	l.table(1)["00:00:00:00:00:01"] = 5

	l.SwitchDown(sw)
	_, ok := l.tables[1]
	assert.False(t, ok)
}

package ofswitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/flowtable13"
	"github.com/jaredivey/ns-3-sdn/netsim"
	"github.com/jaredivey/ns-3-sdn/ofconn"
	"github.com/jaredivey/ns-3-sdn/ofp13"
	"github.com/jaredivey/ns-3-sdn/port"
	"github.com/jaredivey/ns-3-sdn/simtime"
	"github.com/jaredivey/ns-3-sdn/wire"
)

func newTestSwitch13(t *testing.T) (*Switch13, *simtime.Queue, func() []wire.Message) {
	t.Helper()
	q := simtime.NewQueue()
	ctx := simtime.NewContext(q)
	local, peer := ofconn.NewSimTransportPair(1_000_000)

	var captured []wire.Message
	peer.SetReceiveCallback(func(msg wire.Message) { captured = append(captured, msg) })

	conn := ofconn.New(ctx, local, common.VersionOF13)
	sw := NewSwitch13(ctx, conn, 1)
	drain := func() []wire.Message {
		q.Run()
		out := captured
		captured = nil
		return out
	}
	return sw, q, drain
}

func TestExecuteActions13FloodSkipsInPortAndDisabledPorts(t *testing.T) {
	sw, _, _ := newTestSwitch13(t)
	in := newTestPort(1, "eth0")
	out := newTestPort(2, "eth1")
	blocked := newTestPort(3, "eth2")
	blocked.Config = port.ConfigNoFlood
	sw.AttachPort(in)
	sw.AttachPort(out)
	sw.AttachPort(blocked)

	pkt := netsim.NewPacket([]byte("hello"))
	sw.ExecuteActions([]ofp13.Action{ofp13.NewOutput(uint32(port.PortFlood), 0)}, pkt, 1)

	assert.EqualValues(t, 1, out.TxPackets)
	assert.Zero(t, blocked.TxPackets)
}

func TestExecuteActions13OutputToNormalDrops(t *testing.T) {
	sw, _, _ := newTestSwitch13(t)
	p1 := newTestPort(1, "eth0")
	sw.AttachPort(p1)

	pkt := netsim.NewPacket([]byte("hello"))
	assert.NotPanics(t, func() {
		sw.ExecuteActions([]ofp13.Action{ofp13.NewOutput(uint32(port.PortNormal), 0)}, pkt, 1)
	})
}

func TestExecuteActions13GroupExecutesSelectedBuckets(t *testing.T) {
	sw, _, _ := newTestSwitch13(t)
	target := newTestPort(2, "eth1")
	sw.AttachPort(newTestPort(1, "eth0"))
	sw.AttachPort(target)

	require.NoError(t, sw.Pipeline.Groups().Add(&ofp13.Group{
		ID:   5,
		Type: ofp13.GroupAllType,
		Buckets: []ofp13.Bucket{
			{Actions: []ofp13.Action{ofp13.NewOutput(2, 0)}},
		},
	}))

	pkt := netsim.NewPacket([]byte("hello"))
	sw.ExecuteActions([]ofp13.Action{ofp13.NewGroup(5)}, pkt, 1)

	assert.EqualValues(t, 1, target.TxPackets)
	g, ok := sw.Pipeline.Groups().Get(5)
	require.True(t, ok)
	assert.EqualValues(t, 1, g.PacketCount)
}

func TestHandleFrame13MissSendsPacketInWithData(t *testing.T) {
	sw, _, drain := newTestSwitch13(t)
	p1 := newTestPort(1, "eth0")
	sw.AttachPort(p1)

	payload := []byte{0xaa, 0xbb, 0xcc}
	pkt := netsim.NewPacket(payload)
	frame := &netsim.Frame{Packet: pkt, Src: p1.HwAddr, Dst: p1.HwAddr, Protocol: 0x0800}
	sw.HandleFrame(p1, frame)
	sent := drain()

	require.Len(t, sent, 1)
	pin, ok := sent[0].(*ofp13.PacketIn)
	require.True(t, ok)
	assert.Equal(t, ofp13.ReasonNoMatch, pin.Reason)
	assert.Equal(t, payload, pin.Data)
}

func TestHandleFrame13MatchesInstalledFlowAndOutputs(t *testing.T) {
	sw, _, _ := newTestSwitch13(t)
	p1 := newTestPort(1, "eth0")
	p2 := newTestPort(2, "eth1")
	sw.AttachPort(p1)
	sw.AttachPort(p2)

	m := ofp13.NewMatch()
	m.SetInPort(uint32(p1.Number))
	flow := &flowtable13.Flow{
		Priority:     1,
		Match:        *m,
		Instructions: ofp13.InstructionSet{ofp13.NewApplyActions([]ofp13.Action{ofp13.NewOutput(2, 0)})},
	}
	require.NoError(t, sw.Pipeline.Table(0).Add(flow, false))

	pkt := netsim.NewPacket([]byte{0xaa})
	frame := &netsim.Frame{Packet: pkt, Src: p1.HwAddr, Dst: p1.HwAddr, Protocol: 0x0800}
	sw.HandleFrame(p1, frame)

	assert.EqualValues(t, 1, p2.TxPackets)
}

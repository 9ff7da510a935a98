package ofswitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/netsim"
	"github.com/jaredivey/ns-3-sdn/ofp13"
)

func TestDispatchFlowModAddInstallsFlowInTable(t *testing.T) {
	sw, _, _ := newTestSwitch13(t)

	m := ofp13.NewMatch()
	m.SetInPort(1)
	fm := &ofp13.FlowMod{
		Header:       common.NewHeader(common.VersionOF13, ofp13.TypeFlowMod, 1),
		TableID:      0,
		Match:        m,
		Command:      ofp13.FCAdd,
		Priority:     10,
		Instructions: ofp13.InstructionSet{ofp13.NewApplyActions([]ofp13.Action{ofp13.NewOutput(2, 0)})},
	}
	sw.dispatch(fm)

	flows := sw.Pipeline.Table(0).Flows()
	require.Len(t, flows, 1)
	assert.EqualValues(t, 10, flows[0].Priority)
}

func TestDispatchGroupModAddThenDeleteRemovesGroup(t *testing.T) {
	sw, _, _ := newTestSwitch13(t)

	add := &ofp13.GroupMod{
		Header:  common.NewHeader(common.VersionOF13, ofp13.TypeGroupMod, 1),
		Command: ofp13.GCAdd,
		Type:    ofp13.GroupAllType,
		GroupID: 3,
		Buckets: []ofp13.Bucket{{Actions: []ofp13.Action{ofp13.NewOutput(1, 0)}}},
	}
	sw.dispatch(add)

	_, ok := sw.Pipeline.Groups().Get(3)
	require.True(t, ok)

	del := &ofp13.GroupMod{
		Header:  common.NewHeader(common.VersionOF13, ofp13.TypeGroupMod, 2),
		Command: ofp13.GCDelete,
		GroupID: 3,
	}
	sw.dispatch(del)

	_, ok = sw.Pipeline.Groups().Get(3)
	assert.False(t, ok)
}

func TestDispatchMultipartTableRequestRepliesWithStats(t *testing.T) {
	sw, _, drain := newTestSwitch13(t)

	req := &ofp13.MultipartRequest{
		Header: common.NewHeader(common.VersionOF13, ofp13.TypeMultipartRequest, 5),
		Type:   ofp13.MultipartTable,
	}
	sw.dispatch(req)
	sent := drain()

	require.Len(t, sent, 1)
	reply, ok := sent[0].(*ofp13.MultipartReply)
	require.True(t, ok)
	assert.Equal(t, ofp13.MultipartTable, reply.Type)
	stats, ok := reply.Body.([]ofp13.TableStats)
	require.True(t, ok)
	assert.Len(t, stats, 64)
}

func TestDispatchFlowModAddReinjectsBufferedPacket(t *testing.T) {
	sw, _, drain := newTestSwitch13(t)
	p1 := newTestPort(1, "eth0")
	p2 := newTestPort(2, "eth1")
	sw.AttachPort(p1)
	sw.AttachPort(p2)

	frame := &netsim.Frame{Packet: netsim.NewPacket([]byte{0xaa, 0xbb}), Src: p1.HwAddr, Dst: p1.HwAddr, Protocol: 0x0800}
	sw.HandleFrame(p1, frame)
	sent := drain()

	require.Len(t, sent, 1)
	pin, ok := sent[0].(*ofp13.PacketIn)
	require.True(t, ok)
	require.GreaterOrEqual(t, pin.BufferID, int32(0))

	m := ofp13.NewMatch()
	m.SetInPort(1)
	fm := &ofp13.FlowMod{
		Header:       common.NewHeader(common.VersionOF13, ofp13.TypeFlowMod, 2),
		TableID:      0,
		Match:        m,
		Command:      ofp13.FCAdd,
		Priority:     1,
		BufferID:     pin.BufferID,
		Instructions: ofp13.InstructionSet{ofp13.NewApplyActions([]ofp13.Action{ofp13.NewOutput(2, 0)})},
	}
	sw.dispatch(fm)

	assert.EqualValues(t, 1, p2.TxPackets)
	assert.Zero(t, sw.Buffers.Len())
}

func TestDispatchPacketOutWithInlineDataExecutesActions(t *testing.T) {
	sw, _, _ := newTestSwitch13(t)
	p1 := newTestPort(1, "eth0")
	p2 := newTestPort(2, "eth1")
	sw.AttachPort(p1)
	sw.AttachPort(p2)

	po := &ofp13.PacketOut{
		Header:   common.NewHeader(common.VersionOF13, ofp13.TypePacketOut, 6),
		BufferID: -1,
		InPort:   1,
		Actions:  []ofp13.Action{ofp13.NewOutput(2, 0)},
		Data:     []byte{0xaa, 0xbb},
	}
	sw.dispatch(po)

	assert.EqualValues(t, 1, p2.TxPackets)
}

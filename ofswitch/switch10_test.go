package ofswitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/netsim"
	"github.com/jaredivey/ns-3-sdn/ofp10"
)

func TestDispatchFlowModAddReinjectsBufferedPacket(t *testing.T) {
	sw, _, drain := newTestSwitch10WithCapture(t)
	p1 := newTestPort(1, "eth0")
	p2 := newTestPort(2, "eth1")
	sw.AttachPort(p1)
	sw.AttachPort(p2)

	payload := []byte{0xaa, 0xbb, 0xcc}
	frame := &netsim.Frame{Packet: netsim.NewPacket(payload), Src: p1.HwAddr, Dst: p1.HwAddr, Protocol: 0x0800}
	sw.HandleFrame(p1, frame)
	sent := drain()

	require.Len(t, sent, 1)
	pin, ok := sent[0].(*ofp10.PacketIn)
	require.True(t, ok)
	require.GreaterOrEqual(t, pin.BufferID, int32(0))
	assert.EqualValues(t, 1, sw.Buffers.Len())

	fm := &ofp10.FlowMod{
		Header:   common.NewHeader(common.VersionOF10, ofp10.TypeFlowMod, 1),
		Match:    ofp10.Match{InPort: 1, Wildcards: ^ofp10.Wildcards(0) &^ ofp10.WildcardInPort},
		Command:  ofp10.FCAdd,
		Priority: 1,
		BufferID: pin.BufferID,
		Actions:  []ofp10.Action{ofp10.NewOutput(2, 0)},
	}
	sw.dispatch(fm)

	assert.EqualValues(t, 1, p2.TxPackets)
	assert.Zero(t, sw.Buffers.Len())
}

func TestDispatchFlowModDeleteDoesNotReinject(t *testing.T) {
	sw, _, _ := newTestSwitch10WithCapture(t)
	p1 := newTestPort(1, "eth0")
	sw.AttachPort(p1)

	bufID, ok := sw.Buffers.Put(netsim.NewPacket([]byte{0x01}))
	require.True(t, ok)

	fm := &ofp10.FlowMod{
		Header:   common.NewHeader(common.VersionOF10, ofp10.TypeFlowMod, 1),
		Match:    ofp10.Match{InPort: 1, Wildcards: ^ofp10.Wildcards(0) &^ ofp10.WildcardInPort},
		Command:  ofp10.FCDelete,
		BufferID: bufID,
	}
	sw.dispatch(fm)

	assert.EqualValues(t, 1, sw.Buffers.Len())
}

package ofcontroller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/ofconn"
	"github.com/jaredivey/ns-3-sdn/ofp10"
	"github.com/jaredivey/ns-3-sdn/simtime"
	"github.com/jaredivey/ns-3-sdn/wire"
)

type recordingListener struct {
	up, down []uint64
	packetIn int
}

func (r *recordingListener) SwitchUp(sw *Switch)             { r.up = append(r.up, sw.DatapathID) }
func (r *recordingListener) SwitchDown(sw *Switch)           { r.down = append(r.down, sw.DatapathID) }
func (r *recordingListener) PacketIn(sw *Switch, msg wire.Message) { r.packetIn++ }
func (r *recordingListener) FlowRemoved(sw *Switch, msg wire.Message) {}
func (r *recordingListener) PortStatus(sw *Switch, msg wire.Message)  {}
func (r *recordingListener) StatsReply(sw *Switch, msg wire.Message)  {}

func TestControllerAcceptDrivesSwitchUpOnFeaturesReply(t *testing.T) {
	q := simtime.NewQueue()
	ctx := simtime.NewContext(q)
	controllerSide, switchSide := ofconn.NewSimTransportPair(1_000_000)

	listener := &recordingListener{}
	ctrl := NewController(listener)

	conn := ofconn.New(ctx, controllerSide, common.VersionOF10)
	ctrl.Accept(ctx, conn, common.VersionOF10)

	peerConn := ofconn.New(ctx, switchSide, common.VersionOF10)
	var gotFeaturesRequest bool
	peerConn.OnMessage(func(msg wire.Message) {
		if fr, ok := msg.(*ofp10.FeaturesRequest); ok {
			gotFeaturesRequest = true
			reply := &ofp10.FeaturesReply{
				Header:     common.NewHeader(common.VersionOF10, ofp10.TypeFeaturesReply, fr.Xid),
				DatapathID: 42,
			}
			require.NoError(t, peerConn.Send(reply))
		}
	})
	require.NoError(t, peerConn.Start())

	q.Run()

	assert.True(t, gotFeaturesRequest)
	require.Len(t, listener.up, 1)
	assert.EqualValues(t, 42, listener.up[0])

	sw, ok := ctrl.Switches()[42]
	require.True(t, ok)
	assert.EqualValues(t, 42, sw.DatapathID)
}

func TestControllerSwitchDownRemovesFromRegistryAndNotifiesListener(t *testing.T) {
	q := simtime.NewQueue()
	ctx := simtime.NewContext(q)
	controllerSide, switchSide := ofconn.NewSimTransportPair(1_000_000)

	listener := &recordingListener{}
	ctrl := NewController(listener)

	conn := ofconn.New(ctx, controllerSide, common.VersionOF10)
	ctrl.Accept(ctx, conn, common.VersionOF10)

	peerConn := ofconn.New(ctx, switchSide, common.VersionOF10)
	peerConn.OnMessage(func(msg wire.Message) {
		if fr, ok := msg.(*ofp10.FeaturesRequest); ok {
			reply := &ofp10.FeaturesReply{
				Header:     common.NewHeader(common.VersionOF10, ofp10.TypeFeaturesReply, fr.Xid),
				DatapathID: 7,
			}
			require.NoError(t, peerConn.Send(reply))
		}
	})
	require.NoError(t, peerConn.Start())
	q.Run()

	require.Contains(t, ctrl.Switches(), uint64(7))

	conn.Close()
	q.Run()

	assert.NotContains(t, ctrl.Switches(), uint64(7))
	require.Len(t, listener.down, 1)
	assert.EqualValues(t, 7, listener.down[0])
}

func TestControllerDispatchesPacketInToListener(t *testing.T) {
	q := simtime.NewQueue()
	ctx := simtime.NewContext(q)
	controllerSide, switchSide := ofconn.NewSimTransportPair(1_000_000)

	listener := &recordingListener{}
	ctrl := NewController(listener)

	conn := ofconn.New(ctx, controllerSide, common.VersionOF10)
	ctrl.Accept(ctx, conn, common.VersionOF10)

	peerConn := ofconn.New(ctx, switchSide, common.VersionOF10)
	peerConn.OnMessage(func(msg wire.Message) {
		if fr, ok := msg.(*ofp10.FeaturesRequest); ok {
			reply := &ofp10.FeaturesReply{
				Header:     common.NewHeader(common.VersionOF10, ofp10.TypeFeaturesReply, fr.Xid),
				DatapathID: 1,
			}
			require.NoError(t, peerConn.Send(reply))
		}
	})
	require.NoError(t, peerConn.Start())
	q.Run()
	require.Len(t, listener.up, 1)

	pin := &ofp10.PacketIn{
		Header: common.NewHeader(common.VersionOF10, ofp10.TypePacketIn, ctx.NextXid()),
		InPort: 1,
		Reason: ofp10.ReasonNoMatch,
		Data:   []byte{0xaa},
	}
	require.NoError(t, peerConn.Send(pin))
	q.Run()

	assert.Equal(t, 1, listener.packetIn)
}

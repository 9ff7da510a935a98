package ofconn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/simtime"
	"github.com/jaredivey/ns-3-sdn/wire"
)

func TestHandshakeSucceedsOnMatchingVersion(t *testing.T) {
	q := simtime.NewQueue()
	ctxA := simtime.NewContext(q)
	ctxB := simtime.NewContext(q)
	ta, tb := NewSimTransportPair(1_000_000)

	a := New(ctxA, ta, common.VersionOF13)
	b := New(ctxB, tb, common.VersionOF13)

	var aUp, bUp bool
	a.OnUp(func() { aUp = true })
	b.OnUp(func() { bUp = true })

	require.NoError(t, a.Start())
	require.NoError(t, b.Start())
	q.Run()

	assert.True(t, aUp)
	assert.True(t, bUp)
	assert.Equal(t, StateRunning, a.State())
	assert.Equal(t, StateRunning, b.State())
	assert.Equal(t, common.VersionOF13, a.Version())
}

func TestHandshakeFailsOnIncompatibleVersion(t *testing.T) {
	q := simtime.NewQueue()
	ctxA := simtime.NewContext(q)
	ctxB := simtime.NewContext(q)
	ta, tb := NewSimTransportPair(1_000_000)

	a := New(ctxA, ta, common.VersionOF10)
	b := New(ctxB, tb, common.VersionOF13)

	var aDown, bDown bool
	a.OnDown(func() { aDown = true })
	b.OnDown(func() { bDown = true })

	require.NoError(t, a.Start())
	require.NoError(t, b.Start())
	q.Run()

	assert.True(t, aDown)
	assert.True(t, bDown)
	assert.Equal(t, StateFailed, a.State())
	assert.Equal(t, StateFailed, b.State())
}

func TestSendOnDownConnectionErrors(t *testing.T) {
	q := simtime.NewQueue()
	ctx := simtime.NewContext(q)
	ta, _ := NewSimTransportPair(1_000_000)
	c := New(ctx, ta, common.VersionOF13)
	c.Close()

	hello, err := common.NewHello(common.VersionOF13)
	require.NoError(t, err)
	assert.Error(t, c.Send(hello))
}

func TestPostHandshakeMessagesRouteToOnMessage(t *testing.T) {
	q := simtime.NewQueue()
	ctxA := simtime.NewContext(q)
	ctxB := simtime.NewContext(q)
	ta, tb := NewSimTransportPair(1_000_000)

	a := New(ctxA, ta, common.VersionOF13)
	b := New(ctxB, tb, common.VersionOF13)

	var got []wire.Message
	b.OnMessage(func(msg wire.Message) {
		got = append(got, msg)
	})

	require.NoError(t, a.Start())
	require.NoError(t, b.Start())
	q.Run()

	echoReq := common.NewEchoRequest(common.VersionOF13, ctxA.NextXid())
	require.NoError(t, a.Send(echoReq))
	q.Run()

	require.Len(t, got, 1)
	_, ok := got[0].(*common.EchoRequest)
	assert.True(t, ok)
}

package ofswitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaredivey/ns-3-sdn/netsim"
)

func TestBufferPoolPutTakeRoundTrip(t *testing.T) {
	pool := NewBufferPool(1)
	pkt := netsim.NewPacket([]byte("payload"))

	id, ok := pool.Put(pkt)
	require.True(t, ok)
	assert.EqualValues(t, 1, pool.Len())

	got, ok := pool.Take(id)
	require.True(t, ok)
	assert.Equal(t, pkt, got)
	assert.Zero(t, pool.Len())
}

func TestBufferPoolTakeUnknownIDFails(t *testing.T) {
	pool := NewBufferPool(1)
	_, ok := pool.Take(42)
	assert.False(t, ok)
}

func TestBufferPoolRejectsPutAtCapacity(t *testing.T) {
	pool := NewBufferPool(1)
	for i := 0; i < maxBuffers; i++ {
		_, ok := pool.Put(netsim.NewPacket([]byte{byte(i)}))
		require.True(t, ok)
	}
	_, ok := pool.Put(netsim.NewPacket([]byte("overflow")))
	assert.False(t, ok)
}

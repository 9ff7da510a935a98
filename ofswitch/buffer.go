package ofswitch

import (
	"math/rand"

	"github.com/jaredivey/ns-3-sdn/netsim"
)

// maxBuffers bounds how many packets a switch holds for later
// PacketOut/FlowMod reference. SdnSwitch.cc uses a much larger bound
// (1e9) sized for its uniform-random id space; this module keeps the
// same id-collision-retry allocation scheme at a size proportional to
// what a single-process simulation run actually needs.
const maxBuffers = 1 << 16

// BufferPool holds packets awaiting a PacketOut/FlowMod reference by
// buffer id, as SdnSwitch::SendPacketInMessageToController does:
// allocate a random non-negative 31-bit id (rand.Int31), retrying on
// collision, so ids don't leak
// information about allocation order.
type BufferPool struct {
	rng     *rand.Rand
	buffers map[int32]*netsim.Packet
}

// NewBufferPool builds an empty pool. seed makes allocation
// deterministic across runs with the same simulation seed.
func NewBufferPool(seed int64) *BufferPool {
	return &BufferPool{
		rng:     rand.New(rand.NewSource(seed)),
		buffers: make(map[int32]*netsim.Packet),
	}
}

// Put stores pkt under a freshly allocated id, or returns (-1, false) if
// the pool is at capacity: the caller then sends the packet inline
// rather than by reference (buffer id -1 in PacketIn).
func (p *BufferPool) Put(pkt *netsim.Packet) (int32, bool) {
	if len(p.buffers) >= maxBuffers {
		return -1, false
	}
	var id int32
	for {
		id = p.rng.Int31()
		if _, exists := p.buffers[id]; !exists {
			break
		}
	}
	p.buffers[id] = pkt
	return id, true
}

// Take removes and returns the packet stored under id, if any. A
// PacketOut/FlowMod referencing a buffer id consumes it: a buffer id is
// used at most once.
func (p *BufferPool) Take(id int32) (*netsim.Packet, bool) {
	pkt, ok := p.buffers[id]
	if ok {
		delete(p.buffers, id)
	}
	return pkt, ok
}

func (p *BufferPool) Len() int { return len(p.buffers) }

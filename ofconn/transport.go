// Package ofconn is the OpenFlow control channel: the connection state
// machine (handshake, running, failed/down), the transport seam a
// connection sends and receives framed messages over, and the
// stagger-send rule that keeps same-instant sends in a deterministic
// order. The channel-pair shape here is adapted from util/stream.go's
// MessageStream, with its worker-goroutine parsing replaced by direct,
// scheduler-driven delivery: this module runs single-threaded and
// cooperatively, so there is nothing for a second goroutine to overlap
// with.
package ofconn

import (
	"fmt"

	"github.com/jaredivey/ns-3-sdn/simtime"
	"github.com/jaredivey/ns-3-sdn/wire"
)

// Transport is the seam a Connection sends and receives messages
// through. SimTransport is the in-memory, virtual-time implementation
// used throughout this module; a real deployment can satisfy the same
// interface over net.Conn (see cmd/ofcontroller for that wiring).
type Transport interface {
	Send(sched simtime.Scheduler, msg wire.Message) error
	SetReceiveCallback(fn func(wire.Message))
	Close() error
}

// SimTransport is a point-to-point, in-memory Transport: messages sent on
// one end are delivered to the other's receive callback after delay,
// serialized FIFO, so two messages queued at the same virtual instant are
// still delivered in send order, one Epsilon apart (the stagger-send
// rule).
type SimTransport struct {
	delay     simtime.Duration
	peer      *SimTransport
	onRecv    func(wire.Message)
	busyUntil simtime.Time
	closed    bool
}

// NewSimTransportPair builds two linked transports representing the two
// ends of a control channel, propagation delay applied uniformly to both
// directions.
func NewSimTransportPair(delay simtime.Duration) (a, b *SimTransport) {
	a = &SimTransport{delay: delay}
	b = &SimTransport{delay: delay}
	a.peer = b
	b.peer = a
	return a, b
}

func (t *SimTransport) SetReceiveCallback(fn func(wire.Message)) { t.onRecv = fn }

// Send schedules delivery of msg to the peer's receive callback.
// Back-to-back sends are serialized against t.busyUntil, which is what
// gives the stagger-send rule its ordering guarantee: two messages sent
// in the same tick are delivered one Epsilon apart, in send order.
func (t *SimTransport) Send(sched simtime.Scheduler, msg wire.Message) error {
	if t.closed {
		return fmt.Errorf("ofconn: send on closed transport")
	}
	start := sched.Now()
	if start < t.busyUntil {
		start = t.busyUntil
	}
	t.busyUntil = start + simtime.Time(simtime.Epsilon)
	deliverAt := simtime.Duration(start-sched.Now()) + t.delay
	peer := t.peer
	sched.ScheduleAfter(deliverAt, func() {
		if peer.onRecv != nil {
			peer.onRecv(msg)
		}
	})
	return nil
}

func (t *SimTransport) Close() error {
	t.closed = true
	return nil
}

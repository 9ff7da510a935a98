package netsim

import (
	"net"

	"github.com/jaredivey/ns-3-sdn/simtime"
)

// ReceiveFunc is the net-device receive callback boundary:
// (device, packet, protocol, src_address) -> bool. Returning true means
// the frame was consumed by the SDN switch path; false falls back to
// normal (non-SDN) layer-2 processing.
type ReceiveFunc func(dev *NetDevice, frame *Frame) (consumed bool)

// NetDevice is the minimal stand-in for an ns-3 net-device: a hardware
// address, a receive callback, and an "SDN-enabled" flag that forces all
// received frames to the SDN switch callback regardless of destination.
type NetDevice struct {
	Name       string
	Addr       net.HardwareAddr
	SDNEnabled bool

	channel *Channel
	onRecv  ReceiveFunc

	txBusyUntil simtime.Time // this device's own transmit queue, independent of its peer's

	TxDrops uint64 // trace counter for dropped frames
}

// NewNetDevice builds a device with the given address, not yet attached to
// a channel.
func NewNetDevice(name string, addr net.HardwareAddr) *NetDevice {
	return &NetDevice{Name: name, Addr: addr}
}

// SetReceiveCallback registers the frame handler (normally the owning
// switch's dispatch entry point).
func (d *NetDevice) SetReceiveCallback(fn ReceiveFunc) {
	d.onRecv = fn
}

// Attach binds the device to its point-to-point channel.
func (d *NetDevice) Attach(ch *Channel) {
	d.channel = ch
}

// Send transmits frame over the device's channel. STP BPDUs are dropped
// at a non-SDN port rather than sent, and the channel itself handles
// per-device serialization (interframe gap) and propagation delay.
func (d *NetDevice) Send(sched simtime.Scheduler, frame *Frame) {
	if d.channel == nil {
		d.TxDrops++
		return
	}
	if !d.SDNEnabled && IsStpBpdu(frame.Dst) {
		d.TxDrops++
		return
	}
	d.channel.Transmit(sched, d, frame)
}

// deliver is called by the channel when a frame's propagation delay has
// elapsed. SDN-enabled devices always go to the callback; non-SDN
// devices drop STP BPDUs and LLDP frames rather than passing them up
// the stack.
func (d *NetDevice) deliver(frame *Frame) {
	if d.SDNEnabled {
		if d.onRecv != nil {
			d.onRecv(d, frame)
		}
		return
	}
	if IsStpBpdu(frame.Dst) || IsLldp(frame.Dst) {
		d.TxDrops++
		return
	}
	if d.onRecv != nil {
		d.onRecv(d, frame)
	}
}

// Channel is the point-to-point link between exactly two NetDevices.
// Delivery obeys tx_time = size/rate, receive at now+tx_time+delay. Each
// device's own transmit queue serializes its back-to-back sends (a second
// Transmit call from the same device while it's still busy is queued
// FIFO behind its own last send), but the two directions of a full-duplex
// link don't block each other, matching a net-device's own transmit
// machine state rather than a shared link-wide one.
type Channel struct {
	DataRate      uint64           // bits per virtual second (see rateToDuration)
	Delay         simtime.Duration // propagation delay
	InterframeGap simtime.Duration

	a, b *NetDevice
}

// NewChannel wires two devices together over a channel with the given
// rate (bits/sec, interpreted as bits per 1e9 virtual ticks so Duration
// can double as nanoseconds) and propagation delay.
func NewChannel(a, b *NetDevice, dataRate uint64, delay, interframeGap simtime.Duration) *Channel {
	ch := &Channel{DataRate: dataRate, Delay: delay, InterframeGap: interframeGap, a: a, b: b}
	a.Attach(ch)
	b.Attach(ch)
	return ch
}

func (c *Channel) other(d *NetDevice) *NetDevice {
	if d == c.a {
		return c.b
	}
	return c.a
}

// txTime computes size/rate in Duration ticks (ticks == nanoseconds).
func (c *Channel) txTime(sizeBytes int) simtime.Duration {
	if c.DataRate == 0 {
		return 0
	}
	bits := uint64(sizeBytes) * 8
	return simtime.Duration(bits * 1_000_000_000 / c.DataRate)
}

// Transmit schedules propagation of frame from dev to its peer, serialized
// behind any transmission dev itself already has in flight (FIFO per
// device) — the other direction's queue on this same channel is untouched.
func (c *Channel) Transmit(sched simtime.Scheduler, dev *NetDevice, frame *Frame) {
	start := sched.Now()
	if start < dev.txBusyUntil {
		start = dev.txBusyUntil
	}
	tx := c.txTime(frame.Size())
	dev.txBusyUntil = start + simtime.Time(tx) + simtime.Time(c.InterframeGap)

	delayFromNow := simtime.Duration(start-sched.Now()) + tx + c.Delay
	peer := c.other(dev)
	sched.ScheduleAfter(delayFromNow, func() {
		peer.deliver(frame)
	})
}

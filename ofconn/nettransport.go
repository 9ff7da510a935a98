package ofconn

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"k8s.io/klog/v2"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/simtime"
	"github.com/jaredivey/ns-3-sdn/wire"
)

// Injector hands a callback to whatever goroutine is allowed to touch
// this module's single-threaded state, the way simtime.WallClock's Inject
// serializes real I/O callbacks against scheduled events. SimTransport
// never needs one, since its deliveries already run on the scheduler.
type Injector interface {
	Inject(fn func())
}

// DialectDecoder recovers the concrete message type a header's Type byte
// names, for one dialect (see ofp10.Decode, ofp13.Decode).
type DialectDecoder func(msgType uint8) (wire.Message, bool)

// NetTransport is the net.Conn-backed Transport a standalone process uses
// in place of SimTransport, adapted from util/stream.go's MessageStream:
// the same 8-byte header framing with the 16-bit length at bytes 2-3, but a single reader
// goroutine per connection instead of a parser worker pool, since a
// control channel carries nowhere near the volume stream.go was built
// for. Every decoded message is handed to the Connection through inject
// rather than called directly, so the rest of the module never observes
// the reader goroutine.
type NetTransport struct {
	conn      net.Conn
	decode    DialectDecoder
	inject    Injector
	onRecv    func(wire.Message)
	onFailure func(error)
	closeCh   chan struct{}
}

// NewNetTransport wraps conn, dispatching inbound frames to decode (the
// dialect this endpoint speaks) and handing them to onRecv through
// inject. Start must be called once onRecv is registered.
func NewNetTransport(conn net.Conn, decode DialectDecoder, inject Injector) *NetTransport {
	return &NetTransport{conn: conn, decode: decode, inject: inject, closeCh: make(chan struct{})}
}

func (t *NetTransport) SetReceiveCallback(fn func(wire.Message)) { t.onRecv = fn }

// SetFailureCallback registers fn to run, through inject, the moment the
// read loop gives up (EOF, reset, or a framing error it can't recover
// from). The caller normally wires this to the owning Connection's
// Close, since nothing else notices a dead socket otherwise.
func (t *NetTransport) SetFailureCallback(fn func(error)) { t.onFailure = fn }

// Start launches the reader goroutine. Call once, after SetReceiveCallback
// has been wired (ofconn.New does this for you).
func (t *NetTransport) Start() {
	go t.inbound()
}

func (t *NetTransport) inbound() {
	hdr := make([]byte, 8)
	for {
		if _, err := io.ReadFull(t.conn, hdr); err != nil {
			t.fail(err)
			return
		}
		length := binary.BigEndian.Uint16(hdr[2:4])
		if length < 8 {
			t.fail(fmt.Errorf("ofconn: header claims length %d, minimum is 8", length))
			return
		}
		frame := make([]byte, length)
		copy(frame, hdr)
		if length > 8 {
			if _, err := io.ReadFull(t.conn, frame[8:]); err != nil {
				t.fail(err)
				return
			}
		}
		msg, err := t.decodeFrame(frame)
		if err != nil {
			klog.ErrorS(err, "Dropping unparseable frame")
			continue
		}
		cb := t.onRecv
		t.inject.Inject(func() {
			if cb != nil {
				cb(msg)
			}
		})
	}
}

// decodeFrame picks the concrete message type for frame's header byte
// and unmarshals the whole frame into it. Hello/Error are recognized
// ahead of the negotiated dialect since they cross the wire before (and,
// for Error, sometimes instead of) a version has been agreed.
func (t *NetTransport) decodeFrame(frame []byte) (wire.Message, error) {
	msgType := frame[1]
	var msg wire.Message
	switch msgType {
	case common.TypeHello:
		msg = &common.Hello{}
	case common.TypeError:
		msg = &common.ErrorMsg{}
	default:
		m, ok := t.decode(msgType)
		if !ok {
			return nil, fmt.Errorf("ofconn: unknown message type %d", msgType)
		}
		msg = m
	}
	if err := msg.UnmarshalBinary(frame); err != nil {
		return nil, err
	}
	return msg, nil
}

func (t *NetTransport) fail(err error) {
	select {
	case <-t.closeCh:
		return // already closing, this is just the read unblocking
	default:
	}
	klog.ErrorS(err, "Control channel read failed")
	cb := t.onFailure
	_ = t.Close()
	if cb != nil {
		t.inject.Inject(func() { cb(err) })
	}
}

// Send marshals msg and writes it to the wire. sched is accepted to
// satisfy Transport but unused: a real socket has no stagger-send
// ordering to enforce, since the kernel already serializes writes on one
// connection.
func (t *NetTransport) Send(sched simtime.Scheduler, msg wire.Message) error {
	data, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = t.conn.Write(data)
	return err
}

func (t *NetTransport) Close() error {
	select {
	case <-t.closeCh:
	default:
		close(t.closeCh)
	}
	return t.conn.Close()
}

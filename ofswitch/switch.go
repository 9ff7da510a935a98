// Package ofswitch is the switch application: connection lifecycle,
// per-dialect message dispatch, the packet buffer pool and reserved-port
// interpretation. Grounded on ofctrl/ofswitch.go's handleMessages dispatch
// (type-switch per message, logrus logging, echo keepalive) and
// original_source/SdnSwitch.{h,cc} for buffer-id allocation and the
// NORMAL/LOCAL drop-and-count behavior.
package ofswitch

import (
	log "github.com/sirupsen/logrus"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/ofconn"
	"github.com/jaredivey/ns-3-sdn/port"
	"github.com/jaredivey/ns-3-sdn/simtime"
)

// echoInterval is how often a running connection probes its peer with an
// EchoRequest; ofctrl/ofswitch.go's "too fragile... periodic timer" FIXME
// is exactly the gap this scheduler-driven timer closes.
const echoInterval = simtime.Duration(3_000_000_000)

// Core is the dialect-independent part of a switch: its datapath id,
// ports, control connection and packet buffer pool. Switch10 and
// Switch13 (in this package) embed it and add their own
// message dispatch and flow storage.
type Core struct {
	DatapathID uint64
	Ctx        *simtime.Context
	Conn       *ofconn.Connection
	Buffers    *BufferPool
	Ports      map[port.Number]*port.Port

	echoOutstanding bool
	connected       bool
}

// NewCore builds the shared switch state and wires the connection's
// lifecycle hooks (handshake complete -> echo loop start; no
// FeaturesRequest is sent from the switch side).
func NewCore(ctx *simtime.Context, conn *ofconn.Connection, datapathID uint64) *Core {
	c := &Core{
		DatapathID: datapathID,
		Ctx:        ctx,
		Conn:       conn,
		Buffers:    NewBufferPool(int64(datapathID)),
		Ports:      make(map[port.Number]*port.Port),
	}
	conn.OnUp(c.onConnected)
	conn.OnDown(c.onDisconnected)
	return c
}

func (c *Core) onConnected() {
	c.connected = true
	log.WithField("dpid", c.DatapathID).Info("switch control channel up")
	c.scheduleEcho()
}

func (c *Core) onDisconnected() {
	c.connected = false
	log.WithField("dpid", c.DatapathID).Info("switch control channel down")
}

func (c *Core) scheduleEcho() {
	c.Ctx.ScheduleAfter(echoInterval, func() {
		if !c.connected {
			return
		}
		if c.echoOutstanding {
			log.WithField("dpid", c.DatapathID).Warn("echo reply overdue, control channel presumed lost")
			c.Conn.Close()
			return
		}
		c.echoOutstanding = true
		c.sendEchoRequest()
		c.scheduleEcho()
	})
}

// AddPort registers a data-plane port on this switch.
func (c *Core) AddPort(p *port.Port) {
	c.Ports[p.Number] = p
}

func (c *Core) sendEchoRequest() {
	req := common.NewEchoRequest(c.Conn.Version(), c.Ctx.NextXid())
	if err := c.Conn.Send(req); err != nil {
		log.WithError(err).WithField("dpid", c.DatapathID).Warn("failed to send echo request")
	}
}

// HandleEchoReply clears the outstanding-echo flag; dialect dispatch
// calls this when it sees a *common.EchoReply.
func (c *Core) HandleEchoReply(*common.EchoReply) {
	c.echoOutstanding = false
}

// HandleEchoRequest answers a peer-initiated echo, per ofctrl/ofswitch.go's
// immediate EchoReply-on-EchoRequest handling.
func (c *Core) HandleEchoRequest(req *common.EchoRequest) {
	reply := common.NewEchoReply(c.Conn.Version(), req.Xid, req.Data)
	_ = c.Conn.Send(reply)
}

// resolvePort interprets a reserved output-port number against this
// switch's state. NORMAL and LOCAL have no legacy L2 pipeline or local
// stack to hand off to in this model, so both are treated as a drop with
// a trace-counter increment rather than a silent no-op, matching
// SdnSwitch's observed behavior for unimplemented reserved ports.
func (c *Core) resolvePort(n port.Number) (p *port.Port, drop bool) {
	switch n {
	case port.PortNormal, port.PortLocal:
		return nil, true
	case port.PortFlood, port.PortAll:
		return nil, false // caller iterates c.Ports itself for these
	default:
		p, ok := c.Ports[n]
		if !ok {
			return nil, true
		}
		return p, false
	}
}

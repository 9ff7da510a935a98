// Package ofcontroller is the controller side of the control channel: a
// registry of connected switches plus a Listener callback interface,
// generalizing ofctrl/ofctrl.go's ConsumerInterface/Controller pair across
// both dialects this module understands.
package ofcontroller

import (
	log "github.com/sirupsen/logrus"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/ofconn"
	"github.com/jaredivey/ns-3-sdn/ofp10"
	"github.com/jaredivey/ns-3-sdn/ofp13"
	"github.com/jaredivey/ns-3-sdn/simtime"
	"github.com/jaredivey/ns-3-sdn/wire"
)

// Listener is the application hook set a Controller drives, renamed from
// ofctrl/ofapp.go's OfApp to reflect that one controller can drive many
// listeners' worth of behavior (stats collection, topology discovery, an
// L2-learning policy) rather than exactly one app per switch.
type Listener interface {
	// SwitchUp fires once a switch's FeaturesReply has been received,
	// so sw.DatapathID is already populated.
	SwitchUp(sw *Switch)
	// SwitchDown fires when the control channel drops.
	SwitchDown(sw *Switch)
	// PacketIn fires for every *ofp10.PacketIn or *ofp13.PacketIn the
	// switch sends; the listener type-switches on msg for the fields
	// it needs.
	PacketIn(sw *Switch, msg wire.Message)
	// FlowRemoved fires for every *ofp10.FlowRemoved/*ofp13.FlowRemoved.
	FlowRemoved(sw *Switch, msg wire.Message)
	// PortStatus fires for *ofp13.PortStatus (OF1.0 carries no
	// equivalent notification).
	PortStatus(sw *Switch, msg wire.Message)
	// StatsReply fires for *ofp10.StatsReply/*ofp13.MultipartReply.
	StatsReply(sw *Switch, msg wire.Message)
}

// Switch is the controller's handle to one connected switch: its
// negotiated connection plus the identity FeaturesReply revealed.
type Switch struct {
	DatapathID uint64
	Version    uint8

	conn *ofconn.Connection
	ctx  *simtime.Context
}

// Send transmits msg to this switch.
func (sw *Switch) Send(msg wire.Message) error { return sw.conn.Send(msg) }

// Controller tracks every switch that has completed its handshake and
// dispatches post-handshake messages to a single Listener, the way
// ofctrl.Controller holds one ConsumerInterface for every OFSwitch it
// accepts.
type Controller struct {
	listener Listener
	switches map[uint64]*Switch
}

// NewController builds a controller that drives listener for every switch
// it is handed via Accept.
func NewController(listener Listener) *Controller {
	return &Controller{listener: listener, switches: make(map[uint64]*Switch)}
}

// Accept takes ownership of an already-constructed connection: it starts
// the handshake, requests features once the channel comes up, and routes
// every subsequent message to the controller's listener.
func (c *Controller) Accept(ctx *simtime.Context, conn *ofconn.Connection, localVersion uint8) *Switch {
	sw := &Switch{conn: conn, ctx: ctx}
	conn.OnUp(func() {
		sw.Version = conn.Version()
		c.requestFeatures(sw)
	})
	conn.OnDown(func() {
		if sw.DatapathID != 0 {
			delete(c.switches, sw.DatapathID)
		}
		c.listener.SwitchDown(sw)
	})
	conn.OnMessage(func(msg wire.Message) { c.dispatch(sw, msg) })
	if err := conn.Start(); err != nil {
		log.WithError(err).Warn("failed to start control channel handshake")
	}
	return sw
}

func (c *Controller) requestFeatures(sw *Switch) {
	var err error
	switch sw.Version {
	case common.VersionOF10:
		err = sw.Send(ofp10.NewFeaturesRequest(sw.ctx.NextXid()))
	case common.VersionOF13:
		err = sw.Send(ofp13.NewFeaturesRequest(sw.ctx.NextXid()))
	}
	if err != nil {
		log.WithError(err).Warn("failed to send features request")
	}
}

func (c *Controller) dispatch(sw *Switch, msg wire.Message) {
	switch t := msg.(type) {
	case *ofp10.FeaturesReply:
		sw.DatapathID = t.DatapathID
		c.switches[sw.DatapathID] = sw
		c.listener.SwitchUp(sw)
	case *ofp13.FeaturesReply:
		sw.DatapathID = t.DatapathID
		c.switches[sw.DatapathID] = sw
		c.listener.SwitchUp(sw)
	case *ofp10.PacketIn, *ofp13.PacketIn:
		c.listener.PacketIn(sw, t)
	case *ofp10.FlowRemoved, *ofp13.FlowRemoved:
		c.listener.FlowRemoved(sw, t)
	case *ofp13.PortStatus:
		c.listener.PortStatus(sw, t)
	case *ofp10.StatsReply, *ofp13.MultipartReply:
		c.listener.StatsReply(sw, t)
	case *common.ErrorMsg:
		log.WithFields(log.Fields{"dpid": sw.DatapathID, "errType": t.Type, "code": t.Code}).
			Warn("switch reported an OpenFlow error")
	default:
		log.WithField("type", log.Fields{"msg": msg}).Debug("unhandled controller-side message")
	}
}

// Switches returns every switch whose FeaturesReply has been received,
// keyed by datapath id.
func (c *Controller) Switches() map[uint64]*Switch { return c.switches }

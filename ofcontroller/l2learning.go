package ofcontroller

import (
	"encoding/binary"
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/ofp10"
	"github.com/jaredivey/ns-3-sdn/ofp13"
	"github.com/jaredivey/ns-3-sdn/port"
	"github.com/jaredivey/ns-3-sdn/wire"
)

// flowIdleTimeout and flowPriority match gitalot-cherry's l2switch
// reactive installFlow: a short-lived, low-priority exact-match entry per
// learned MAC pair.
const (
	flowIdleTimeout = 30
	flowPriority    = 10
)

// L2Learning is the default Listener: a per-switch source-MAC-to-port
// table, grounded on gitalot-cherry's l2switch.L2Switch (flood on an
// unknown destination, install a forward path and packet-out the
// originating frame once the destination is learned).
type L2Learning struct {
	tables map[uint64]map[string]uint32
}

// NewL2Learning builds an empty listener.
func NewL2Learning() *L2Learning {
	return &L2Learning{tables: make(map[uint64]map[string]uint32)}
}

func (l *L2Learning) table(dpid uint64) map[string]uint32 {
	t, ok := l.tables[dpid]
	if !ok {
		t = make(map[string]uint32)
		l.tables[dpid] = t
	}
	return t
}

func (l *L2Learning) SwitchUp(sw *Switch) {
	l.tables[sw.DatapathID] = make(map[string]uint32)
	log.WithField("dpid", sw.DatapathID).Info("l2learning: switch up")
}

func (l *L2Learning) SwitchDown(sw *Switch) {
	delete(l.tables, sw.DatapathID)
	log.WithField("dpid", sw.DatapathID).Info("l2learning: switch down")
}

func (l *L2Learning) PacketIn(sw *Switch, msg wire.Message) {
	switch pkt := msg.(type) {
	case *ofp10.PacketIn:
		l.packetIn10(sw, pkt)
	case *ofp13.PacketIn:
		l.packetIn13(sw, pkt)
	}
}

func (l *L2Learning) packetIn10(sw *Switch, pkt *ofp10.PacketIn) {
	if len(pkt.Data) < 12 {
		return
	}
	dst := net.HardwareAddr(append([]byte(nil), pkt.Data[0:6]...))
	src := net.HardwareAddr(append([]byte(nil), pkt.Data[6:12]...))

	table := l.table(sw.DatapathID)
	table[src.String()] = uint32(pkt.InPort)

	outPort, known := table[dst.String()]
	if !known || outPort == uint32(pkt.InPort) {
		l.flood10(sw, pkt)
		return
	}
	l.installFlow10(sw, pkt.InPort, uint16(outPort), src, dst)
	l.packetOut10(sw, pkt, uint16(outPort))
}

func (l *L2Learning) flood10(sw *Switch, pkt *ofp10.PacketIn) {
	l.packetOut10(sw, pkt, uint16(port.PortFlood))
}

func (l *L2Learning) packetOut10(sw *Switch, pkt *ofp10.PacketIn, outPort uint16) {
	out := &ofp10.PacketOut{
		Header:   common.NewHeader(sw.Version, ofp10.TypePacketOut, sw.ctx.NextXid()),
		BufferID: pkt.BufferID,
		InPort:   pkt.InPort,
		Actions:  []ofp10.Action{ofp10.NewOutput(outPort, 0)},
	}
	if pkt.BufferID < 0 {
		out.Data = pkt.Data
	}
	if err := sw.Send(out); err != nil {
		log.WithError(err).Warn("l2learning: packet-out failed")
	}
}

func (l *L2Learning) installFlow10(sw *Switch, inPort, outPort uint16, src, dst net.HardwareAddr) {
	fm := &ofp10.FlowMod{
		Header:      common.NewHeader(sw.Version, ofp10.TypeFlowMod, sw.ctx.NextXid()),
		Command:     ofp10.FCAdd,
		Priority:    flowPriority,
		IdleTimeout: flowIdleTimeout,
		BufferID:    -1,
		Match:       ofp10.Match{InPort: inPort, DlSrc: src, DlDst: dst},
		Actions:     []ofp10.Action{ofp10.NewOutput(outPort, 0)},
	}
	if err := sw.Send(fm); err != nil {
		log.WithError(err).Warn("l2learning: flow install failed")
	}
}

func (l *L2Learning) packetIn13(sw *Switch, pkt *ofp13.PacketIn) {
	if pkt.Match == nil {
		return
	}
	inPortField, ok := pkt.Match.Find(ofp13.FieldInPort)
	if !ok || len(inPortField.Value) != 4 {
		return
	}
	srcField, ok := pkt.Match.Find(ofp13.FieldEthSrc)
	if !ok {
		return
	}
	dstField, ok := pkt.Match.Find(ofp13.FieldEthDst)
	if !ok {
		return
	}
	inPort := binary.BigEndian.Uint32(inPortField.Value)
	src := net.HardwareAddr(srcField.Value)
	dst := net.HardwareAddr(dstField.Value)

	table := l.table(sw.DatapathID)
	table[src.String()] = inPort

	outPort, known := table[dst.String()]
	if !known || outPort == inPort {
		l.flood13(sw, pkt, inPort)
		return
	}
	l.installFlow13(sw, inPort, outPort, src, dst)
	l.packetOut13(sw, pkt, outPort)
}

func (l *L2Learning) flood13(sw *Switch, pkt *ofp13.PacketIn, inPort uint32) {
	l.packetOut13(sw, pkt, uint32(port.PortFlood))
}

func (l *L2Learning) packetOut13(sw *Switch, pkt *ofp13.PacketIn, outPort uint32) {
	inPortField, _ := pkt.Match.Find(ofp13.FieldInPort)
	out := &ofp13.PacketOut{
		Header:   common.NewHeader(sw.Version, ofp13.TypePacketOut, sw.ctx.NextXid()),
		BufferID: pkt.BufferID,
		InPort:   binary.BigEndian.Uint32(inPortField.Value),
		Actions:  []ofp13.Action{ofp13.NewOutput(outPort, 0)},
	}
	if pkt.BufferID < 0 {
		out.Data = pkt.Data
	}
	if err := sw.Send(out); err != nil {
		log.WithError(err).Warn("l2learning: packet-out failed")
	}
}

func (l *L2Learning) installFlow13(sw *Switch, inPort, outPort uint32, src, dst net.HardwareAddr) {
	m := ofp13.NewMatch()
	m.SetInPort(inPort)
	m.SetEthSrc(src, nil)
	m.SetEthDst(dst, nil)
	fm := &ofp13.FlowMod{
		Header:      common.NewHeader(sw.Version, ofp13.TypeFlowMod, sw.ctx.NextXid()),
		TableID:     0,
		Command:     ofp13.FCAdd,
		Priority:    flowPriority,
		IdleTimeout: flowIdleTimeout,
		BufferID:    -1,
		Match:       m,
		Instructions: ofp13.InstructionSet{
			ofp13.NewApplyActions([]ofp13.Action{ofp13.NewOutput(outPort, 0)}),
		},
	}
	if err := sw.Send(fm); err != nil {
		log.WithError(err).Warn("l2learning: flow install failed")
	}
}

func (l *L2Learning) FlowRemoved(sw *Switch, msg wire.Message) {
	log.WithField("dpid", sw.DatapathID).Debug("l2learning: flow removed")
}

func (l *L2Learning) PortStatus(sw *Switch, msg wire.Message) {
	log.WithField("dpid", sw.DatapathID).Debug("l2learning: port status")
}

func (l *L2Learning) StatsReply(sw *Switch, msg wire.Message) {
	log.WithField("dpid", sw.DatapathID).Debug("l2learning: stats reply")
}

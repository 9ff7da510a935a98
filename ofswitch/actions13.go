package ofswitch

import (
	log "github.com/sirupsen/logrus"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/netsim"
	"github.com/jaredivey/ns-3-sdn/ofp13"
	"github.com/jaredivey/ns-3-sdn/port"
)

// AttachPort registers p's device as this switch's receive path.
func (s *Switch13) AttachPort(p *port.Port) {
	s.AddPort(p)
	p.Device.SetReceiveCallback(func(dev *netsim.NetDevice, frame *netsim.Frame) bool {
		s.HandleFrame(p, frame)
		return true
	})
}

// matchFromFrame13 builds the OXM match a received frame presents to the
// pipeline's first table.
func matchFromFrame13(inPort port.Number, frame *netsim.Frame) *ofp13.Match {
	m := ofp13.NewMatch()
	m.SetInPort(uint32(inPort))
	m.SetEthSrc(frame.Src, nil)
	m.SetEthDst(frame.Dst, nil)
	m.SetEthType(frame.Protocol)

	hb := frame.Packet.ParseHeaders()
	if hb.IPv4 != nil {
		m.SetIPProto(hb.IPv4.Protocol)
		m.SetIPv4Src(hb.IPv4.Src, nil)
		m.SetIPv4Dst(hb.IPv4.Dst, nil)
	}
	if hb.Tcp != nil {
		m.SetTcpSrc(hb.Tcp.SrcPort)
		m.SetTcpDst(hb.Tcp.DstPort)
	}
	if hb.Udp != nil {
		m.SetUdpSrc(hb.Udp.SrcPort)
		m.SetUdpDst(hb.Udp.DstPort)
	}
	return m
}

// HandleFrame runs a received frame through the pipeline: apply-actions
// entries fire in encounter order as the frame moves table to table, then
// the accumulated write-actions set fires once at pipeline exit. A miss in
// table 0 (or any table lacking a table-miss entry) is punted upstream.
func (s *Switch13) HandleFrame(inPort *port.Port, frame *netsim.Frame) {
	m := matchFromFrame13(inPort.Number, frame)
	result, err := s.Pipeline.Execute(m, frame.Size())
	if err != nil {
		log.WithError(err).WithField("dpid", s.DatapathID).Warn("pipeline execution error")
		return
	}
	if result.Miss {
		s.sendPacketIn(inPort.Number, result.TableID, frame, ofp13.ReasonNoMatch, m)
		return
	}
	s.ExecuteActions(result.Immediate, frame.Packet, inPort.Number)
	if result.ActionSet != nil {
		s.ExecuteActions(result.ActionSet.Ordered(), frame.Packet, inPort.Number)
	}
}

func (s *Switch13) sendPacketIn(inPort port.Number, tableID uint8, frame *netsim.Frame, reason ofp13.PacketInReason, m *ofp13.Match) {
	bufID, _ := s.Buffers.Put(frame.Packet)
	msg := &ofp13.PacketIn{
		Header:   common.NewHeader(common.VersionOF13, ofp13.TypePacketIn, s.Ctx.NextXid()),
		BufferID: bufID,
		TableID:  tableID,
		Reason:   reason,
		Match:    m,
		Data:     frame.Packet.Bytes(),
	}
	_ = s.Conn.Send(msg)
}

// ExecuteActions applies acts, in order, against pkt received on inPort.
// PacketOut's action list runs through this directly, the same as a
// table's apply-actions entries.
func (s *Switch13) ExecuteActions(acts []ofp13.Action, pkt *netsim.Packet, inPort port.Number) {
	for _, a := range acts {
		switch a.Type {
		case ofp13.ActionOutput:
			s.output13(port.Number(a.OutPort), pkt, inPort)
		case ofp13.ActionGroup:
			s.executeGroup(ofp13.Uint32Group(a.GroupID), pkt, inPort)
		case ofp13.ActionSetField:
			// Field rewrites are recorded but not applied to wire bytes,
			// for the same reason ofp10's SET_* actions aren't: nothing
			// downstream inspects header fields after the forwarding
			// decision is made.
		case ofp13.ActionPushVlan, ofp13.ActionPopVlan:
			// VLAN tag actions are silent no-ops, matching the 1.0
			// dialect's handling of 802.1Q fields it never rewrites.
		case ofp13.ActionSetQueue, ofp13.ActionCopyTtlIn, ofp13.ActionCopyTtlOut, ofp13.ActionDecNwTtl:
			// No queuing or TTL model exists to act on.
		}
	}
}

func (s *Switch13) executeGroup(id ofp13.Uint32Group, pkt *netsim.Packet, inPort port.Number) {
	g, ok := s.Pipeline.Groups().Get(id)
	if !ok {
		return
	}
	g.PacketCount++
	g.ByteCount += uint64(pkt.Size())
	for _, bucket := range g.SelectBuckets(g.PacketCount) {
		s.ExecuteActions(bucket.Actions, pkt.Clone(), inPort)
	}
}

func (s *Switch13) output13(target port.Number, pkt *netsim.Packet, inPort port.Number) {
	switch target {
	case port.PortController:
		s.sendPacketIn(inPort, 0, frameFor(pkt), ofp13.ReasonAction, ofp13.NewMatch())
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
			s.transmit13(p, pkt.Clone())
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
	s.transmit13(p, pkt)
}

func (s *Switch13) transmit13(p *port.Port, pkt *netsim.Packet) {
	if !p.Enabled() {
		p.TxErrors++
		return
	}
	p.TxPackets++
	p.TxBytes += uint64(pkt.Size())
	p.Device.Send(s.Ctx, frameFor(pkt))
}

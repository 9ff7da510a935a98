package ofswitch

import (
	log "github.com/sirupsen/logrus"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/flowtable"
	"github.com/jaredivey/ns-3-sdn/netsim"
	"github.com/jaredivey/ns-3-sdn/ofconn"
	"github.com/jaredivey/ns-3-sdn/ofp10"
	"github.com/jaredivey/ns-3-sdn/port"
	"github.com/jaredivey/ns-3-sdn/simtime"
	"github.com/jaredivey/ns-3-sdn/wire"
)

// Switch10 is an OpenFlow 1.0 switch: one flow table, fixed-field
// matching, the reserved-port interpretation §4.6 describes.
type Switch10 struct {
	*Core
	Table *flowtable.Table
}

// NewSwitch10 builds a switch and wires its dispatch to conn.
func NewSwitch10(ctx *simtime.Context, conn *ofconn.Connection, datapathID uint64) *Switch10 {
	core := NewCore(ctx, conn, datapathID)
	s := &Switch10{Core: core}
	s.Table = flowtable.New(0, ctx, s.onFlowRemoved)
	conn.OnMessage(s.dispatch)
	return s
}

func (s *Switch10) onFlowRemoved(f *flowtable.Flow, reason ofp10.FlowRemovedReason) {
	now := s.Ctx.Now()
	durationSec := uint32((now - f.InstallTime) / 1_000_000_000)
	msg := &ofp10.FlowRemoved{
		Header:      common.NewHeader(common.VersionOF10, ofp10.TypeFlowRemoved, s.Ctx.NextXid()),
		Match:       f.Match,
		Cookie:      f.Cookie,
		Priority:    f.Priority,
		Reason:      reason,
		DurationSec: durationSec,
		IdleTimeout: f.IdleTimeout,
		PacketCount: f.PacketCount,
		ByteCount:   f.ByteCount,
	}
	_ = s.Conn.Send(msg)
}

func (s *Switch10) dispatch(msg wire.Message) {
	switch t := msg.(type) {
	case *common.EchoRequest:
		s.HandleEchoRequest(t)
	case *common.EchoReply:
		s.HandleEchoReply(t)
	case *ofp10.FeaturesRequest:
		s.replyFeatures(t)
	case *ofp10.FlowMod:
		s.handleFlowMod(t)
	case *ofp10.PacketOut:
		s.handlePacketOut(t)
	case *ofp10.PortMod:
		s.handlePortMod(t)
	case *ofp10.StatsRequest:
		s.handleStatsRequest(t)
	case *ofp10.SwitchConfig:
		// SetConfig: nothing this model needs to act on beyond acking via
		// GetConfigReply semantics, which a controller would request
		// separately.
	case *ofp10.BarrierRequest:
		_ = s.Conn.Send(ofp10.NewBarrierReply(t.Xid))
	case *ofp10.Vendor:
		log.WithField("vendorID", t.VendorID).Debug("vendor message accepted, no extension registered")
	default:
		log.WithField("type", log.Fields{"msg": msg}).Debug("unhandled ofp10 message")
	}
}

func (s *Switch10) replyFeatures(req *ofp10.FeaturesRequest) {
	ports := make([]ofp10.PortDesc, 0, len(s.Ports))
	for _, p := range s.Ports {
		ports = append(ports, ofp10.PortDesc{
			PortNo: uint16(p.Number),
			HwAddr: p.HwAddr,
			Name:   p.Device.Name,
			Config: uint32(p.Config),
			State:  uint32(p.State),
		})
	}
	reply := &ofp10.FeaturesReply{
		Header:     common.NewHeader(common.VersionOF10, ofp10.TypeFeaturesReply, req.Xid),
		DatapathID: s.DatapathID,
		NBuffers:   1 << 16,
		NTables:    1,
		Ports:      ports,
	}
	_ = s.Conn.Send(reply)
}

func (s *Switch10) handleFlowMod(fm *ofp10.FlowMod) {
	switch fm.Command {
	case ofp10.FCAdd:
		f := &flowtable.Flow{
			Priority:    fm.Priority,
			Cookie:      fm.Cookie,
			Match:       fm.Match,
			Actions:     fm.Actions,
			IdleTimeout: fm.IdleTimeout,
			HardTimeout: fm.HardTimeout,
			Flags:       fm.Flags,
		}
		if err := s.Table.Add(f, fm.Flags&ofp10.FlagCheckOverlap != 0); err != nil {
			errMsg := common.NewErrorMsg(common.VersionOF10, fm.Xid, common.ErrTypeFlowModFailed, common.ErrFlowModFailedOverlap, nil)
			_ = s.Conn.Send(errMsg)
			return
		}
	case ofp10.FCModify:
		s.Table.Modify(&fm.Match, fm.Actions, fm.Cookie)
	case ofp10.FCModifyStrict:
		s.Table.ModifyStrict(&fm.Match, fm.Priority, fm.Actions, fm.Cookie)
	case ofp10.FCDelete:
		s.Table.Delete(&fm.Match)
		return
	case ofp10.FCDeleteStrict:
		s.Table.DeleteStrict(&fm.Match, fm.Priority)
		return
	}
	s.reinjectBuffered(fm.BufferID, fm.Match.InPort)
}

// reinjectBuffered runs a previously buffered packet back through the flow
// table on inPort, as a non-delete FlowMod carrying a buffer id does
// instead of requiring the controller to issue a separate PacketOut.
func (s *Switch10) reinjectBuffered(bufferID int32, inPort uint16) {
	if bufferID < 0 {
		return
	}
	pkt, ok := s.Buffers.Take(bufferID)
	if !ok {
		return
	}
	p, ok := s.Ports[port.Number(inPort)]
	if !ok {
		return
	}
	s.HandleFrame(p, frameFor(pkt))
}

func (s *Switch10) handlePortMod(pm *ofp10.PortMod) {
	p, ok := s.Ports[port.Number(pm.PortNo)]
	if !ok {
		return
	}
	p.MergeConfig(port.Config(pm.Config), port.Config(pm.Mask))
}

// handlePacketOut executes an explicit action list against a
// controller-supplied (or buffer-referenced) packet, bypassing the flow
// table.
func (s *Switch10) handlePacketOut(po *ofp10.PacketOut) {
	var pkt *netsim.Packet
	if po.BufferID >= 0 {
		p, ok := s.Buffers.Take(po.BufferID)
		if !ok {
			return
		}
		pkt = p
	} else {
		pkt = netsim.NewPacket(po.Data)
	}
	s.ExecuteActions(po.Actions, pkt, port.Number(po.InPort))
}

func (s *Switch10) handleStatsRequest(req *ofp10.StatsRequest) {
	var reply *ofp10.StatsReply
	switch req.Type {
	case ofp10.StatsTable:
		reply = &ofp10.StatsReply{
			Header: common.NewHeader(common.VersionOF10, ofp10.TypeStatsReply, req.Xid),
			Type:   ofp10.StatsTable,
			Body:   []ofp10.TableStats{s.Table.Stats()},
		}
	case ofp10.StatsFlow, ofp10.StatsAggregate:
		m, _ := req.Body.(ofp10.Match)
		flows := s.Table.MatchingFlows(&m, false)
		out := make([]ofp10.FlowStats, 0, len(flows))
		for _, f := range flows {
			out = append(out, ofp10.FlowStats{
				Match:       f.Match,
				Priority:    f.Priority,
				IdleTimeout: f.IdleTimeout,
				HardTimeout: f.HardTimeout,
				Cookie:      f.Cookie,
				PacketCount: f.PacketCount,
				ByteCount:   f.ByteCount,
				Actions:     f.Actions,
			})
		}
		reply = &ofp10.StatsReply{
			Header: common.NewHeader(common.VersionOF10, ofp10.TypeStatsReply, req.Xid),
			Type:   req.Type,
			Body:   out,
		}
	case ofp10.StatsVendor:
		// Vendor stats are accepted and parsed but carry no body this
		// model understands; reply empty rather than erroring.
		reply = &ofp10.StatsReply{
			Header: common.NewHeader(common.VersionOF10, ofp10.TypeStatsReply, req.Xid),
			Type:   ofp10.StatsVendor,
		}
	default:
		return
	}
	_ = s.Conn.Send(reply)
}

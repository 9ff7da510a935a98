package ofswitch

import (
	log "github.com/sirupsen/logrus"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/flowtable13"
	"github.com/jaredivey/ns-3-sdn/netsim"
	"github.com/jaredivey/ns-3-sdn/ofconn"
	"github.com/jaredivey/ns-3-sdn/ofp13"
	"github.com/jaredivey/ns-3-sdn/port"
	"github.com/jaredivey/ns-3-sdn/simtime"
	"github.com/jaredivey/ns-3-sdn/wire"
)

// Switch13 is an OpenFlow 1.3 switch: a 64-table pipeline, OXM matching,
// and a group table, layered on the same Core every dialect shares.
type Switch13 struct {
	*Core
	Pipeline *flowtable13.Pipeline
}

// NewSwitch13 builds a switch and wires its dispatch to conn.
func NewSwitch13(ctx *simtime.Context, conn *ofconn.Connection, datapathID uint64) *Switch13 {
	core := NewCore(ctx, conn, datapathID)
	s := &Switch13{Core: core}
	s.Pipeline = flowtable13.New(ctx, s.onFlowRemoved)
	conn.OnMessage(s.dispatch)
	return s
}

func (s *Switch13) onFlowRemoved(f *flowtable13.Flow, reason ofp13.FlowRemovedReason) {
	now := s.Ctx.Now()
	durationSec := uint32((now - f.InstallTime) / 1_000_000_000)
	msg := &ofp13.FlowRemoved{
		Header:      common.NewHeader(common.VersionOF13, ofp13.TypeFlowRemoved, s.Ctx.NextXid()),
		TableID:     f.TableID,
		Match:       &f.Match,
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

func (s *Switch13) dispatch(msg wire.Message) {
	switch t := msg.(type) {
	case *common.EchoRequest:
		s.HandleEchoRequest(t)
	case *common.EchoReply:
		s.HandleEchoReply(t)
	case *ofp13.FeaturesRequest:
		s.replyFeatures(t)
	case *ofp13.FlowMod:
		s.handleFlowMod(t)
	case *ofp13.GroupMod:
		s.handleGroupMod(t)
	case *ofp13.PacketOut:
		s.handlePacketOut(t)
	case *ofp13.PortMod:
		s.handlePortMod(t)
	case *ofp13.MultipartRequest:
		s.handleMultipart(t)
	case *ofp13.SwitchConfig:
		// SetConfig: nothing this model needs to act on beyond the
		// MissSendLen advertised in GetConfigReply, requested separately.
	case *ofp13.BarrierRequest:
		_ = s.Conn.Send(ofp13.NewBarrierReply(t.Xid))
	case *ofp13.Experimenter:
		log.WithField("experimenterID", t.ExperimenterID).Debug("experimenter message accepted, no extension registered")
	default:
		log.WithField("type", log.Fields{"msg": msg}).Debug("unhandled ofp13 message")
	}
}

func (s *Switch13) replyFeatures(req *ofp13.FeaturesRequest) {
	reply := &ofp13.FeaturesReply{
		Header:     common.NewHeader(common.VersionOF13, ofp13.TypeFeaturesReply, req.Xid),
		DatapathID: s.DatapathID,
		NBuffers:   1 << 16,
		NTables:    64,
	}
	_ = s.Conn.Send(reply)
}

func (s *Switch13) handleFlowMod(fm *ofp13.FlowMod) {
	tbl := s.Pipeline.Table(fm.TableID)
	switch fm.Command {
	case ofp13.FCAdd:
		f := &flowtable13.Flow{
			Priority:     fm.Priority,
			Cookie:       fm.Cookie,
			Match:        *fm.Match,
			Instructions: fm.Instructions,
			IdleTimeout:  fm.IdleTimeout,
			HardTimeout:  fm.HardTimeout,
			Flags:        fm.Flags,
		}
		if err := tbl.Add(f, ofp13.FlowModFlags(fm.Flags)&ofp13.FlagCheckOverlap != 0); err != nil {
			errMsg := common.NewErrorMsg(common.VersionOF13, fm.Xid, common.ErrTypeFlowModFailed, common.ErrFlowModFailedOverlap, nil)
			_ = s.Conn.Send(errMsg)
			return
		}
	case ofp13.FCModify:
		tbl.Modify(fm.Match, fm.Instructions, fm.Cookie)
	case ofp13.FCModifyStrict:
		tbl.ModifyStrict(fm.Match, fm.Priority, fm.Instructions, fm.Cookie)
	case ofp13.FCDelete:
		tbl.Delete(fm.Match)
		return
	case ofp13.FCDeleteStrict:
		tbl.DeleteStrict(fm.Match, fm.Priority)
		return
	}
	if inPort, ok := fm.Match.InPort(); ok {
		s.reinjectBuffered(fm.BufferID, inPort)
	}
}

// reinjectBuffered runs a previously buffered packet back through the
// pipeline on inPort, as a non-delete FlowMod carrying a buffer id does
// instead of requiring the controller to issue a separate PacketOut.
func (s *Switch13) reinjectBuffered(bufferID int32, inPort uint32) {
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

func (s *Switch13) handleGroupMod(gm *ofp13.GroupMod) {
	switch gm.Command {
	case ofp13.GCAdd:
		err := s.Pipeline.Groups().Add(&ofp13.Group{ID: gm.GroupID, Type: gm.Type, Buckets: gm.Buckets})
		if err != nil {
			errMsg := common.NewErrorMsg(common.VersionOF13, gm.Xid, common.ErrTypeGroupModFailed, common.ErrGroupModFailedExists, nil)
			_ = s.Conn.Send(errMsg)
		}
	case ofp13.GCModify:
		_ = s.Pipeline.Groups().Modify(gm.GroupID, gm.Type, gm.Buckets)
	case ofp13.GCDelete:
		s.Pipeline.Groups().Delete(gm.GroupID)
	}
}

func (s *Switch13) handlePortMod(pm *ofp13.PortMod) {
	p, ok := s.Ports[port.Number(pm.PortNo)]
	if !ok {
		return
	}
	p.MergeConfig(port.Config(pm.Config), port.Config(pm.Mask))
}

func (s *Switch13) handleMultipart(req *ofp13.MultipartRequest) {
	var body interface{}
	switch req.Type {
	case ofp13.MultipartTable:
		stats := make([]ofp13.TableStats, 0, 64)
		for i := uint8(0); i < 64; i++ {
			stats = append(stats, s.Pipeline.Table(i).Stats())
		}
		body = stats
	case ofp13.MultipartFlow, ofp13.MultipartAggregate:
		tableID, m := parseFlowStatsRequest(req.Body)
		var flows []ofp13.FlowStats
		for i := uint8(0); i < 64; i++ {
			if tableID != 0xff && i != tableID {
				continue
			}
			for _, f := range s.Pipeline.Table(i).MatchingFlows(m, false) {
				flows = append(flows, ofp13.FlowStats{
					TableID:      f.TableID,
					Match:        &f.Match,
					Priority:     f.Priority,
					IdleTimeout:  f.IdleTimeout,
					HardTimeout:  f.HardTimeout,
					Cookie:       f.Cookie,
					PacketCount:  f.PacketCount,
					ByteCount:    f.ByteCount,
					Instructions: f.Instructions,
				})
			}
		}
		body = flows
	case ofp13.MultipartGroupDesc, ofp13.MultipartGroup, ofp13.MultipartPortDesc, ofp13.MultipartPortStats, ofp13.MultipartQueue, ofp13.MultipartDesc:
		// These sub-types are accepted but carry no body this model
		// populates beyond an empty reply.
	}
	reply := &ofp13.MultipartReply{
		Header: common.NewHeader(common.VersionOF13, ofp13.TypeMultipartReply, req.Xid),
		Type:   req.Type,
		Body:   body,
	}
	_ = s.Conn.Send(reply)
}

// parseFlowStatsRequest recovers the table id/match a FLOW or AGGREGATE
// multipart request carried in its opaque Body, defaulting to "all
// tables, match everything" if the controller sent something else.
func parseFlowStatsRequest(body interface{}) (uint8, *ofp13.Match) {
	if fsr, ok := body.(ofp13.FlowStatsRequest); ok {
		if fsr.Match == nil {
			fsr.Match = ofp13.NewMatch()
		}
		return fsr.TableID, fsr.Match
	}
	return 0xff, ofp13.NewMatch()
}

// handlePacketOut executes an explicit action list against a
// controller-supplied (or buffer-referenced) packet, bypassing the
// pipeline.
func (s *Switch13) handlePacketOut(po *ofp13.PacketOut) {
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

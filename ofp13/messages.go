package ofp13

import (
	"encoding/json"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/wire"
)

// Message types this dialect's dispatch switches on.
const (
	TypeHello uint8 = iota
	TypeError
	TypeEchoRequest
	TypeEchoReply
	TypeFeaturesRequest
	TypeFeaturesReply
	TypeGetConfigRequest
	TypeGetConfigReply
	TypeSetConfig
	TypePacketIn
	TypeFlowRemoved
	TypePortStatus
	TypePacketOut
	TypeFlowMod
	TypeGroupMod
	TypePortMod
	TypeMultipartRequest
	TypeMultipartReply
	TypeBarrierRequest
	TypeBarrierReply
	TypeExperimenter
)

// FlowModFlags mirrors ofp10's.
type FlowModFlags uint16

const (
	FlagSendFlowRem FlowModFlags = 1 << iota
	FlagCheckOverlap
)

// FlowModCommand mirrors ofp10's, carried into 1.3 unchanged.
type FlowModCommand uint16

const (
	FCAdd FlowModCommand = iota
	FCModify
	FCModifyStrict
	FCDelete
	FCDeleteStrict
)

// GroupModCommand selects the GroupMod operation.
type GroupModCommand uint16

const (
	GCAdd GroupModCommand = iota
	GCModify
	GCDelete
)

// FlowMod installs, modifies or deletes a flow entry in one of a
// switch's 64 tables.
type FlowMod struct {
	common.Header
	TableID     uint8
	Match       *Match
	Cookie      uint64
	Command     FlowModCommand
	IdleTimeout uint16
	HardTimeout uint16
	Priority    uint16
	BufferID    int32
	OutPort     uint32
	OutGroup    uint32
	Flags       uint16
	Instructions InstructionSet
}

func (m *FlowMod) Len() uint16 { return m.Header.Len() }
func (m *FlowMod) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeFlowMod
	return marshalJSONFramed(&m.Header, m)
}
func (m *FlowMod) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// GroupMod installs, modifies or deletes a group table entry.
type GroupMod struct {
	common.Header
	Command GroupModCommand
	Type    GroupType
	GroupID Uint32Group
	Buckets []Bucket
}

func (m *GroupMod) Len() uint16 { return m.Header.Len() }
func (m *GroupMod) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeGroupMod
	return marshalJSONFramed(&m.Header, m)
}
func (m *GroupMod) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// FlowRemovedReason mirrors ofp10's.
type FlowRemovedReason uint8

const (
	ReasonIdleTimeout FlowRemovedReason = iota
	ReasonHardTimeout
	ReasonDelete
	ReasonGroupDelete
)

// FlowRemoved is sent to the controller on every timeout eviction, and on
// a delete of a flow that carries the send-flow-removed flag.
type FlowRemoved struct {
	common.Header
	TableID     uint8
	Match       *Match
	Cookie      uint64
	Priority    uint16
	Reason      FlowRemovedReason
	DurationSec uint32
	IdleTimeout uint16
	PacketCount uint64
	ByteCount   uint64
}

func (m *FlowRemoved) Len() uint16 { return m.Header.Len() }
func (m *FlowRemoved) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeFlowRemoved
	return marshalJSONFramed(&m.Header, m)
}
func (m *FlowRemoved) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// PacketInReason mirrors ofp10's plus the invalid-TTL reason 1.3 adds.
type PacketInReason uint8

const (
	ReasonNoMatch PacketInReason = iota
	ReasonAction
	ReasonInvalidTTL
)

// PacketIn punts a packet up to the controller.
type PacketIn struct {
	common.Header
	BufferID int32
	TableID  uint8
	Reason   PacketInReason
	Match    *Match // carries in_port and any OXM fields the pipeline had set
	Data     []byte
}

func (m *PacketIn) Len() uint16 { return m.Header.Len() }
func (m *PacketIn) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypePacketIn
	return marshalJSONFramed(&m.Header, m)
}
func (m *PacketIn) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// PacketOut re-injects a buffered or inline packet via an explicit
// action list.
type PacketOut struct {
	common.Header
	BufferID int32
	InPort   uint32
	Actions  []Action
	Data     []byte
}

func (m *PacketOut) Len() uint16 { return m.Header.Len() }
func (m *PacketOut) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypePacketOut
	return marshalJSONFramed(&m.Header, m)
}
func (m *PacketOut) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// PortDesc is the port summary for MultipartReply{Type:
// MultipartPortDesc}; FeaturesReply carries no port list.
type PortDesc struct {
	PortNo uint32
	HwAddr net.HardwareAddr
	Name   string
	Config uint32
	State  uint32
}

// FeaturesReply answers FeaturesRequest with the switch's identity.
type FeaturesReply struct {
	common.Header
	DatapathID   uint64
	NBuffers     uint32
	NTables      uint8
	Capabilities uint32
}

func (m *FeaturesReply) Len() uint16 { return m.Header.Len() }
func (m *FeaturesReply) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeFeaturesReply
	return marshalJSONFramed(&m.Header, m)
}
func (m *FeaturesReply) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

type FeaturesRequest struct{ common.Header }

func NewFeaturesRequest(xid uint32) *FeaturesRequest {
	return &FeaturesRequest{common.NewHeader(common.VersionOF13, TypeFeaturesRequest, xid)}
}
func (m *FeaturesRequest) Len() uint16                      { return m.Header.Len() }
func (m *FeaturesRequest) MarshalBinary() ([]byte, error)   { return m.Header.MarshalBinary() }
func (m *FeaturesRequest) UnmarshalBinary(data []byte) error { return m.Header.UnmarshalBinary(data) }

// SwitchConfig covers both GetConfigReply and SetConfig.
type SwitchConfig struct {
	common.Header
	Flags       uint16
	MissSendLen uint16
}

func (m *SwitchConfig) Len() uint16                       { return m.Header.Len() }
func (m *SwitchConfig) MarshalBinary() ([]byte, error)    { return marshalJSONFramed(&m.Header, m) }
func (m *SwitchConfig) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// PortMod requests a masked update of a port's config bits.
type PortMod struct {
	common.Header
	PortNo uint32
	HwAddr net.HardwareAddr
	Config uint32
	Mask   uint32
}

func (m *PortMod) Len() uint16 { return m.Header.Len() }
func (m *PortMod) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypePortMod
	return marshalJSONFramed(&m.Header, m)
}
func (m *PortMod) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// PortStatus notifies the controller of a port configuration/state
// change.
type PortStatus struct {
	common.Header
	Reason uint8
	Desc   PortDesc
}

func (m *PortStatus) Len() uint16 { return m.Header.Len() }
func (m *PortStatus) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypePortStatus
	return marshalJSONFramed(&m.Header, m)
}
func (m *PortStatus) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// BarrierRequest/BarrierReply are empty beyond their header and xid.
type BarrierRequest struct{ common.Header }
type BarrierReply struct{ common.Header }

func (m *BarrierRequest) Len() uint16                       { return m.Header.Len() }
func (m *BarrierRequest) MarshalBinary() ([]byte, error)    { return m.Header.MarshalBinary() }
func (m *BarrierRequest) UnmarshalBinary(data []byte) error { return m.Header.UnmarshalBinary(data) }

func NewBarrierReply(xid uint32) *BarrierReply {
	return &BarrierReply{common.NewHeader(common.VersionOF13, TypeBarrierReply, xid)}
}
func (m *BarrierReply) Len() uint16                       { return m.Header.Len() }
func (m *BarrierReply) MarshalBinary() ([]byte, error)    { return m.Header.MarshalBinary() }
func (m *BarrierReply) UnmarshalBinary(data []byte) error { return m.Header.UnmarshalBinary(data) }

// Experimenter carries a vendor-defined message this dialect doesn't
// otherwise recognize, the 1.3 rename of 1.0's Vendor message.
type Experimenter struct {
	common.Header
	ExperimenterID uint32
	Data           []byte
}

func (m *Experimenter) Len() uint16 { return m.Header.Len() }
func (m *Experimenter) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeExperimenter
	return marshalJSONFramed(&m.Header, m)
}
func (m *Experimenter) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// MultipartType enumerates the MultipartRequest/Reply sub-types.
type MultipartType uint16

const (
	MultipartDesc MultipartType = iota
	MultipartFlow
	MultipartAggregate
	MultipartTable
	MultipartPortStats
	MultipartQueue
	MultipartGroup
	MultipartGroupDesc
	MultipartPortDesc
)

// MultipartRequest/MultipartReply generalize ofp10's StatsRequest/Reply
// to the 1.3 naming, carrying a sub-type and an opaque body (the
// real wire layout's per-type padding/length fields are not reproduced,
// following the ambient stack's JSON-body convention).
type MultipartRequest struct {
	common.Header
	Type MultipartType
	Body interface{}
}

type MultipartReply struct {
	common.Header
	Type MultipartType
	Body interface{}
}

func (m *MultipartRequest) Len() uint16 { return m.Header.Len() }
func (m *MultipartRequest) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeMultipartRequest
	log.WithField("multipartType", m.Type).Debug("encoding multipart request")
	return marshalJSONFramed(&m.Header, m)
}
func (m *MultipartRequest) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

func (m *MultipartReply) Len() uint16 { return m.Header.Len() }
func (m *MultipartReply) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeMultipartReply
	return marshalJSONFramed(&m.Header, m)
}
func (m *MultipartReply) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// FlowStatsRequest is the body of a MultipartRequest{Type: MultipartFlow
// or MultipartAggregate}: which table(s) to scan (0xff meaning all) and
// which entries within it/them match.
type FlowStatsRequest struct {
	TableID uint8
	Match   *Match
}

// FlowStats is one entry of a MultipartReply{Type: MultipartFlow} body.
type FlowStats struct {
	TableID      uint8
	Match        *Match
	DurationSec  uint32
	Priority     uint16
	IdleTimeout  uint16
	HardTimeout  uint16
	Cookie       uint64
	PacketCount  uint64
	ByteCount    uint64
	Instructions InstructionSet
}

// TableStats summarizes one flow table.
type TableStats struct {
	TableID      uint8
	ActiveCount  uint32
	LookupCount  uint64
	MatchedCount uint64
}

// GroupStats is one entry of a MultipartReply{Type: MultipartGroup} body.
type GroupStats struct {
	GroupID     Uint32Group
	RefCount    uint32
	PacketCount uint64
	ByteCount   uint64
}

func marshalJSONFramed(h *common.Header, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	h.Length = uint16(8 + len(body))
	hdr, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(hdr, body...), nil
}

func unmarshalJSONFramed(data []byte, v interface{}) error {
	if len(data) < 8 {
		return fmt.Errorf("ofp13: message too short: %d bytes", len(data))
	}
	return json.Unmarshal(data[8:], v)
}

// Decode returns an empty instance of the message a header's Type byte
// names, for a real transport to UnmarshalBinary into once the rest of
// the frame has arrived.
func Decode(msgType uint8) (wire.Message, bool) {
	switch msgType {
	case TypeEchoRequest:
		return &common.EchoRequest{}, true
	case TypeEchoReply:
		return &common.EchoReply{}, true
	case TypeFeaturesRequest:
		return &FeaturesRequest{}, true
	case TypeFeaturesReply:
		return &FeaturesReply{}, true
	case TypeSetConfig:
		return &SwitchConfig{}, true
	case TypePacketIn:
		return &PacketIn{}, true
	case TypeFlowRemoved:
		return &FlowRemoved{}, true
	case TypePortStatus:
		return &PortStatus{}, true
	case TypePacketOut:
		return &PacketOut{}, true
	case TypeFlowMod:
		return &FlowMod{}, true
	case TypeGroupMod:
		return &GroupMod{}, true
	case TypePortMod:
		return &PortMod{}, true
	case TypeMultipartRequest:
		return &MultipartRequest{}, true
	case TypeMultipartReply:
		return &MultipartReply{}, true
	case TypeBarrierRequest:
		return &BarrierRequest{}, true
	case TypeBarrierReply:
		return &BarrierReply{}, true
	case TypeExperimenter:
		return &Experimenter{}, true
	default:
		return nil, false
	}
}

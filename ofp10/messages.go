package ofp10

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"

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
	TypePortMod
	TypeStatsRequest
	TypeStatsReply
	TypeBarrierRequest
	TypeBarrierReply
	TypeVendor
)

// FlowModCommand.
type FlowModCommand uint16

const (
	FCAdd FlowModCommand = iota
	FCModify
	FCModifyStrict
	FCDelete
	FCDeleteStrict
)

// FlowModFlags.
type FlowModFlags uint16

const (
	FlagSendFlowRem FlowModFlags = 1 << iota
	FlagCheckOverlap
)

// FlowMod installs, modifies or deletes a flow.
type FlowMod struct {
	common.Header
	Match       Match
	Cookie      uint64
	Command     FlowModCommand
	IdleTimeout uint16
	HardTimeout uint16
	Priority    uint16
	BufferID    int32 // -1 means "no buffered packet"
	OutPort     uint16
	Flags       FlowModFlags
	Actions     []Action
}

func (m *FlowMod) Len() uint16 { return m.Header.Len() }
func (m *FlowMod) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeFlowMod
	return marshalJSONFramed(&m.Header, m)
}
func (m *FlowMod) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// FlowRemovedReason.
type FlowRemovedReason uint8

const (
	ReasonIdleTimeout FlowRemovedReason = iota
	ReasonHardTimeout
	ReasonDelete
)

// FlowRemoved is sent to the controller on every timeout eviction, and on
// a delete of a flow that carries the send-flow-removed flag.
type FlowRemoved struct {
	common.Header
	Match         Match
	Cookie        uint64
	Priority      uint16
	Reason        FlowRemovedReason
	DurationSec   uint32
	IdleTimeout   uint16
	PacketCount   uint64
	ByteCount     uint64
}

func (m *FlowRemoved) Len() uint16 { return m.Header.Len() }
func (m *FlowRemoved) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeFlowRemoved
	return marshalJSONFramed(&m.Header, m)
}
func (m *FlowRemoved) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// PacketInReason.
type PacketInReason uint8

const (
	ReasonNoMatch PacketInReason = iota
	ReasonAction
)

// PacketIn punts an unmatched or CONTROLLER-routed packet up to the
// controller, referencing a buffered copy by id.
type PacketIn struct {
	common.Header
	BufferID int32
	InPort   uint16
	Reason   PacketInReason
	Data     []byte // always carries the frame bytes, buffered or not
}

func (m *PacketIn) Len() uint16 { return m.Header.Len() }
func (m *PacketIn) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypePacketIn
	return marshalJSONFramed(&m.Header, m)
}
func (m *PacketIn) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// PacketOut re-injects a buffered or inline packet.
type PacketOut struct {
	common.Header
	BufferID int32 // -1 means Data carries the packet inline
	InPort   uint16
	Actions  []Action
	Data     []byte
}

func (m *PacketOut) Len() uint16 { return m.Header.Len() }
func (m *PacketOut) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypePacketOut
	return marshalJSONFramed(&m.Header, m)
}
func (m *PacketOut) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// FeaturesReply answers FeaturesRequest with the switch's identity and
// port list.
type FeaturesReply struct {
	common.Header
	DatapathID   uint64
	NBuffers     uint32
	NTables      uint8
	Capabilities uint32
	Ports        []PortDesc
}

// PortDesc is the port summary carried in FeaturesReply.
type PortDesc struct {
	PortNo uint16
	HwAddr net.HardwareAddr
	Name   string
	Config uint32
	State  uint32
}

func (m *FeaturesReply) Len() uint16 { return m.Header.Len() }
func (m *FeaturesReply) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeFeaturesReply
	return marshalJSONFramed(&m.Header, m)
}
func (m *FeaturesReply) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// FeaturesRequest has no body beyond the header.
type FeaturesRequest struct{ common.Header }

func NewFeaturesRequest(xid uint32) *FeaturesRequest {
	return &FeaturesRequest{common.NewHeader(common.VersionOF10, TypeFeaturesRequest, xid)}
}
func (m *FeaturesRequest) Len() uint16                     { return m.Header.Len() }
func (m *FeaturesRequest) MarshalBinary() ([]byte, error)  { return m.Header.MarshalBinary() }
func (m *FeaturesRequest) UnmarshalBinary(data []byte) error { return m.Header.UnmarshalBinary(data) }

// SwitchConfig covers both GetConfigReply and SetConfig.
type SwitchConfig struct {
	common.Header
	Flags       uint16
	MissSendLen uint16
}

func (m *SwitchConfig) Len() uint16                    { return m.Header.Len() }
func (m *SwitchConfig) MarshalBinary() ([]byte, error) { return marshalJSONFramed(&m.Header, m) }
func (m *SwitchConfig) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// PortMod requests a masked update of a port's config bits.
type PortMod struct {
	common.Header
	PortNo uint16
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

// BarrierRequest/BarrierReply are empty beyond their header and xid: a
// BarrierReply(xid) is sent once all in-flight work ahead of the barrier
// has drained.
type BarrierRequest struct{ common.Header }
type BarrierReply struct{ common.Header }

func (m *BarrierRequest) Len() uint16                      { return m.Header.Len() }
func (m *BarrierRequest) MarshalBinary() ([]byte, error)   { return m.Header.MarshalBinary() }
func (m *BarrierRequest) UnmarshalBinary(data []byte) error { return m.Header.UnmarshalBinary(data) }

func NewBarrierReply(xid uint32) *BarrierReply {
	return &BarrierReply{common.NewHeader(common.VersionOF10, TypeBarrierReply, xid)}
}
func (m *BarrierReply) Len() uint16                      { return m.Header.Len() }
func (m *BarrierReply) MarshalBinary() ([]byte, error)   { return m.Header.MarshalBinary() }
func (m *BarrierReply) UnmarshalBinary(data []byte) error { return m.Header.UnmarshalBinary(data) }

// Vendor carries an experimenter-defined message this dialect doesn't
// otherwise recognize, grounded on openflow13's VendorHeader. Nothing in
// this model speaks any vendor extension, so dispatch accepts and
// discards one rather than treating it as a protocol error.
type Vendor struct {
	common.Header
	VendorID uint32
	Data     []byte
}

func (m *Vendor) Len() uint16 { return m.Header.Len() }
func (m *Vendor) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeVendor
	return marshalJSONFramed(&m.Header, m)
}
func (m *Vendor) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// StatsType enumerates the StatsRequest/Reply sub-types // names (desc, flow, aggregate, table, port, queue, vendor).
type StatsType uint16

const (
	StatsDesc StatsType = iota
	StatsFlow
	StatsAggregate
	StatsTable
	StatsPort
	StatsQueue
	StatsVendor
)

// StatsRequest/StatsReply carry a sub-type and an opaque, sub-type
// specific body.
type StatsRequest struct {
	common.Header
	Type StatsType
	Body interface{}
}

type StatsReply struct {
	common.Header
	Type StatsType
	Body interface{}
}

func (m *StatsRequest) Len() uint16 { return m.Header.Len() }
func (m *StatsRequest) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeStatsRequest
	return marshalJSONFramed(&m.Header, m)
}
func (m *StatsRequest) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

func (m *StatsReply) Len() uint16 { return m.Header.Len() }
func (m *StatsReply) MarshalBinary() ([]byte, error) {
	m.Header.Type = TypeStatsReply
	return marshalJSONFramed(&m.Header, m)
}
func (m *StatsReply) UnmarshalBinary(data []byte) error { return unmarshalJSONFramed(data, m) }

// FlowStats is one entry of a StatsReply{Type: StatsFlow} body.
type FlowStats struct {
	TableID     uint8
	Match       Match
	DurationSec uint32
	Priority    uint16
	IdleTimeout uint16
	HardTimeout uint16
	Cookie      uint64
	PacketCount uint64
	ByteCount   uint64
	Actions     []Action
}

// TableStats summarizes one flow table.
type TableStats struct {
	TableID      uint8
	Name         string
	ActiveCount  uint32
	LookupCount  uint64
	MatchedCount uint64
}

// marshalJSONFramed is the wire encoding used for payloads that need not
// match real OpenFlow byte layout: a common.Header followed by a JSON
// body. It keeps framing (length-prefixed via the header, as
// util/stream.go's reader expects) while staying simple to produce and
// consume in a simulation core.
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
		return fmt.Errorf("ofp10: message too short: %d bytes", len(data))
	}
	return json.Unmarshal(data[8:], v)
}

var _ = binary.BigEndian // keeps the encoding/binary import referenced; nothing else in this file uses it

// Decode returns an empty instance of the message a header's Type byte
// names, for a real transport to UnmarshalBinary into once the rest of
// the frame has arrived. Used by the net.Conn-backed Transport; the
// in-memory SimTransport never serializes, so it never calls this.
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
	case TypePacketOut:
		return &PacketOut{}, true
	case TypeFlowMod:
		return &FlowMod{}, true
	case TypePortMod:
		return &PortMod{}, true
	case TypeStatsRequest:
		return &StatsRequest{}, true
	case TypeStatsReply:
		return &StatsReply{}, true
	case TypeBarrierRequest:
		return &BarrierRequest{}, true
	case TypeBarrierReply:
		return &BarrierReply{}, true
	case TypeVendor:
		return &Vendor{}, true
	default:
		return nil, false
	}
}

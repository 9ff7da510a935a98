// Package ofp13 implements the OpenFlow 1.3 dialect: OXM TLV matching,
// the multi-table pipeline (GoToTable, action set, instructions), group
// tables and the message set a switch and controller exchange in 1.3
// mode. The field-lookup idiom (a class+field name resolving to an OXM
// header) follows openflow13/nx_match.go's FindFieldHeaderByName, though
// here the field table is small and closed rather than an NXM extension
// registry.
package ofp13

import (
	"bytes"
	"net"
)

// FieldType enumerates the OXM match fields this dialect supports. A real
// OpenFlow 1.3 switch advertises a much larger OXM class; this is the
// closed set a pipeline built on flowtable13 actually inspects.
type FieldType uint8

const (
	FieldInPort FieldType = iota
	FieldEthSrc
	FieldEthDst
	FieldEthType
	FieldVlanVid
	FieldVlanPcp
	FieldIPProto
	FieldIPv4Src
	FieldIPv4Dst
	FieldIPDscp
	FieldTcpSrc
	FieldTcpDst
	FieldUdpSrc
	FieldUdpDst
	FieldMetadata
)

// fieldInfo is the static description of one OXM field: its wire name (as
// would appear in an OXM_OF_* constant) and whether it supports a mask.
type fieldInfo struct {
	name      string
	maskable  bool
}

var fieldTable = map[FieldType]fieldInfo{
	FieldInPort:   {"OXM_OF_IN_PORT", false},
	FieldEthSrc:   {"OXM_OF_ETH_SRC", true},
	FieldEthDst:   {"OXM_OF_ETH_DST", true},
	FieldEthType:  {"OXM_OF_ETH_TYPE", false},
	FieldVlanVid:  {"OXM_OF_VLAN_VID", true},
	FieldVlanPcp:  {"OXM_OF_VLAN_PCP", false},
	FieldIPProto:  {"OXM_OF_IP_PROTO", false},
	FieldIPv4Src:  {"OXM_OF_IPV4_SRC", true},
	FieldIPv4Dst:  {"OXM_OF_IPV4_DST", true},
	FieldIPDscp:   {"OXM_OF_IP_DSCP", false},
	FieldTcpSrc:   {"OXM_OF_TCP_SRC", false},
	FieldTcpDst:   {"OXM_OF_TCP_DST", false},
	FieldUdpSrc:   {"OXM_OF_UDP_SRC", false},
	FieldUdpDst:   {"OXM_OF_UDP_DST", false},
	FieldMetadata: {"OXM_OF_METADATA", true},
}

// FindFieldByName resolves an OXM field by its wire name, mirroring the
// lookup idiom the Nicira extension fields use for NXM_* names.
func FindFieldByName(name string) (FieldType, bool) {
	for t, info := range fieldTable {
		if info.name == name {
			return t, true
		}
	}
	return 0, false
}

// MatchField is one OXM TLV: a field, its value, and an optional mask (nil
// means exact match / no mask present).
type MatchField struct {
	Type  FieldType
	Value []byte
	Mask  []byte // nil unless fieldTable[Type].maskable and a mask was set
}

// Maskable reports whether this field type supports a wildcard mask.
func (f MatchField) Maskable() bool { return fieldTable[f.Type].maskable }

// Match is an OXM TLV list: the set of (field, value[, mask]) pairs a
// flow entry or packet match carries. Unlike OF1.0's fixed Wildcards
// bitmap, omission of a field from the list means "don't care" for that
// field.
type Match struct {
	Fields []MatchField
}

// NewMatch builds an empty, match-everything Match.
func NewMatch() *Match { return &Match{} }

// Find returns the field of type t, if present.
func (m *Match) Find(t FieldType) (MatchField, bool) {
	for _, f := range m.Fields {
		if f.Type == t {
			return f, true
		}
	}
	return MatchField{}, false
}

// Set adds or replaces the field of type t.
func (m *Match) Set(t FieldType, value, mask []byte) {
	for i, f := range m.Fields {
		if f.Type == t {
			m.Fields[i] = MatchField{Type: t, Value: value, Mask: mask}
			return
		}
	}
	m.Fields = append(m.Fields, MatchField{Type: t, Value: value, Mask: mask})
}

func valueEqualMasked(a, b, mask []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if mask == nil {
		return bytes.Equal(a, b)
	}
	if len(mask) != len(a) {
		return false
	}
	for i := range a {
		if (a[i]^b[i])&mask[i] != 0 {
			return false
		}
	}
	return true
}

// maskMoreSpecific reports whether mask a is equal to or more specific
// than mask b (every bit set in b is also set in a), the OXM
// generalization test: a flow using mask a matches a subset of what mask
// b matches.
func maskMoreSpecific(a, b []byte) bool {
	if a == nil {
		return true // nil mask (exact) is the most specific possible
	}
	if b == nil {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if b[i]&^a[i] != 0 {
			return false
		}
	}
	return true
}

// StrictMatch reports whether a and b carry exactly the same field set,
// each with identical value and mask: the comparison FlowMod's
// OFPFC_MODIFY_STRICT/OFPFC_DELETE_STRICT and stats requests use to find
// one specific entry.
func StrictMatch(a, b *Match) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for _, fa := range a.Fields {
		fb, ok := b.Find(fa.Type)
		if !ok {
			return false
		}
		if !bytes.Equal(fa.Value, fb.Value) || !bytes.Equal(fa.Mask, fb.Mask) {
			return false
		}
	}
	return true
}

// NonStrictMatch reports whether a is at least as general as b: every
// field a specifies is also specified by b with an equal or narrower
// mask and an equal value. This is the overlap/superset test used for
// OFPFC_MODIFY and non-strict stats lookups.
func NonStrictMatch(a, b *Match) bool {
	for _, fa := range a.Fields {
		fb, ok := b.Find(fa.Type)
		if !ok {
			return false
		}
		if !maskMoreSpecific(fb.Mask, fa.Mask) {
			return false
		}
		if !valueEqualMasked(fa.Value, fb.Value, fa.Mask) {
			return false
		}
	}
	return true
}

// PktMatch reports whether a packet's extracted field values satisfy a
// flow's OXM match: every field the flow specifies must be present in
// the packet's field set and equal under the flow's mask. Fields the
// flow omits are "don't care" and never consulted.
func PktMatch(flow *Match, pkt *Match) bool {
	for _, ff := range flow.Fields {
		pf, ok := pkt.Find(ff.Type)
		if !ok {
			return false
		}
		if !valueEqualMasked(ff.Value, pf.Value, ff.Mask) {
			return false
		}
	}
	return true
}

// helpers for building common field values from typed Go values, mirroring
// ofctrl/flow.go's pattern of small typed setters over a generic field list.

func u16Bytes(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }
func u32Bytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
func u64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
	return b
}

func (m *Match) SetInPort(port uint32) { m.Set(FieldInPort, u32Bytes(port), nil) }

// InPort returns the match's OXM_OF_IN_PORT field value, or (0, false) if
// the match carries no in-port constraint.
func (m *Match) InPort() (uint32, bool) {
	f, ok := m.Find(FieldInPort)
	if !ok || len(f.Value) != 4 {
		return 0, false
	}
	return uint32(f.Value[0])<<24 | uint32(f.Value[1])<<16 | uint32(f.Value[2])<<8 | uint32(f.Value[3]), true
}
func (m *Match) SetEthType(et uint16)    { m.Set(FieldEthType, u16Bytes(et), nil) }
func (m *Match) SetEthSrc(mac net.HardwareAddr, mask net.HardwareAddr) {
	m.Set(FieldEthSrc, []byte(mac), maskBytes(mask))
}
func (m *Match) SetEthDst(mac net.HardwareAddr, mask net.HardwareAddr) {
	m.Set(FieldEthDst, []byte(mac), maskBytes(mask))
}
func (m *Match) SetIPv4Src(ip net.IP, mask net.IPMask) {
	m.Set(FieldIPv4Src, ip.To4(), maskBytes(net.IP(mask)))
}
func (m *Match) SetIPv4Dst(ip net.IP, mask net.IPMask) {
	m.Set(FieldIPv4Dst, ip.To4(), maskBytes(net.IP(mask)))
}
func (m *Match) SetIPProto(proto uint8) { m.Set(FieldIPProto, []byte{proto}, nil) }
func (m *Match) SetTcpSrc(port uint16)  { m.Set(FieldTcpSrc, u16Bytes(port), nil) }
func (m *Match) SetTcpDst(port uint16)  { m.Set(FieldTcpDst, u16Bytes(port), nil) }
func (m *Match) SetUdpSrc(port uint16)  { m.Set(FieldUdpSrc, u16Bytes(port), nil) }
func (m *Match) SetUdpDst(port uint16)  { m.Set(FieldUdpDst, u16Bytes(port), nil) }
func (m *Match) SetMetadata(v, mask uint64) {
	m.Set(FieldMetadata, u64Bytes(v), u64Bytes(mask))
}

func maskBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	allOnes := true
	for _, x := range b {
		if x != 0xff {
			allOnes = false
			break
		}
	}
	if allOnes {
		return nil
	}
	return b
}

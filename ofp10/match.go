// Package ofp10 implements the OpenFlow 1.0 dialect: the fixed-field
// Match, its action list, and the message set a switch and controller
// exchange in that mode. Shaped after ofctrl/flow.go's match-field-building
// style, but fixed-field rather than OXM (that lives in ofp13).
package ofp10

import (
	"net"
)

// Wildcard bits, one per Match field.
const (
	WildcardInPort Wildcards = 1 << iota
	WildcardDlSrc
	WildcardDlDst
	WildcardDlVlan
	WildcardDlVlanPcp
	WildcardDlType
	WildcardNwTos
	WildcardNwProto
	WildcardTpSrc
	WildcardTpDst
)

// nwSrcShift/nwDstShift locate the 6-bit nw_src/nw_dst prefix-length
// subfields packed into the high bits of the wildcard word (OF1.0 wire
// layout); 0 in a subfield means fully wildcarded, 32 an exact host match.
const (
	nwSrcShift = 14
	nwDstShift = 20
)

// Wildcards is the 32-bit field-presence bitmap.
type Wildcards uint32

func (w Wildcards) NwSrcMaskBits() uint8 {
	return uint8((uint32(w) >> nwSrcShift) & 0x3f)
}

func (w Wildcards) NwDstMaskBits() uint8 {
	return uint8((uint32(w) >> nwDstShift) & 0x3f)
}

// Match is the OpenFlow 1.0 fixed twelve-field tuple plus wildcard bitmap
// and the two auxiliary CIDR masks.
type Match struct {
	Wildcards Wildcards

	InPort    uint16
	DlSrc     net.HardwareAddr
	DlDst     net.HardwareAddr
	DlVlan    uint16
	DlVlanPcp uint8
	DlType    uint16
	NwTos     uint8
	NwProto   uint8
	NwSrc     net.IP
	NwDst     net.IP
	TpSrc     uint16
	TpDst     uint16

	// NwSrcMask/NwDstMask widen source/destination comparison to a
	// prefix, derived from the wildcard word's mask-length subfields.
	NwSrcMask net.IPMask
	NwDstMask net.IPMask
}

func maskFromBits(bits uint8) net.IPMask {
	if bits > 32 {
		bits = 32
	}
	return net.CIDRMask(32-int(bits), 32)
}

// EffectiveNwSrcMask returns the mask to apply to NwSrc comparisons,
// computed from the wildcard word if NwSrcMask was not set explicitly.
func (m *Match) EffectiveNwSrcMask() net.IPMask {
	if m.NwSrcMask != nil {
		return m.NwSrcMask
	}
	return maskFromBits(32 - m.Wildcards.NwSrcMaskBits())
}

func (m *Match) EffectiveNwDstMask() net.IPMask {
	if m.NwDstMask != nil {
		return m.NwDstMask
	}
	return maskFromBits(32 - m.Wildcards.NwDstMaskBits())
}

func ipv4EqualMasked(a, b net.IP, mask net.IPMask) bool {
	a4, b4 := a.To4(), b.To4()
	if a4 == nil || b4 == nil {
		return a.Equal(b)
	}
	for i := range a4 {
		m := mask[i]
		if (a4[i]^b4[i])&m != 0 {
			return false
		}
	}
	return true
}

func macEqual(a, b net.HardwareAddr) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return a.String() == b.String()
}

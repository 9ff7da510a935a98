package netsim

import "net"

// minPayload is the minimum Ethernet payload size; shorter frames are
// zero-padded on transmit.
const minPayload = 46

// Frame is a transmitted Ethernet frame, exactly as handed across a
// NetDevice's receive callback.
type Frame struct {
	Src       net.HardwareAddr
	Dst       net.HardwareAddr
	Protocol  uint16
	IsLengthField bool // true if Protocol was carried as an 802.2 LLC length field (<=1500)
	Packet    *Packet
}

// NewFrame builds a frame, padding the packet to the minimum Ethernet
// payload size.
func NewFrame(src, dst net.HardwareAddr, protocol uint16, pkt *Packet) *Frame {
	if pkt.Size() < minPayload {
		padded := make([]byte, minPayload)
		copy(padded, pkt.Bytes())
		pkt = NewPacket(padded)
	}
	return &Frame{
		Src:           src,
		Dst:           dst,
		Protocol:      protocol,
		IsLengthField: protocol <= 1500,
		Packet:        pkt,
	}
}

// IsStpBpdu reports whether dst is a Spanning-Tree-Protocol BPDU
// destination, which is never forwarded by a non-SDN port.
func IsStpBpdu(dst net.HardwareAddr) bool {
	return dst.String() == MACStpBpdu.String() || dst.String() == MACPvstBpdu.String()
}

// IsLldp reports whether dst is the LLDP discovery multicast address,
// which is delivered only to the SDN callback, never up the normal stack.
func IsLldp(dst net.HardwareAddr) bool {
	return dst.String() == MACLldp.String()
}

// Size returns the on-wire size of the frame (14-byte Ethernet header plus
// payload, post zero-padding).
func (f *Frame) Size() int {
	return 14 + f.Packet.Size()
}

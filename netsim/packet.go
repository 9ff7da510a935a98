package netsim

// HeaderBundle is the set of typed header slots a flow table deconstructs
// a packet into, remembering which were present. These are locals
// returned by value rather than fields on the table itself, so the table
// can re-enter handlePacket for GoToTable (OF1.3) without clobbering
// shared state. HeaderBundle is that by-value return type.
type HeaderBundle struct {
	Eth     *EthernetHeader
	Arp     *ArpHeader
	IPv4    *IPv4Header
	IPv6    *IPv6Header
	Icmpv4  *Icmpv4Header
	Tcp     *TcpHeader
	Udp     *UdpHeader
}

// Packet wraps a byte payload with the ability to peek, pop and push
// typed headers. Real embeddings would swap this for ns-3's ns3::Packet;
// this implementation is the minimal stand-in needed to exercise the
// core end to end.
type Packet struct {
	payload []byte
}

// NewPacket wraps raw bytes (starting at the Ethernet header) as a Packet.
func NewPacket(data []byte) *Packet {
	p := &Packet{payload: append([]byte(nil), data...)}
	return p
}

// Bytes returns the packet's current wire bytes.
func (p *Packet) Bytes() []byte { return p.payload }

// Size returns the packet's current length in bytes.
func (p *Packet) Size() int { return len(p.payload) }

// Clone returns a deep copy, used by the packet buffer and by flood/output which
// must not let one transmitted copy's later mutation bleed into another.
func (p *Packet) Clone() *Packet {
	return NewPacket(p.payload)
}

// ParseHeaders deconstructs the packet into a HeaderBundle. It is
// tolerant of truncated/unknown payloads: headers past the first it
// cannot parse are simply left nil.
func (p *Packet) ParseHeaders() HeaderBundle {
	var hb HeaderBundle
	data := p.payload

	eth := new(EthernetHeader)
	if err := eth.UnmarshalBinary(data); err != nil {
		return hb
	}
	hb.Eth = eth
	data = data[eth.Len():]

	switch eth.EtherType {
	case EtherTypeARP:
		arp := new(ArpHeader)
		if arp.UnmarshalBinary(data) == nil {
			hb.Arp = arp
		}
	case EtherTypeIPv4:
		ip4 := new(IPv4Header)
		if ip4.UnmarshalBinary(data) != nil {
			return hb
		}
		hb.IPv4 = ip4
		l4 := data[ip4.Len():]
		switch ip4.Protocol {
		case 1: // ICMP
			icmp := new(Icmpv4Header)
			if icmp.UnmarshalBinary(l4) == nil {
				hb.Icmpv4 = icmp
			}
		case 6: // TCP
			tcp := new(TcpHeader)
			if tcp.UnmarshalBinary(l4) == nil {
				hb.Tcp = tcp
			}
		case 17: // UDP
			udp := new(UdpHeader)
			if udp.UnmarshalBinary(l4) == nil {
				hb.Udp = udp
			}
		}
	case EtherTypeIPv6:
		ip6 := new(IPv6Header)
		if ip6.UnmarshalBinary(data) != nil {
			return hb
		}
		hb.IPv6 = ip6
		l4 := data[ip6.Len():]
		switch ip6.NextHeader {
		case 6:
			tcp := new(TcpHeader)
			if tcp.UnmarshalBinary(l4) == nil {
				hb.Tcp = tcp
			}
		case 17:
			udp := new(UdpHeader)
			if udp.UnmarshalBinary(l4) == nil {
				hb.Udp = udp
			}
		}
	}
	return hb
}

// PushEthernet rewrites the Ethernet header in place.
func (p *Packet) PushEthernet(h *EthernetHeader) {
	data, _ := h.MarshalBinary()
	if len(p.payload) < len(data) {
		return
	}
	copy(p.payload, data)
}

// PushIPv4 rewrites the IPv4 header in place at its known offset (always
// right after a 14-byte Ethernet header in this simulation's frames).
func (p *Packet) PushIPv4(h *IPv4Header) {
	data, _ := h.MarshalBinary()
	if len(p.payload) < 14+len(data) {
		return
	}
	copy(p.payload[14:], data)
}

// PushIPv6 rewrites the IPv6 header in place.
func (p *Packet) PushIPv6(h *IPv6Header) {
	data, _ := h.MarshalBinary()
	if len(p.payload) < 14+len(data) {
		return
	}
	copy(p.payload[14:], data)
}

// PushTCP rewrites the TCP header in place, given the IPv4/IPv6 header
// length that precedes it.
func (p *Packet) PushTCP(h *TcpHeader, l3Len uint16) {
	data, _ := h.MarshalBinary()
	off := 14 + int(l3Len)
	if len(p.payload) < off+len(data) {
		return
	}
	copy(p.payload[off:], data)
}

// PushUDP rewrites the UDP header in place, given the IPv4/IPv6 header
// length that precedes it.
func (p *Packet) PushUDP(h *UdpHeader, l3Len uint16) {
	data, _ := h.MarshalBinary()
	off := 14 + int(l3Len)
	if len(p.payload) < off+len(data) {
		return
	}
	copy(p.payload[off:], data)
}

// Truncate returns a copy truncated to maxLen bytes. The OUTPUT action
// paths do not call it.
func (p *Packet) Truncate(maxLen int) *Packet {
	if maxLen <= 0 || maxLen >= len(p.payload) {
		return p.Clone()
	}
	return NewPacket(p.payload[:maxLen])
}

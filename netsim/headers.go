// Package netsim provides a concrete instance of the layer-2
// point-to-point channel and net-device a switch sits on top of. It is a
// minimal, from-scratch implementation: just enough Ethernet framing,
// header typing and point-to-point delivery to drive and test
// flowtable/ofswitch end to end.
//
// Header struct/marshal conventions follow the protocol package's style
// (protocol/ipv6.go, protocol/icmpv6.go).
package netsim

import (
	"encoding/binary"
	"fmt"
	"net"
)

// EtherType values relevant to the switch's header classification
//.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
	EtherTypeIPv6 uint16 = 0x86DD
	EtherTypeVLAN uint16 = 0x8100
)

// Well-known destination MACs calls out by name.
var (
	MACStpBpdu     = net.HardwareAddr{0x01, 0x80, 0xc2, 0x00, 0x00, 0x00}
	MACPvstBpdu    = net.HardwareAddr{0x01, 0x00, 0xc2, 0xcc, 0xcc, 0xcd}
	MACLldp        = net.HardwareAddr{0x01, 0x80, 0xc2, 0x00, 0x00, 0x0e}
	MACBroadcast   = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

// EthernetHeader is the 14-byte Ethernet II header (length/type
// interpretation handled by Frame, see frame.go).
type EthernetHeader struct {
	Dst       net.HardwareAddr
	Src       net.HardwareAddr
	EtherType uint16
}

func (h *EthernetHeader) Len() uint16 { return 14 }

func (h *EthernetHeader) MarshalBinary() ([]byte, error) {
	data := make([]byte, 14)
	copy(data[0:6], h.Dst)
	copy(data[6:12], h.Src)
	binary.BigEndian.PutUint16(data[12:14], h.EtherType)
	return data, nil
}

func (h *EthernetHeader) UnmarshalBinary(data []byte) error {
	if len(data) < 14 {
		return fmt.Errorf("netsim: ethernet header too short: %d bytes", len(data))
	}
	h.Dst = append(net.HardwareAddr(nil), data[0:6]...)
	h.Src = append(net.HardwareAddr(nil), data[6:12]...)
	h.EtherType = binary.BigEndian.Uint16(data[12:14])
	return nil
}

// ArpHeader is a trimmed Ethernet/IPv4 ARP packet.
type ArpHeader struct {
	Operation uint16
	SenderMAC net.HardwareAddr
	SenderIP  net.IP
	TargetMAC net.HardwareAddr
	TargetIP  net.IP
}

func (h *ArpHeader) Len() uint16 { return 28 }

func (h *ArpHeader) MarshalBinary() ([]byte, error) {
	data := make([]byte, 28)
	binary.BigEndian.PutUint16(data[0:2], 1)      // htype = Ethernet
	binary.BigEndian.PutUint16(data[2:4], 0x0800) // ptype = IPv4
	data[4] = 6
	data[5] = 4
	binary.BigEndian.PutUint16(data[6:8], h.Operation)
	copy(data[8:14], h.SenderMAC)
	copy(data[14:18], h.SenderIP.To4())
	copy(data[18:24], h.TargetMAC)
	copy(data[24:28], h.TargetIP.To4())
	return data, nil
}

func (h *ArpHeader) UnmarshalBinary(data []byte) error {
	if len(data) < 28 {
		return fmt.Errorf("netsim: arp header too short: %d bytes", len(data))
	}
	h.Operation = binary.BigEndian.Uint16(data[6:8])
	h.SenderMAC = append(net.HardwareAddr(nil), data[8:14]...)
	h.SenderIP = append(net.IP(nil), data[14:18]...)
	h.TargetMAC = append(net.HardwareAddr(nil), data[18:24]...)
	h.TargetIP = append(net.IP(nil), data[24:28]...)
	return nil
}

// IPv4Header is a fixed 20-byte (no options) IPv4 header.
type IPv4Header struct {
	Tos      uint8
	Protocol uint8
	Src      net.IP
	Dst      net.IP
}

func (h *IPv4Header) Len() uint16 { return 20 }

func (h *IPv4Header) MarshalBinary() ([]byte, error) {
	data := make([]byte, 20)
	data[0] = 0x45
	data[1] = h.Tos
	data[9] = h.Protocol
	copy(data[12:16], h.Src.To4())
	copy(data[16:20], h.Dst.To4())
	return data, nil
}

func (h *IPv4Header) UnmarshalBinary(data []byte) error {
	if len(data) < 20 {
		return fmt.Errorf("netsim: ipv4 header too short: %d bytes", len(data))
	}
	h.Tos = data[1]
	h.Protocol = data[9]
	h.Src = append(net.IP(nil), data[12:16]...)
	h.Dst = append(net.IP(nil), data[16:20]...)
	return nil
}

// IPv6Header carries only the fields flow matching needs; extension
// headers are out of scope.
type IPv6Header struct {
	TrafficClass uint8
	NextHeader   uint8
	Src          net.IP
	Dst          net.IP
}

func (h *IPv6Header) Len() uint16 { return 40 }

func (h *IPv6Header) MarshalBinary() ([]byte, error) {
	data := make([]byte, 40)
	data[0] = 0x60 | (h.TrafficClass >> 4)
	data[1] = h.TrafficClass << 4
	data[6] = h.NextHeader
	copy(data[8:24], h.Src.To16())
	copy(data[24:40], h.Dst.To16())
	return data, nil
}

func (h *IPv6Header) UnmarshalBinary(data []byte) error {
	if len(data) < 40 {
		return fmt.Errorf("netsim: ipv6 header too short: %d bytes", len(data))
	}
	h.TrafficClass = (data[0]<<4 | data[1]>>4)
	h.NextHeader = data[6]
	h.Src = append(net.IP(nil), data[8:24]...)
	h.Dst = append(net.IP(nil), data[24:40]...)
	return nil
}

// TcpHeader carries only source/destination port and flags.
type TcpHeader struct {
	SrcPort uint16
	DstPort uint16
	Flags   uint16
}

func (h *TcpHeader) Len() uint16 { return 20 }

func (h *TcpHeader) MarshalBinary() ([]byte, error) {
	data := make([]byte, 20)
	binary.BigEndian.PutUint16(data[0:2], h.SrcPort)
	binary.BigEndian.PutUint16(data[2:4], h.DstPort)
	data[12] = 5 << 4
	binary.BigEndian.PutUint16(data[12:14], (5<<12)|h.Flags)
	return data, nil
}

func (h *TcpHeader) UnmarshalBinary(data []byte) error {
	if len(data) < 20 {
		return fmt.Errorf("netsim: tcp header too short: %d bytes", len(data))
	}
	h.SrcPort = binary.BigEndian.Uint16(data[0:2])
	h.DstPort = binary.BigEndian.Uint16(data[2:4])
	h.Flags = binary.BigEndian.Uint16(data[12:14]) & 0x0fff
	return nil
}

// UdpHeader carries source/destination port.
type UdpHeader struct {
	SrcPort uint16
	DstPort uint16
}

func (h *UdpHeader) Len() uint16 { return 8 }

func (h *UdpHeader) MarshalBinary() ([]byte, error) {
	data := make([]byte, 8)
	binary.BigEndian.PutUint16(data[0:2], h.SrcPort)
	binary.BigEndian.PutUint16(data[2:4], h.DstPort)
	return data, nil
}

func (h *UdpHeader) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("netsim: udp header too short: %d bytes", len(data))
	}
	h.SrcPort = binary.BigEndian.Uint16(data[0:2])
	h.DstPort = binary.BigEndian.Uint16(data[2:4])
	return nil
}

// Icmpv4Header carries type/code only, enough for flow matching.
type Icmpv4Header struct {
	Type uint8
	Code uint8
}

func (h *Icmpv4Header) Len() uint16 { return 8 }

func (h *Icmpv4Header) MarshalBinary() ([]byte, error) {
	data := make([]byte, 8)
	data[0] = h.Type
	data[1] = h.Code
	return data, nil
}

func (h *Icmpv4Header) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("netsim: icmpv4 header too short: %d bytes", len(data))
	}
	h.Type = data[0]
	h.Code = data[1]
	return nil
}

// Package port models a switch's data-plane port: config/state/features
// bitmaps plus the reserved logical port numbers that must never appear
// in a switch's real port map. The bitmask semantics (PORT_DOWN, NO_RECV,
// NO_FWD, NO_FLOOD) follow SdnPort's C++ counterpart.
package port

import (
	"net"

	"github.com/jaredivey/ns-3-sdn/netsim"
)

// Number is a port number. OF1.0 uses the low 16 bits; OF1.3 the full
// 32 bits. A single uint32-based type serves both.
type Number uint32

// Reserved port numbers that never appear in a switch's port map.
const (
	PortMax        Number = 0xffffff00
	PortInPort     Number = 0xfffffff8
	PortTable      Number = 0xfffffff9
	PortNormal     Number = 0xfffffffa
	PortFlood      Number = 0xfffffffb
	PortAll        Number = 0xfffffffc
	PortController Number = 0xfffffffd
	PortLocal      Number = 0xfffffffe
	PortAny        Number = 0xffffffff
)

// IsReserved reports whether n is one of the logical port numbers above.
func IsReserved(n Number) bool {
	return n >= PortInPort
}

// Config is the port configuration bitmap.
type Config uint32

const (
	ConfigPortDown Config = 1 << 0
	ConfigNoRecv   Config = 1 << 2
	ConfigNoFwd    Config = 1 << 5
	ConfigNoFlood  Config = 1 << 4
)

// State is the port state bitmap.
type State uint32

const (
	StateLinkDown State = 1 << 0
)

// Features is the reported link-speed/feature bitmap (a coarse stand-in
// for OFPPF_* capability advertisement).
type Features uint32

const (
	Feature10MbHD  Features = 1 << 0
	Feature10MbFD  Features = 1 << 1
	Feature100MbHD Features = 1 << 2
	Feature100MbFD Features = 1 << 3
	Feature1GbFD   Features = 1 << 5
)

// Port is one of a switch's data-plane ports: a net-device, hardware
// address, config/state/features and tx/err/drop counters. It holds no
// connection handle of its own.
type Port struct {
	Number   Number
	Device   *netsim.NetDevice
	HwAddr   net.HardwareAddr
	Config   Config
	State    State
	Features Features

	TxPackets uint64
	TxBytes   uint64
	TxErrors  uint64
	RxDrops   uint64
}

// New builds a port bound to dev, up by default.
func New(number Number, dev *netsim.NetDevice) *Port {
	return &Port{
		Number:   number,
		Device:   dev,
		HwAddr:   dev.Addr,
		Features: Feature1GbFD,
	}
}

// Enabled reports whether the port may be used as an output target at
// all: neither administratively down nor blocked for receive/forward
//.
func (p *Port) Enabled() bool {
	if p.Config&ConfigPortDown != 0 {
		return false
	}
	if p.Config&ConfigNoRecv != 0 {
		return false
	}
	if p.Config&ConfigNoFwd != 0 {
		return false
	}
	return true
}

// FloodEligible reports whether the port participates in a FLOOD action
//.
func (p *Port) FloodEligible() bool {
	return p.Enabled() && p.Config&ConfigNoFlood == 0
}

// MergeConfig applies a PortMod's masked update: new bits replace old bits
// wherever mask is set, old bits are kept elsewhere (// "config = (new & mask) | (old & ~mask)").
func (p *Port) MergeConfig(newConfig, mask Config) {
	p.Config = (newConfig & mask) | (p.Config &^ mask)
}

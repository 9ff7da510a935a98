// Command ofswitch is a standalone switch process: it dials a
// controller over a real TCP socket and drives the same ofswitch.Core
// dispatch the in-process simulation uses, wired to simtime.WallClock
// instead of a deterministic simtime.Queue. It replaces
// libOpenflow.go's trivial main().
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/netsim"
	"github.com/jaredivey/ns-3-sdn/ofconn"
	"github.com/jaredivey/ns-3-sdn/ofp10"
	"github.com/jaredivey/ns-3-sdn/ofp13"
	"github.com/jaredivey/ns-3-sdn/ofswitch"
	"github.com/jaredivey/ns-3-sdn/port"
	"github.com/jaredivey/ns-3-sdn/simtime"
)

// attacher is the subset of Switch10/Switch13 main needs: the datapath id
// is fixed at construction, and every port this switch exposes is
// attached through the same call regardless of dialect.
type attacher interface {
	AttachPort(p *port.Port)
}

func main() {
	controllerAddr := flag.String("controller", "127.0.0.1:6633", "controller address to dial")
	dialect := flag.Uint("dialect", 13, "OpenFlow dialect to speak: 10 or 13")
	dpid := flag.Uint64("dpid", 1, "datapath id this switch reports in FeaturesReply")
	numPorts := flag.Uint("ports", 1, "number of data-plane ports to attach")
	flag.Parse()

	version := common.VersionOF13
	var decode ofconn.DialectDecoder = ofp13.Decode
	if *dialect == 10 {
		version = common.VersionOF10
		decode = ofp10.Decode
	}

	conn, err := net.Dial("tcp", *controllerAddr)
	if err != nil {
		log.WithError(err).Fatal("failed to dial controller")
	}

	clock := simtime.NewWallClock()
	ctx := simtime.NewContext(clock)

	transport := ofconn.NewNetTransport(conn, decode, clock)
	channel := ofconn.New(ctx, transport, version)
	transport.SetFailureCallback(func(err error) {
		log.WithError(err).Warn("control channel read failed, closing")
		channel.Close()
	})

	var sw attacher
	switch version {
	case common.VersionOF10:
		sw = ofswitch.NewSwitch10(ctx, channel, *dpid)
	default:
		sw = ofswitch.NewSwitch13(ctx, channel, *dpid)
	}

	for i := uint(0); i < *numPorts; i++ {
		num := port.Number(i + 1)
		dev := netsim.NewNetDevice(fmt.Sprintf("eth%d", i), macFor(*dpid, num))
		sw.AttachPort(port.New(num, dev))
	}

	transport.Start()
	if err := channel.Start(); err != nil {
		log.WithError(err).Fatal("failed to start handshake")
	}
	clock.Run()
}

// macFor derives a locally-administered MAC from the datapath id and
// port number, so every attached port gets a stable, distinct address
// without pulling in a random source this binary has no other use for.
func macFor(dpid uint64, p port.Number) net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	mac[0] = 0x02
	binary.BigEndian.PutUint32(mac[1:5], uint32(dpid))
	mac[5] = byte(p)
	return mac
}

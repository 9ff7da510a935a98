// Command ofcontroller is a standalone controller process: it listens
// for real TCP connections from switches and drives ofcontroller.Controller
// with the default L2Learning reactive-forwarding listener, wired to
// simtime.WallClock instead of a deterministic simtime.Queue. It
// replaces libOpenflow.go's trivial main().
package main

import (
	"flag"
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/ofconn"
	"github.com/jaredivey/ns-3-sdn/ofcontroller"
	"github.com/jaredivey/ns-3-sdn/ofp10"
	"github.com/jaredivey/ns-3-sdn/ofp13"
	"github.com/jaredivey/ns-3-sdn/simtime"
)

func main() {
	listenAddr := flag.String("listen", ":6633", "address to accept switch connections on")
	dialect := flag.Uint("dialect", 13, "OpenFlow dialect this controller negotiates: 10 or 13")
	flag.Parse()

	version := common.VersionOF13
	var decode ofconn.DialectDecoder = ofp13.Decode
	if *dialect == 10 {
		version = common.VersionOF10
		decode = ofp10.Decode
	}

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		log.WithError(err).Fatal("failed to listen")
	}
	log.WithField("addr", *listenAddr).Info("ofcontroller listening")

	clock := simtime.NewWallClock()
	ctrl := ofcontroller.NewController(ofcontroller.NewL2Learning())

	go acceptLoop(ln, clock, version, decode, ctrl)
	clock.Run()
}

func acceptLoop(ln net.Listener, clock *simtime.WallClock, version uint8, decode ofconn.DialectDecoder, ctrl *ofcontroller.Controller) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			log.WithError(err).Warn("accept failed")
			continue
		}
		clock.Inject(func() {
			ctx := simtime.NewContext(clock)
			transport := ofconn.NewNetTransport(conn, decode, clock)
			channel := ofconn.New(ctx, transport, version)
			transport.SetFailureCallback(func(err error) {
				log.WithError(err).Warn("control channel read failed, closing")
				channel.Close()
			})
			transport.Start()
			ctrl.Accept(ctx, channel, version)
		})
	}
}

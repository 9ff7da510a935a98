package ofconn

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/jaredivey/ns-3-sdn/common"
	"github.com/jaredivey/ns-3-sdn/simtime"
	"github.com/jaredivey/ns-3-sdn/wire"
)

// State is a control channel's lifecycle state.
type State int

const (
	StateHandshake State = iota
	StateRunning
	StateFailed
	StateDown
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "HANDSHAKE"
	case StateRunning:
		return "RUNNING"
	case StateFailed:
		return "FAILED"
	case StateDown:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// Connection is one control channel: a transport plus the handshake and
// dispatch logic every OpenFlow session runs regardless of dialect. The
// dialect-specific message types travel as wire.Message; callers type-switch
// on the concrete type in their dispatch handler.
type Connection struct {
	transport Transport
	ctx       *simtime.Context
	localVer  uint8
	version   uint8
	state     State
	onMessage func(wire.Message)
	onUp      func()
	onDown    func()
}

// New builds a connection that will negotiate localVer on handshake.
func New(ctx *simtime.Context, transport Transport, localVer uint8) *Connection {
	c := &Connection{transport: transport, ctx: ctx, localVer: localVer, state: StateHandshake}
	transport.SetReceiveCallback(c.receive)
	return c
}

// OnMessage registers the handler invoked for every post-handshake
// message (everything except Hello/Error during negotiation).
func (c *Connection) OnMessage(fn func(wire.Message)) { c.onMessage = fn }

// OnUp/OnDown register lifecycle transition hooks.
func (c *Connection) OnUp(fn func())   { c.onUp = fn }
func (c *Connection) OnDown(fn func()) { c.onDown = fn }

func (c *Connection) State() State { return c.state }

// Version returns the negotiated protocol version (valid once State() is
// StateRunning).
func (c *Connection) Version() uint8 { return c.version }

// Start sends the local Hello and begins the handshake.
func (c *Connection) Start() error {
	hello, err := common.NewHello(c.localVer)
	if err != nil {
		return err
	}
	return c.Send(hello)
}

// Send transmits msg if the connection isn't down, assigning it the
// scheduler's "now" for the transport's stagger-send ordering.
func (c *Connection) Send(msg wire.Message) error {
	if c.state == StateDown {
		return fmt.Errorf("ofconn: send on down connection")
	}
	return c.transport.Send(c.ctx, msg)
}

func (c *Connection) receive(msg wire.Message) {
	switch c.state {
	case StateHandshake:
		c.handleHandshake(msg)
	case StateRunning:
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	default:
		klog.V(2).InfoS("Dropping message on non-running connection", "state", c.state.String())
	}
}

func (c *Connection) handleHandshake(msg wire.Message) {
	hello, ok := msg.(*common.Hello)
	if !ok {
		c.fail(fmt.Errorf("ofconn: expected Hello during handshake, got %T", msg))
		return
	}
	version, err := common.Negotiate(c.localVer, hello.Version)
	if err != nil {
		errMsg := common.NewErrorMsg(c.localVer, hello.Xid, common.ErrTypeHelloFailed, common.ErrHelloFailedIncompatible, nil)
		_ = c.Send(errMsg)
		c.fail(err)
		return
	}
	c.version = version
	c.state = StateRunning
	klog.InfoS("Control channel up", "version", version)
	if c.onUp != nil {
		c.onUp()
	}
}

func (c *Connection) fail(err error) {
	klog.ErrorS(err, "Control channel handshake failed")
	c.state = StateFailed
	_ = c.transport.Close()
	if c.onDown != nil {
		c.onDown()
	}
}

// Close transitions the connection to DOWN and closes its transport.
func (c *Connection) Close() {
	if c.state == StateDown {
		return
	}
	c.state = StateDown
	_ = c.transport.Close()
	if c.onDown != nil {
		c.onDown()
	}
}

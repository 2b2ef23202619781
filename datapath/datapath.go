// Package datapath wires the classifier (flow), the action
// interpreter (action), the port set (port) and the buffer cache
// (bufcache) to the control-channel framing (openflow) into a running
// switch (C10).
//
// Grounded on the teacher's net/http-shaped request model: handlers
// are registered on an openflow.TypeMux exactly as examples/hub wires
// HandleFunc, and each accepted connection is served by its own
// goroutine per openflow.Server.Serve — the classifier and action
// interpreter themselves stay single-threaded, guarded by
// Datapath.mu, the Go stand-in for the single-threaded cooperative
// core spec.md describes.
package datapath

import (
	"bufio"
	"bytes"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/netrack/ofswitch/action"
	"github.com/netrack/ofswitch/bufcache"
	"github.com/netrack/ofswitch/flow"
	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/openflow"
	"github.com/netrack/ofswitch/packet"
	"github.com/netrack/ofswitch/port"
)

// DefaultMissSendLength is the number of bytes of a table-miss
// packet's frame sent to the controller when no SET_CONFIG has said
// otherwise.
const DefaultMissSendLength = 128

// Datapath is a running software switch: a classifier chain, a port
// set, a buffer cache and the control-channel handlers that drive
// them.
type Datapath struct {
	ID uint64

	Chain    *flow.Chain
	Ports    *port.Set
	Buffers  *bufcache.Cache
	Logger   *log.Logger
	Capabilities ofp.Capability

	// Runner controls how Serve starts each accepted connection's
	// serveConn loop. Defaults to openflow.OnDemandRoutineRunner
	// (goroutine per connection); tests can install
	// openflow.SequentialRunner to make connection handling
	// deterministic.
	Runner openflow.Runner

	// mu guards the classifier chain and is held for the whole of a
	// single logical pass (a packet arriving, a FLOW_MOD applying, a
	// PACKET_OUT executing) so the chain is never observed mid-update
	// from two passes at once — the Go stand-in for the datapath's
	// single-threaded cooperative core. action.Execute's Table output
	// (TABLE resubmit) calls back into the chain while mu is already
	// held by the caller, so it must reuse the held lock rather than
	// reacquire it; see receiveLocked.
	mu sync.Mutex

	// connMu guards fields touched by notify/packetIn, which can run
	// while mu is held by the caller (e.g. a CONTROLLER output fired
	// from inside an action list being executed under mu) — a
	// separate lock avoids that recursive acquisition.
	connMu     sync.Mutex
	cfg        ofp.SwitchConfig
	controller openflow.Conn
}

// New builds a Datapath with the given datapath id, ready to accept
// Ports and have its Mux served.
func New(id uint64, chain *flow.Chain, logger *log.Logger) *Datapath {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Datapath{
		ID:      id,
		Chain:   chain,
		Ports:   port.NewSet(),
		Buffers: bufcache.New(),
		Logger:  logger,
		Runner:  openflow.OnDemandRoutineRunner{},
		Capabilities: ofp.CapabilityFlowStats | ofp.CapabilityTableStats |
			ofp.CapabilityPortStats,
		cfg: ofp.SwitchConfig{
			Flags:          ofp.ConfigFlagFragNormal,
			MissSendLength: DefaultMissSendLength,
		},
	}
}

// Mux builds an openflow.TypeMux with every control message type this
// datapath answers registered against it.
func (dp *Datapath) Mux() *openflow.TypeMux {
	mux := openflow.NewTypeMux()
	mux.HandleFunc(openflow.TypeHello, dp.handleHello)
	mux.HandleFunc(openflow.TypeEchoRequest, dp.handleEchoRequest)
	mux.HandleFunc(openflow.TypeFeaturesRequest, dp.handleFeaturesRequest)
	mux.HandleFunc(openflow.TypeGetConfigRequest, dp.handleGetConfigRequest)
	mux.HandleFunc(openflow.TypeSetConfig, dp.handleSetConfig)
	mux.HandleFunc(openflow.TypeFlowMod, dp.handleFlowMod)
	mux.HandleFunc(openflow.TypePacketOut, dp.handlePacketOut)
	mux.HandleFunc(openflow.TypePortMod, dp.handlePortMod)
	mux.HandleFunc(openflow.TypeStatsRequest, dp.handleStatsRequest)
	return mux
}

// Serve accepts connections on l, one goroutine per connection per
// the teacher's Server.Serve, dispatching requests through dp's Mux.
// The first connection accepted becomes the active controller that
// asynchronous messages (PACKET_IN, FLOW_REMOVED, PORT_STATUS) are
// addressed to; openflow.Server's Handler contract exposes only a
// ResponseWriter per request, not the connection itself, so Serve is
// reimplemented here rather than reused, in order to capture that
// Conn handle once. l is a plain net.Listener (e.g. from net.Listen),
// not an *openflow.OFPListener — Serve does its own openflow.NewConn
// wrapping of each accepted connection, so handing it an
// already-wrapped listener would frame every message twice.
func (dp *Datapath) Serve(l net.Listener) error {
	defer l.Close()

	mux := dp.Mux()
	for {
		rwc, err := l.Accept()
		if err != nil {
			return err
		}

		c := openflow.NewConn(rwc)
		dp.connMu.Lock()
		if dp.controller == nil {
			dp.controller = c
		}
		dp.connMu.Unlock()

		runner := dp.Runner
		if runner == nil {
			runner = openflow.OnDemandRoutineRunner{}
		}
		runner.Run(func() { dp.serveConn(c, mux) })
	}
}

func (dp *Datapath) serveConn(c openflow.Conn, mux *openflow.TypeMux) {
	defer c.Close()

	for {
		req, err := c.Receive()
		if err != nil {
			return
		}

		rw := &connResponseWriter{conn: c}
		mux.Serve(rw, req)

		if err := rw.flush(c); err != nil {
			return
		}
	}
}

// connResponseWriter is a minimal openflow.ResponseWriter backed
// directly by a Conn, mirroring the teacher's unexported response
// type in server.go but addressed at the openflow.Conn interface so
// Serve can drive it without depending on openflow.OFPConn directly.
type connResponseWriter struct {
	header openflow.Header
	body   []byte
	wrote  bool
	conn   openflow.Conn
}

func (w *connResponseWriter) Header() *openflow.Header { return &w.header }

func (w *connResponseWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return len(b), nil
}

func (w *connResponseWriter) WriteHeader() error {
	w.wrote = true
	return nil
}

func (w *connResponseWriter) Close() error { return w.conn.Close() }

func (w *connResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return nil, nil, openflow.ErrHijacked
}

func (w *connResponseWriter) flush(c openflow.Conn) error {
	if !w.wrote {
		return nil
	}
	req := &openflow.Request{Header: w.header, Body: bytes.NewReader(w.body)}
	if err := c.Send(req); err != nil {
		return err
	}
	return c.Flush()
}

// notify sends an asynchronous request (PACKET_IN, FLOW_REMOVED,
// PORT_STATUS) to the active controller connection, if any.
func (dp *Datapath) notify(t openflow.Type, body io.WriterTo) {
	dp.connMu.Lock()
	c := dp.controller
	dp.connMu.Unlock()

	if c == nil {
		return
	}

	req, err := openflow.NewRequest(t, body)
	if err != nil {
		dp.Logger.Printf("datapath: building %v notification: %v", t, err)
		return
	}
	if err := openflow.Send(c, req); err != nil {
		dp.Logger.Printf("datapath: sending %v notification: %v", t, err)
	}
}

// AddPort registers no as a new switch port backed by drv, and tells
// the controller about it.
func (dp *Datapath) AddPort(no port.Number, drv port.Driver) (*port.Port, error) {
	p, err := dp.Ports.Add(no, drv)
	if err != nil {
		return nil, err
	}
	dp.notify(openflow.TypePortStatus, &ofp.PortStatus{
		Reason: ofp.PortReasonAdd,
		Port:   p.Describe(),
	})
	return p, nil
}

// Run drives the datapath forward until ctx is canceled: it polls
// every port for a received frame and classifies/executes it, and
// periodically sweeps the classifier chain for expired entries.
//
// Grounded on §5's channel-based readiness model: poll ticks stand in
// for the original's select/poll-driven receive loop, since the
// port.Driver contract (Recv is non-blocking, ok=false means nothing
// pending) gives no fd to multiplex on directly.
func (dp *Datapath) Run(ctx Context) error {
	pollTick := time.NewTicker(time.Millisecond)
	sweepTick := time.NewTicker(time.Second)
	defer pollTick.Stop()
	defer sweepTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pollTick.C:
			dp.pollPorts()
		case now := <-sweepTick.C:
			dp.sweep(now)
		}
	}
}

// Context is the subset of context.Context that Run needs; declared
// locally so this package does not otherwise depend on context.
type Context interface {
	Done() <-chan struct{}
	Err() error
}

func (dp *Datapath) pollPorts() {
	dp.Ports.Each(func(p *port.Port) {
		for {
			frame, ok, err := p.Recv()
			if err != nil {
				dp.Logger.Printf("datapath: recv on port %d: %v", p.No, err)
				return
			}
			if !ok {
				return
			}
			dp.receive(p.No, frame)
		}
	})
}

// receive classifies an incoming frame and either executes the
// matching entry's actions or reports the table miss to the
// controller.
func (dp *Datapath) receive(inPort port.Number, frame []byte) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.receiveLocked(inPort, frame)
}

// receiveLocked is receive's body, factored out so action.Execute's
// TABLE output (a resubmit back through the classifier) can call it
// while dp.mu is already held by the action list's own caller,
// instead of reacquiring a non-reentrant lock.
func (dp *Datapath) receiveLocked(inPort port.Number, frame []byte) {
	clone := packet.New(append([]byte(nil), frame...))
	key, _ := packet.ParseHeader(clone, inPort)

	entry, hit := dp.Chain.Classify(key)
	if !hit {
		dp.packetIn(inPort, frame, ofp.PacketInReasonNoMatch)
		return
	}

	entry.Touch(len(frame))
	buf := packet.New(append([]byte(nil), frame...))
	out := &switchOutputs{dp: dp}
	if err := action.Execute(buf, &key, entry.Actions(), inPort, out); err != nil {
		dp.Logger.Printf("datapath: executing actions: %v", err)
	}
}

// packetIn buffers frame (if the cache has room) and sends a
// PACKET_IN to the controller, truncated to the configured
// miss-send-length. Safe to call with dp.mu held.
func (dp *Datapath) packetIn(inPort port.Number, frame []byte, reason ofp.PacketInReason) {
	dp.connMu.Lock()
	missLen := dp.cfg.MissSendLength
	dp.connMu.Unlock()

	bufID := dp.Buffers.Save(packet.New(append([]byte(nil), frame...)), time.Now())

	data := frame
	if int(missLen) < len(data) {
		data = data[:missLen]
	}

	dp.notify(openflow.TypePacketIn, &ofp.PacketIn{
		Buffer: bufID,
		Length: uint16(len(frame)),
		Reason: reason,
		InPort: inPort,
		Data:   data,
	})
}

func (dp *Datapath) sweep(now time.Time) {
	dp.mu.Lock()
	expired := dp.Chain.Sweep(now)
	dp.mu.Unlock()

	for _, e := range expired {
		if e.SendFlowExpired {
			_, reason := e.Expired(now)
			removed := e.Removed(reason)
			dp.notify(openflow.TypeFlowRemoved, &removed)
		}
	}
}

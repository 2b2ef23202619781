package datapath

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/netrack/ofswitch/flow"
	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/openflow"
	"github.com/netrack/ofswitch/port"
)

// fakeAddr and fakeConn give the tests a net.Conn backed entirely by
// in-memory buffers, mirroring openflow's own dummyConn test helper,
// so a Datapath can be driven without a real socket.
type fakeAddr string

func (a fakeAddr) Network() string { return "fake" }
func (a fakeAddr) String() string  { return string(a) }

type fakeConn struct {
	r bytes.Buffer
	w bytes.Buffer
}

func (c *fakeConn) Read(b []byte) (int, error)  { return c.r.Read(b) }
func (c *fakeConn) Write(b []byte) (int, error) { return c.w.Write(b) }
func (c *fakeConn) Close() error                { return nil }
func (c *fakeConn) LocalAddr() net.Addr         { return fakeAddr("local") }
func (c *fakeConn) RemoteAddr() net.Addr        { return fakeAddr("remote") }
func (c *fakeConn) SetDeadline(time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func newTestDatapath() (*Datapath, *fakeConn) {
	dp := New(1, flow.DefaultChain(), nil)
	c := &fakeConn{}
	dp.controller = openflow.NewConn(c)
	return dp, c
}

// sendRequest runs req through dp's mux against a connResponseWriter
// backed by c, flushing any reply onto c just as serveConn does.
func sendRequest(dp *Datapath, c openflow.Conn, req *openflow.Request) {
	rw := &connResponseWriter{conn: c}
	dp.Mux().Serve(rw, req)
	rw.flush(c)
}

// minimalFrame builds a 14-byte Ethernet II frame with the given
// destination address and an EtherType that the packet parser does
// not attempt to look past.
func minimalFrame(dst, src net.HardwareAddr) []byte {
	frame := make([]byte, 14)
	copy(frame[0:6], dst)
	copy(frame[6:12], src)
	frame[12], frame[13] = 0x88, 0xb5 // 802.1 local experimental, unparsed
	return frame
}

func mustHWAddr(s string) net.HardwareAddr {
	hw, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return hw
}

// TestFlowModAddForwardsMatchingPacket installs a wildcarded entry
// forwarding every frame addressed to a given destination out port 2,
// then confirms a matching frame arriving on port 1 is classified and
// delivered to port 2's loopback peer.
func TestFlowModAddForwardsMatchingPacket(t *testing.T) {
	dp, cc := newTestDatapath()
	defer cc.Close()

	a, b := port.NewLoopbackPair("veth1", "veth2",
		mustHWAddr("02:00:00:00:00:01"), mustHWAddr("02:00:00:00:00:02"))
	if _, err := dp.AddPort(1, a); err != nil {
		t.Fatalf("AddPort(1): %v", err)
	}
	if _, err := dp.AddPort(2, b); err != nil {
		t.Fatalf("AddPort(2): %v", err)
	}

	dst := mustHWAddr("aa:bb:cc:dd:ee:ff")
	src := mustHWAddr("11:22:33:44:55:66")

	fm := &ofp.FlowMod{Command: ofp.FlowAdd, Priority: 1}
	fm.Match.Wildcards = ofp.WildcardAll &^ ofp.WildcardDLDst
	fm.Match.DLDst = dst
	fm.Actions = ofp.Actions{&ofp.ActionOutput{Port: 2}}

	req, err := openflow.NewRequest(openflow.TypeFlowMod, fm)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	sendRequest(dp, dp.controller, req)

	frame := minimalFrame(dst, src)
	dp.receive(1, frame)

	out, ok, err := a.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if !ok {
		t.Fatal("expected a frame forwarded to port 2, got none")
	}
	if !bytes.Equal(out, frame) {
		t.Fatalf("forwarded frame mismatch: got %x, want %x", out, frame)
	}
}

// TestFlowModAddWithBufferExecutesBufferedPacket confirms a table miss
// that buffers a packet, followed by a FLOW_MOD(ADD) naming that
// buffer id, runs the newly installed entry's actions against the
// buffered packet immediately rather than waiting for the next frame.
func TestFlowModAddWithBufferExecutesBufferedPacket(t *testing.T) {
	dp, cc := newTestDatapath()
	defer cc.Close()

	a, b := port.NewLoopbackPair("veth1", "veth2",
		mustHWAddr("02:00:00:00:00:01"), mustHWAddr("02:00:00:00:00:02"))
	if _, err := dp.AddPort(1, a); err != nil {
		t.Fatalf("AddPort(1): %v", err)
	}
	if _, err := dp.AddPort(2, b); err != nil {
		t.Fatalf("AddPort(2): %v", err)
	}

	dst := mustHWAddr("aa:bb:cc:dd:ee:ff")
	src := mustHWAddr("11:22:33:44:55:66")
	frame := minimalFrame(dst, src)

	// Drop the PORT_STATUS messages AddPort sent to the controller.
	cc.w.Reset()

	// Table miss: buffers the frame and notifies the controller.
	dp.receive(1, frame)

	var pin openflow.Request
	if _, err := pin.ReadFrom(&cc.w); err != nil {
		t.Fatalf("reading PACKET_IN: %v", err)
	}
	var pi ofp.PacketIn
	if _, err := pi.ReadFrom(pin.Body); err != nil {
		t.Fatalf("decoding PACKET_IN: %v", err)
	}
	if pi.Buffer == ofp.NoBuffer {
		t.Fatal("expected PACKET_IN to carry a buffer id")
	}

	fm := &ofp.FlowMod{Command: ofp.FlowAdd, Priority: 1, Buffer: pi.Buffer}
	fm.Match.Wildcards = ofp.WildcardAll &^ ofp.WildcardDLDst
	fm.Match.InPort = 1
	fm.Match.DLDst = dst
	fm.Actions = ofp.Actions{&ofp.ActionOutput{Port: 2}}

	req, err := openflow.NewRequest(openflow.TypeFlowMod, fm)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	sendRequest(dp, dp.controller, req)

	out, ok, err := a.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if !ok {
		t.Fatal("expected the buffered packet to be forwarded to port 2, got none")
	}
	if !bytes.Equal(out, frame) {
		t.Fatalf("forwarded frame mismatch: got %x, want %x", out, frame)
	}

	if _, ok := dp.Buffers.Retrieve(pi.Buffer); ok {
		t.Fatal("expected the buffer to be discarded after use")
	}
}

// TestReceiveMissSendsTruncatedPacketIn confirms a table miss sends a
// PACKET_IN to the controller connection truncated to the configured
// miss-send length.
func TestReceiveMissSendsTruncatedPacketIn(t *testing.T) {
	dp, cc := newTestDatapath()
	defer cc.Close()

	dp.cfg.MissSendLength = 10

	dst := mustHWAddr("aa:bb:cc:dd:ee:ff")
	src := mustHWAddr("11:22:33:44:55:66")
	frame := minimalFrame(dst, src)

	dp.receive(1, frame)

	var got openflow.Request
	if _, err := got.ReadFrom(&cc.w); err != nil {
		t.Fatalf("reading notification: %v", err)
	}
	if got.Header.Type != openflow.TypePacketIn {
		t.Fatalf("got message type %v, want PACKET_IN", got.Header.Type)
	}

	var pi ofp.PacketIn
	if _, err := pi.ReadFrom(got.Body); err != nil {
		t.Fatalf("decoding PACKET_IN: %v", err)
	}
	if pi.Reason != ofp.PacketInReasonNoMatch {
		t.Fatalf("got reason %v, want NoMatch", pi.Reason)
	}
	if len(pi.Data) != 10 {
		t.Fatalf("got %d bytes of data, want truncated to 10", len(pi.Data))
	}
	if pi.Length != uint16(len(frame)) {
		t.Fatalf("got reported length %d, want %d", pi.Length, len(frame))
	}
}

// TestDeleteStrictDistinguishesPriority confirms a DELETE_STRICT
// naming one priority does not remove an otherwise-identical entry
// installed at a different priority — the fix to thread FlowMod's
// Priority field through to Chain.Delete.
func TestDeleteStrictDistinguishesPriority(t *testing.T) {
	dp, cc := newTestDatapath()
	defer cc.Close()

	match := flow.Match{Wildcards: ofp.WildcardAll}

	low, err := flow.NewEntry(match, 1, ofp.Actions{&ofp.ActionOutput{Port: 1}})
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	high, err := flow.NewEntry(match, 2, ofp.Actions{&ofp.ActionOutput{Port: 1}})
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	if err := dp.Chain.Insert(low); err != nil {
		t.Fatalf("Insert(low): %v", err)
	}
	if err := dp.Chain.Insert(high); err != nil {
		t.Fatalf("Insert(high): %v", err)
	}

	dp.mu.Lock()
	dp.deleteFlow(match, 2, ofp.PortNone, true)
	dp.mu.Unlock()

	var remaining []uint16
	dp.Chain.Iterate(func(e *flow.Entry) bool {
		remaining = append(remaining, e.Priority)
		return true
	})

	if len(remaining) != 1 || remaining[0] != 1 {
		t.Fatalf("got remaining priorities %v, want only [1]", remaining)
	}
}

// TestStatsRequestFlowRoundTrips installs one flow entry and confirms
// a STATS_REQUEST(FLOW) reply reports it.
func TestStatsRequestFlowRoundTrips(t *testing.T) {
	dp, cc := newTestDatapath()
	defer cc.Close()

	match := flow.Match{Wildcards: ofp.WildcardAll}
	entry, err := flow.NewEntry(match, 5, ofp.Actions{&ofp.ActionOutput{Port: 3}})
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	entry.Cookie = 0xcafe
	if err := dp.Chain.Insert(entry); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	fsr := &ofp.FlowStatsRequest{OutPort: ofp.PortNone}
	fsr.Match.Wildcards = ofp.WildcardAll

	sreq := &ofp.StatsRequest{Type: ofp.StatsTypeFlow, Body: fsr}
	req, err := openflow.NewRequest(openflow.TypeStatsRequest, sreq)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.XID = 7

	sendRequest(dp, dp.controller, req)

	var got openflow.Request
	if _, err := got.ReadFrom(&cc.w); err != nil {
		t.Fatalf("reading reply: %v", err)
	}
	if got.Header.Type != openflow.TypeStatsReply {
		t.Fatalf("got message type %v, want STATS_REPLY", got.Header.Type)
	}
	if got.Header.XID != 7 {
		t.Fatalf("got XID %d, want 7", got.Header.XID)
	}

	var reply ofp.StatsReply
	if _, err := reply.ReadFrom(got.Body); err != nil {
		t.Fatalf("decoding STATS_REPLY envelope: %v", err)
	}
	if reply.Type != ofp.StatsTypeFlow {
		t.Fatalf("got reply type %v, want StatsTypeFlow", reply.Type)
	}
	if reply.Flags&ofp.StatsReplyMore != 0 {
		t.Fatal("unexpected StatsReplyMore for a single-entry reply")
	}

	var fs ofp.FlowStats
	if _, err := fs.ReadFrom(got.Body); err != nil {
		t.Fatalf("decoding FlowStats entry: %v", err)
	}
	if fs.Cookie != 0xcafe {
		t.Fatalf("got cookie %#x, want 0xcafe", fs.Cookie)
	}
	if fs.Priority != 5 {
		t.Fatalf("got priority %d, want 5", fs.Priority)
	}
}

// TestStatsRequestPortRoundTrips confirms a STATS_REQUEST(PORT) for a
// specific port reports only that port's counters.
func TestStatsRequestPortRoundTrips(t *testing.T) {
	dp, cc := newTestDatapath()
	defer cc.Close()

	a, b := port.NewLoopbackPair("veth1", "veth2",
		mustHWAddr("02:00:00:00:00:01"), mustHWAddr("02:00:00:00:00:02"))
	if _, err := dp.AddPort(1, a); err != nil {
		t.Fatalf("AddPort(1): %v", err)
	}
	if _, err := dp.AddPort(2, b); err != nil {
		t.Fatalf("AddPort(2): %v", err)
	}

	// Drop the PORT_STATUS messages AddPort sent to the controller.
	cc.w.Reset()

	p1, _ := dp.Ports.Get(1)
	p1.Send([]byte("hello"))

	psr := &ofp.PortStatsRequest{PortNo: 1}
	sreq := &ofp.StatsRequest{Type: ofp.StatsTypePort, Body: psr}
	req, err := openflow.NewRequest(openflow.TypeStatsRequest, sreq)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	sendRequest(dp, dp.controller, req)

	var got openflow.Request
	if _, err := got.ReadFrom(&cc.w); err != nil {
		t.Fatalf("reading reply: %v", err)
	}

	var reply ofp.StatsReply
	if _, err := reply.ReadFrom(got.Body); err != nil {
		t.Fatalf("decoding STATS_REPLY envelope: %v", err)
	}

	var ps ofp.PortStats
	if _, err := ps.ReadFrom(got.Body); err != nil {
		t.Fatalf("decoding PortStats entry: %v", err)
	}
	if ps.PortNo != 1 {
		t.Fatalf("got port %d, want 1", ps.PortNo)
	}
	if ps.TxPackets != 1 {
		t.Fatalf("got TxPackets %d, want 1", ps.TxPackets)
	}
}

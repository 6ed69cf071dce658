package ofconn

// FakeConn is a test double implementing Conn: an in-memory outbound
// queue the test can drain, and an inbound queue the test can feed,
// grounded on the teacher's ovsdb/internal/jsonrpc/testconn.go pattern
// of a hand-written fake satisfying a small transport interface.
type FakeConn struct {
	xid       uint32
	seq       uint64
	version   uint8
	connected bool
	inFlight  int

	Sent    []Message
	inbound []Message
}

// NewFakeConn builds a FakeConn already negotiated to OpenFlow 1.3 and
// connected.
func NewFakeConn() *FakeConn {
	return &FakeConn{version: 4, connected: true}
}

func (c *FakeConn) Send(msg Message) {
	c.Sent = append(c.Sent, msg)
}

func (c *FakeConn) NextXid() uint32 {
	c.xid++
	return c.xid
}

func (c *FakeConn) InFlight() int { return c.inFlight }

// SetInFlight lets a test simulate send backpressure (spec §4.6, §7,
// Scenario F).
func (c *FakeConn) SetInFlight(n int) { c.inFlight = n }

func (c *FakeConn) Receive() (Message, bool) {
	if len(c.inbound) == 0 {
		return nil, false
	}
	msg := c.inbound[0]
	c.inbound = c.inbound[1:]
	return msg, true
}

// Feed enqueues msg to be returned by a future Receive call.
func (c *FakeConn) Feed(msg Message) {
	c.inbound = append(c.inbound, msg)
}

func (c *FakeConn) Seq() uint64 { return c.seq }

// Reconnect bumps the connection-sequence counter, simulating a
// transport-level reconnect (spec §4.5).
func (c *FakeConn) Reconnect() { c.seq++ }

func (c *FakeConn) Version() uint8 { return c.version }

// SetVersion lets a test simulate an unnegotiated (0) or specific
// negotiated OpenFlow version.
func (c *FakeConn) SetVersion(v uint8) { c.version = v }

func (c *FakeConn) Connected() bool { return c.connected }

// SetConnected lets a test simulate a disconnect.
func (c *FakeConn) SetConnected(v bool) { c.connected = v }

var _ Conn = (*FakeConn)(nil)

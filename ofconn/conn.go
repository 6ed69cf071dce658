package ofconn

// Conn is the opaque OpenFlow connection object the engine consumes
// (spec §6 "Downstream"): a reliable OpenFlow 1.3 connection delivering
// framed messages with xid correlation, a monotonic connection-sequence
// number, an in-flight byte counter, and a buffered, non-blocking send
// path. The engine never dials a Conn itself and never blocks on one.
type Conn interface {
	// Send buffers msg for transmission. It never blocks; the byte
	// count of buffered-but-unsent data is reflected in InFlight.
	Send(msg Message)

	// NextXid returns a fresh, connection-scoped transaction id.
	NextXid() uint32

	// InFlight returns the number of bytes currently buffered for
	// send but not yet flushed to the switch. put is skipped entirely
	// while this is non-zero (spec §4.6, §5).
	InFlight() int

	// Receive performs one non-blocking receive. ok is false if no
	// message is currently available.
	Receive() (msg Message, ok bool)

	// Seq returns the connection's monotonic connection-sequence
	// number. A change between two calls indicates the underlying
	// transport reconnected (spec §4.5 "Reconnect detection").
	Seq() uint64

	// Version returns the negotiated OpenFlow version, or 0 if the
	// connection has not completed version negotiation.
	Version() uint8

	// Connected reports whether the connection is currently usable.
	Connected() bool
}

package ofconn

// ResubmitToTable0 returns the encoded action list for a packet-out
// whose only action resubmits the packet to table 0 (spec §4.7, NX
// resubmit action). Bit-for-bit NX action framing is produced by the
// low-level OpenFlow codec assumed available upstream (spec §1); this
// module only needs a stable, recognizable byte sequence that a real
// encoder downstream can special-case, and that tests/fakes can match
// against directly.
func ResubmitToTable0() []byte {
	return []byte{0x00, 0x2a, 0x00, 0x00} // NXAST_RESUBMIT_TABLE, table 0
}

// Package ofconn defines the OpenFlow connection contract the engine
// consumes (spec §6 "Downstream") and the small set of vendor-extension
// message shapes the reconciler itself must interpret: the NX TLV-table
// negotiation and the NX conntrack-zone-flush request. The low-level
// OpenFlow message codec is assumed to exist upstream (spec §1); this
// package only models the handful of message bodies the state machine
// and reconciler read or write.
package ofconn

import "github.com/ovnkube/flowctrl/flowkey"

// FlowModCommand mirrors the small subset of OFPFC_* flow-mod commands
// the reconciler emits.
type FlowModCommand uint8

const (
	FlowAdd FlowModCommand = iota
	FlowModify
	FlowDeleteStrict
	FlowDeleteAll
)

// FlowMod is an OFPT_FLOW_MOD message.
type FlowMod struct {
	Xid        uint32
	Command    FlowModCommand
	TableID    uint8
	Priority   uint16
	Match      flowkey.Match
	Actions    []byte
	Cookie     uint64
	CookieMask uint64
}

// GroupModCommand mirrors the OFPGC_* group-mod commands used here.
type GroupModCommand uint8

const (
	GroupAdd GroupModCommand = iota
	GroupDelete
	GroupDeleteAll
)

// GroupMod is an OFPT_GROUP_MOD message.
type GroupMod struct {
	Xid     uint32
	Command GroupModCommand
	TableID uint32
	Name    string
	Aux     map[string]string
}

// MeterModCommand mirrors the OFPMC13_* meter-mod commands used here.
type MeterModCommand uint8

const (
	MeterAdd MeterModCommand = iota
	MeterDelete
	MeterDeleteAll
)

// MeterMod is an OFPT_METER_MOD message.
type MeterMod struct {
	Xid      uint32
	Command  MeterModCommand
	TableID  uint32
	Name     string
	Aux      map[string]string
}

// BarrierRequest is an OFPT_BARRIER_REQUEST message.
type BarrierRequest struct {
	Xid uint32
}

// BarrierReply is an OFPT_BARRIER_REPLY message.
type BarrierReply struct {
	Xid uint32
}

// ErrorReply is an OFPT_ERROR message. Type/Code follow the vendor error
// numbering the switch reports; VendorErrAlreadyMapped/VendorErrDupEntry
// below are the two this module gives race-retry semantics to (spec
// §4.5, §6).
type ErrorReply struct {
	Xid  uint32
	Type uint16
	Code uint16
}

// The two NX vendor error codes with race-retry semantics (spec §6).
const (
	VendorErrAlreadyMapped uint16 = 1
	VendorErrDupEntry      uint16 = 2
)

// TLVMapping is one class/type/length/index mapping entry, as carried in
// NXT_TLV_TABLE_REPLY and NXT_TLV_TABLE_MOD.
type TLVMapping struct {
	Class  uint16
	Type   uint8
	Length uint8
	Index  uint8
}

// TLVTableRequest is an NXT_TLV_TABLE_REQUEST message.
type TLVTableRequest struct {
	Xid uint32
}

// TLVTableReply is an NXT_TLV_TABLE_REPLY message.
type TLVTableReply struct {
	Xid      uint32
	Mappings []TLVMapping
}

// TLVTableModCommand mirrors the NXTTMC_* commands.
type TLVTableModCommand uint8

const (
	TLVTableModAdd TLVTableModCommand = iota
)

// TLVTableMod is an NXT_TLV_TABLE_MOD message.
type TLVTableMod struct {
	Xid      uint32
	Command  TLVTableModCommand
	Mappings []TLVMapping
}

// CTFlushZone is an NXT_CT_FLUSH_ZONE message.
type CTFlushZone struct {
	Xid  uint32
	Zone uint16
}

// PacketOut is an OFPT_PACKET_OUT message whose single action is a
// resubmit to table 0 (spec §4.7).
type PacketOut struct {
	Data    []byte
	InPort  uint32
	Actions []byte
}

// Message is the union of message shapes the engine sends or receives.
// The concrete type, not an interface method set, is how callers
// discriminate (a type switch), matching the teacher's own handling of
// framed protocol messages.
type Message interface{}

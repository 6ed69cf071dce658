package engine

import (
	"github.com/ovnkube/flowctrl/ofconn"
)

// connState is the connection state machine's current state (spec §4.5),
// reshaped from ofctrl.c's enum ofctrl_state + per-state run_S_*/recv_S_*
// function pairs into a small closed set with two methods per state:
// enter (run) and receive (recv).
type connState int

const (
	stateNew connState = iota
	stateTLVTableRequested
	stateTLVTableModSent
	stateClearFlows
	stateUpdateFlows
)

func (s connState) String() string {
	switch s {
	case stateNew:
		return "S_NEW"
	case stateTLVTableRequested:
		return "S_TLV_TABLE_REQUESTED"
	case stateTLVTableModSent:
		return "S_TLV_TABLE_MOD_SENT"
	case stateClearFlows:
		return "S_CLEAR_FLOWS"
	case stateUpdateFlows:
		return "S_UPDATE_FLOWS"
	default:
		return "S_UNKNOWN"
	}
}

// CTZoneState is a conntrack-zone flush request's progress through the
// three-stage pipeline described in spec §4.6/§9: queued locally, sent
// to the switch pending a barrier reply, then queued for the caller to
// persist to its backing store.
type CTZoneState int

const (
	CTZoneQueued CTZoneState = iota
	CTZoneOFSent
	CTZoneDBQueued
)

// CTZonePending is one conntrack zone awaiting a flush, owned by the
// engine's caller and passed by reference into Run and Put so the
// engine can advance its State/OFXid in place, matching the teacher's
// shash *pending_ct_zones out-parameter.
type CTZonePending struct {
	Zone  uint16
	State CTZoneState
	OFXid uint32
}

const maxRunIterations = 50

// checkReconnect compares the connection's sequence number against the
// last one observed. A change means the transport reconnected: the
// state machine resets to S_NEW and any ct-flush requests already sent
// but not yet barrier-confirmed are rewound to be resent (spec §4.5
// "Reconnect detection").
func (e *Engine) checkReconnect(pendingCTZones []*CTZonePending) {
	seq := e.conn.Seq()
	if e.haveSeq && seq == e.seq {
		return
	}
	e.haveSeq = true
	e.seq = seq
	e.state = stateNew

	for _, z := range pendingCTZones {
		if z.State == CTZoneOFSent {
			z.State = CTZoneQueued
		}
	}
}

// Run drives the connection state machine and dispatches at most one
// received message per iteration, for up to maxRunIterations rounds
// (spec §4.5 "bounded per-call work"). It requests a follow-up wake
// (see Engine.WakeRequested) if it was still making progress when the
// iteration cap was hit, matching ofctrl_run's poll_immediate_wake.
func (e *Engine) Run(pendingCTZones []*CTZonePending) {
	if !e.conn.Connected() {
		return
	}
	e.checkReconnect(pendingCTZones)

	progress := true
	for i := 0; progress && i < maxRunIterations; i++ {
		oldState := e.state
		e.runEntry()

		msg, received := e.conn.Receive()
		if received {
			e.dispatch(msg, pendingCTZones)
		}

		progress = oldState != e.state || received
		if i == maxRunIterations-1 && progress {
			e.wakeRequested = true
		}
	}
}

// runEntry performs the one-time action associated with entering the
// current state. Most states are passive; only S_NEW and S_CLEAR_FLOWS
// do anything, and each transitions away from itself the first (and
// only) time it runs.
func (e *Engine) runEntry() {
	switch e.state {
	case stateNew:
		e.runNew()
	case stateClearFlows:
		e.runClearFlows()
	}
}

func (e *Engine) runNew() {
	e.tlvXid = e.conn.NextXid()
	e.conn.Send(ofconn.TLVTableRequest{Xid: e.tlvXid})
	e.state = stateTLVTableRequested
}

func (e *Engine) runClearFlows() {
	e.logger.Printf("clearing all flows")
	e.needReinstallFlows = true

	e.conn.Send(ofconn.FlowMod{
		Command: ofconn.FlowDeleteAll,
		TableID: allTablesID,
	})
	e.conn.Send(ofconn.GroupMod{Command: ofconn.GroupDeleteAll, TableID: allGroupsID})

	// Put always re-derives installed/desired links from scratch by key
	// lookup (see reconcileInstalledFlows), so there's no caller-owned
	// desired.Table to notify here; passing nil just skips the
	// now-pointless back-link bookkeeping.
	e.installed.Clear(nil)
	if e.groups != nil {
		e.groups.Clear()
	}

	e.conn.Send(ofconn.MeterMod{Command: ofconn.MeterDeleteAll, TableID: allMetersID})
	if e.meters != nil {
		e.meters.Clear()
	}

	e.flowUpdates = e.flowUpdates[:0]

	e.state = stateUpdateFlows
}

// dispatch routes a received message to the handler for the current
// state, matching ofctrl.c's recv_S_* dispatch table. A message
// received in S_NEW cannot occur in practice (runEntry always leaves
// S_NEW before a receive is attempted in the same iteration), so it
// falls through to the generic handler defensively rather than
// panicking.
func (e *Engine) dispatch(msg ofconn.Message, pendingCTZones []*CTZonePending) {
	switch e.state {
	case stateTLVTableRequested:
		e.recvTLVTableRequested(msg)
	case stateTLVTableModSent:
		e.recvTLVTableModSent(msg)
	case stateClearFlows:
		e.genericRecv(msg)
	case stateUpdateFlows:
		e.recvUpdateFlows(msg, pendingCTZones)
	default:
		e.genericRecv(msg)
	}
}

// genericRecv handles the messages every state accepts regardless of
// what it's waiting for: every message is logged and dropped, and no
// reply is sent for any of them (spec §4.5, ofctrl_recv). An ofconn.ErrorReply
// reaching here during S_UPDATE_FLOWS is the switch asynchronously
// rejecting an individual flow/group/meter mod (it carries no xid we
// can correlate to a specific put), so it's logged through the slower
// async-reject limiter rather than unconditionally (spec §7).
func (e *Engine) genericRecv(msg ofconn.Message) {
	switch m := msg.(type) {
	case ofconn.ErrorReply:
		if allow(e.asyncRejectLimiter) {
			e.logger.Printf("OpenFlow error: xid=%#x type=%d code=%d", m.Xid, m.Type, m.Code)
		}
	default:
		e.logger.Printf("OpenFlow message ignored in state %s: %#v", e.state, m)
	}
}

func (e *Engine) recvTLVTableRequested(msg ofconn.Message) {
	switch m := msg.(type) {
	case ofconn.TLVTableReply:
		if m.Xid != e.tlvXid {
			e.genericRecv(msg)
			return
		}
		if e.processTLVTableReply(m.Mappings) {
			return
		}
	case ofconn.ErrorReply:
		if m.Xid != e.tlvXid {
			e.genericRecv(msg)
			return
		}
		e.logger.Printf("switch refused to allocate Geneve option: type=%d code=%d", m.Type, m.Code)
	default:
		e.genericRecv(msg)
		return
	}

	// Error path: disable Geneve metadata and proceed anyway.
	e.mfFieldID = 0
	e.hasMfFieldID = false
	e.state = stateClearFlows
}

// processTLVTableReply looks for an existing mapping matching our
// Geneve option; if found, adopts its index. Otherwise, if a free slot
// exists, requests one via NXT_TLV_TABLE_MOD + a barrier and moves to
// S_TLV_TABLE_MOD_SENT. Returns false if no further progress is
// possible (caller falls back to disabling Geneve metadata).
func (e *Engine) processTLVTableReply(mappings []ofconn.TLVMapping) bool {
	if m, ok := ofconn.FindMapping(mappings, geneveClass, geneveType, geneveLen); ok {
		e.mfFieldID = m.Index
		e.hasMfFieldID = true
		e.state = stateClearFlows
		return true
	}

	used := ofconn.UsedSlotsBitmap(mappings)
	slot, ok := ofconn.AllocateSlot(used)
	if !ok {
		e.logger.Printf("no Geneve options free for use")
		return false
	}

	mapping := ofconn.TLVMapping{Class: geneveClass, Type: geneveType, Length: geneveLen, Index: slot}
	e.mfFieldID = slot
	e.hasMfFieldID = true

	e.tlvXid = e.conn.NextXid()
	e.conn.Send(ofconn.TLVTableMod{
		Xid:      e.tlvXid,
		Command:  ofconn.TLVTableModAdd,
		Mappings: []ofconn.TLVMapping{mapping},
	})
	e.tlvXid2 = e.conn.NextXid()
	e.conn.Send(ofconn.BarrierRequest{Xid: e.tlvXid2})

	e.state = stateTLVTableModSent
	return true
}

func (e *Engine) recvTLVTableModSent(msg ofconn.Message) {
	switch m := msg.(type) {
	case ofconn.BarrierReply:
		if m.Xid != e.tlvXid2 {
			e.genericRecv(msg)
			return
		}
		e.state = stateClearFlows
		return
	case ofconn.ErrorReply:
		if m.Xid != e.tlvXid {
			e.genericRecv(msg)
			return
		}
		if m.Code == ofconn.VendorErrAlreadyMapped || m.Code == ofconn.VendorErrDupEntry {
			e.logger.Printf("raced with another controller adding Geneve option; trying again")
			e.state = stateNew
			return
		}
		e.logger.Printf("error adding Geneve option: code=%d", m.Code)
	default:
		e.genericRecv(msg)
		return
	}

	e.mfFieldID = 0
	e.hasMfFieldID = false
	e.state = stateClearFlows
}

func (e *Engine) recvUpdateFlows(msg ofconn.Message, pendingCTZones []*CTZonePending) {
	reply, ok := msg.(ofconn.BarrierReply)
	if !ok {
		e.genericRecv(msg)
		return
	}

	if len(e.flowUpdates) > 0 && e.flowUpdates[0].xid == reply.Xid {
		if e.flowUpdates[0].nbCfg >= e.curCfg {
			e.curCfg = e.flowUpdates[0].nbCfg
		}
		e.flowUpdates = e.flowUpdates[1:]
	}

	for _, z := range pendingCTZones {
		if z.State == CTZoneOFSent && z.OFXid == reply.Xid {
			z.State = CTZoneDBQueued
		}
	}
}

// GetMfFieldID returns the tunnel-metadata field chosen for Geneve
// options, or 0 with ok=false if the connection isn't up or Geneve
// metadata hasn't been negotiated (spec §4.5 ofctrl_get_mf_field_id).
// The field is only meaningful once the state machine has reached
// S_CLEAR_FLOWS or S_UPDATE_FLOWS.
func (e *Engine) GetMfFieldID() (uint8, bool) {
	if !e.conn.Connected() {
		return 0, false
	}
	if e.state != stateClearFlows && e.state != stateUpdateFlows {
		return 0, false
	}
	return e.mfFieldID, e.hasMfFieldID
}

// WakeRequested reports whether Run hit its iteration cap while still
// making progress, meaning the caller should invoke Run again without
// waiting on new input (spec §4.5 poll_immediate_wake). It clears the
// flag on read.
func (e *Engine) WakeRequested() bool {
	v := e.wakeRequested
	e.wakeRequested = false
	return v
}

// IsConnected reports whether the underlying connection is currently
// usable.
func (e *Engine) IsConnected() bool {
	return e.conn.Connected()
}

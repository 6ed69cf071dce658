package engine

import (
	"errors"

	"github.com/ovnkube/flowctrl/ofconn"
)

// Microflow is the result of parsing a logical-expression packet
// specification: the logical ingress port the expression resolved to,
// and the raw packet body synthesized from the rest of the expression's
// fields. Composing header bytes from a parsed flow is itself out of
// scope (spec §1, assumed available the same way the OpenFlow codec is);
// the MicroflowParser collaborator is expected to hand back a
// ready-to-send packet body.
type Microflow struct {
	IngressLogicalPort string
	PacketBytes        []byte
}

// MicroflowParser is the caller-supplied collaborator that turns a
// logical-expression packet specification into a Microflow (spec §4.7,
// §6 "a micro-flow expression parser").
type MicroflowParser interface {
	Parse(expr string, addressSets, portGroups map[string][]string) (Microflow, error)
}

// PortLookup resolves a logical port name to the physical OpenFlow port
// number it's currently bound to on this hypervisor (spec §4.7, §6 "a
// port lookup predicate").
type PortLookup func(logicalPort string) (ofPort uint32, ok bool)

// InjectPkt synthesizes and sends a packet-out for the micro-flow
// described by expr, resubmitting it to table 0 (spec §4.7,
// ofctrl_inject_pkt). It returns a diagnostic error if the connection
// isn't ready, the expression doesn't parse, or the logical ingress
// port doesn't resolve to a physical port on this hypervisor; this is
// the only operation in the engine that surfaces an error to its caller
// (spec §7 "Propagation policy").
func (e *Engine) InjectPkt(parser MicroflowParser, expr string, addressSets, portGroups map[string][]string, lookup PortLookup) error {
	if !e.conn.Connected() {
		return errors.New("OpenFlow channel not ready")
	}

	mf, err := parser.Parse(expr, addressSets, portGroups)
	if err != nil {
		return err
	}

	ofPort, ok := lookup(mf.IngressLogicalPort)
	if !ok || ofPort == 0 {
		return errors.New("ingress port not found on hypervisor")
	}

	e.conn.Send(ofconn.PacketOut{
		Data:    mf.PacketBytes,
		InPort:  ofPort,
		Actions: ofconn.ResubmitToTable0(),
	})
	return nil
}

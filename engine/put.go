package engine

import (
	"fmt"
	"strings"

	"github.com/ovnkube/flowctrl/desired"
	"github.com/ovnkube/flowctrl/meter"
	"github.com/ovnkube/flowctrl/ofconn"
)

// Put reconciles table (and the groups/meters extend tables the engine
// was constructed with) against the installed flow table and the
// switch, emitting the minimal set of OpenFlow messages for the
// difference (spec §4.6, ofctrl_put).
//
// table is owned by the caller and not retained past this call.
// meters is the southbound meter catalog snapshot used to materialize
// non-"__string:" meter adds (spec §4.6 step 3). pendingCTZones carries
// conntrack zones awaiting a flush; any in CTZoneQueued state are sent
// and advanced to CTZoneOFSent. nbCfg is the northbound configuration
// sequence number this call corresponds to; flowChanged tells Put
// whether the desired flow table actually changed since the last call
// (an incremental-processing-engine hint the caller is responsible
// for computing; when in doubt, pass true).
func (e *Engine) Put(table *desired.Table, pendingCTZones []*CTZonePending, meters *meter.Catalog, nbCfg int64, flowChanged bool) {
	needPut := flowChanged || e.skippedLastTime || e.needReinstallFlows
	if !needPut && nbCfg != e.oldNbCfg {
		if e.curCfg == e.oldNbCfg {
			e.curCfg = nbCfg
		} else {
			needPut = true
		}
	}
	e.oldNbCfg = nbCfg

	if !needPut {
		e.logger.Printf("put not needed")
		return
	}
	if !e.CanPut() {
		e.logger.Printf("put can't be performed")
		e.skippedLastTime = true
		return
	}
	e.skippedLastTime = false
	e.needReinstallFlows = false

	var msgs []ofconn.Message

	msgs = append(msgs, e.drainCTZoneFlushes(pendingCTZones)...)
	msgs = append(msgs, e.addGroups()...)
	msgs = append(msgs, e.addMeters(meters)...)
	msgs = append(msgs, e.reconcileInstalledFlows(table)...)
	msgs = append(msgs, e.addDesiredFlows(table)...)
	msgs = append(msgs, e.deleteGroups()...)
	e.groups.Sync()
	msgs = append(msgs, e.deleteMeters()...)
	e.meters.Sync()

	if len(msgs) == 0 {
		e.settleFlowUpdate(nbCfg)
		return
	}

	barrierXid := e.conn.NextXid()
	for _, m := range msgs {
		e.conn.Send(m)
	}
	e.conn.Send(ofconn.BarrierRequest{Xid: barrierXid})

	for _, z := range pendingCTZones {
		if z.State == CTZoneOFSent && z.OFXid == 0 {
			z.OFXid = barrierXid
		}
	}

	e.recordFlowUpdate(barrierXid, nbCfg)
}

func (e *Engine) drainCTZoneFlushes(pendingCTZones []*CTZonePending) []ofconn.Message {
	var msgs []ofconn.Message
	for _, z := range pendingCTZones {
		if z.State != CTZoneQueued {
			continue
		}
		msgs = append(msgs, ofconn.CTFlushZone{Xid: e.conn.NextXid(), Zone: z.Zone})
		z.State = CTZoneOFSent
		z.OFXid = 0
	}
	return msgs
}

func (e *Engine) addGroups() []ofconn.Message {
	var msgs []ofconn.Message
	for _, g := range e.groups.Uninstalled() {
		msgs = append(msgs, ofconn.GroupMod{
			Command: ofconn.GroupAdd,
			TableID: g.TableID,
			Name:    g.Name,
			Aux:     g.Aux,
		})
	}
	return msgs
}

func (e *Engine) addMeters(meters *meter.Catalog) []ofconn.Message {
	var msgs []ofconn.Message
	for _, m := range e.meters.Uninstalled() {
		if strings.HasPrefix(m.Name, meterStringPrefix) {
			// The "set-meter" action already describes the meter
			// inline; there's no southbound catalog entry to look up.
			msgs = append(msgs, ofconn.MeterMod{
				Command: ofconn.MeterAdd,
				TableID: m.TableID,
				Name:    m.Name,
				Aux:     m.Aux,
			})
			continue
		}

		def, ok := meterDefinition(meters, m.Name)
		if !ok {
			if allow(e.rejectLimiter) {
				e.logger.Printf("unknown meter %q, not installing", m.Name)
			}
			continue
		}
		msgs = append(msgs, ofconn.MeterMod{
			Command: ofconn.MeterAdd,
			TableID: m.TableID,
			Name:    m.Name,
			Aux:     encodeMeterDefinition(def),
		})
	}
	return msgs
}

func meterDefinition(meters *meter.Catalog, name string) (meter.Definition, bool) {
	if meters == nil {
		return meter.Definition{}, false
	}
	return meters.Lookup(name)
}

func encodeMeterDefinition(def meter.Definition) map[string]string {
	aux := map[string]string{"unit": def.Unit}
	bands := make([]string, 0, len(def.Bands))
	for _, b := range def.Bands {
		bands = append(bands, fmt.Sprintf("%s:rate=%d,burst_size=%d", b.Type, b.Rate, b.BurstSize))
	}
	aux["bands"] = strings.Join(bands, ";")
	return aux
}

// reconcileInstalledFlows walks every currently installed flow, drops
// ones no longer desired, updates ones whose actions/cookie changed,
// and relinks survivors to their (possibly new) primary desired flow
// (spec §4.6 step 4, ofctrl_put's HMAP_FOR_EACH_SAFE over
// installed_flows).
func (e *Engine) reconcileInstalledFlows(table *desired.Table) []ofconn.Message {
	var msgs []ofconn.Message
	for _, i := range e.installed.All() {
		e.installed.UnlinkAll(i)

		d := table.LookupByKey(i.FlowValue())
		if d == nil {
			msgs = append(msgs, ofconn.FlowMod{
				Command:    ofconn.FlowDeleteStrict,
				TableID:    i.FlowValue().TableID(),
				Priority:   i.FlowValue().Priority(),
				Match:      i.FlowValue().Match(),
				Cookie:     i.FlowValue().Cookie(),
				CookieMask: ^uint64(0),
			})
			e.installed.Remove(i)
			continue
		}

		if !i.FlowValue().ValueEqual(d.FlowValue()) {
			// A plain FLOW_MOD/MODIFY does not reliably replace the
			// cookie on the switch, so a cookie change must go out as
			// an ADD: OFPFC_ADD overwrites the existing entry at this
			// key, cookie included (spec §4.6 step 4, §8 Scenario C).
			command := ofconn.FlowModify
			if i.FlowValue().Cookie() != d.FlowValue().Cookie() {
				command = ofconn.FlowAdd
			}
			msgs = append(msgs, ofconn.FlowMod{
				Command:  command,
				TableID:  d.FlowValue().TableID(),
				Priority: d.FlowValue().Priority(),
				Match:    d.FlowValue().Match(),
				Actions:  d.FlowValue().Actions(),
				Cookie:   d.FlowValue().Cookie(),
			})
			e.installed.SetValue(i, d.FlowValue())
		}

		e.installed.Link(i, d.ID())
		d.LinkInstalled(i.ID())
	}
	return msgs
}

// addDesiredFlows adds every desired flow with no installed counterpart
// (spec §4.6 step 5).
func (e *Engine) addDesiredFlows(table *desired.Table) []ofconn.Message {
	var msgs []ofconn.Message
	for _, d := range table.All() {
		i := e.installed.Lookup(d.FlowValue())
		if i == nil {
			msgs = append(msgs, ofconn.FlowMod{
				Command:  ofconn.FlowAdd,
				TableID:  d.FlowValue().TableID(),
				Priority: d.FlowValue().Priority(),
				Match:    d.FlowValue().Match(),
				Actions:  d.FlowValue().Actions(),
				Cookie:   d.FlowValue().Cookie(),
			})
			i = e.installed.New(d.FlowValue())
		}
		e.installed.Link(i, d.ID())
		d.LinkInstalled(i.ID())
	}
	return msgs
}

func (e *Engine) deleteGroups() []ofconn.Message {
	var msgs []ofconn.Message
	for _, g := range e.groups.Installed() {
		msgs = append(msgs, ofconn.GroupMod{Command: ofconn.GroupDelete, TableID: g.TableID})
		e.groups.RemoveExisting(g)
	}
	return msgs
}

func (e *Engine) deleteMeters() []ofconn.Message {
	var msgs []ofconn.Message
	for _, m := range e.meters.Installed() {
		msgs = append(msgs, ofconn.MeterMod{Command: ofconn.MeterDelete, TableID: m.TableID})
		e.meters.RemoveExisting(m)
	}
	return msgs
}

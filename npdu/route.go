package npdu

import "github.com/edgeo/bacnet-router/apdu"

// RequestInfo captures the fields of an outstanding confirmed request
// needed to match a later reply.
type RequestInfo struct {
	Version        uint8
	ExpectingReply bool
	InvokeID       uint8
	Priority       Priority
	Service        apdu.ConfirmedServiceChoice
}

// ReplyInfo captures the fields of an incoming APDU needed to match it
// against a RequestInfo.
type ReplyInfo struct {
	Version  uint8
	Type     apdu.PDUType
	InvokeID uint8
	Priority Priority
	Service  apdu.ConfirmedServiceChoice // meaningful for ComplexAck/SimpleAck/Error
}

// IsExpectedReply implements the reply-matching predicate.
func IsExpectedReply(req RequestInfo, rep ReplyInfo) bool {
	if req.Version != rep.Version {
		return false
	}
	if !req.ExpectingReply {
		return false
	}
	switch rep.Type {
	case apdu.TypeComplexAck, apdu.TypeSimpleAck, apdu.TypeError:
		if rep.Service != req.Service {
			return false
		}
	case apdu.TypeReject, apdu.TypeAbort:
		// service choice is not carried on Reject/Abort PDUs
	default:
		return false
	}
	if rep.InvokeID != req.InvokeID {
		return false
	}
	if rep.Priority != req.Priority {
		return false
	}
	return true
}

// DNETEntry is a reachable-network record learned via
// I-Am-Router-To-Network.
type DNETEntry struct {
	Net     uint16
	MAC     []byte
	Enabled bool
}

// RouteInfo is the per-port routing table entry: the port's own
// local network/MAC plus the list of DNETs reachable through it.
type RouteInfo struct {
	LocalNet uint16
	LocalMAC []byte
	DNets    []DNETEntry
}

// Learn adds net (reachable via mac) to the table, ignoring duplicates,
// per the learning rule for I-Am-Router-To-Network.
func (r *RouteInfo) Learn(net uint16, mac []byte) {
	for i := range r.DNets {
		if r.DNets[i].Net == net {
			return
		}
	}
	r.DNets = append(r.DNets, DNETEntry{Net: net, MAC: append([]byte(nil), mac...), Enabled: true})
}

// SetEnabled marks net disabled/enabled, per Router-Busy/Router-Available.
func (r *RouteInfo) SetEnabled(net uint16, enabled bool) {
	for i := range r.DNets {
		if r.DNets[i].Net == net {
			r.DNets[i].Enabled = enabled
			return
		}
	}
}

// Lookup returns the DNET entry for net, if known and enabled.
func (r *RouteInfo) Lookup(net uint16) (DNETEntry, bool) {
	for _, e := range r.DNets {
		if e.Net == net && e.Enabled {
			return e, true
		}
	}
	return DNETEntry{}, false
}

// PortID identifies a router port for forwarding decisions.
type PortID int

// PortView is the read-only snapshot of one port's routing state that
// the forwarding decision consults.
type PortView struct {
	ID    PortID
	Route RouteInfo
}

// ForwardKind discriminates the possible forwarding outcomes.
type ForwardKind int

const (
	ForwardNone ForwardKind = iota
	ForwardBroadcastAll
	ForwardLocal
	ForwardRouted
	ForwardUnknownQueryNeeded
	ForwardDropHopCountExceeded
)

// ForwardDecision is the result of the forwarding rule.
type ForwardDecision struct {
	Kind     ForwardKind
	Targets  []PortID // ports to transmit on
	DADR     []byte   // MAC to place in DADR when Kind == ForwardRouted
	HopCount uint8    // hop count to use on the outgoing frame
}

// Forward implements the forwarding rule for a frame with the
// given destination network arriving on incomingPort.
func Forward(incoming PortID, dnet uint16, hopCount uint8, ports []PortView) ForwardDecision {
	if dnet == NetworkBroadcast {
		if hopCount == 0 {
			return ForwardDecision{Kind: ForwardDropHopCountExceeded}
		}
		var targets []PortID
		for _, p := range ports {
			if p.ID != incoming {
				targets = append(targets, p.ID)
			}
		}
		return ForwardDecision{Kind: ForwardBroadcastAll, Targets: targets, HopCount: hopCount - 1}
	}

	for _, p := range ports {
		if p.Route.LocalNet == dnet {
			return ForwardDecision{Kind: ForwardLocal, Targets: []PortID{p.ID}}
		}
	}

	for _, p := range ports {
		if p.ID == incoming {
			continue
		}
		if entry, ok := p.Route.Lookup(dnet); ok {
			return ForwardDecision{Kind: ForwardRouted, Targets: []PortID{p.ID}, DADR: entry.MAC, HopCount: hopCount}
		}
	}

	var others []PortID
	for _, p := range ports {
		if p.ID != incoming {
			others = append(others, p.ID)
		}
	}
	return ForwardDecision{Kind: ForwardUnknownQueryNeeded, Targets: others}
}

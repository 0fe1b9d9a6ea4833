package router

import (
	"context"
	"log/slog"

	"github.com/edgeo/bacnet-router/npdu"
)

// Router owns every port and the main routing loop: it consumes Data
// messages off MainBox, applies the forwarding decision, learns DNETs
// from I-Am-Router-To-Network replies, and issues
// Who-Is-Router-To-Network queries when a destination network is
// unknown.
type Router struct {
	Ports   []*Port
	MainBox *Mailbox
	Log     *slog.Logger
}

// NewRouter returns a Router with its own main mailbox (capacity cap).
func NewRouter(ports []*Port, mainID MailboxID, cap int, log *slog.Logger) *Router {
	return &Router{Ports: ports, MainBox: NewMailbox(mainID, cap), Log: log}
}

func (r *Router) portByID(id npdu.PortID) *Port {
	for _, p := range r.Ports {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Router) views() []npdu.PortView {
	out := make([]npdu.PortView, len(r.Ports))
	for i, p := range r.Ports {
		out[i] = p.View()
	}
	return out
}

// Run blocks processing messages from every port until ctx is
// cancelled.
func (r *Router) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-r.MainBox.Recv():
			r.handle(npdu.PortID(msg.Origin), msg)
		}
	}
}

func (r *Router) handle(origin npdu.PortID, msg Message) {
	if msg.Type != MessageData || msg.Data == nil {
		return
	}
	buf := msg.Data
	defer buf.Release()

	n, offset, err := npdu.Decode(buf.PDU)
	if err != nil {
		r.Log.Debug("dropping unparseable NPDU", slog.Int("port", int(origin)), slog.String("error", err.Error()))
		return
	}

	if n.NetworkLayerMsg {
		r.handleNetworkMessage(origin, n)
		return
	}

	r.forward(origin, n, buf.PDU[offset:])
}

func (r *Router) handleNetworkMessage(origin npdu.PortID, n *npdu.NPDU) {
	p := r.portByID(origin)
	if p == nil {
		return
	}
	switch n.MessageType {
	case npdu.MsgIAmRouterToNetwork:
		for _, net := range npdu.DecodeIAmRouterToNetwork(n.Payload) {
			p.Route.Learn(net, n.SrcAdr)
		}
	case npdu.MsgRouterBusyToNetwork:
		if dnet, ok := npdu.DecodeWhoIsRouterToNetwork(n.Payload); ok {
			p.Route.SetEnabled(dnet, false)
		}
	case npdu.MsgRouterAvailableToNetwork:
		if dnet, ok := npdu.DecodeWhoIsRouterToNetwork(n.Payload); ok {
			p.Route.SetEnabled(dnet, true)
		}
	case npdu.MsgWhoIsRouterToNetwork:
		r.answerWhoIsRouterToNetwork(origin, n)
	}
}

// answerWhoIsRouterToNetwork replies on origin with an
// I-Am-Router-To-Network listing every DNET (besides origin's own
// local network) this router can reach, restricted to the network
// asked about if the query named one.
func (r *Router) answerWhoIsRouterToNetwork(origin npdu.PortID, n *npdu.NPDU) {
	want, restricted := npdu.DecodeWhoIsRouterToNetwork(n.Payload)
	var nets []uint16
	for _, p := range r.Ports {
		if p.ID == origin {
			continue
		}
		if !restricted || p.Route.LocalNet == want {
			nets = append(nets, p.Route.LocalNet)
		}
		for _, e := range p.Route.DNets {
			if e.Enabled && (!restricted || e.Net == want) {
				nets = append(nets, e.Net)
			}
		}
	}
	if len(nets) == 0 {
		return
	}
	p := r.portByID(origin)
	if p == nil {
		return
	}
	hdr := npdu.NPDU{NetworkLayerMsg: true, MessageType: npdu.MsgIAmRouterToNetwork}
	wire := npdu.Append(nil, hdr)
	wire = npdu.AppendIAmRouterToNetwork(wire, nets)
	p.PortBox.Send(Message{Type: MessageData, Data: NewBuffer(npdu.Address{}, npdu.Address{}, wire)})
}

// forward applies the network-layer forwarding rule to an application
// frame and enqueues it on every target port's mailbox for
// transmission, issuing a Who-Is-Router-To-Network query instead when
// the destination network is not yet known.
func (r *Router) forward(origin npdu.PortID, n *npdu.NPDU, apdu []byte) {
	dnet := n.DestNet
	if !n.HasDest {
		dnet = r.localNetOf(origin)
	}
	hop := n.HopCount
	if hop == 0 {
		hop = 255
	}

	decision := npdu.Forward(origin, dnet, hop, r.views())
	switch decision.Kind {
	case npdu.ForwardUnknownQueryNeeded:
		r.queryRoute(origin, dnet, decision.Targets)
	case npdu.ForwardDropHopCountExceeded:
		return
	default:
		r.dispatch(decision, dnet, apdu)
	}
}

func (r *Router) localNetOf(origin npdu.PortID) uint16 {
	if p := r.portByID(origin); p != nil {
		return p.Route.LocalNet
	}
	return npdu.NetworkLocal
}

func (r *Router) queryRoute(origin npdu.PortID, dnet uint16, targets []npdu.PortID) {
	var payload []byte
	payload = npdu.AppendWhoIsRouterToNetwork(payload, dnet, true)
	hdr := npdu.NPDU{NetworkLayerMsg: true, MessageType: npdu.MsgWhoIsRouterToNetwork}
	wire := npdu.Append(nil, hdr)
	wire = append(wire, payload...)
	for _, t := range targets {
		if p := r.portByID(t); p != nil {
			p.PortBox.Send(Message{Type: MessageData, Data: NewBuffer(npdu.Address{}, npdu.Address{}, wire)})
		}
	}
}

func (r *Router) dispatch(decision npdu.ForwardDecision, dnet uint16, apdu []byte) {
	var hdr npdu.NPDU
	switch decision.Kind {
	case npdu.ForwardRouted:
		hdr = npdu.NPDU{HasDest: true, DestNet: dnet, DestAdr: decision.DADR, HopCount: decision.HopCount}
	case npdu.ForwardBroadcastAll:
		hdr = npdu.NPDU{HasDest: true, DestNet: npdu.NetworkBroadcast, HopCount: decision.HopCount}
	case npdu.ForwardLocal:
		hdr = npdu.NPDU{HasDest: false}
	}
	wire := npdu.Append(nil, hdr)
	wire = append(wire, apdu...)

	buf := NewBuffer(npdu.Address{MAC: decision.DADR}, npdu.Address{}, wire)
	for i, t := range decision.Targets {
		if i > 0 {
			buf.Retain()
		}
		if p := r.portByID(t); p != nil {
			p.PortBox.Send(Message{Type: MessageData, Data: buf})
		} else {
			buf.Release()
		}
	}
}

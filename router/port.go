package router

import (
	"github.com/edgeo/bacnet-router/npdu"
)

// DLType names the data-link technology a port runs.
type DLType int

const (
	DLTypeBIP DLType = iota + 1
	DLTypeMSTP
	DLTypeEthernet
)

// PortState is a port's lifecycle state.
type PortState int

const (
	PortInit PortState = iota
	PortInitFailed
	PortRunning
	PortFinished
)

// Datalink is the per-technology transport a port worker drives: a
// bounded receive and a send, abstracting over BACnet/IP UDP sockets
// and MS/TP's byte-at-a-time framing alike.
type Datalink interface {
	// Receive blocks up to the datalink's own characteristic poll
	// interval (5 ms for MS/TP, effectively non-blocking for IP) and
	// returns a frame if one arrived.
	Receive() (src npdu.Address, pdu []byte, ok bool, err error)
	Send(dest npdu.Address, pdu []byte) error
	Close() error
}

// Port is one router network port: its data-link type, lifecycle
// state, message-bus identities, and routing table.
type Port struct {
	ID      npdu.PortID
	Type    DLType
	State   PortState
	PortBox *Mailbox // this port's own mailbox
	MainID  MailboxID
	Iface   string
	Route   npdu.RouteInfo

	dl Datalink
}

// NewPort constructs a Port bound to dl, with its own mailbox whose ID
// is id and whose peer (the router main loop) is mainID.
func NewPort(id npdu.PortID, dlType DLType, iface string, localNet uint16, localMAC []byte, dl Datalink, mainID MailboxID, mailboxCapacity int) *Port {
	return &Port{
		ID:      id,
		Type:    dlType,
		State:   PortInit,
		PortBox: NewMailbox(MailboxID(id), mailboxCapacity),
		MainID:  mainID,
		Iface:   iface,
		Route:   npdu.RouteInfo{LocalNet: localNet, LocalMAC: append([]byte(nil), localMAC...)},
		dl:      dl,
	}
}

// View returns the read-only routing snapshot the forwarding decision
// consults.
func (p *Port) View() npdu.PortView {
	return npdu.PortView{ID: p.ID, Route: p.Route}
}

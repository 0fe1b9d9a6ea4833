// Package router implements the multi-port BACnet router: a mailbox
// message bus between per-port workers and a main routing loop, the
// network-layer forwarding decision, and DNET learning, bridging MS/TP
// and BACnet/IP (and BACnet/Ethernet) segments.
package router

import (
	"sync/atomic"

	"github.com/edgeo/bacnet-router/npdu"
)

// MailboxID identifies one message-box endpoint: the router's own main
// loop, or one port worker.
type MailboxID int

// MessageType discriminates a data-carrying message from a
// control/service message.
type MessageType int

const (
	MessageData MessageType = iota + 1
	MessageService
)

// ServiceSubtype enumerates the service-message subtypes a worker must
// honor.
type ServiceSubtype int

const (
	ServiceShutdown ServiceSubtype = iota
	ServiceChangeIP
	ServiceChangeMAC
)

// Buffer is a reference-counted NPDU payload: several pending
// forwards (e.g. a broadcast fanned out to every other port) can share
// one allocation, freed once every holder has released it.
type Buffer struct {
	Dest npdu.Address
	Src  npdu.Address
	PDU  []byte

	refCount int32
}

// NewBuffer returns a Buffer with an initial reference count of 1.
func NewBuffer(dest, src npdu.Address, pdu []byte) *Buffer {
	return &Buffer{Dest: dest, Src: src, PDU: pdu, refCount: 1}
}

// Retain increments the reference count, for a second holder of the
// same buffer (e.g. a second forwarding target).
func (b *Buffer) Retain() {
	atomic.AddInt32(&b.refCount, 1)
}

// Release decrements the reference count and reports whether this was
// the last reference (the caller may now drop the buffer).
func (b *Buffer) Release() bool {
	return atomic.AddInt32(&b.refCount, -1) == 0
}

// Message is the tagged union carried on the mailbox bus: a Data
// message wraps a Buffer; a Service message carries a control
// subtype and no payload.
type Message struct {
	Type    MessageType
	Origin  MailboxID
	Service ServiceSubtype
	Data    *Buffer
}

// Mailbox is one endpoint on the message bus: a buffered channel plus
// its identity, so a worker can both send to other mailboxes and
// receive addressed to itself.
type Mailbox struct {
	ID MailboxID
	ch chan Message
}

// NewMailbox returns a Mailbox with the given ID and channel capacity.
func NewMailbox(id MailboxID, capacity int) *Mailbox {
	return &Mailbox{ID: id, ch: make(chan Message, capacity)}
}

// Send enqueues msg, blocking if the mailbox is full. It is safe for
// concurrent senders.
func (m *Mailbox) Send(msg Message) {
	m.ch <- msg
}

// TrySend enqueues msg without blocking, reporting whether it was
// accepted.
func (m *Mailbox) TrySend(msg Message) bool {
	select {
	case m.ch <- msg:
		return true
	default:
		return false
	}
}

// Recv returns the mailbox's receive channel, for use in a select
// alongside other event sources (timers, shutdown signals).
func (m *Mailbox) Recv() <-chan Message { return m.ch }

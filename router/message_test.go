package router

import (
	"testing"

	"github.com/edgeo/bacnet-router/npdu"
)

func TestBufferReleaseSingleReference(t *testing.T) {
	b := NewBuffer(npdu.Address{}, npdu.Address{}, []byte{1})
	if !b.Release() {
		t.Fatal("single-reference buffer should free on first Release")
	}
}

func TestBufferReleaseSharedReference(t *testing.T) {
	b := NewBuffer(npdu.Address{}, npdu.Address{}, []byte{1})
	b.Retain()
	if b.Release() {
		t.Fatal("shared buffer should not free on first Release")
	}
	if !b.Release() {
		t.Fatal("shared buffer should free on final Release")
	}
}

func TestMailboxSendRecv(t *testing.T) {
	mb := NewMailbox(1, 4)
	mb.Send(Message{Type: MessageService, Service: ServiceShutdown})
	msg := <-mb.Recv()
	if msg.Type != MessageService || msg.Service != ServiceShutdown {
		t.Fatalf("got %+v", msg)
	}
}

func TestMailboxTrySendFullCapacity(t *testing.T) {
	mb := NewMailbox(1, 1)
	if !mb.TrySend(Message{Type: MessageService}) {
		t.Fatal("first send into capacity-1 mailbox should succeed")
	}
	if mb.TrySend(Message{Type: MessageService}) {
		t.Fatal("second send into a full mailbox should not succeed")
	}
}

package mstp

import (
	"testing"
	"time"

	"github.com/edgeo/bacnet-router/npdu"
)

type nopTransmitter struct{ frames [][]byte }

func (t *nopTransmitter) WriteFrame(data []byte) error {
	t.frames = append(t.frames, append([]byte(nil), data...))
	return nil
}

type nopSource struct{}

func (nopSource) ReadByte(_ time.Duration) (byte, bool, error) { return 0, false, nil }

func TestNodeDatalinkReceiveDrainsDeliveredPayload(t *testing.T) {
	d := NewNodeDatalink(1, 10, 1, &nopTransmitter{}, nopSource{}, nil)
	d.sink.Deliver(5, false, []byte{0xAA})

	addr, pdu, ok, err := d.Receive()
	if err != nil || !ok {
		t.Fatalf("Receive: ok=%v err=%v", ok, err)
	}
	if len(addr.MAC) != 1 || addr.MAC[0] != 5 {
		t.Fatalf("addr = %+v", addr)
	}
	if string(pdu) != "\xaa" {
		t.Fatalf("pdu = % x", pdu)
	}

	if _, _, ok, _ := d.Receive(); ok {
		t.Fatal("expected the queue to be drained after one Receive")
	}
}

func TestNodeDatalinkSendQueuesForTokenHolder(t *testing.T) {
	d := NewNodeDatalink(1, 10, 1, &nopTransmitter{}, nopSource{}, nil)
	if err := d.Send(npdu.Address{MAC: []byte{7}}, []byte{0x01, 0x02}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	dest, expecting, payload, ok := d.queue.Next(1024)
	if !ok || dest != 7 || expecting || string(payload) != "\x01\x02" {
		t.Fatalf("Next = %d %v % x %v", dest, expecting, payload, ok)
	}
}

func TestNodeDatalinkSendBroadcastWithEmptyMAC(t *testing.T) {
	d := NewNodeDatalink(1, 10, 1, &nopTransmitter{}, nopSource{}, nil)
	if err := d.Send(npdu.Address{}, []byte{0x09}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	dest, _, _, ok := d.queue.Next(1024)
	if !ok || dest != uint8(BroadcastAddress) {
		t.Fatalf("dest = %d, want broadcast", dest)
	}
}

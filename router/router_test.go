package router

import (
	"io"
	"log/slog"
	"testing"

	"github.com/edgeo/bacnet-router/npdu"
)

func newTestRouter() (*Router, *Port, *Port) {
	p1 := NewPort(1, DLTypeBIP, "eth0", 0, []byte{0x01}, nil, 0, 8)
	p2 := NewPort(2, DLTypeMSTP, "ttyUSB0", 25, []byte{0x02}, nil, 0, 8)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter([]*Port{p1, p2}, 0, 8, log)
	return r, p1, p2
}

// TestRouterLearnsDNETFromIAmRouterToNetwork walks through the
// discovery-then-forward sequence: an unknown DNET triggers a query
// on the other port, the reply is learned, and a later frame for that
// DNET is forwarded with the learned MAC.
func TestRouterLearnsDNETFromIAmRouterToNetwork(t *testing.T) {
	r, p1, p2 := newTestRouter()

	// A frame for DNET=40 arrives on P1; P2 has no route for it yet.
	appHdr := npdu.NPDU{HasDest: true, DestNet: 40, HopCount: 255}
	wire := npdu.Append(nil, appHdr)
	wire = append(wire, 0x01, 0x02, 0x03) // stand-in APDU bytes
	r.handle(1, Message{Type: MessageData, Data: NewBuffer(npdu.Address{}, npdu.Address{}, wire)})

	select {
	case msg := <-p2.PortBox.Recv():
		n, _, err := npdu.Decode(msg.Data.PDU)
		if err != nil || !n.NetworkLayerMsg || n.MessageType != npdu.MsgWhoIsRouterToNetwork {
			t.Fatalf("expected Who-Is-Router-To-Network on P2, got %+v err=%v", n, err)
		}
	default:
		t.Fatal("expected a query queued on P2")
	}

	// P2 learns the reply: I-Am-Router-To-Network(40) from SADR 0x07.
	iamHdr := npdu.NPDU{NetworkLayerMsg: true, MessageType: npdu.MsgIAmRouterToNetwork, SrcAdr: []byte{0x07}}
	iamWire := npdu.Append(nil, iamHdr)
	iamWire = npdu.AppendIAmRouterToNetwork(iamWire, []uint16{40, 50})
	r.handle(2, Message{Type: MessageData, Data: NewBuffer(npdu.Address{}, npdu.Address{}, iamWire)})

	if entry, ok := p2.Route.Lookup(40); !ok || entry.MAC[0] != 0x07 {
		t.Fatalf("P2 did not learn DNET 40: %+v ok=%v", entry, ok)
	}

	// A subsequent frame to DNET=40 on P1 is now forwarded on P2 with DADR=[0x07].
	r.handle(1, Message{Type: MessageData, Data: NewBuffer(npdu.Address{}, npdu.Address{}, wire)})
	select {
	case msg := <-p2.PortBox.Recv():
		n, offset, err := npdu.Decode(msg.Data.PDU)
		if err != nil {
			t.Fatalf("decode forwarded frame: %v", err)
		}
		if len(n.DestAdr) != 1 || n.DestAdr[0] != 0x07 {
			t.Fatalf("DADR = % x, want [07]", n.DestAdr)
		}
		if string(msg.Data.PDU[offset:]) != "\x01\x02\x03" {
			t.Fatalf("forwarded APDU mismatch: % x", msg.Data.PDU[offset:])
		}
	default:
		t.Fatal("expected the forwarded frame queued on P2")
	}
}

func TestRouterBroadcastFansOutToEveryOtherPort(t *testing.T) {
	r, _, p2 := newTestRouter()
	wire := npdu.Append(nil, npdu.NPDU{HasDest: true, DestNet: npdu.NetworkBroadcast, HopCount: 10})
	wire = append(wire, 0xAA)
	r.handle(1, Message{Type: MessageData, Data: NewBuffer(npdu.Address{}, npdu.Address{}, wire)})

	select {
	case <-p2.PortBox.Recv():
	default:
		t.Fatal("expected the broadcast relayed to P2")
	}
}

package bvlc

import (
	"bytes"
	"net"
	"testing"
)

func TestAppendDecodeOriginalUnicastNPDU(t *testing.T) {
	npdu := []byte{0x01, 0x00, 0x10, 0x20}
	wire := AppendOriginalUnicastNPDU(nil, npdu)

	msg, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Function != FuncOriginalUnicastNPDU {
		t.Fatalf("function = %v", msg.Function)
	}
	if !bytes.Equal(msg.Payload, npdu) {
		t.Fatalf("payload = % x, want % x", msg.Payload, npdu)
	}
}

func TestAppendDecodeForwardedNPDU(t *testing.T) {
	origin := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 5), Port: 47808}
	npdu := []byte{0x01, 0x08}
	wire := AppendForwardedNPDU(nil, origin, npdu)

	msg, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Function != FuncForwardedNPDU {
		t.Fatalf("function = %v", msg.Function)
	}
	if msg.Origin == nil || !msg.Origin.IP.Equal(origin.IP) || msg.Origin.Port != origin.Port {
		t.Fatalf("origin = %+v, want %+v", msg.Origin, origin)
	}
	if !bytes.Equal(msg.Payload, npdu) {
		t.Fatalf("payload = % x, want % x", msg.Payload, npdu)
	}
}

func TestAppendDecodeResult(t *testing.T) {
	wire := AppendResult(nil, ResultWriteBDTNAK)
	msg, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Function != FuncResult || msg.Result != ResultWriteBDTNAK {
		t.Fatalf("got %+v", msg)
	}
}

func TestAppendDecodeRegisterForeignDevice(t *testing.T) {
	wire := AppendRegisterForeignDevice(nil, 300)
	msg, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Function != FuncRegisterForeignDevice || msg.TTL != 300 {
		t.Fatalf("got %+v", msg)
	}
}

func TestDecodeRejectsWrongType(t *testing.T) {
	wire := []byte{0x82, 0x00, 0x00, 0x04}
	if _, err := Decode(wire); err != ErrBadType {
		t.Fatalf("err = %v, want ErrBadType", err)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	if _, err := Decode([]byte{0x81, 0x0A}); err != ErrTruncated {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestAddressRoundTrip(t *testing.T) {
	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 47809}
	wire := AppendAddress(nil, addr)
	got, n, err := DecodeAddress(wire)
	if err != nil {
		t.Fatalf("DecodeAddress: %v", err)
	}
	if n != 6 {
		t.Fatalf("n = %d, want 6", n)
	}
	if !got.IP.Equal(addr.IP) || got.Port != addr.Port {
		t.Fatalf("got %+v, want %+v", got, addr)
	}
}

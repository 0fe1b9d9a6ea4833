package mstp

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeEmptyFrame(t *testing.T) {
	f := Frame{Type: FrameToken, Dest: 5, Src: 3}
	wire := Encode(nil, f)

	if !bytes.Equal(wire[:2], []byte{0x55, 0xFF}) {
		t.Fatalf("preamble mismatch: % x", wire[:2])
	}

	got, dataLen, err := DecodeHeader(wire[2:8])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if dataLen != 0 {
		t.Fatalf("dataLen = %d, want 0", dataLen)
	}
	if got.Type != f.Type || got.Dest != f.Dest || got.Src != f.Src {
		t.Fatalf("got %+v, want %+v", got, f)
	}
	if len(wire) != 8 {
		t.Fatalf("empty frame wire length = %d, want 8", len(wire))
	}
}

func TestEncodeDecodeFrameWithData(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	f := Frame{Type: FrameBACnetDataExpectingReply, Dest: 10, Src: 1, Data: payload}
	wire := Encode(nil, f)

	hdr, dataLen, err := DecodeHeader(wire[2:8])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if dataLen != len(payload) {
		t.Fatalf("dataLen = %d, want %d", dataLen, len(payload))
	}

	data, err := DecodeData(wire[8:], dataLen)
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("data = % x, want % x", data, payload)
	}
	if !hdr.Type.DataExpectingReply() {
		t.Fatal("expected DataExpectingReply frame type")
	}
}

func TestDecodeHeaderRejectsBadCRC(t *testing.T) {
	f := Frame{Type: FrameToken, Dest: 5, Src: 3}
	wire := Encode(nil, f)
	header := append([]byte(nil), wire[2:8]...)
	header[5] ^= 0x01 // corrupt the header CRC byte itself

	if _, _, err := DecodeHeader(header); err == nil {
		t.Fatal("expected header CRC error")
	}
}

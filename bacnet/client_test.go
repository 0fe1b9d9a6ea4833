package bacnet

import (
	"testing"

	"github.com/edgeo/bacnet-router/bactag"
)

func TestDecodeIAmRoundTrip(t *testing.T) {
	var payload []byte
	payload = bactag.AppendApplication(payload, bactag.Value{Tag: bactag.ObjectID, ObjID: bactag.ObjectIdentifier{Type: 8, Instance: 1234}})
	payload = bactag.AppendApplication(payload, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: 1476})
	payload = bactag.AppendApplication(payload, bactag.Value{Tag: bactag.Enumerated, Enum: 0})
	payload = bactag.AppendApplication(payload, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: 260})

	dev, err := decodeIAm(payload)
	if err != nil {
		t.Fatalf("decodeIAm: %v", err)
	}
	if dev.Instance != 1234 || dev.MaxAPDU != 1476 || dev.VendorID != 260 {
		t.Fatalf("decoded = %+v", dev)
	}
}

func TestDecodeIAmTruncatedIsError(t *testing.T) {
	var payload []byte
	payload = bactag.AppendApplication(payload, bactag.Value{Tag: bactag.ObjectID, ObjID: bactag.ObjectIdentifier{Type: 8, Instance: 1}})
	if _, err := decodeIAm(payload); err == nil {
		t.Fatal("expected an error decoding a truncated I-Am")
	}
}

func TestReadPropertyAckRoundTrip(t *testing.T) {
	var payload []byte
	payload = bactag.AppendContext(payload, 0, bactag.Value{Tag: bactag.ObjectID, ObjID: bactag.ObjectIdentifier{Type: 2, Instance: 5}})
	payload = bactag.AppendContext(payload, 1, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: 85})
	payload = bactag.AppendOpeningTag(payload, 3)
	payload = bactag.AppendApplication(payload, bactag.Value{Tag: bactag.Real, Real: 72.5})
	payload = bactag.AppendClosingTag(payload, 3)

	val, err := decodeReadPropertyAck(payload)
	if err != nil {
		t.Fatalf("decodeReadPropertyAck: %v", err)
	}
	if val.Tag != bactag.Real || val.Real != 72.5 {
		t.Fatalf("decoded = %+v", val)
	}
}

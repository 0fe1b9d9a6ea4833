package service

import (
	"github.com/edgeo/bacnet-router/bactag"
	"github.com/edgeo/bacnet-router/object"
)

// BroadcastFunc hands an encoded unconfirmed-service payload to the
// datalink for local broadcast; the caller (the router/device main
// loop) supplies the concrete transport.
type BroadcastFunc func(service uint8, payload []byte)

const unconfirmedServiceIAm = 0

// EncodeIAm builds the I-Am payload (application-tagged, not context-
// tagged, per the unconfirmed-request convention): object-identifier,
// max-apdu-length-accepted, segmentation-supported, vendor-identifier.
func EncodeIAm(d *object.Device) []byte {
	var out []byte
	out = bactag.AppendApplication(out, bactag.Value{
		Tag:   bactag.ObjectID,
		ObjID: bactag.ObjectIdentifier{Type: uint16(object.TypeDevice), Instance: d.Instance},
	})
	out = bactag.AppendApplication(out, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: uint64(d.MaxAPDULength)})
	out = bactag.AppendApplication(out, bactag.Value{Tag: bactag.Enumerated, Enum: d.SegmentationSupported})
	out = bactag.AppendApplication(out, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: uint64(d.VendorID)})
	return out
}

// whoIsRange is the optional device-instance-range carried by Who-Is:
// both limits present, or neither (an unrestricted Who-Is).
type whoIsRange struct {
	Low, High uint32
	HasRange  bool
}

func decodeWhoIsRequest(payload []byte) (whoIsRange, error) {
	if len(payload) == 0 {
		return whoIsRange{}, nil
	}
	lowVal, n, err := bactag.DecodeContextValue(payload, bactag.UnsignedInt)
	if err != nil {
		return whoIsRange{}, nil
	}
	rest := payload[n:]
	highVal, _, err := bactag.DecodeContextValue(rest, bactag.UnsignedInt)
	if err != nil {
		return whoIsRange{}, nil
	}
	return whoIsRange{Low: uint32(lowVal.Unsigned), High: uint32(highVal.Unsigned), HasRange: true}, nil
}

// matches reports whether instance falls within r, or r carries no
// range at all (matches everything).
func (r whoIsRange) matches(instance uint32) bool {
	if !r.HasRange {
		return true
	}
	return instance >= r.Low && instance <= r.High
}

// HandleWhoIs implements the Who-Is unconfirmed service: reply with
// I-Am only when our instance falls in the requested range (or no
// range was given) and the device is permitted to initiate requests
// (Device_Communication_Control is not Disable/DisableInitiation).
func HandleWhoIs(device *object.Device, send BroadcastFunc) UnconfirmedHandlerFunc {
	return func(_ any, payload []byte) {
		if !device.MayInitiate() {
			return
		}
		r, err := decodeWhoIsRequest(payload)
		if err != nil || !r.matches(device.Instance) {
			return
		}
		send(unconfirmedServiceIAm, EncodeIAm(device))
	}
}

// SendIAm emits an unsolicited I-Am, used at startup and whenever the
// device's identity changes. A no-op while communication initiation is
// disabled.
func SendIAm(device *object.Device, send BroadcastFunc) {
	if !device.MayInitiate() {
		return
	}
	send(unconfirmedServiceIAm, EncodeIAm(device))
}

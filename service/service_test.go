package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edgeo/bacnet-router/apdu"
	"github.com/edgeo/bacnet-router/bacerr"
	"github.com/edgeo/bacnet-router/bactag"
	"github.com/edgeo/bacnet-router/object"
)

func newTestRegistry(t *testing.T) (*object.Registry, *object.AnalogValues) {
	t.Helper()
	reg := object.NewRegistry()
	av := object.NewAnalogValues()
	av.Add(0, "AV-0", 0)
	reg.Register(av)
	return reg, av
}

// TestReadPropertyRoundTrip exercises the full decode/lookup/encode path.
func TestReadPropertyRoundTrip(t *testing.T) {
	reg, av := newTestRegistry(t)
	require.NoError(t, av.WriteProperty(object.WritePropertyArgs{
		Instance: 0, Property: object.PropPresentValue, ArrayIndex: object.ArrayAll,
		Value: bactag.Value{Tag: bactag.Real, Real: 42.5}, Priority: 8,
	}))

	var req []byte
	req = bactag.AppendContext(req, 0, bactag.Value{Tag: bactag.ObjectID, ObjID: bactag.ObjectIdentifier{Type: uint16(object.TypeAnalogValue), Instance: 0}})
	req = bactag.AppendContext(req, 1, bactag.Value{Tag: bactag.Enumerated, Enum: uint32(object.PropPresentValue)})

	h := HandleReadProperty(reg)
	ack, complex, err := h(nil, apdu.ConfirmedRequest{Service: apdu.ServiceReadProperty, Payload: req})
	require.NoError(t, err)
	require.True(t, complex)
	require.NotEmpty(t, ack)
}

// TestReadPropertyMultiplePartialError exercises the RPM handler at the
// wire level: one good property and one unknown property in a single RPM
// request yields a response with an inline error triple for the bad
// one, not a service-level failure.
func TestReadPropertyMultiplePartialError(t *testing.T) {
	reg, av := newTestRegistry(t)
	require.NoError(t, av.WriteProperty(object.WritePropertyArgs{
		Instance: 0, Property: object.PropPresentValue, Value: bactag.Value{Tag: bactag.Real, Real: 21.5}, Priority: 8,
	}))

	var req []byte
	req = bactag.AppendContext(req, 0, bactag.Value{Tag: bactag.ObjectID, ObjID: bactag.ObjectIdentifier{Type: uint16(object.TypeAnalogValue), Instance: 0}})
	req = bactag.AppendOpeningTag(req, 1)
	req = bactag.AppendContext(req, 0, bactag.Value{Tag: bactag.Enumerated, Enum: uint32(object.PropPresentValue)})
	req = bactag.AppendContext(req, 0, bactag.Value{Tag: bactag.Enumerated, Enum: 4194303})
	req = bactag.AppendClosingTag(req, 1)

	h := HandleReadPropertyMultiple(reg)
	ack, complex, err := h(nil, apdu.ConfirmedRequest{Service: apdu.ServiceReadPropertyMultiple, Payload: req, MaxResponseSize: 1476})
	require.NoError(t, err)
	require.True(t, complex)

	_, n, err := bactag.DecodeContextValue(ack, bactag.ObjectID)
	require.NoError(t, err)
	rest := ack[n:]
	require.True(t, bactag.IsOpeningTagNumber(rest, 1))

	// First result: Present_Value, a successful property-value[4] triple.
	_, _, _, hlen, err := bactag.DecodeTagNumber(rest)
	require.NoError(t, err)
	rest = rest[hlen:]
	_, n, err = bactag.DecodeContextValue(rest, bactag.Enumerated)
	require.NoError(t, err)
	rest = rest[n:]
	require.True(t, bactag.IsOpeningTagNumber(rest, 4))

	// Second result: unknown property, a property-access-error[5] triple.
	var sawErrorTriple bool
	for i := range ack {
		if bactag.IsOpeningTagNumber(ack[i:], 5) {
			sawErrorTriple = true
			break
		}
	}
	require.True(t, sawErrorTriple)
}

func TestReadPropertyMultipleAbortsOnOverflow(t *testing.T) {
	reg, av := newTestRegistry(t)
	require.NoError(t, av.WriteProperty(object.WritePropertyArgs{
		Instance: 0, Property: object.PropPresentValue, Value: bactag.Value{Tag: bactag.Real, Real: 1}, Priority: 8,
	}))

	var req []byte
	req = bactag.AppendContext(req, 0, bactag.Value{Tag: bactag.ObjectID, ObjID: bactag.ObjectIdentifier{Type: uint16(object.TypeAnalogValue), Instance: 0}})
	req = bactag.AppendOpeningTag(req, 1)
	req = bactag.AppendContext(req, 0, bactag.Value{Tag: bactag.Enumerated, Enum: uint32(object.PropPresentValue)})
	req = bactag.AppendClosingTag(req, 1)

	h := HandleReadPropertyMultiple(reg)
	_, _, err := h(nil, apdu.ConfirmedRequest{Service: apdu.ServiceReadPropertyMultiple, Payload: req, MaxResponseSize: 1})
	require.Error(t, err)
	var ab *bacerr.Abort
	require.ErrorAs(t, err, &ab)
	require.Equal(t, bacerr.AbortSegmentationNotSupported, ab.Reason)
}

// TestWhoIsTriggersIAmWhenInRange checks Who-Is with our instance in
// range triggers I-Am; out of range does not.
func TestWhoIsTriggersIAmWhenInRange(t *testing.T) {
	device := &object.Device{Instance: 260, MaxAPDULength: 1476, VendorID: 999}

	var sent []byte
	var sentService uint8
	send := func(service uint8, payload []byte) { sentService = service; sent = payload }

	h := HandleWhoIs(device, send)

	var inRange []byte
	inRange = bactag.AppendContext(inRange, 0, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: 200})
	inRange = bactag.AppendContext(inRange, 1, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: 300})
	h(nil, inRange)
	require.NotNil(t, sent)
	require.EqualValues(t, unconfirmedServiceIAm, sentService)

	v, _, err := bactag.DecodeApplication(sent)
	require.NoError(t, err)
	require.Equal(t, bactag.ObjectID, v.Tag)
	require.EqualValues(t, 260, v.ObjID.Instance)

	sent = nil
	var outOfRange []byte
	outOfRange = bactag.AppendContext(outOfRange, 0, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: 1000})
	outOfRange = bactag.AppendContext(outOfRange, 1, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: 2000})
	h(nil, outOfRange)
	require.Nil(t, sent)
}

func TestWhoIsUnrestrictedAlwaysMatches(t *testing.T) {
	device := &object.Device{Instance: 1, MaxAPDULength: 480}
	var sent []byte
	h := HandleWhoIs(device, func(_ uint8, payload []byte) { sent = payload })
	h(nil, nil)
	require.NotNil(t, sent)
}

func TestWhoIsSuppressedWhileCommunicationDisabled(t *testing.T) {
	device := &object.Device{Instance: 1, Communication: object.CommunicationDisable}
	var sent []byte
	h := HandleWhoIs(device, func(_ uint8, payload []byte) { sent = payload })
	h(nil, nil)
	require.Nil(t, sent)
}

func TestSubscribeCOVRegisterAndCancel(t *testing.T) {
	reg, _ := newTestRegistry(t)
	table := NewCOVSubscriptions()
	h := HandleSubscribeCOV(reg, table)

	var sub []byte
	sub = bactag.AppendContext(sub, 0, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: 7})
	sub = bactag.AppendContext(sub, 1, bactag.Value{Tag: bactag.ObjectID, ObjID: bactag.ObjectIdentifier{Type: uint16(object.TypeAnalogValue), Instance: 0}})
	sub = bactag.AppendContext(sub, 2, bactag.Value{Tag: bactag.Boolean, Bool: false})
	sub = bactag.AppendContext(sub, 3, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: 60})

	_, _, err := h(nil, apdu.ConfirmedRequest{Service: apdu.ServiceSubscribeCOV, Payload: sub})
	require.NoError(t, err)
	require.Len(t, table.Active(object.TypeAnalogValue, 0, time.Now()), 1)

	var cancel []byte
	cancel = bactag.AppendContext(cancel, 0, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: 7})
	cancel = bactag.AppendContext(cancel, 1, bactag.Value{Tag: bactag.ObjectID, ObjID: bactag.ObjectIdentifier{Type: uint16(object.TypeAnalogValue), Instance: 0}})
	_, _, err = h(nil, apdu.ConfirmedRequest{Service: apdu.ServiceSubscribeCOV, Payload: cancel})
	require.NoError(t, err)
	require.Empty(t, table.Active(object.TypeAnalogValue, 0, time.Now()))
}

func TestDispatcherGatesOnCommunicationControl(t *testing.T) {
	reg, _ := newTestRegistry(t)
	device := &object.Device{Instance: 1, Registry: reg, Communication: object.CommunicationDisable}
	d := NewDispatcher(device, nil)
	d.RegisterConfirmed(apdu.ServiceReadProperty, HandleReadProperty(reg))

	var req []byte
	req = bactag.AppendContext(req, 0, bactag.Value{Tag: bactag.ObjectID, ObjID: bactag.ObjectIdentifier{Type: uint16(object.TypeAnalogValue), Instance: 0}})
	req = bactag.AppendContext(req, 1, bactag.Value{Tag: bactag.Enumerated, Enum: uint32(object.PropPresentValue)})

	_, _, drop, err := d.DispatchConfirmed(nil, apdu.ConfirmedRequest{Service: apdu.ServiceReadProperty, Payload: req})
	require.NoError(t, err)
	require.True(t, drop)

	_, _, drop, err = d.DispatchConfirmed(nil, apdu.ConfirmedRequest{Service: apdu.ServiceDeviceCommunicationControl, Payload: nil})
	require.False(t, drop)
}

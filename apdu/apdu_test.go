package apdu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edgeo/bacnet-router/bacerr"
	"github.com/edgeo/bacnet-router/bactag"
)

// TestConfirmedRequestReadPropertyRoundTrip round-trips a ConfirmedRequest
// for ReadProperty(Device,1).Object_Name.
func TestConfirmedRequestReadPropertyRoundTrip(t *testing.T) {
	raw := []byte{0x00, 0x05, 0x01, 0x0C, 0x0C, 0x02, 0x00, 0x00, 0x01, 0x19, 0x4D}
	a, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, TypeConfirmedRequest, a.Type)
	cr := a.ConfirmedRequest
	require.False(t, cr.Segmented)
	require.Equal(t, 0, cr.MaxSegments)
	require.Equal(t, 1476, cr.MaxResponseSize)
	require.Equal(t, uint8(1), cr.InvokeID)
	require.Equal(t, ServiceReadProperty, cr.Service)

	oid, n, err := bactag.DecodeContextValue(cr.Payload, bactag.ObjectID)
	require.NoError(t, err)
	require.Equal(t, bactag.ObjectIdentifier{Type: 8, Instance: 1}, oid.ObjID)
	rest := cr.Payload[n:]
	prop, _, err := bactag.DecodeContextValue(rest, bactag.UnsignedInt)
	require.NoError(t, err)
	require.EqualValues(t, 77, prop.Unsigned) // Object_Name
}

func TestConfirmedRequestRoundTrip(t *testing.T) {
	cr := ConfirmedRequest{
		MaxSegments:     16,
		MaxResponseSize: 1476,
		InvokeID:        42,
		Service:         ServiceReadProperty,
		Payload:         []byte{0x01, 0x02, 0x03},
	}
	buf := AppendConfirmedRequest(nil, cr)
	a, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, cr, *a.ConfirmedRequest)
}

func TestSegmentedConfirmedRequestRoundTrip(t *testing.T) {
	cr := ConfirmedRequest{
		Segmented:       true,
		MoreFollows:     true,
		SegResponseOK:   true,
		MaxSegments:     64,
		MaxResponseSize: 480,
		InvokeID:        7,
		SequenceNumber:  3,
		WindowSize:      5,
		Service:         ServiceReadPropertyMultiple,
		Payload:         []byte{0xAA, 0xBB},
	}
	buf := AppendConfirmedRequest(nil, cr)
	a, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, cr, *a.ConfirmedRequest)
}

func TestErrorRoundTrip(t *testing.T) {
	e := ErrorPDU{InvokeID: 9, Service: ServiceReadProperty, Class: bacerr.ClassProperty, Code: bacerr.CodeUnknownProperty}
	buf := AppendError(nil, e)
	a, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, e, *a.Error)
}

func TestRejectAbortRoundTrip(t *testing.T) {
	r := RejectPDU{InvokeID: 1, Reason: bacerr.RejectUndefinedEnumeration}
	buf := AppendReject(nil, r)
	a, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, r, *a.Reject)

	ab := AbortPDU{Server: true, InvokeID: 2, Reason: bacerr.AbortTsmTimeout}
	buf = AppendAbort(nil, ab)
	a, err = Decode(buf)
	require.NoError(t, err)
	require.Equal(t, ab, *a.Abort)
}

func TestUnconfirmedRequestRoundTrip(t *testing.T) {
	ur := UnconfirmedRequest{Service: ServiceWhoIs, Payload: []byte{1, 2}}
	buf := AppendUnconfirmedRequest(nil, ur)
	a, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, ur, *a.UnconfirmedRequest)
}

func TestDecodeTruncationSafety(t *testing.T) {
	cr := ConfirmedRequest{
		Segmented: true, MaxSegments: 4, MaxResponseSize: 206,
		InvokeID: 5, SequenceNumber: 1, WindowSize: 2,
		Service: ServiceWriteProperty, Payload: []byte{1, 2, 3, 4},
	}
	buf := AppendConfirmedRequest(nil, cr)
	headerLen := len(buf) - len(cr.Payload) // fixed fields end right before the payload
	for n := 0; n < headerLen; n++ {
		_, err := Decode(buf[:n])
		require.Error(t, err, "n=%d", n)
	}
}

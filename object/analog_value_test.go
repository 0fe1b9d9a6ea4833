package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edgeo/bacnet-router/bacerr"
	"github.com/edgeo/bacnet-router/bactag"
)

func TestAnalogValueReadWritePresentValue(t *testing.T) {
	av := NewAnalogValues()
	av.Add(0, "AV-0", 0.0)

	require.NoError(t, av.WriteProperty(WritePropertyArgs{
		Instance: 0, Property: PropPresentValue, ArrayIndex: ArrayAll,
		Value: bactag.Value{Tag: bactag.Real, Real: 72.5}, Priority: 8,
	}))

	buf, err := av.ReadProperty(ReadPropertyArgs{Instance: 0, Property: PropPresentValue, ArrayIndex: ArrayAll})
	require.NoError(t, err)
	v, _, err := bactag.DecodeApplication(buf)
	require.NoError(t, err)
	require.Equal(t, bactag.Real, v.Tag)
	require.InDelta(t, 72.5, v.Real, 0.001)
}

func TestAnalogValueUnknownInstance(t *testing.T) {
	av := NewAnalogValues()
	_, err := av.ReadProperty(ReadPropertyArgs{Instance: 99, Property: PropPresentValue})
	require.Error(t, err)
	var be *bacerr.Error
	require.ErrorAs(t, err, &be)
	require.Equal(t, bacerr.CodeUnknownObject, be.Code)
}

func TestAnalogValuePriorityArrayIndexing(t *testing.T) {
	av := NewAnalogValues()
	av.Add(0, "AV-0", 0.0)
	require.NoError(t, av.WriteProperty(WritePropertyArgs{
		Instance: 0, Property: PropPresentValue, Value: bactag.Value{Tag: bactag.Real, Real: 5}, Priority: 3,
	}))

	lenBuf, err := av.ReadProperty(ReadPropertyArgs{Instance: 0, Property: PropPriorityArray, ArrayIndex: ArrayLength})
	require.NoError(t, err)
	lv, _, err := bactag.DecodeApplication(lenBuf)
	require.NoError(t, err)
	require.EqualValues(t, NumPriorities, lv.Unsigned)

	slot3, err := av.ReadProperty(ReadPropertyArgs{Instance: 0, Property: PropPriorityArray, ArrayIndex: 3})
	require.NoError(t, err)
	sv, _, err := bactag.DecodeApplication(slot3)
	require.NoError(t, err)
	require.Equal(t, bactag.Real, sv.Tag)
	require.InDelta(t, 5, sv.Real, 0.001)

	slot1, err := av.ReadProperty(ReadPropertyArgs{Instance: 0, Property: PropPriorityArray, ArrayIndex: 1})
	require.NoError(t, err)
	nv, _, err := bactag.DecodeApplication(slot1)
	require.NoError(t, err)
	require.Equal(t, bactag.Null, nv.Tag)

	_, err = av.ReadProperty(ReadPropertyArgs{Instance: 0, Property: PropPriorityArray, ArrayIndex: 99})
	require.Error(t, err)
	var be *bacerr.Error
	require.ErrorAs(t, err, &be)
	require.Equal(t, bacerr.CodeInvalidArrayIndex, be.Code)
}

// TestUnknownPropertyReadReturnsUnknownPropertyError: a read of a known
// property succeeds, a read of an unknown one returns
// Error{PROPERTY, UNKNOWN_PROPERTY}.
func TestUnknownPropertyReadReturnsUnknownPropertyError(t *testing.T) {
	av := NewAnalogValues()
	av.Add(0, "AV-0", 0.0)
	require.NoError(t, av.WriteProperty(WritePropertyArgs{
		Instance: 0, Property: PropPresentValue, Value: bactag.Value{Tag: bactag.Real, Real: 21.5}, Priority: 8,
	}))

	pvBuf, err := av.ReadProperty(ReadPropertyArgs{Instance: 0, Property: PropPresentValue, ArrayIndex: ArrayAll})
	require.NoError(t, err)
	pv, _, err := bactag.DecodeApplication(pvBuf)
	require.NoError(t, err)
	require.InDelta(t, 21.5, pv.Real, 0.001)

	_, err = av.ReadProperty(ReadPropertyArgs{Instance: 0, Property: ID(4194303), ArrayIndex: ArrayAll})
	require.Error(t, err)
	var be *bacerr.Error
	require.ErrorAs(t, err, &be)
	require.Equal(t, bacerr.ClassProperty, be.Class)
	require.Equal(t, bacerr.CodeUnknownProperty, be.Code)
}

func TestAnalogValueNonArrayPropertyRejectsIndex(t *testing.T) {
	av := NewAnalogValues()
	av.Add(0, "AV-0", 0.0)
	_, err := av.ReadProperty(ReadPropertyArgs{Instance: 0, Property: PropPresentValue, ArrayIndex: 1})
	require.Error(t, err)
	var be *bacerr.Error
	require.ErrorAs(t, err, &be)
	require.Equal(t, bacerr.CodePropertyIsNotAnArray, be.Code)
}

package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceCommunicationControlGating(t *testing.T) {
	d := &Device{Instance: 260, Name: "router-device"}

	require.True(t, d.AcceptsRequest(false, false))
	require.True(t, d.MayInitiate())

	d.Communication = CommunicationDisable
	require.False(t, d.AcceptsRequest(false, false))
	require.True(t, d.AcceptsRequest(true, false))
	require.True(t, d.AcceptsRequest(false, true))
	require.False(t, d.MayInitiate())

	d.Communication = CommunicationDisableInitiation
	require.True(t, d.AcceptsRequest(false, false))
	require.False(t, d.MayInitiate())
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	av := NewAnalogValues()
	av.Add(0, "AV-0", 0)
	reg.Register(av)

	h, err := reg.Lookup(TypeAnalogValue, 0)
	require.NoError(t, err)
	require.Equal(t, TypeAnalogValue, h.Type())

	_, err = reg.Lookup(TypeAnalogValue, 99)
	require.Error(t, err)

	_, err = reg.Lookup(TypeBinaryValue, 0)
	require.Error(t, err)
}

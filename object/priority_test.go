package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edgeo/bacnet-router/bacerr"
)

func f(v float64) *float64 { return &v }

// TestPriorityWriteAndRelinquish covers a commanded write at one
// priority followed by relinquishing it back to Relinquish_Default.
func TestPriorityWriteAndRelinquish(t *testing.T) {
	cv := CommandableValue{}
	cv.Priority.RelinquishDefault = 0.0

	require.NoError(t, cv.Write(8, f(50.0)))
	require.Equal(t, 50.0, cv.PresentValue())

	err := cv.Write(6, f(75.0))
	require.Error(t, err)
	var be *bacerr.Error
	require.ErrorAs(t, err, &be)
	require.Equal(t, bacerr.CodeWriteAccessDenied, be.Code)
	require.Equal(t, 50.0, cv.PresentValue())

	require.NoError(t, cv.Write(4, f(10.0)))
	require.Equal(t, 10.0, cv.PresentValue())

	require.NoError(t, cv.Write(4, nil))
	require.Equal(t, 50.0, cv.PresentValue())

	require.NoError(t, cv.Write(8, nil))
	require.Equal(t, 0.0, cv.PresentValue())
}

// TestPriorityMonotonicity checks the active slot is always the
// lowest-numbered occupied priority.
func TestPriorityMonotonicity(t *testing.T) {
	var pa PriorityArray
	pa.RelinquishDefault = -1
	require.NoError(t, pa.Write(10, f(5)))
	require.NoError(t, pa.Write(3, f(9)))
	require.Equal(t, 9.0, pa.PresentValue())
	require.Equal(t, 5.0, *pa.Slot(10))
	require.Nil(t, pa.Slot(1))
	require.Nil(t, pa.Slot(16))
}

// TestRelinquishDefault checks Present_Value falls back to
// Relinquish_Default once every slot is empty.
func TestRelinquishDefault(t *testing.T) {
	var pa PriorityArray
	pa.RelinquishDefault = 42
	require.Equal(t, 42.0, pa.PresentValue())
}

// TestPriority6Rejected checks the reserved priority is never writable.
func TestPriority6Rejected(t *testing.T) {
	var pa PriorityArray
	err := pa.Write(ReservedPriority, f(1))
	require.Error(t, err)
	var be *bacerr.Error
	require.ErrorAs(t, err, &be)
	require.Equal(t, bacerr.CodeWriteAccessDenied, be.Code)
}

func TestInvalidPriorityRejected(t *testing.T) {
	var pa PriorityArray
	for _, p := range []int{0, 17, -1} {
		err := pa.Write(p, f(1))
		require.Error(t, err)
		var be *bacerr.Error
		require.ErrorAs(t, err, &be)
		require.Equal(t, bacerr.CodeValueOutOfRange, be.Code)
	}
}

// TestOutOfServiceIsolation checks the physical-write callback is not
// invoked while Out_Of_Service is true, and fires once on return to service.
func TestOutOfServiceIsolation(t *testing.T) {
	applied := []float64{}
	cv := CommandableValue{PhysicalWrite: func(v float64) error {
		applied = append(applied, v)
		return nil
	}}
	require.NoError(t, cv.Write(10, f(1)))
	require.Equal(t, []float64{1}, applied)

	require.NoError(t, cv.SetOutOfService(true))
	require.NoError(t, cv.Write(10, f(2)))
	require.Equal(t, 2.0, cv.PresentValue())
	require.Equal(t, []float64{1}, applied, "no physical write while out of service")

	require.NoError(t, cv.SetOutOfService(false))
	require.Equal(t, []float64{1, 2}, applied, "re-applies current value once on return to service")
}

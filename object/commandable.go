package object

import "github.com/edgeo/bacnet-router/bacerr"

// PhysicalWriteFunc applies a commanded value to whatever the object
// represents (an output point, a setpoint register, ...). It is not
// invoked while OutOfService is true (19.4).
type PhysicalWriteFunc func(v float64) error

// RangeCheckFunc validates a candidate value before it is accepted into
// the priority array. A nil func accepts any value.
type RangeCheckFunc func(v float64) error

// CommandableValue is a Present_Value-like property backed by a
// PriorityArray, implementing the WriteProperty Present_Value algorithm
// and the Out_Of_Service decoupling rule (19.4).
type CommandableValue struct {
	Priority     PriorityArray
	OutOfService bool
	RangeCheck   RangeCheckFunc
	PhysicalWrite PhysicalWriteFunc
	covPending   bool
	lastApplied  float64
	applied      bool
}

// PresentValue returns the current arbitrated value.
func (c *CommandableValue) PresentValue() float64 {
	return c.Priority.PresentValue()
}

// Write implements the 8-step commandable write algorithm.
func (c *CommandableValue) Write(priority int, v *float64) error {
	if priority < 1 || priority > NumPriorities {
		return bacerr.New(bacerr.ClassProperty, bacerr.CodeValueOutOfRange)
	}
	if priority == ReservedPriority {
		return bacerr.New(bacerr.ClassProperty, bacerr.CodeWriteAccessDenied)
	}
	if v != nil && c.RangeCheck != nil {
		if err := c.RangeCheck(*v); err != nil {
			return err
		}
	}
	before := c.Priority.PresentValue()
	if err := c.Priority.Write(priority, v); err != nil {
		return err
	}
	after := c.Priority.PresentValue()
	if after != before {
		c.covPending = true
		if !c.OutOfService && c.PhysicalWrite != nil {
			if err := c.PhysicalWrite(after); err != nil {
				return err
			}
		}
		c.lastApplied = after
		c.applied = true
	}
	return nil
}

// SetOutOfService toggles Out_Of_Service. Transitioning from true to
// false re-applies the current Present_Value exactly once (19.4).
func (c *CommandableValue) SetOutOfService(v bool) error {
	wasOut := c.OutOfService
	c.OutOfService = v
	if wasOut && !v && c.PhysicalWrite != nil {
		pv := c.Priority.PresentValue()
		if err := c.PhysicalWrite(pv); err != nil {
			return err
		}
		c.lastApplied = pv
		c.applied = true
	}
	return nil
}

// COVPending reports and clears the change-of-value flag.
func (c *CommandableValue) COVPending() bool {
	p := c.covPending
	c.covPending = false
	return p
}

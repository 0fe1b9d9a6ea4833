package object

import "github.com/edgeo/bacnet-router/bacerr"

// NumPriorities is the fixed length of a BACnet Priority_Array (19.2.1).
const NumPriorities = 16

// ReservedPriority (6, "Minimum On/Off") is never writable by this stack.
const ReservedPriority = 6

// PriorityArray implements the 16-slot command-arbitration array shared
// by every commandable property (19.2.1.1). Slot index 0 corresponds to
// priority 1, slot 15 to priority 16; a nil entry means "null" (relinquished).
type PriorityArray struct {
	slots            [NumPriorities]*float64
	RelinquishDefault float64
}

// Write stores v at priority (1-16), or relinquishes the slot when v is
// nil. Returns bacerr on an invalid or reserved priority.
func (p *PriorityArray) Write(priority int, v *float64) error {
	if priority < 1 || priority > NumPriorities {
		return bacerr.New(bacerr.ClassProperty, bacerr.CodeValueOutOfRange)
	}
	if priority == ReservedPriority {
		return bacerr.New(bacerr.ClassProperty, bacerr.CodeWriteAccessDenied)
	}
	p.slots[priority-1] = v
	return nil
}

// PresentValue returns the value at the lowest active priority, or
// RelinquishDefault if every slot is null (19.2.1.1).
func (p *PriorityArray) PresentValue() float64 {
	for _, s := range p.slots {
		if s != nil {
			return *s
		}
	}
	return p.RelinquishDefault
}

// ActivePriority returns the 1-based priority currently in control, or 0
// if every slot is relinquished.
func (p *PriorityArray) ActivePriority() int {
	for i, s := range p.slots {
		if s != nil {
			return i + 1
		}
	}
	return 0
}

// Slot returns the raw value at priority (1-16), or nil if relinquished.
func (p *PriorityArray) Slot(priority int) *float64 {
	if priority < 1 || priority > NumPriorities {
		return nil
	}
	return p.slots[priority-1]
}

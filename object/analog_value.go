package object

import (
	"sync"

	"github.com/edgeo/bacnet-router/bacerr"
	"github.com/edgeo/bacnet-router/bactag"
)

// AnalogValueInstance is one Analog_Value object: a commandable scalar
// with engineering units.
type AnalogValueInstance struct {
	Value       CommandableValue
	Name        string
	Description string
	Units       uint32
}

// AnalogValues is the ObjectHandler for every Analog_Value instance.
type AnalogValues struct {
	mu        sync.RWMutex
	instances map[uint32]*AnalogValueInstance
}

// NewAnalogValues returns an empty Analog_Value handler.
func NewAnalogValues() *AnalogValues {
	return &AnalogValues{instances: make(map[uint32]*AnalogValueInstance)}
}

// Add registers instance n with the given relinquish default.
func (a *AnalogValues) Add(n uint32, name string, relinquishDefault float64) *AnalogValueInstance {
	a.mu.Lock()
	defer a.mu.Unlock()
	inst := &AnalogValueInstance{Name: name}
	inst.Value.Priority.RelinquishDefault = relinquishDefault
	a.instances[n] = inst
	return inst
}

func (a *AnalogValues) Type() Type { return TypeAnalogValue }

func (a *AnalogValues) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.instances)
}

func (a *AnalogValues) IndexToInstance(i int) (uint32, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i < 0 || i >= len(a.instances) {
		return 0, false
	}
	// map iteration order is non-deterministic; callers needing a stable
	// order should sort the returned instances.
	n := 0
	for inst := range a.instances {
		if n == i {
			return inst, true
		}
		n++
	}
	return 0, false
}

func (a *AnalogValues) ValidInstance(instance uint32) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.instances[instance]
	return ok
}

func (a *AnalogValues) ObjectName(instance uint32) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	inst, ok := a.instances[instance]
	if !ok {
		return "", false
	}
	return inst.Name, true
}

func (a *AnalogValues) get(instance uint32) (*AnalogValueInstance, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	inst, ok := a.instances[instance]
	if !ok {
		return nil, bacerr.New(bacerr.ClassObject, bacerr.CodeUnknownObject)
	}
	return inst, nil
}

func (a *AnalogValues) ReadProperty(args ReadPropertyArgs) ([]byte, error) {
	inst, err := a.get(args.Instance)
	if err != nil {
		return nil, err
	}
	switch args.Property {
	case PropPresentValue:
		if args.ArrayIndex != ArrayAll {
			return nil, NotAnArray()
		}
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.Real, Real: float32(inst.Value.PresentValue())}), nil
	case PropPriorityArray:
		return readPriorityArrayArray(args.ArrayIndex, &inst.Value.Priority)
	case PropRelinquishDefault:
		if args.ArrayIndex != ArrayAll {
			return nil, NotAnArray()
		}
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.Real, Real: float32(inst.Value.Priority.RelinquishDefault)}), nil
	case PropObjectName:
		if args.ArrayIndex != ArrayAll {
			return nil, NotAnArray()
		}
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.CharacterString, Chars: inst.Name}), nil
	case PropDescription:
		if args.ArrayIndex != ArrayAll {
			return nil, NotAnArray()
		}
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.CharacterString, Chars: inst.Description}), nil
	case PropUnits:
		if args.ArrayIndex != ArrayAll {
			return nil, NotAnArray()
		}
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.Enumerated, Enum: inst.Units}), nil
	case PropOutOfService:
		if args.ArrayIndex != ArrayAll {
			return nil, NotAnArray()
		}
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.Boolean, Bool: inst.Value.OutOfService}), nil
	case PropPropertyList:
		req, opt, prop := a.PropertyList(args.Instance)
		return encodePropertyListArray(args.ArrayIndex, PropertyList(req, opt, prop))
	default:
		return nil, bacerr.New(bacerr.ClassProperty, bacerr.CodeUnknownProperty)
	}
}

func (a *AnalogValues) WriteProperty(args WritePropertyArgs) error {
	inst, err := a.get(args.Instance)
	if err != nil {
		return err
	}
	switch args.Property {
	case PropPresentValue:
		priority := args.Priority
		if priority == 0 {
			priority = NumPriorities // default to lowest priority when unspecified
		}
		if args.Value.Tag == bactag.Null {
			return inst.Value.Write(priority, nil)
		}
		if args.Value.Tag != bactag.Real {
			return bacerr.New(bacerr.ClassProperty, bacerr.CodeInvalidDataType)
		}
		v := float64(args.Value.Real)
		return inst.Value.Write(priority, &v)
	case PropOutOfService:
		if args.Value.Tag != bactag.Boolean {
			return bacerr.New(bacerr.ClassProperty, bacerr.CodeInvalidDataType)
		}
		return inst.Value.SetOutOfService(args.Value.Bool)
	default:
		return bacerr.New(bacerr.ClassProperty, bacerr.CodeWriteAccessDenied)
	}
}

var analogValueRequired = []ID{
	PropObjectIdentifier, PropObjectName, PropObjectType, PropPresentValue,
	PropStatusFlags, PropEventState, PropOutOfService, PropUnits, PropPropertyList,
}
var analogValueOptionalCommandable = []ID{PropDescription, PropPriorityArray, PropRelinquishDefault, PropCOVIncrement}

func (a *AnalogValues) PropertyList(uint32) (required, optional, proprietary []ID) {
	return analogValueRequired, analogValueOptionalCommandable, nil
}

func (a *AnalogValues) ValueList(instance uint32) ([]bactag.Value, error) {
	inst, err := a.get(instance)
	if err != nil {
		return nil, err
	}
	return []bactag.Value{{Tag: bactag.Real, Real: float32(inst.Value.PresentValue())}}, nil
}

func (a *AnalogValues) COVPending(instance uint32) bool {
	inst, err := a.get(instance)
	if err != nil {
		return false
	}
	return inst.Value.COVPending()
}

// readPriorityArrayArray encodes the BACnetARRAY[16] Priority_Array
// property per the array-indexing rule.
func readPriorityArrayArray(arrayIndex uint32, pa *PriorityArray) ([]byte, error) {
	switch {
	case arrayIndex == ArrayLength:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: NumPriorities}), nil
	case arrayIndex == ArrayAll:
		var out []byte
		for p := 1; p <= NumPriorities; p++ {
			out = appendPrioritySlot(out, pa.Slot(p))
		}
		return out, nil
	default:
		if arrayIndex < 1 || arrayIndex > NumPriorities {
			return nil, bacerr.New(bacerr.ClassProperty, bacerr.CodeInvalidArrayIndex)
		}
		return appendPrioritySlot(nil, pa.Slot(int(arrayIndex))), nil
	}
}

func appendPrioritySlot(dst []byte, v *float64) []byte {
	if v == nil {
		return bactag.AppendApplication(dst, bactag.Value{Tag: bactag.Null})
	}
	return bactag.AppendApplication(dst, bactag.Value{Tag: bactag.Real, Real: float32(*v)})
}

// encodePropertyListArray encodes the synthesized Property_List as a
// BACnetARRAY of Enumerated values.
func encodePropertyListArray(arrayIndex uint32, list []ID) ([]byte, error) {
	switch {
	case arrayIndex == ArrayLength:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: uint64(len(list))}), nil
	case arrayIndex == ArrayAll:
		var out []byte
		for _, p := range list {
			out = bactag.AppendApplication(out, bactag.Value{Tag: bactag.Enumerated, Enum: uint32(p)})
		}
		return out, nil
	default:
		if arrayIndex < 1 || int(arrayIndex) > len(list) {
			return nil, bacerr.New(bacerr.ClassProperty, bacerr.CodeInvalidArrayIndex)
		}
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.Enumerated, Enum: uint32(list[arrayIndex-1])}), nil
	}
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edgeo/bacnet-router/bacnet"
	"github.com/edgeo/bacnet-router/bactag"
	"github.com/edgeo/bacnet-router/object"
)

var objectTypeNames = map[string]object.Type{
	"analog-input": object.TypeAnalogInput, "ai": object.TypeAnalogInput,
	"analog-output": object.TypeAnalogOutput, "ao": object.TypeAnalogOutput,
	"analog-value": object.TypeAnalogValue, "av": object.TypeAnalogValue,
	"binary-input": object.TypeBinaryInput, "bi": object.TypeBinaryInput,
	"binary-output": object.TypeBinaryOutput, "bo": object.TypeBinaryOutput,
	"binary-value": object.TypeBinaryValue, "bv": object.TypeBinaryValue,
	"device": object.TypeDevice, "dev": object.TypeDevice,
	"multi-state-input": object.TypeMultiStateInput, "msi": object.TypeMultiStateInput,
	"multi-state-output": object.TypeMultiStateOutput, "mso": object.TypeMultiStateOutput,
	"multi-state-value": object.TypeMultiStateValue, "msv": object.TypeMultiStateValue,
}

var propertyNames = map[string]object.ID{
	"present-value": object.PropPresentValue, "pv": object.PropPresentValue,
	"object-name": object.PropObjectName, "name": object.PropObjectName,
	"description": object.PropDescription, "desc": object.PropDescription,
	"status-flags": object.PropStatusFlags, "sf": object.PropStatusFlags,
	"units":           object.PropUnits,
	"out-of-service":  object.PropOutOfService,
	"oos":             object.PropOutOfService,
	"priority-array":  object.PropPriorityArray,
	"relinquish-default": object.PropRelinquishDefault,
	"object-identifier": object.PropObjectIdentifier,
	"object-type":       object.PropObjectType,
	"property-list":     object.PropPropertyList,
}

// parseObject parses a "type:instance" object reference, where type
// is a name (see objectTypeNames) or its numeric value.
func parseObject(s string) (object.Type, uint32, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("object must be type:instance (e.g. analog-input:1), got %q", s)
	}
	instance, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid instance %q: %w", parts[1], err)
	}
	if n, err := strconv.ParseUint(parts[0], 10, 16); err == nil {
		return object.Type(n), uint32(instance), nil
	}
	t, ok := objectTypeNames[strings.ToLower(parts[0])]
	if !ok {
		return 0, 0, fmt.Errorf("unknown object type %q", parts[0])
	}
	return t, uint32(instance), nil
}

// parseProperty parses a property identifier by name or number.
func parseProperty(s string) (object.ID, error) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return object.ID(n), nil
	}
	p, ok := propertyNames[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unknown property %q", s)
	}
	return p, nil
}

// parseValue parses a command-line literal into an application-tagged
// value of the requested BACnet primitive type.
func parseValue(kind, s string) (bactag.Value, error) {
	switch strings.ToLower(kind) {
	case "real":
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return bactag.Value{}, fmt.Errorf("invalid real %q: %w", s, err)
		}
		return bactag.Value{Tag: bactag.Real, Real: float32(f)}, nil
	case "double":
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return bactag.Value{}, fmt.Errorf("invalid double %q: %w", s, err)
		}
		return bactag.Value{Tag: bactag.Double, Double: f}, nil
	case "unsigned":
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return bactag.Value{}, fmt.Errorf("invalid unsigned %q: %w", s, err)
		}
		return bactag.Value{Tag: bactag.UnsignedInt, Unsigned: u}, nil
	case "signed":
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return bactag.Value{}, fmt.Errorf("invalid signed %q: %w", s, err)
		}
		return bactag.Value{Tag: bactag.SignedInt, Signed: i}, nil
	case "enum":
		u, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return bactag.Value{}, fmt.Errorf("invalid enum %q: %w", s, err)
		}
		return bactag.Value{Tag: bactag.Enumerated, Enum: uint32(u)}, nil
	case "bool":
		b, err := strconv.ParseBool(s)
		if err != nil {
			return bactag.Value{}, fmt.Errorf("invalid bool %q: %w", s, err)
		}
		return bactag.Value{Tag: bactag.Boolean, Bool: b}, nil
	case "string":
		return bactag.Value{Tag: bactag.CharacterString, Chars: s}, nil
	case "null":
		return bactag.Value{Tag: bactag.Null}, nil
	default:
		return bactag.Value{}, fmt.Errorf("unknown value type %q (want real, double, unsigned, signed, enum, bool, string, or null)", kind)
	}
}

// formatValue renders a decoded application value for terminal output.
func formatValue(v bactag.Value) string {
	switch v.Tag {
	case bactag.Null:
		return "null"
	case bactag.Boolean:
		return strconv.FormatBool(v.Bool)
	case bactag.UnsignedInt:
		return strconv.FormatUint(v.Unsigned, 10)
	case bactag.SignedInt:
		return strconv.FormatInt(v.Signed, 10)
	case bactag.Real:
		return strconv.FormatFloat(float64(v.Real), 'f', -1, 32)
	case bactag.Double:
		return strconv.FormatFloat(v.Double, 'f', -1, 64)
	case bactag.Enumerated:
		return strconv.FormatUint(uint64(v.Enum), 10)
	case bactag.CharacterString:
		return v.Chars
	case bactag.OctetString:
		return fmt.Sprintf("%x", v.Octets)
	case bactag.ObjectID:
		return fmt.Sprintf("%d:%d", v.ObjID.Type, v.ObjID.Instance)
	default:
		return fmt.Sprintf("%+v", v)
	}
}

// findDevice looks up instance among devices discovered this session.
func findDevice(devices []bacnet.Device, instance uint32) (bacnet.Device, bool) {
	for _, d := range devices {
		if d.Instance == instance {
			return d, true
		}
	}
	return bacnet.Device{}, false
}

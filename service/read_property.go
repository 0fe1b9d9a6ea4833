package service

import (
	"github.com/edgeo/bacnet-router/apdu"
	"github.com/edgeo/bacnet-router/bacerr"
	"github.com/edgeo/bacnet-router/bactag"
	"github.com/edgeo/bacnet-router/object"
)

// decodeReadPropertyRequest parses a ReadProperty request payload:
// object-id[0], property-identifier[1], array-index[2] optional.
func decodeReadPropertyRequest(payload []byte) (object.Type, object.ReadPropertyArgs, error) {
	oidVal, n, err := bactag.DecodeContextValue(payload, bactag.ObjectID)
	if err != nil {
		return 0, object.ReadPropertyArgs{}, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
	}
	rest := payload[n:]

	propVal, n2, err := bactag.DecodeContextValue(rest, bactag.UnsignedInt)
	if err != nil {
		return 0, object.ReadPropertyArgs{}, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
	}
	rest = rest[n2:]

	args := object.ReadPropertyArgs{
		Instance:   oidVal.ObjID.Instance,
		Property:   object.ID(propVal.Unsigned),
		ArrayIndex: object.ArrayAll,
	}
	if len(rest) > 0 {
		if idxVal, _, err := bactag.DecodeContextValue(rest, bactag.UnsignedInt); err == nil {
			args.ArrayIndex = uint32(idxVal.Unsigned)
		}
	}
	return object.Type(oidVal.ObjID.Type), args, nil
}

// encodeReadPropertyAck builds the ComplexAck payload for ReadProperty:
// object-id[0], property-identifier[1], value[3] (opening/closing).
func encodeReadPropertyAck(objType object.Type, args object.ReadPropertyArgs, valueBytes []byte) []byte {
	var out []byte
	out = bactag.AppendContext(out, 0, bactag.Value{Tag: bactag.ObjectID, ObjID: bactag.ObjectIdentifier{Type: uint16(objType), Instance: args.Instance}})
	out = bactag.AppendContext(out, 1, bactag.Value{Tag: bactag.Enumerated, Enum: uint32(args.Property)})
	out = bactag.AppendOpeningTag(out, 3)
	out = append(out, valueBytes...)
	out = bactag.AppendClosingTag(out, 3)
	return out
}

// HandleReadProperty implements the ReadProperty confirmed service:
// decode request, consult the registry, encode the ComplexAck.
func HandleReadProperty(reg *object.Registry) ConfirmedHandlerFunc {
	return func(_ any, cr apdu.ConfirmedRequest) ([]byte, bool, error) {
		objType, args, err := decodeReadPropertyRequest(cr.Payload)
		if err != nil {
			return nil, false, err
		}
		h, err := reg.Lookup(objType, args.Instance)
		if err != nil {
			return nil, false, err
		}
		valueBytes, err := h.ReadProperty(args)
		if err != nil {
			return nil, false, err
		}
		return encodeReadPropertyAck(objType, args, valueBytes), true, nil
	}
}

// decodeWritePropertyRequest parses a WriteProperty request payload:
// object-id[0], property-identifier[1], array-index[2] optional,
// value[3] (opening/closing), priority[4] optional.
func decodeWritePropertyRequest(payload []byte) (object.Type, object.WritePropertyArgs, error) {
	oidVal, n, err := bactag.DecodeContextValue(payload, bactag.ObjectID)
	if err != nil {
		return 0, object.WritePropertyArgs{}, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
	}
	rest := payload[n:]

	propVal, n2, err := bactag.DecodeContextValue(rest, bactag.UnsignedInt)
	if err != nil {
		return 0, object.WritePropertyArgs{}, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
	}
	rest = rest[n2:]

	args := object.WritePropertyArgs{
		Instance:   oidVal.ObjID.Instance,
		Property:   object.ID(propVal.Unsigned),
		ArrayIndex: object.ArrayAll,
	}

	if tagNum, class, length, hlen, terr := bactag.DecodeTagNumber(rest); terr == nil && class == bactag.ClassContext && tagNum == 2 && length != bactag.LengthOpening {
		idxVal, _, err := bactag.DecodeContextValue(rest, bactag.UnsignedInt)
		if err == nil {
			args.ArrayIndex = uint32(idxVal.Unsigned)
			rest = rest[hlen+length:]
		}
	}

	if len(rest) == 0 {
		return 0, object.WritePropertyArgs{}, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
	}
	if _, _, length, hlen, terr := bactag.DecodeTagNumber(rest); terr != nil || length != bactag.LengthOpening {
		return 0, object.WritePropertyArgs{}, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
	} else {
		rest = rest[hlen:]
	}

	val, n3, err := bactag.DecodeApplication(rest)
	if err != nil {
		return 0, object.WritePropertyArgs{}, bacerr.New(bacerr.ClassProperty, bacerr.CodeInvalidDataType)
	}
	args.Value = val
	rest = rest[n3:]

	if _, _, length, hlen, terr := bactag.DecodeTagNumber(rest); terr == nil && length == bactag.LengthClosing {
		rest = rest[hlen:]
	}

	if len(rest) > 0 {
		if prioVal, _, err := bactag.DecodeContextValue(rest, bactag.UnsignedInt); err == nil {
			args.Priority = int(prioVal.Unsigned)
		}
	}

	return object.Type(oidVal.ObjID.Type), args, nil
}

// HandleWriteProperty implements the WriteProperty confirmed service.
func HandleWriteProperty(reg *object.Registry) ConfirmedHandlerFunc {
	return func(_ any, cr apdu.ConfirmedRequest) ([]byte, bool, error) {
		objType, args, err := decodeWritePropertyRequest(cr.Payload)
		if err != nil {
			return nil, false, err
		}
		h, err := reg.Lookup(objType, args.Instance)
		if err != nil {
			return nil, false, err
		}
		if err := h.WriteProperty(args); err != nil {
			return nil, false, err
		}
		return nil, false, nil // SimpleAck
	}
}

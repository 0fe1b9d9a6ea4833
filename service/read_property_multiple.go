package service

import (
	"github.com/edgeo/bacnet-router/apdu"
	"github.com/edgeo/bacnet-router/bacerr"
	"github.com/edgeo/bacnet-router/bactag"
	"github.com/edgeo/bacnet-router/object"
)

// rpmRef is one property-reference inside a Read Access Specification:
// a property identifier and an optional array index.
type rpmRef struct {
	Property   object.ID
	ArrayIndex uint32
	HasIndex   bool
}

// rpmSpec is one Read Access Specification: an object and the
// properties requested on it.
type rpmSpec struct {
	ObjType object.Type
	Instance uint32
	Refs    []rpmRef
}

// decodeReadAccessSpecs walks the repeated Read Access Specification
// sequence: object-identifier[0], list-of-property-references[1]
// (opening/closing tag 1, each reference property-identifier[0] with
// an optional property-array-index[1]).
func decodeReadAccessSpecs(payload []byte) ([]rpmSpec, error) {
	var specs []rpmSpec
	rest := payload
	for len(rest) > 0 {
		oidVal, n, err := bactag.DecodeContextValue(rest, bactag.ObjectID)
		if err != nil {
			return nil, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
		}
		rest = rest[n:]

		_, class, length, hlen, err := bactag.DecodeTagNumber(rest)
		if err != nil || class != bactag.ClassContext || length != bactag.LengthOpening {
			return nil, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
		}
		rest = rest[hlen:]

		var refs []rpmRef
		for {
			if bactag.IsClosingTagNumber(rest, 1) {
				_, _, _, chlen, _ := bactag.DecodeTagNumber(rest)
				rest = rest[chlen:]
				break
			}
			propVal, pn, err := bactag.DecodeContextValue(rest, bactag.UnsignedInt)
			if err != nil {
				return nil, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
			}
			rest = rest[pn:]

			ref := rpmRef{Property: object.ID(propVal.Unsigned)}
			if tagNum, cls, ln, _, terr := bactag.DecodeTagNumber(rest); terr == nil && cls == bactag.ClassContext && tagNum == 1 && ln != bactag.LengthOpening && ln != bactag.LengthClosing {
				idxVal, in, err := bactag.DecodeContextValue(rest, bactag.UnsignedInt)
				if err != nil {
					return nil, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
				}
				ref.ArrayIndex = uint32(idxVal.Unsigned)
				ref.HasIndex = true
				rest = rest[in:]
			}
			refs = append(refs, ref)
		}

		specs = append(specs, rpmSpec{
			ObjType:  object.Type(oidVal.ObjID.Type),
			Instance: oidVal.ObjID.Instance,
			Refs:     refs,
		})
	}
	return specs, nil
}

// encodeRPMResult appends one list-of-results entry: property-
// identifier[0], optional array-index[1], then either property-value[4]
// (opening/closing wrapping the application-tagged value) or
// property-access-error[5] (opening/closing wrapping class+code).
func encodeRPMResult(dst []byte, ref rpmRef, valueBytes []byte, readErr error) []byte {
	dst = bactag.AppendContext(dst, 0, bactag.Value{Tag: bactag.Enumerated, Enum: uint32(ref.Property)})
	if ref.HasIndex {
		dst = bactag.AppendContext(dst, 1, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: uint64(ref.ArrayIndex)})
	}
	if readErr != nil {
		class, code := bacerr.ClassAndCode(readErr)
		dst = bactag.AppendOpeningTag(dst, 5)
		dst = bactag.AppendApplication(dst, bactag.Value{Tag: bactag.Enumerated, Enum: uint32(class)})
		dst = bactag.AppendApplication(dst, bactag.Value{Tag: bactag.Enumerated, Enum: uint32(code)})
		dst = bactag.AppendClosingTag(dst, 5)
		return dst
	}
	dst = bactag.AppendOpeningTag(dst, 4)
	dst = append(dst, valueBytes...)
	dst = bactag.AppendClosingTag(dst, 4)
	return dst
}

// HandleReadPropertyMultiple implements the ReadPropertyMultiple
// confirmed service: per-property errors are reported inline as
// property-access-error triples, so one good read alongside one
// unknown-property read in the same request yields a partial
// response, not a service-level error. If the accumulated response
// would exceed the request's MaxResponseSize, the whole request aborts
// with SegmentationNotSupported rather than silently truncating,
// since this implementation never segments an ack.
func HandleReadPropertyMultiple(reg *object.Registry) ConfirmedHandlerFunc {
	return func(_ any, cr apdu.ConfirmedRequest) ([]byte, bool, error) {
		specs, err := decodeReadAccessSpecs(cr.Payload)
		if err != nil {
			return nil, false, err
		}

		var out []byte
		for _, spec := range specs {
			out = bactag.AppendContext(out, 0, bactag.Value{
				Tag: bactag.ObjectID,
				ObjID: bactag.ObjectIdentifier{Type: uint16(spec.ObjType), Instance: spec.Instance},
			})
			out = bactag.AppendOpeningTag(out, 1)

			h, lookupErr := reg.Lookup(spec.ObjType, spec.Instance)
			for _, ref := range spec.Refs {
				if lookupErr != nil {
					out = encodeRPMResult(out, ref, nil, lookupErr)
					continue
				}
				idx := ref.ArrayIndex
				if !ref.HasIndex {
					idx = object.ArrayAll
				}
				valueBytes, readErr := h.ReadProperty(object.ReadPropertyArgs{
					Instance: spec.Instance, Property: ref.Property, ArrayIndex: idx,
				})
				out = encodeRPMResult(out, ref, valueBytes, readErr)
			}
			out = bactag.AppendClosingTag(out, 1)

			if cr.MaxResponseSize > 0 && len(out) > cr.MaxResponseSize {
				return nil, false, bacerr.NewAbort(bacerr.AbortSegmentationNotSupported)
			}
		}
		return out, true, nil
	}
}

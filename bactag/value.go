package bactag

import "github.com/edgeo/bacnet-router/bacerr"

// Value is a tagged BACnet application value: exactly one field among
// Null..ObjectIdentifier is meaningful, discriminated by Tag.
type Value struct {
	Tag      ApplicationTag
	Bool     bool
	Unsigned uint64
	Signed   int64
	Real     float32
	Double   float64
	Octets   []byte
	CharEnc  CharacterEncoding
	Chars    string
	Bits     BitString
	Enum     uint32
	DateVal  DateValue
	TimeVal  TimeValue
	ObjID    ObjectIdentifier
}

// AppendApplication appends v as an application-tagged value (tag class
// Application, tag number == v.Tag).
func AppendApplication(dst []byte, v Value) []byte {
	return appendTagged(dst, v, ClassApplication, uint32(v.Tag))
}

// AppendContext appends v as a context-tagged value under contextTag.
func AppendContext(dst []byte, contextTag uint32, v Value) []byte {
	return appendTagged(dst, v, ClassContext, contextTag)
}

func appendTagged(dst []byte, v Value, class Class, tagNumber uint32) []byte {
	switch v.Tag {
	case Null:
		return AppendTag(dst, tagNumber, class, 0)
	case Boolean:
		if class == ClassApplication {
			// application-tagged boolean stores the value in the LVT itself
			b := 0
			if v.Bool {
				b = 1
			}
			return AppendTag(dst, tagNumber, class, b)
		}
		dst = AppendTag(dst, tagNumber, class, 1)
		val := byte(0)
		if v.Bool {
			val = 1
		}
		return append(dst, val)
	case UnsignedInt:
		payload := AppendUnsigned(nil, v.Unsigned)
		dst = AppendTag(dst, tagNumber, class, len(payload))
		return append(dst, payload...)
	case SignedInt:
		payload := AppendSigned(nil, v.Signed)
		dst = AppendTag(dst, tagNumber, class, len(payload))
		return append(dst, payload...)
	case Real:
		dst = AppendTag(dst, tagNumber, class, 4)
		return AppendReal(dst, v.Real)
	case Double:
		dst = AppendTag(dst, tagNumber, class, 8)
		return AppendDouble(dst, v.Double)
	case OctetString:
		dst = AppendTag(dst, tagNumber, class, len(v.Octets))
		return append(dst, v.Octets...)
	case CharacterString:
		dst = AppendTag(dst, tagNumber, class, len(v.Chars)+1)
		return AppendCharacterString(dst, v.CharEnc, []byte(v.Chars))
	case BitString:
		payload := AppendBitString(nil, v.Bits)
		dst = AppendTag(dst, tagNumber, class, len(payload))
		return append(dst, payload...)
	case Enumerated:
		payload := AppendUnsigned(nil, uint64(v.Enum))
		dst = AppendTag(dst, tagNumber, class, len(payload))
		return append(dst, payload...)
	case Date:
		dst = AppendTag(dst, tagNumber, class, 4)
		return AppendDate(dst, v.DateVal)
	case Time:
		dst = AppendTag(dst, tagNumber, class, 4)
		return AppendTime(dst, v.TimeVal)
	case ObjectID:
		dst = AppendTag(dst, tagNumber, class, 4)
		return AppendObjectID(dst, v.ObjID)
	default:
		return dst
	}
}

// DecodeApplication decodes one application-tagged value from the front
// of data, returning the value and the number of bytes consumed.
func DecodeApplication(data []byte) (Value, int, error) {
	tagNumber, class, length, headerLen, err := DecodeTagNumber(data)
	if err != nil {
		return Value{}, 0, err
	}
	if class != ClassApplication {
		return Value{}, 0, bacerr.ErrInvalidAPDU
	}
	if length < 0 {
		return Value{}, 0, bacerr.ErrInvalidAPDU
	}
	at := ApplicationTag(tagNumber)
	if at == Boolean {
		// application-tagged boolean carries its value in the LVT field
		// itself (20.2.3): length here is 0 or 1, not a byte count.
		return Value{Tag: Boolean, Bool: length != 0}, headerLen, nil
	}
	v, err := decodeValueBody(at, data[headerLen:], length, false)
	if err != nil {
		return Value{}, 0, err
	}
	return v, headerLen + length, nil
}

// DecodeContextValue decodes a context-tagged value of the given
// application interpretation (the context tag number itself carries no
// type information on the wire, so the caller supplies the expected
// ApplicationTag per the property's schema).
func DecodeContextValue(data []byte, as ApplicationTag) (Value, int, error) {
	tagNumber, class, length, headerLen, err := DecodeTagNumber(data)
	_ = tagNumber
	if err != nil {
		return Value{}, 0, err
	}
	if class != ClassContext || length < 0 {
		return Value{}, 0, bacerr.ErrInvalidAPDU
	}
	v, err := decodeValueBody(as, data[headerLen:], length, false)
	if err != nil {
		return Value{}, 0, err
	}
	return v, headerLen + length, nil
}

func decodeValueBody(tag ApplicationTag, body []byte, length int, _ bool) (Value, error) {
	if len(body) < length {
		return Value{}, bacerr.ErrTruncated
	}
	body = body[:length]
	switch tag {
	case Null:
		return Value{Tag: Null}, nil
	case Boolean:
		// context-tagged boolean: one data byte, 0 or non-zero.
		if length < 1 {
			return Value{Tag: Boolean, Bool: false}, nil
		}
		return Value{Tag: Boolean, Bool: body[0] != 0}, nil
	case UnsignedInt:
		u, err := DecodeUnsigned(body, length)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: UnsignedInt, Unsigned: u}, nil
	case SignedInt:
		s, err := DecodeSigned(body, length)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: SignedInt, Signed: s}, nil
	case Real:
		r, err := DecodeReal(body)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: Real, Real: r}, nil
	case Double:
		d, err := DecodeDouble(body)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: Double, Double: d}, nil
	case OctetString:
		return Value{Tag: OctetString, Octets: append([]byte(nil), body...)}, nil
	case CharacterString:
		enc, chars, err := DecodeCharacterString(body)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: CharacterString, CharEnc: enc, Chars: string(chars)}, nil
	case BitString:
		b, err := DecodeBitString(body, length)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: BitString, Bits: b}, nil
	case Enumerated:
		u, err := DecodeUnsigned(body, length)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: Enumerated, Enum: uint32(u)}, nil
	case Date:
		d, err := DecodeDate(body)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: Date, DateVal: d}, nil
	case Time:
		t, err := DecodeTime(body)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: Time, TimeVal: t}, nil
	case ObjectID:
		o, err := DecodeObjectID(body)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: ObjectID, ObjID: o}, nil
	default:
		return Value{}, bacerr.ErrInvalidAPDU
	}
}

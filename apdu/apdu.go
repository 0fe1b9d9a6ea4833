// Package apdu implements the BACnet Application Protocol Data Unit
// codec (ASHRAE 135 clause 20): the confirmed/unconfirmed request,
// simple/complex ack, segment-ack, error, reject, and abort PDU
// variants, plus the Transaction State Machine that correlates
// confirmed-service responses back to their request.
package apdu

import (
	"fmt"

	"github.com/edgeo/bacnet-router/bacerr"
	"github.com/edgeo/bacnet-router/bactag"
)

// PDUType is the BACnet PDU type, the top nibble of APDU octet 0.
type PDUType uint8

const (
	TypeConfirmedRequest   PDUType = 0x00
	TypeUnconfirmedRequest PDUType = 0x10
	TypeSimpleAck          PDUType = 0x20
	TypeComplexAck         PDUType = 0x30
	TypeSegmentAck         PDUType = 0x40
	TypeError              PDUType = 0x50
	TypeReject             PDUType = 0x60
	TypeAbort              PDUType = 0x70
)

// ConfirmedServiceChoice enumerates the confirmed service choices used
// as the discriminator inside ConfirmedRequest/SimpleAck/ComplexAck/Error.
type ConfirmedServiceChoice uint8

const (
	ServiceAcknowledgeAlarm            ConfirmedServiceChoice = 0
	ServiceConfirmedCOVNotification    ConfirmedServiceChoice = 1
	ServiceConfirmedEventNotification  ConfirmedServiceChoice = 2
	ServiceGetAlarmSummary             ConfirmedServiceChoice = 3
	ServiceGetEnrollmentSummary        ConfirmedServiceChoice = 4
	ServiceSubscribeCOV                ConfirmedServiceChoice = 5
	ServiceAtomicReadFile              ConfirmedServiceChoice = 6
	ServiceAtomicWriteFile             ConfirmedServiceChoice = 7
	ServiceAddListElement              ConfirmedServiceChoice = 8
	ServiceRemoveListElement           ConfirmedServiceChoice = 9
	ServiceCreateObject                ConfirmedServiceChoice = 10
	ServiceDeleteObject                ConfirmedServiceChoice = 11
	ServiceReadProperty                ConfirmedServiceChoice = 12
	ServiceReadPropertyConditional     ConfirmedServiceChoice = 13
	ServiceReadPropertyMultiple        ConfirmedServiceChoice = 14
	ServiceWriteProperty               ConfirmedServiceChoice = 15
	ServiceWritePropertyMultiple       ConfirmedServiceChoice = 16
	ServiceDeviceCommunicationControl  ConfirmedServiceChoice = 17
	ServiceConfirmedPrivateTransfer    ConfirmedServiceChoice = 18
	ServiceConfirmedTextMessage        ConfirmedServiceChoice = 19
	ServiceReinitializeDevice          ConfirmedServiceChoice = 20
	ServiceVTOpen                      ConfirmedServiceChoice = 21
	ServiceVTClose                     ConfirmedServiceChoice = 22
	ServiceVTData                      ConfirmedServiceChoice = 23
	ServiceAuthenticate                ConfirmedServiceChoice = 24
	ServiceRequestKey                  ConfirmedServiceChoice = 25
	ServiceReadRange                   ConfirmedServiceChoice = 26
	ServiceLifeSafetyOperation         ConfirmedServiceChoice = 27
	ServiceSubscribeCOVProperty        ConfirmedServiceChoice = 28
	ServiceGetEventInformation         ConfirmedServiceChoice = 29
)

// UnconfirmedServiceChoice enumerates the unconfirmed service choices.
type UnconfirmedServiceChoice uint8

const (
	ServiceIAm                          UnconfirmedServiceChoice = 0
	ServiceIHave                        UnconfirmedServiceChoice = 1
	ServiceUnconfirmedCOVNotification   UnconfirmedServiceChoice = 2
	ServiceUnconfirmedEventNotification UnconfirmedServiceChoice = 3
	ServiceUnconfirmedPrivateTransfer   UnconfirmedServiceChoice = 4
	ServiceUnconfirmedTextMessage       UnconfirmedServiceChoice = 5
	ServiceTimeSynchronization          UnconfirmedServiceChoice = 6
	ServiceWhoHas                       UnconfirmedServiceChoice = 7
	ServiceWhoIs                        UnconfirmedServiceChoice = 8
	ServiceUTCTimeSynchronization       UnconfirmedServiceChoice = 9
	ServiceWriteGroup                   UnconfirmedServiceChoice = 10
)

// MaxSegmentsCode/MaxAPDUCode map the 3-bit/4-bit octet-1 fields of a
// ConfirmedRequest to their meaning (20.1.2.4).
var maxSegmentsTable = []int{0, 2, 4, 8, 16, 32, 64, 65}
var maxAPDUTable = []int{50, 128, 206, 480, 1024, 1476}

func decodeMaxSegments(code uint8) int {
	if int(code) < len(maxSegmentsTable) {
		return maxSegmentsTable[code]
	}
	return 65
}

func encodeMaxSegmentsCode(maxSegs int) uint8 {
	for i := len(maxSegmentsTable) - 1; i >= 0; i-- {
		if maxSegs >= maxSegmentsTable[i] && maxSegmentsTable[i] != 0 {
			return uint8(i)
		}
	}
	return 0
}

func decodeMaxAPDU(code uint8) int {
	if int(code) < len(maxAPDUTable) {
		return maxAPDUTable[code]
	}
	return 1476
}

func encodeMaxAPDUCode(maxAPDU int) uint8 {
	for i := len(maxAPDUTable) - 1; i >= 0; i-- {
		if maxAPDU >= maxAPDUTable[i] {
			return uint8(i)
		}
	}
	return 0
}

// ConfirmedRequest is the ConfirmedRequest APDU variant.
type ConfirmedRequest struct {
	Segmented        bool
	MoreFollows      bool
	SegResponseOK    bool
	MaxSegments      int
	MaxResponseSize  int
	InvokeID         uint8
	SequenceNumber   uint8
	WindowSize       uint8
	Service          ConfirmedServiceChoice
	Payload          []byte
}

// UnconfirmedRequest is the UnconfirmedRequest APDU variant.
type UnconfirmedRequest struct {
	Service UnconfirmedServiceChoice
	Payload []byte
}

// SimpleAck is the SimpleAck APDU variant.
type SimpleAck struct {
	InvokeID uint8
	Service  ConfirmedServiceChoice
}

// ComplexAck is the ComplexAck APDU variant.
type ComplexAck struct {
	Segmented      bool
	MoreFollows    bool
	InvokeID       uint8
	SequenceNumber uint8
	WindowSize     uint8
	Service        ConfirmedServiceChoice
	Payload        []byte
}

// SegmentAck is the SegmentAck APDU variant.
type SegmentAck struct {
	NegativeAck bool
	Server      bool
	InvokeID    uint8
	SequenceNumber uint8
	WindowSize     uint8
}

// ErrorPDU is the Error APDU variant.
type ErrorPDU struct {
	InvokeID uint8
	Service  ConfirmedServiceChoice
	Class    bacerr.Class
	Code     bacerr.Code
}

// RejectPDU is the Reject APDU variant.
type RejectPDU struct {
	InvokeID uint8
	Reason   bacerr.RejectReason
}

// AbortPDU is the Abort APDU variant.
type AbortPDU struct {
	Server   bool
	InvokeID uint8
	Reason   bacerr.AbortReason
}

// APDU is the tagged union of every PDU variant; exactly one of the
// typed fields is non-nil, matching Type.
type APDU struct {
	Type               PDUType
	ConfirmedRequest   *ConfirmedRequest
	UnconfirmedRequest *UnconfirmedRequest
	SimpleAck          *SimpleAck
	ComplexAck         *ComplexAck
	SegmentAck         *SegmentAck
	Error              *ErrorPDU
	Reject             *RejectPDU
	Abort              *AbortPDU
}

func pduType(b byte) PDUType { return PDUType(b & 0xF0) }

// Decode decodes a complete APDU from data.
func Decode(data []byte) (*APDU, error) {
	if len(data) < 1 {
		return nil, bacerr.ErrTruncated
	}
	switch pduType(data[0]) {
	case TypeConfirmedRequest:
		cr, err := decodeConfirmedRequest(data)
		if err != nil {
			return nil, err
		}
		return &APDU{Type: TypeConfirmedRequest, ConfirmedRequest: cr}, nil
	case TypeUnconfirmedRequest:
		ur, err := decodeUnconfirmedRequest(data)
		if err != nil {
			return nil, err
		}
		return &APDU{Type: TypeUnconfirmedRequest, UnconfirmedRequest: ur}, nil
	case TypeSimpleAck:
		sa, err := decodeSimpleAck(data)
		if err != nil {
			return nil, err
		}
		return &APDU{Type: TypeSimpleAck, SimpleAck: sa}, nil
	case TypeComplexAck:
		ca, err := decodeComplexAck(data)
		if err != nil {
			return nil, err
		}
		return &APDU{Type: TypeComplexAck, ComplexAck: ca}, nil
	case TypeSegmentAck:
		sa, err := decodeSegmentAck(data)
		if err != nil {
			return nil, err
		}
		return &APDU{Type: TypeSegmentAck, SegmentAck: sa}, nil
	case TypeError:
		e, err := decodeError(data)
		if err != nil {
			return nil, err
		}
		return &APDU{Type: TypeError, Error: e}, nil
	case TypeReject:
		r, err := decodeReject(data)
		if err != nil {
			return nil, err
		}
		return &APDU{Type: TypeReject, Reject: r}, nil
	case TypeAbort:
		a, err := decodeAbort(data)
		if err != nil {
			return nil, err
		}
		return &APDU{Type: TypeAbort, Abort: a}, nil
	default:
		return nil, fmt.Errorf("bacnet: unknown PDU type 0x%02x: %w", data[0], bacerr.ErrInvalidAPDU)
	}
}

func decodeConfirmedRequest(data []byte) (*ConfirmedRequest, error) {
	if len(data) < 4 {
		return nil, bacerr.ErrTruncated
	}
	cr := &ConfirmedRequest{
		Segmented:       data[0]&0x08 != 0,
		MoreFollows:     data[0]&0x04 != 0,
		SegResponseOK:   data[0]&0x02 != 0,
		MaxSegments:     decodeMaxSegments((data[1] >> 4) & 0x07),
		MaxResponseSize: decodeMaxAPDU(data[1] & 0x0F),
		InvokeID:        data[2],
	}
	offset := 3
	if cr.Segmented {
		if len(data) < offset+2 {
			return nil, bacerr.ErrTruncated
		}
		cr.SequenceNumber = data[offset]
		cr.WindowSize = data[offset+1]
		offset += 2
	}
	if len(data) < offset+1 {
		return nil, bacerr.ErrTruncated
	}
	cr.Service = ConfirmedServiceChoice(data[offset])
	offset++
	cr.Payload = append([]byte(nil), data[offset:]...)
	return cr, nil
}

// AppendConfirmedRequest appends the wire form of a ConfirmedRequest.
func AppendConfirmedRequest(dst []byte, cr ConfirmedRequest) []byte {
	first := byte(TypeConfirmedRequest)
	if cr.Segmented {
		first |= 0x08
	}
	if cr.MoreFollows {
		first |= 0x04
	}
	if cr.SegResponseOK {
		first |= 0x02
	}
	dst = append(dst, first)
	dst = append(dst, (encodeMaxSegmentsCode(cr.MaxSegments)<<4)|encodeMaxAPDUCode(cr.MaxResponseSize))
	dst = append(dst, cr.InvokeID)
	if cr.Segmented {
		dst = append(dst, cr.SequenceNumber, cr.WindowSize)
	}
	dst = append(dst, byte(cr.Service))
	dst = append(dst, cr.Payload...)
	return dst
}

func decodeUnconfirmedRequest(data []byte) (*UnconfirmedRequest, error) {
	if len(data) < 2 {
		return nil, bacerr.ErrTruncated
	}
	return &UnconfirmedRequest{
		Service: UnconfirmedServiceChoice(data[1]),
		Payload: append([]byte(nil), data[2:]...),
	}, nil
}

// AppendUnconfirmedRequest appends the wire form of an UnconfirmedRequest.
func AppendUnconfirmedRequest(dst []byte, ur UnconfirmedRequest) []byte {
	dst = append(dst, byte(TypeUnconfirmedRequest), byte(ur.Service))
	return append(dst, ur.Payload...)
}

func decodeSimpleAck(data []byte) (*SimpleAck, error) {
	if len(data) < 3 {
		return nil, bacerr.ErrTruncated
	}
	return &SimpleAck{InvokeID: data[1], Service: ConfirmedServiceChoice(data[2])}, nil
}

// AppendSimpleAck appends the wire form of a SimpleAck.
func AppendSimpleAck(dst []byte, sa SimpleAck) []byte {
	return append(dst, byte(TypeSimpleAck), sa.InvokeID, byte(sa.Service))
}

func decodeComplexAck(data []byte) (*ComplexAck, error) {
	if len(data) < 3 {
		return nil, bacerr.ErrTruncated
	}
	ca := &ComplexAck{
		Segmented:   data[0]&0x08 != 0,
		MoreFollows: data[0]&0x04 != 0,
		InvokeID:    data[1],
	}
	offset := 2
	if ca.Segmented {
		if len(data) < offset+2 {
			return nil, bacerr.ErrTruncated
		}
		ca.SequenceNumber = data[offset]
		ca.WindowSize = data[offset+1]
		offset += 2
	}
	if len(data) < offset+1 {
		return nil, bacerr.ErrTruncated
	}
	ca.Service = ConfirmedServiceChoice(data[offset])
	offset++
	ca.Payload = append([]byte(nil), data[offset:]...)
	return ca, nil
}

// AppendComplexAck appends the wire form of a ComplexAck.
func AppendComplexAck(dst []byte, ca ComplexAck) []byte {
	first := byte(TypeComplexAck)
	if ca.Segmented {
		first |= 0x08
	}
	if ca.MoreFollows {
		first |= 0x04
	}
	dst = append(dst, first, ca.InvokeID)
	if ca.Segmented {
		dst = append(dst, ca.SequenceNumber, ca.WindowSize)
	}
	dst = append(dst, byte(ca.Service))
	return append(dst, ca.Payload...)
}

func decodeSegmentAck(data []byte) (*SegmentAck, error) {
	if len(data) < 4 {
		return nil, bacerr.ErrTruncated
	}
	return &SegmentAck{
		NegativeAck:    data[0]&0x02 != 0,
		Server:         data[0]&0x01 != 0,
		InvokeID:       data[1],
		SequenceNumber: data[2],
		WindowSize:     data[3],
	}, nil
}

// AppendSegmentAck appends the wire form of a SegmentAck.
func AppendSegmentAck(dst []byte, sa SegmentAck) []byte {
	first := byte(TypeSegmentAck)
	if sa.NegativeAck {
		first |= 0x02
	}
	if sa.Server {
		first |= 0x01
	}
	return append(dst, first, sa.InvokeID, sa.SequenceNumber, sa.WindowSize)
}

// decodeError walks the two application-tagged enumerated values
// (error-class, error-code).
func decodeError(data []byte) (*ErrorPDU, error) {
	if len(data) < 3 {
		return nil, bacerr.ErrTruncated
	}
	e := &ErrorPDU{InvokeID: data[1], Service: ConfirmedServiceChoice(data[2])}
	rest := data[3:]
	classVal, n, err := bactag.DecodeApplication(rest)
	if err != nil {
		return nil, err
	}
	if classVal.Tag != bactag.Enumerated && classVal.Tag != bactag.UnsignedInt {
		return nil, bacerr.ErrInvalidAPDU
	}
	e.Class = bacerr.Class(classVal.Enum)
	rest = rest[n:]
	codeVal, _, err := bactag.DecodeApplication(rest)
	if err != nil {
		return nil, err
	}
	e.Code = bacerr.Code(codeVal.Enum)
	return e, nil
}

// AppendError appends the wire form of an Error PDU.
func AppendError(dst []byte, e ErrorPDU) []byte {
	dst = append(dst, byte(TypeError), e.InvokeID, byte(e.Service))
	dst = bactag.AppendApplication(dst, bactag.Value{Tag: bactag.Enumerated, Enum: uint32(e.Class)})
	dst = bactag.AppendApplication(dst, bactag.Value{Tag: bactag.Enumerated, Enum: uint32(e.Code)})
	return dst
}

func decodeReject(data []byte) (*RejectPDU, error) {
	if len(data) < 3 {
		return nil, bacerr.ErrTruncated
	}
	return &RejectPDU{InvokeID: data[1], Reason: bacerr.RejectReason(data[2])}, nil
}

// AppendReject appends the wire form of a Reject PDU.
func AppendReject(dst []byte, r RejectPDU) []byte {
	return append(dst, byte(TypeReject), r.InvokeID, byte(r.Reason))
}

func decodeAbort(data []byte) (*AbortPDU, error) {
	if len(data) < 3 {
		return nil, bacerr.ErrTruncated
	}
	return &AbortPDU{Server: data[0]&0x01 != 0, InvokeID: data[1], Reason: bacerr.AbortReason(data[2])}, nil
}

// AppendAbort appends the wire form of an Abort PDU.
func AppendAbort(dst []byte, a AbortPDU) []byte {
	first := byte(TypeAbort)
	if a.Server {
		first |= 0x01
	}
	return append(dst, first, a.InvokeID, byte(a.Reason))
}

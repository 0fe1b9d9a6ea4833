// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bacerr carries the BACnet error taxonomy shared by the codec,
// object model, and service dispatcher: decoding errors, service errors
// (class/code pairs carried on the wire), reject/abort reasons, and the
// sentinel errors used for transport and resource failures.
package bacerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that never become an on-wire APDU.
var (
	ErrTimeout          = errors.New("bacnet: request timeout")
	ErrConnectionClosed = errors.New("bacnet: connection closed")
	ErrInvalidResponse  = errors.New("bacnet: invalid response")
	ErrInvalidAPDU      = errors.New("bacnet: invalid APDU")
	ErrInvalidNPDU      = errors.New("bacnet: invalid NPDU")
	ErrInvalidBVLC      = errors.New("bacnet: invalid BVLC header")
	ErrTruncated        = errors.New("bacnet: truncated buffer")
	ErrSegmentationNotSupported = errors.New("bacnet: segmentation not supported")
	ErrDeviceNotFound   = errors.New("bacnet: device not found")
	ErrPropertyNotFound = errors.New("bacnet: property not found")
	ErrWriteFailed      = errors.New("bacnet: write failed")
	ErrNotConnected     = errors.New("bacnet: not connected")
	ErrAlreadyConnected = errors.New("bacnet: already connected")
	ErrMailboxFull      = errors.New("bacnet: mailbox full")
)

// Class is the BACnet error class (ASHRAE 135 clause 18).
type Class uint8

const (
	ClassDevice        Class = 0
	ClassObject        Class = 1
	ClassProperty      Class = 2
	ClassResources     Class = 3
	ClassSecurity      Class = 4
	ClassServices      Class = 5
	ClassVT            Class = 6
	ClassCommunication Class = 7
)

func (c Class) String() string {
	names := map[Class]string{
		ClassDevice:        "device",
		ClassObject:        "object",
		ClassProperty:      "property",
		ClassResources:     "resources",
		ClassSecurity:      "security",
		ClassServices:      "services",
		ClassVT:            "vt",
		ClassCommunication: "communication",
	}
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("error-class(%d)", c)
}

// Code is the BACnet error code (ASHRAE 135 clause 18).
type Code uint16

const (
	CodeOther                         Code = 0
	CodeAuthenticationFailed          Code = 1
	CodeConfigurationInProgress       Code = 2
	CodeDeviceBusy                    Code = 3
	CodeDynamicCreationNotSupported   Code = 4
	CodeFileAccessDenied              Code = 5
	CodeIncompatibleSecurityLevels    Code = 6
	CodeInconsistentParameters        Code = 7
	CodeInconsistentSelectionCriterion Code = 8
	CodeInvalidDataType               Code = 9
	CodeInvalidFileAccessMethod       Code = 10
	CodeInvalidFileStartPosition      Code = 11
	CodeInvalidOperatorName           Code = 12
	CodeInvalidParameterDataType      Code = 13
	CodeInvalidTimeStamp              Code = 14
	CodeKeyGenerationError            Code = 15
	CodeMissingRequiredParameter      Code = 16
	CodeNoObjectsOfSpecifiedType      Code = 17
	CodeNoSpaceForObject              Code = 18
	CodeNoSpaceToAddListElement       Code = 19
	CodeNoSpaceToWriteProperty        Code = 20
	CodeNotConfiguredForTriggeredLogging Code = 21
	CodePropertyIsNotAList            Code = 22
	CodeObjectDeletionNotPermitted    Code = 23
	CodeObjectIdentifierAlreadyExists Code = 24
	CodeOperationalProblem            Code = 25
	CodePasswordFailure               Code = 26
	CodeReadAccessDenied              Code = 27
	CodeSecurityNotSupported          Code = 28
	CodeServiceRequestDenied          Code = 29
	CodeTimeout                       Code = 30
	CodeUnknownObject                 Code = 31
	CodeUnknownProperty               Code = 32
	CodeUnknownSubscription           Code = 33
	CodeUnknownVtClass                Code = 34
	CodeUnknownVtSession              Code = 35
	CodeUnsupportedObjectType         Code = 36
	CodeValueOutOfRange               Code = 37
	CodeVtSessionAlreadyClosed        Code = 38
	CodeVtSessionTerminationFailure   Code = 39
	CodeWriteAccessDenied             Code = 40
	CodeCharacterSetNotSupported      Code = 41
	CodeInvalidArrayIndex             Code = 42
	CodeCovSubscriptionFailed         Code = 43
	CodeNotCovProperty                Code = 44
	CodeOptionalFunctionalityNotSupported Code = 45
	CodeInvalidConfigurationData      Code = 46
	CodeDatatypeNotSupported          Code = 47
	CodeDuplicateName                 Code = 48
	CodeDuplicateObjectId             Code = 49
	CodePropertyIsNotAnArray          Code = 50
	CodeNoAlarmsOfSpecifiedType       Code = 51
	CodeAbortBufferOverflow           Code = 51
	CodeAbortInvalidApduInThisState   Code = 52
	CodeAbortPreemptedByHigherPriorityTask Code = 53
	CodeAbortSegmentationNotSupported Code = 54
	CodeAbortProprietary              Code = 55
	CodeAbortOther                    Code = 56
	CodeInvalidTag                    Code = 57
	CodeNetworkDown                   Code = 58
	CodeRejectBufferOverflow          Code = 59
	CodeRejectInconsistentParameters  Code = 60
	CodeRejectInvalidParameterDataType Code = 61
	CodeRejectInvalidTag              Code = 62
	CodeRejectMissingRequiredParameter Code = 63
	CodeRejectParameterOutOfRange     Code = 64
	CodeRejectTooManyArguments        Code = 65
	CodeRejectUndefinedEnumeration    Code = 66
	CodeRejectUnrecognizedService     Code = 67
	CodeRejectProprietary             Code = 68
	CodeRejectOther                   Code = 69
	CodeUnknownDevice                 Code = 70
	CodeUnknownRoute                  Code = 71
	CodeValueTooLong                  Code = 72
	CodeAbortApduTooLong              Code = 73
	CodeAbortApplicationExceededReplyTime Code = 74
	CodeAbortOutOfResources           Code = 75
	CodeAbortTsmTimeout               Code = 76
	CodeAbortWindowSizeOutOfRange     Code = 77
	CodeListItemNotNumbered           Code = 123
)

var codeNames = map[Code]string{
	CodeOther: "other", CodeAuthenticationFailed: "authentication-failed",
	CodeConfigurationInProgress: "configuration-in-progress", CodeDeviceBusy: "device-busy",
	CodeDynamicCreationNotSupported: "dynamic-creation-not-supported", CodeFileAccessDenied: "file-access-denied",
	CodeInconsistentParameters: "inconsistent-parameters", CodeInvalidDataType: "invalid-data-type",
	CodeMissingRequiredParameter: "missing-required-parameter", CodeNoObjectsOfSpecifiedType: "no-objects-of-specified-type",
	CodeNoSpaceForObject: "no-space-for-object", CodeNoSpaceToAddListElement: "no-space-to-add-list-element",
	CodeNoSpaceToWriteProperty: "no-space-to-write-property", CodePropertyIsNotAList: "property-is-not-a-list",
	CodeObjectDeletionNotPermitted: "object-deletion-not-permitted", CodeObjectIdentifierAlreadyExists: "object-identifier-already-exists",
	CodePasswordFailure: "password-failure", CodeReadAccessDenied: "read-access-denied",
	CodeSecurityNotSupported: "security-not-supported", CodeServiceRequestDenied: "service-request-denied",
	CodeTimeout: "timeout", CodeUnknownObject: "unknown-object", CodeUnknownProperty: "unknown-property",
	CodeUnknownSubscription: "unknown-subscription", CodeUnsupportedObjectType: "unsupported-object-type",
	CodeValueOutOfRange: "value-out-of-range", CodeWriteAccessDenied: "write-access-denied",
	CodeCharacterSetNotSupported: "character-set-not-supported", CodeInvalidArrayIndex: "invalid-array-index",
	CodeCovSubscriptionFailed: "cov-subscription-failed", CodeNotCovProperty: "not-cov-property",
	CodeOptionalFunctionalityNotSupported: "optional-functionality-not-supported",
	CodeInvalidConfigurationData: "invalid-configuration-data", CodeDatatypeNotSupported: "datatype-not-supported",
	CodeDuplicateName: "duplicate-name", CodeDuplicateObjectId: "duplicate-object-id",
	CodePropertyIsNotAnArray: "property-is-not-an-array", CodeInvalidTag: "invalid-tag",
	CodeNetworkDown: "network-down", CodeUnknownDevice: "unknown-device", CodeUnknownRoute: "unknown-route",
	CodeValueTooLong: "value-too-long", CodeListItemNotNumbered: "list-item-not-numbered",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error-code(%d)", c)
}

// Error is a {class, code} pair carried on the wire for a confirmed
// service's Error-PDU.
type Error struct {
	Class Class
	Code  Code
}

func (e *Error) Error() string {
	return fmt.Sprintf("bacnet error: class=%s, code=%s", e.Class, e.Code)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// New builds a protocol-level Error value.
func New(class Class, code Code) *Error {
	return &Error{Class: class, Code: code}
}

// ClassAndCode extracts the {class, code} pair from err if it is (or
// wraps) an *Error, falling back to {ClassDevice, CodeOther} for any
// other error so callers always have something to put on the wire.
func ClassAndCode(err error) (Class, Code) {
	var be *Error
	if errors.As(err, &be) {
		return be.Class, be.Code
	}
	return ClassDevice, CodeOther
}

// RejectReason enumerates the Reject-PDU reason codes.
type RejectReason uint8

const (
	RejectOther                    RejectReason = 0
	RejectBufferOverflow           RejectReason = 1
	RejectInconsistentParameters   RejectReason = 2
	RejectInvalidParameterDataType RejectReason = 3
	RejectInvalidTag               RejectReason = 4
	RejectMissingRequiredParameter RejectReason = 5
	RejectParameterOutOfRange      RejectReason = 6
	RejectTooManyArguments         RejectReason = 7
	RejectUndefinedEnumeration     RejectReason = 8
	RejectUnrecognizedService      RejectReason = 9
)

func (r RejectReason) String() string {
	names := map[RejectReason]string{
		RejectOther: "other", RejectBufferOverflow: "buffer-overflow",
		RejectInconsistentParameters: "inconsistent-parameters", RejectInvalidParameterDataType: "invalid-parameter-data-type",
		RejectInvalidTag: "invalid-tag", RejectMissingRequiredParameter: "missing-required-parameter",
		RejectParameterOutOfRange: "parameter-out-of-range", RejectTooManyArguments: "too-many-arguments",
		RejectUndefinedEnumeration: "undefined-enumeration", RejectUnrecognizedService: "unrecognized-service",
	}
	if name, ok := names[r]; ok {
		return name
	}
	return fmt.Sprintf("reject-reason(%d)", r)
}

// Reject represents a BACnet Reject-PDU.
type Reject struct {
	InvokeID uint8
	Reason   RejectReason
}

func (e *Reject) Error() string {
	return fmt.Sprintf("bacnet reject: invoke-id=%d, reason=%s", e.InvokeID, e.Reason)
}

// AbortReason enumerates the Abort-PDU reason codes.
type AbortReason uint8

const (
	AbortOther                        AbortReason = 0
	AbortBufferOverflow                AbortReason = 1
	AbortInvalidApduInThisState        AbortReason = 2
	AbortPreemptedByHigherPriorityTask AbortReason = 3
	AbortSegmentationNotSupported      AbortReason = 4
	AbortSecurityError                 AbortReason = 5
	AbortInsufficientSecurity          AbortReason = 6
	AbortWindowSizeOutOfRange          AbortReason = 7
	AbortApplicationExceededReplyTime  AbortReason = 8
	AbortOutOfResources                AbortReason = 9
	AbortTsmTimeout                    AbortReason = 10
	AbortApduTooLong                   AbortReason = 11
)

func (a AbortReason) String() string {
	names := map[AbortReason]string{
		AbortOther: "other", AbortBufferOverflow: "buffer-overflow",
		AbortInvalidApduInThisState: "invalid-apdu-in-this-state", AbortPreemptedByHigherPriorityTask: "preempted-by-higher-priority-task",
		AbortSegmentationNotSupported: "segmentation-not-supported", AbortSecurityError: "security-error",
		AbortInsufficientSecurity: "insufficient-security", AbortWindowSizeOutOfRange: "window-size-out-of-range",
		AbortApplicationExceededReplyTime: "application-exceeded-reply-time", AbortOutOfResources: "out-of-resources",
		AbortTsmTimeout: "tsm-timeout", AbortApduTooLong: "apdu-too-long",
	}
	if name, ok := names[a]; ok {
		return name
	}
	return fmt.Sprintf("abort-reason(%d)", a)
}

// Abort represents a BACnet Abort-PDU.
type Abort struct {
	InvokeID uint8
	Server   bool
	Reason   AbortReason
}

func (e *Abort) Error() string {
	origin := "client"
	if e.Server {
		origin = "server"
	}
	return fmt.Sprintf("bacnet abort: invoke-id=%d, origin=%s, reason=%s", e.InvokeID, origin, e.Reason)
}

// NewAbort builds a server-originated Abort value carrying reason; the
// invoke ID is filled in by the caller once it is known (the apdu layer,
// which owns the correlation between a request and its response).
func NewAbort(reason AbortReason) *Abort {
	return &Abort{Server: true, Reason: reason}
}

// IsTimeout reports whether err is (or wraps) ErrTimeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsDeviceNotFound reports whether err indicates an unknown device/object.
func IsDeviceNotFound(err error) bool {
	if errors.Is(err, ErrDeviceNotFound) {
		return true
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeUnknownDevice || e.Code == CodeUnknownObject
	}
	return false
}

// IsPropertyNotFound reports whether err indicates an unknown property.
func IsPropertyNotFound(err error) bool {
	if errors.Is(err, ErrPropertyNotFound) {
		return true
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeUnknownProperty
	}
	return false
}

// IsAccessDenied reports whether err indicates a read/write access denial.
func IsAccessDenied(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeReadAccessDenied || e.Code == CodeWriteAccessDenied
	}
	return false
}

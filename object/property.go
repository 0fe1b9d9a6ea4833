// Package object implements the BACnet object/property model: the
// object registry, Priority_Array command arbitration, array-property
// indexing, and Property_List synthesis (ASHRAE 135 clause 12).
package object

import "fmt"

// Type discriminates a BACnet object type (clause 12's per-object-type
// structs are modeled here by a single handler interface per instance).
type Type uint16

const (
	TypeAnalogInput      Type = 0
	TypeAnalogOutput     Type = 1
	TypeAnalogValue      Type = 2
	TypeBinaryInput      Type = 3
	TypeBinaryOutput     Type = 4
	TypeBinaryValue      Type = 5
	TypeCalendar         Type = 6
	TypeCommand          Type = 7
	TypeDevice           Type = 8
	TypeEventEnrollment  Type = 9
	TypeFile             Type = 10
	TypeGroup            Type = 11
	TypeLoop             Type = 12
	TypeMultiStateInput  Type = 13
	TypeMultiStateOutput Type = 14
	TypeNotificationClass Type = 15
	TypeProgram          Type = 16
	TypeSchedule         Type = 17
	TypeAveraging        Type = 18
	TypeMultiStateValue  Type = 19
	TypeTrendLog         Type = 20
)

func (t Type) String() string {
	names := map[Type]string{
		TypeAnalogInput: "analog-input", TypeAnalogOutput: "analog-output",
		TypeAnalogValue: "analog-value", TypeBinaryInput: "binary-input",
		TypeBinaryOutput: "binary-output", TypeBinaryValue: "binary-value",
		TypeCalendar: "calendar", TypeCommand: "command", TypeDevice: "device",
		TypeEventEnrollment: "event-enrollment", TypeFile: "file", TypeGroup: "group",
		TypeLoop: "loop", TypeMultiStateInput: "multi-state-input",
		TypeMultiStateOutput: "multi-state-output", TypeNotificationClass: "notification-class",
		TypeProgram: "program", TypeSchedule: "schedule", TypeAveraging: "averaging",
		TypeMultiStateValue: "multi-state-value", TypeTrendLog: "trend-log",
	}
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("vendor-specific(%d)", t)
}

// ID is a BACnet property identifier (clause 21, Table 12-1).
type ID uint32

const (
	PropObjectIdentifier    ID = 75
	PropObjectName          ID = 77
	PropObjectType          ID = 79
	PropPropertyList        ID = 371
	PropPresentValue        ID = 85
	PropStatusFlags         ID = 111
	PropEventState          ID = 36
	PropReliability         ID = 103
	PropOutOfService        ID = 81
	PropUnits               ID = 117
	PropPriorityArray       ID = 87
	PropRelinquishDefault   ID = 104
	PropDescription         ID = 28
	PropCOVIncrement        ID = 22
	PropHighLimit           ID = 45
	PropLowLimit            ID = 59
	PropVendorName          ID = 121
	PropVendorIdentifier    ID = 120
	PropModelName           ID = 70
	PropFirmwareRevision    ID = 44
	PropApplicationSoftware ID = 12
	PropProtocolVersion     ID = 98
	PropProtocolRevision    ID = 139
	PropSystemStatus        ID = 112
	PropMaxApduLength       ID = 62
	PropSegmentationSupported ID = 107
	PropObjectList          ID = 76
	PropDatabaseRevision    ID = 155
	PropNumberOfStates      ID = 74
	PropStateText           ID = 110
	PropDeviceCommunicationControl ID = 0 // not a readable property, service-only
)

const (
	// ArrayAll requests the whole array as one encoded value.
	ArrayAll = 0xFFFFFFFF
	// ArrayLength (index 0) requests the element count.
	ArrayLength = 0
)

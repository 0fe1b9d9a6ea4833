package object

import (
	"github.com/edgeo/bacnet-router/bacerr"
	"github.com/edgeo/bacnet-router/bactag"
)

// CommunicationState is the three-state Device_Communication_Control
// mode: Enable accepts every confirmed/unconfirmed service; Disable
// accepts only DeviceCommunicationControl/ReinitializeDevice and
// silently drops everything else; DisableInitiation accepts every
// request, as Enable does, but suppresses this device's own unsolicited
// requests (Who-Is, I-Am, ...), as Disable also does.
type CommunicationState int

const (
	CommunicationEnable CommunicationState = iota
	CommunicationDisable
	CommunicationDisableInitiation
)

// Device is the singleton Device object. Every router/application
// instance has exactly one.
type Device struct {
	Instance            uint32
	Name                string
	Description         string
	VendorID            uint16
	VendorName          string
	ModelName           string
	FirmwareRevision    string
	ApplicationSoftware string
	ProtocolVersion     uint8
	ProtocolRevision    uint8
	MaxAPDULength       uint32
	SegmentationSupported uint32 // 0=both,1=transmit,2=receive,3=none
	DatabaseRevision    uint32

	Communication CommunicationState

	Registry *Registry
}

func (d *Device) Type() Type { return TypeDevice }
func (d *Device) Count() int { return 1 }

func (d *Device) IndexToInstance(i int) (uint32, bool) {
	if i == 0 {
		return d.Instance, true
	}
	return 0, false
}

func (d *Device) ValidInstance(instance uint32) bool { return instance == d.Instance }

func (d *Device) ObjectName(instance uint32) (string, bool) {
	if instance != d.Instance {
		return "", false
	}
	return d.Name, true
}

// AcceptsRequest reports whether the dispatcher should process a
// ConfirmedRequest of the given service while in the current
// communication state.
func (d *Device) AcceptsRequest(isDCC, isReinit bool) bool {
	if d.Communication == CommunicationEnable {
		return true
	}
	return isDCC || isReinit
}

// MayInitiate reports whether this device may emit unsolicited requests
// (Who-Is, I-Am, COV notifications) in the current communication state.
func (d *Device) MayInitiate() bool {
	return d.Communication == CommunicationEnable
}

func (d *Device) ReadProperty(args ReadPropertyArgs) ([]byte, error) {
	if args.Instance != d.Instance {
		return nil, bacerr.New(bacerr.ClassObject, bacerr.CodeUnknownObject)
	}
	if args.ArrayIndex != ArrayAll && args.Property != PropPropertyList && args.Property != PropObjectList {
		return nil, NotAnArray()
	}
	switch args.Property {
	case PropObjectName:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.CharacterString, Chars: d.Name}), nil
	case PropDescription:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.CharacterString, Chars: d.Description}), nil
	case PropVendorIdentifier:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: uint64(d.VendorID)}), nil
	case PropVendorName:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.CharacterString, Chars: d.VendorName}), nil
	case PropModelName:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.CharacterString, Chars: d.ModelName}), nil
	case PropFirmwareRevision:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.CharacterString, Chars: d.FirmwareRevision}), nil
	case PropApplicationSoftware:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.CharacterString, Chars: d.ApplicationSoftware}), nil
	case PropProtocolVersion:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: uint64(d.ProtocolVersion)}), nil
	case PropProtocolRevision:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: uint64(d.ProtocolRevision)}), nil
	case PropMaxApduLength:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: uint64(d.MaxAPDULength)}), nil
	case PropSegmentationSupported:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.Enumerated, Enum: d.SegmentationSupported}), nil
	case PropDatabaseRevision:
		return bactag.AppendApplication(nil, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: uint64(d.DatabaseRevision)}), nil
	case PropPropertyList:
		req, opt, prop := d.PropertyList(args.Instance)
		return encodePropertyListArray(args.ArrayIndex, PropertyList(req, opt, prop))
	default:
		return nil, bacerr.New(bacerr.ClassProperty, bacerr.CodeUnknownProperty)
	}
}

func (d *Device) WriteProperty(args WritePropertyArgs) error {
	return bacerr.New(bacerr.ClassProperty, bacerr.CodeWriteAccessDenied)
}

var deviceRequired = []ID{
	PropObjectIdentifier, PropObjectName, PropObjectType, PropSystemStatus,
	PropVendorName, PropVendorIdentifier, PropModelName, PropFirmwareRevision,
	PropApplicationSoftware, PropProtocolVersion, PropProtocolRevision,
	PropMaxApduLength, PropSegmentationSupported, PropObjectList,
	PropDatabaseRevision, PropPropertyList,
}
var deviceOptional = []ID{PropDescription}

func (d *Device) PropertyList(uint32) (required, optional, proprietary []ID) {
	return deviceRequired, deviceOptional, nil
}

func (d *Device) ValueList(uint32) ([]bactag.Value, error) { return nil, nil }
func (d *Device) COVPending(uint32) bool                   { return false }

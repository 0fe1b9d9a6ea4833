package object

import "github.com/edgeo/bacnet-router/bactag"

// ReadPropertyArgs carries a ReadProperty (or RPM element) request into
// an ObjectHandler.
type ReadPropertyArgs struct {
	Instance   uint32
	Property   ID
	ArrayIndex uint32 // ArrayAll when not specified on the wire
}

// WritePropertyArgs carries a WriteProperty request into an ObjectHandler.
type WritePropertyArgs struct {
	Instance   uint32
	Property   ID
	ArrayIndex uint32
	Value      bactag.Value
	Priority   int // 0 when the service carried no priority
}

// ObjectHandler is the polymorphic capability record every object type
// implements. Every method is required; a handler without a capability
// implements it with an error or empty result (e.g. Device.WriteProperty
// always returns write-access-denied).
type ObjectHandler interface {
	Type() Type
	Count() int
	IndexToInstance(i int) (uint32, bool)
	ValidInstance(instance uint32) bool
	ObjectName(instance uint32) (string, bool)
	ReadProperty(args ReadPropertyArgs) ([]byte, error)
	WriteProperty(args WritePropertyArgs) error
	PropertyList(instance uint32) (required, optional, proprietary []ID)
	ValueList(instance uint32) ([]bactag.Value, error)
	COVPending(instance uint32) bool
}

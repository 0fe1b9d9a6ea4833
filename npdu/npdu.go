package npdu

import (
	"encoding/binary"

	"github.com/edgeo/bacnet-router/bacerr"
)

// ProtocolVersion is the only NPDU protocol version this stack accepts;
// any other value causes the frame to be dropped.
const ProtocolVersion = 1

// Priority is the 2-bit network priority field.
type Priority uint8

const (
	PriorityNormal Priority = iota
	PriorityUrgent
	PriorityCriticalEquipment
	PriorityLifeSafety
)

// NetworkMessageType enumerates the network-layer message types carried
// when the control byte's network_layer_message bit is set.
type NetworkMessageType uint8

const (
	MsgWhoIsRouterToNetwork          NetworkMessageType = 0x00
	MsgIAmRouterToNetwork            NetworkMessageType = 0x01
	MsgICouldBeRouterToNetwork       NetworkMessageType = 0x02
	MsgRejectMessageToNetwork        NetworkMessageType = 0x03
	MsgRouterBusyToNetwork           NetworkMessageType = 0x04
	MsgRouterAvailableToNetwork      NetworkMessageType = 0x05
	MsgInitializeRoutingTable        NetworkMessageType = 0x06
	MsgInitializeRoutingTableAck     NetworkMessageType = 0x07
	MsgEstablishConnectionToNetwork  NetworkMessageType = 0x08
	MsgDisconnectConnectionToNetwork NetworkMessageType = 0x09
	MsgWhatIsNetworkNumber           NetworkMessageType = 0x12
	MsgNetworkNumberIs               NetworkMessageType = 0x13
)

// Control bit positions within the NPDU control octet.
const (
	controlHasDest     = 0x80
	controlHasSrc      = 0x20
	controlExpectReply = 0x10
	controlNetMessage  = 0x08
	controlPriorityMask = 0x03
)

// NPDU is the decoded network-layer header.
type NPDU struct {
	Version           uint8
	HasDest           bool
	HasSrc            bool
	ExpectingReply    bool
	NetworkLayerMsg   bool
	Priority          Priority
	DestNet           uint16
	DestAdr           []byte
	SrcNet            uint16
	SrcAdr            []byte
	HopCount          uint8
	MessageType       NetworkMessageType
	VendorID          uint16
	// Payload is the remaining bytes after the header: either an APDU
	// (NetworkLayerMsg == false) or a network-layer message body.
	Payload []byte
}

// Decode parses an NPDU header from the bounded slice data and returns
// the decoded header and the header length consumed.
func Decode(data []byte) (*NPDU, int, error) {
	if len(data) < 2 {
		return nil, 0, bacerr.ErrTruncated
	}
	version := data[0]
	if version != ProtocolVersion {
		return nil, 0, bacerr.ErrInvalidNPDU
	}
	control := data[1]
	n := &NPDU{
		Version:         version,
		HasDest:         control&controlHasDest != 0,
		HasSrc:          control&controlHasSrc != 0,
		ExpectingReply:  control&controlExpectReply != 0,
		NetworkLayerMsg: control&controlNetMessage != 0,
		Priority:        Priority(control & controlPriorityMask),
	}
	offset := 2

	if n.HasDest {
		if len(data) < offset+3 {
			return nil, 0, bacerr.ErrTruncated
		}
		n.DestNet = binary.BigEndian.Uint16(data[offset:])
		dlen := int(data[offset+2])
		offset += 3
		if len(data) < offset+dlen {
			return nil, 0, bacerr.ErrTruncated
		}
		n.DestAdr = append([]byte(nil), data[offset:offset+dlen]...)
		offset += dlen
	}

	if n.HasSrc {
		if len(data) < offset+3 {
			return nil, 0, bacerr.ErrTruncated
		}
		n.SrcNet = binary.BigEndian.Uint16(data[offset:])
		slen := int(data[offset+2])
		offset += 3
		if len(data) < offset+slen {
			return nil, 0, bacerr.ErrTruncated
		}
		n.SrcAdr = append([]byte(nil), data[offset:offset+slen]...)
		offset += slen
	}

	if n.HasDest {
		if len(data) < offset+1 {
			return nil, 0, bacerr.ErrTruncated
		}
		n.HopCount = data[offset]
		offset++
	}

	if n.NetworkLayerMsg {
		if len(data) < offset+1 {
			return nil, 0, bacerr.ErrTruncated
		}
		n.MessageType = NetworkMessageType(data[offset])
		offset++
		if n.MessageType >= 0x80 {
			if len(data) < offset+2 {
				return nil, 0, bacerr.ErrTruncated
			}
			n.VendorID = binary.BigEndian.Uint16(data[offset:])
			offset += 2
		}
	} else if !n.HasDest && n.HopCount != 0 {
		// unreachable: HopCount only ever set when HasDest, guards the
		// "has_dest=false but hop_count present" malformed-frame invariant
		return nil, 0, bacerr.ErrInvalidNPDU
	}

	n.Payload = append([]byte(nil), data[offset:]...)
	return n, offset, nil
}

// Append appends the wire form of an NPDU header (not including Payload,
// which the caller appends separately).
func Append(dst []byte, n NPDU) []byte {
	dst = append(dst, ProtocolVersion)
	control := byte(n.Priority) & controlPriorityMask
	if n.HasDest {
		control |= controlHasDest
	}
	if n.HasSrc {
		control |= controlHasSrc
	}
	if n.ExpectingReply {
		control |= controlExpectReply
	}
	if n.NetworkLayerMsg {
		control |= controlNetMessage
	}
	dst = append(dst, control)

	if n.HasDest {
		dst = append(dst, byte(n.DestNet>>8), byte(n.DestNet), byte(len(n.DestAdr)))
		dst = append(dst, n.DestAdr...)
	}
	if n.HasSrc {
		dst = append(dst, byte(n.SrcNet>>8), byte(n.SrcNet), byte(len(n.SrcAdr)))
		dst = append(dst, n.SrcAdr...)
	}
	if n.HasDest {
		dst = append(dst, n.HopCount)
	}
	if n.NetworkLayerMsg {
		dst = append(dst, byte(n.MessageType))
		if n.MessageType >= 0x80 {
			dst = append(dst, byte(n.VendorID>>8), byte(n.VendorID))
		}
	}
	return dst
}

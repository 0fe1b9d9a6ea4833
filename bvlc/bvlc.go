// Package bvlc implements the BACnet Virtual Link Control layer carried
// over UDP port 47808: the BVLC header, the full BVLC function table,
// and a BBMD (BACnet Broadcast Management Device) with its Broadcast
// Distribution Table and Foreign Device Table.
package bvlc

import (
	"encoding/binary"
	"errors"
	"net"
)

// Type is the fixed BVLC type octet identifying BACnet/IP.
const Type = 0x81

// Function is the BVLC function octet.
type Function uint8

const (
	FuncResult                     Function = 0x00
	FuncWriteBDT                   Function = 0x01
	FuncReadBDT                    Function = 0x02
	FuncReadBDTAck                 Function = 0x03
	FuncForwardedNPDU              Function = 0x04
	FuncRegisterForeignDevice      Function = 0x05
	FuncReadFDT                    Function = 0x06
	FuncReadFDTAck                 Function = 0x07
	FuncDeleteForeignDeviceEntry   Function = 0x08
	FuncDistributeBroadcastToNet   Function = 0x09
	FuncOriginalUnicastNPDU        Function = 0x0A
	FuncOriginalBroadcastNPDU      Function = 0x0B
)

// ResultCode is the status code carried in a BVLC-Result.
type ResultCode uint16

const (
	ResultSuccess                        ResultCode = 0x0000
	ResultWriteBDTNAK                    ResultCode = 0x0010
	ResultReadBDTNAK                     ResultCode = 0x0020
	ResultRegisterForeignDeviceNAK       ResultCode = 0x0030
	ResultReadFDTNAK                     ResultCode = 0x0040
	ResultDeleteForeignDeviceEntryNAK    ResultCode = 0x0050
	ResultDistributeBroadcastToNetworkNAK ResultCode = 0x0060
)

var (
	ErrTruncated = errors.New("bvlc: truncated message")
	ErrBadType   = errors.New("bvlc: unexpected BVLC type octet")
)

// Header is the fixed 4-byte BVLC header: type, function, total length
// (header + payload).
type Header struct {
	Function Function
	Length   uint16
}

// AppendHeader appends a 4-byte BVLC header for a message whose
// payload (NPDU or function-specific body) is payloadLen bytes.
func AppendHeader(dst []byte, fn Function, payloadLen int) []byte {
	dst = append(dst, Type, byte(fn))
	var lb [2]byte
	binary.BigEndian.PutUint16(lb[:], uint16(4+payloadLen))
	return append(dst, lb[:]...)
}

// DecodeHeader parses the 4-byte BVLC header from the front of data.
func DecodeHeader(data []byte) (Header, int, error) {
	if len(data) < 4 {
		return Header{}, 0, ErrTruncated
	}
	if data[0] != Type {
		return Header{}, 0, ErrBadType
	}
	return Header{
		Function: Function(data[1]),
		Length:   binary.BigEndian.Uint16(data[2:4]),
	}, 4, nil
}

// AppendAddress appends a BACnet/IP address in its 6-byte wire form
// (4 bytes of IPv4 address, 2 bytes of port, big-endian).
func AppendAddress(dst []byte, addr *net.UDPAddr) []byte {
	ip4 := addr.IP.To4()
	if ip4 == nil {
		ip4 = net.IPv4zero.To4()
	}
	dst = append(dst, ip4...)
	var pb [2]byte
	binary.BigEndian.PutUint16(pb[:], uint16(addr.Port))
	return append(dst, pb[:]...)
}

// DecodeAddress parses a 6-byte BACnet/IP address.
func DecodeAddress(data []byte) (*net.UDPAddr, int, error) {
	if len(data) < 6 {
		return nil, 0, ErrTruncated
	}
	ip := net.IPv4(data[0], data[1], data[2], data[3])
	port := binary.BigEndian.Uint16(data[4:6])
	return &net.UDPAddr{IP: ip, Port: int(port)}, 6, nil
}

// AppendResult appends a BVLC-Result message.
func AppendResult(dst []byte, code ResultCode) []byte {
	dst = AppendHeader(dst, FuncResult, 2)
	var cb [2]byte
	binary.BigEndian.PutUint16(cb[:], uint16(code))
	return append(dst, cb[:]...)
}

// AppendForwardedNPDU appends a Forwarded-NPDU message: the original
// source address followed by the NPDU bytes.
func AppendForwardedNPDU(dst []byte, origin *net.UDPAddr, npdu []byte) []byte {
	dst = AppendHeader(dst, FuncForwardedNPDU, 6+len(npdu))
	dst = AppendAddress(dst, origin)
	return append(dst, npdu...)
}

// AppendOriginalUnicastNPDU appends an Original-Unicast-NPDU message.
func AppendOriginalUnicastNPDU(dst []byte, npdu []byte) []byte {
	dst = AppendHeader(dst, FuncOriginalUnicastNPDU, len(npdu))
	return append(dst, npdu...)
}

// AppendOriginalBroadcastNPDU appends an Original-Broadcast-NPDU message.
func AppendOriginalBroadcastNPDU(dst []byte, npdu []byte) []byte {
	dst = AppendHeader(dst, FuncOriginalBroadcastNPDU, len(npdu))
	return append(dst, npdu...)
}

// AppendRegisterForeignDevice appends a Register-Foreign-Device
// message carrying a TTL in seconds.
func AppendRegisterForeignDevice(dst []byte, ttlSeconds uint16) []byte {
	dst = AppendHeader(dst, FuncRegisterForeignDevice, 2)
	var tb [2]byte
	binary.BigEndian.PutUint16(tb[:], ttlSeconds)
	return append(dst, tb[:]...)
}

// AppendDistributeBroadcastToNetwork appends a
// Distribute-Broadcast-To-Network message (sent by a registered
// foreign device, asking its BBMD to rebroadcast on its behalf).
func AppendDistributeBroadcastToNetwork(dst []byte, npdu []byte) []byte {
	dst = AppendHeader(dst, FuncDistributeBroadcastToNet, len(npdu))
	return append(dst, npdu...)
}

// AppendDeleteForeignDeviceEntry appends a request to remove addr from
// the BBMD's Foreign Device Table.
func AppendDeleteForeignDeviceEntry(dst []byte, addr *net.UDPAddr) []byte {
	dst = AppendHeader(dst, FuncDeleteForeignDeviceEntry, 6)
	return AppendAddress(dst, addr)
}

// Message is a decoded BVLC message: the function and, for the
// function-specific ones this stack needs to act on, its parsed body.
type Message struct {
	Function Function
	Payload  []byte // NPDU bytes, for NPDU-carrying functions
	Origin   *net.UDPAddr // set for Forwarded-NPDU
	Result   ResultCode
	TTL      uint16
	DeleteAddr *net.UDPAddr
}

// Decode parses a full BVLC message (header plus function-specific
// body) from data.
func Decode(data []byte) (Message, error) {
	hdr, n, err := DecodeHeader(data)
	if err != nil {
		return Message{}, err
	}
	if int(hdr.Length) > len(data) {
		return Message{}, ErrTruncated
	}
	body := data[n:hdr.Length]
	msg := Message{Function: hdr.Function}
	switch hdr.Function {
	case FuncResult:
		if len(body) < 2 {
			return Message{}, ErrTruncated
		}
		msg.Result = ResultCode(binary.BigEndian.Uint16(body))
	case FuncForwardedNPDU:
		addr, m, err := DecodeAddress(body)
		if err != nil {
			return Message{}, err
		}
		msg.Origin = addr
		msg.Payload = append([]byte(nil), body[m:]...)
	case FuncOriginalUnicastNPDU, FuncOriginalBroadcastNPDU, FuncDistributeBroadcastToNet:
		msg.Payload = append([]byte(nil), body...)
	case FuncRegisterForeignDevice:
		if len(body) < 2 {
			return Message{}, ErrTruncated
		}
		msg.TTL = binary.BigEndian.Uint16(body)
	case FuncDeleteForeignDeviceEntry:
		addr, _, err := DecodeAddress(body)
		if err != nil {
			return Message{}, err
		}
		msg.DeleteAddr = addr
	}
	return msg, nil
}

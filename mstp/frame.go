package mstp

import "errors"

// FrameType is the MS/TP frame type octet.
type FrameType uint8

const (
	FrameToken                    FrameType = 0
	FramePollForMaster            FrameType = 1
	FrameReplyToPollForMaster     FrameType = 2
	FrameTestRequest              FrameType = 3
	FrameTestResponse             FrameType = 4
	FrameBACnetDataExpectingReply FrameType = 5
	FrameBACnetDataNotExpectReply FrameType = 6
	FrameReplyPostponed           FrameType = 7
)

// DataExpectingReply reports whether a frame of this type carries an
// application payload that requires the addressed station to reply
// before the token holder may pass the token on.
func (t FrameType) DataExpectingReply() bool {
	return t == FrameBACnetDataExpectingReply
}

var preamble = [2]byte{0x55, 0xFF}

// Frame is a decoded MS/TP frame.
type Frame struct {
	Type    FrameType
	Dest    uint8
	Src     uint8
	Data    []byte
}

var errFrameTooShort = errors.New("mstp: frame too short")

// Encode appends the wire form of f to dst: preamble, header, header
// CRC, and (for non-empty payloads) data plus its CRC-16.
func Encode(dst []byte, f Frame) []byte {
	dst = append(dst, preamble[0], preamble[1])
	header := []byte{
		byte(f.Type),
		f.Dest,
		f.Src,
		byte(len(f.Data) >> 8),
		byte(len(f.Data)),
	}
	dst = append(dst, header...)
	dst = append(dst, HeaderCRC(header))
	if len(f.Data) > 0 {
		dst = append(dst, f.Data...)
		crc := DataCRC(f.Data)
		dst = append(dst, byte(crc), byte(crc>>8))
	}
	return dst
}

// DecodeHeader parses the 5-byte header plus its CRC byte (6 bytes
// total, not including the preamble) and validates the header CRC.
// It returns the frame type, destination, source, and data length.
func DecodeHeader(b []byte) (f Frame, dataLen int, err error) {
	if len(b) < 6 {
		return Frame{}, 0, errFrameTooShort
	}
	if !ValidHeaderCRC(b[:6]) {
		return Frame{}, 0, errInvalidHeaderCRC
	}
	f.Type = FrameType(b[0])
	f.Dest = b[1]
	f.Src = b[2]
	dataLen = int(b[3])<<8 | int(b[4])
	return f, dataLen, nil
}

var errInvalidHeaderCRC = errors.New("mstp: invalid header CRC")
var errInvalidDataCRC = errors.New("mstp: invalid data CRC")

// DecodeData validates the data field plus its trailing CRC-16 and
// returns the payload with the CRC stripped.
func DecodeData(b []byte, dataLen int) ([]byte, error) {
	if len(b) < dataLen+2 {
		return nil, errFrameTooShort
	}
	if !ValidDataCRC(b[:dataLen+2]) {
		return nil, errInvalidDataCRC
	}
	return append([]byte(nil), b[:dataLen]...), nil
}

package npdu

import "encoding/binary"

// Who-Is-Router-To-Network and I-Am-Router-To-Network message bodies
// (the DestNet/SrcNet-level addressing is already handled by the NPDU
// header; these helpers cover what follows MessageType in Payload).

// AppendWhoIsRouterToNetwork appends the body of a
// Who-Is-Router-To-Network message: an optional single DNET, or
// nothing to ask about every network.
func AppendWhoIsRouterToNetwork(dst []byte, dnet uint16, restrict bool) []byte {
	if !restrict {
		return dst
	}
	return append(dst, byte(dnet>>8), byte(dnet))
}

// DecodeWhoIsRouterToNetwork parses an optional DNET from the message
// body; ok is false when the message asked about every network.
func DecodeWhoIsRouterToNetwork(body []byte) (dnet uint16, ok bool) {
	if len(body) < 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(body), true
}

// AppendIAmRouterToNetwork appends the body of an
// I-Am-Router-To-Network message: one or more reachable DNETs.
func AppendIAmRouterToNetwork(dst []byte, dnets []uint16) []byte {
	for _, n := range dnets {
		dst = append(dst, byte(n>>8), byte(n))
	}
	return dst
}

// DecodeIAmRouterToNetwork parses the list of DNETs carried in an
// I-Am-Router-To-Network message body.
func DecodeIAmRouterToNetwork(body []byte) []uint16 {
	var nets []uint16
	for len(body) >= 2 {
		nets = append(nets, binary.BigEndian.Uint16(body))
		body = body[2:]
	}
	return nets
}

// Package npdu implements the BACnet Network Protocol Data Unit codec
// (ASHRAE 135 clause 6) and the routing core: reply matching, the
// forwarding decision, and Who-Is/I-Am-Router-To-Network DNET learning.
package npdu

// Address is a link-layer-agnostic address record: MAC bytes
// (the link-local address, 6 bytes for IP, 1 for MS/TP) and an optional
// routed network/station address.
type Address struct {
	MAC []byte
	Net uint16
	Adr []byte
}

// Network number sentinels.
const (
	NetworkLocal     = 0
	NetworkBroadcast = 0xFFFF
)

// IsGlobalBroadcast reports whether a is the global broadcast address.
func (a Address) IsGlobalBroadcast() bool { return a.Net == NetworkBroadcast }

// IsLocal reports whether a addresses a station on the local segment
// (no DNET/DADR carried).
func (a Address) IsLocal() bool { return a.Net == NetworkLocal }

// Equal compares two addresses for routing-table purposes (MAC bytes,
// network number, and routed address bytes).
func (a Address) Equal(b Address) bool {
	if a.Net != b.Net {
		return false
	}
	if !bytesEqual(a.MAC, b.MAC) {
		return false
	}
	return bytesEqual(a.Adr, b.Adr)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

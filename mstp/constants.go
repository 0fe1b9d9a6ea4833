// Package mstp implements the MS/TP (Master-Slave/Token-Passing) data-link
// layer over RS-485: a byte-oriented receive-frame state machine, CRC-8
// header / CRC-16 data checks, and the master-node token-passing state
// machine (Poll-For-Master discovery, token pass/use, sole-master
// fallback), per ASHRAE 135 clause 9 and Annex G.
package mstp

import "time"

// Timing constants, all expressed in milliseconds on the wire but kept
// here as time.Duration so callers never have to remember the unit.
const (
	// Tframe_abort is the maximum time between octets of a frame; if
	// exceeded mid-frame the receive FSM discards what it has.
	Tframe_abort = 60 * time.Millisecond
	// Tno_token is the time an Idle node waits without seeing a token
	// before assuming the token has been lost.
	Tno_token = 500 * time.Millisecond
	// Tslot is the per-station offset added to Tno_token so that only
	// one node generates a replacement token.
	Tslot = 10 * time.Millisecond
	// Tusage_timeout is how long a node waits for bus activity after
	// passing the token before assuming the next station is absent.
	Tusage_timeout = 20 * time.Millisecond
	// Treply_timeout bounds how long the token holder waits for a
	// reply to a DataExpectingReply frame it sent.
	Treply_timeout = 255 * time.Millisecond
	// Treply_delay bounds how long a node may take to reply to a
	// DataExpectingReply frame addressed to it.
	Treply_delay = 250 * time.Millisecond
	// Tpostdrive is the line-turnaround guard after transmitting,
	// before the driver may be released to receive.
	Tpostdrive = 15 * time.Millisecond
)

// Addressing bounds. Master-node addresses occupy 0..127; 128..254 are
// slave addresses (not implemented by this node); 255 is broadcast.
const (
	MinMasterAddress = 0
	MaxMasterAddress = 127
	BroadcastAddress = 255
)

// DefaultMaxMaster is the highest master address this node will poll
// for during Poll-For-Master, absent a narrower configuration.
const DefaultMaxMaster = MaxMasterAddress

// DefaultMaxInfoFrames is the number of data frames a token holder may
// send before it must pass the token on.
const DefaultMaxInfoFrames = 1

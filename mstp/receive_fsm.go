package mstp

import "time"

// ReceiveState names the states of the byte-oriented receive FSM.
type ReceiveState int

const (
	ReceiveIdle ReceiveState = iota
	ReceivePreamble
	ReceiveHeader
	ReceiveHeaderCRC
	ReceiveData
	ReceiveDataCRC
	ReceiveDoneValid
	ReceiveDoneInvalid
)

// ReceiveFSM assembles frames one byte at a time off the UART, per the
// Idle -> Preamble -> Header -> HeaderCRC -> Data -> DataCRC ->
// DoneValid|DoneInvalid byte-driven state chain. A stalled frame (no
// byte for Tframe_abort) is discarded: the FSM moves to DoneInvalid and
// returns to Idle when TakeInvalidFrame is called.
type ReceiveFSM struct {
	state   ReceiveState
	silence time.Duration

	header    [5]byte
	headerLen int
	dataLen   int
	data      []byte

	frame Frame

	receivedValid   bool
	receivedInvalid bool
}

// NewReceiveFSM returns a receive FSM in the Idle state.
func NewReceiveFSM() *ReceiveFSM {
	return &ReceiveFSM{state: ReceiveIdle}
}

// State returns the FSM's current state, mainly for tests and
// diagnostics.
func (r *ReceiveFSM) State() ReceiveState { return r.state }

// Tick advances the silence timer by delta; called once per
// millisecond tick regardless of whether a byte also arrived that
// tick. A stall while mid-frame discards the partial frame.
func (r *ReceiveFSM) Tick(delta time.Duration) {
	if r.state == ReceiveIdle || r.state == ReceivePreamble {
		return
	}
	r.silence += delta
	if r.silence >= Tframe_abort {
		r.abort()
	}
}

func (r *ReceiveFSM) abort() {
	r.state = ReceiveDoneInvalid
	r.receivedInvalid = true
}

// PutByte feeds one received octet into the FSM.
func (r *ReceiveFSM) PutByte(b byte) {
	r.silence = 0
	switch r.state {
	case ReceiveIdle:
		if b == preamble[0] {
			r.state = ReceivePreamble
		}
	case ReceivePreamble:
		if b == preamble[1] {
			r.state = ReceiveHeader
			r.headerLen = 0
		} else if b != preamble[0] {
			r.state = ReceiveIdle
		}
	case ReceiveHeader:
		r.header[r.headerLen] = b
		r.headerLen++
		if r.headerLen == 5 {
			r.state = ReceiveHeaderCRC
		}
	case ReceiveHeaderCRC:
		buf := append(append([]byte(nil), r.header[:]...), b)
		if !ValidHeaderCRC(buf) {
			r.state = ReceiveDoneInvalid
			r.receivedInvalid = true
			return
		}
		r.frame = Frame{
			Type: FrameType(r.header[0]),
			Dest: r.header[1],
			Src:  r.header[2],
		}
		r.dataLen = int(r.header[3])<<8 | int(r.header[4])
		if r.dataLen == 0 {
			r.state = ReceiveDoneValid
			r.receivedValid = true
			return
		}
		r.data = make([]byte, 0, r.dataLen+2)
		r.state = ReceiveData
	case ReceiveData:
		r.data = append(r.data, b)
		if len(r.data) == r.dataLen {
			r.state = ReceiveDataCRC
		}
	case ReceiveDataCRC:
		r.data = append(r.data, b)
		if len(r.data) == r.dataLen+2 {
			if ValidDataCRC(r.data) {
				r.frame.Data = append([]byte(nil), r.data[:r.dataLen]...)
				r.state = ReceiveDoneValid
				r.receivedValid = true
			} else {
				r.state = ReceiveDoneInvalid
				r.receivedInvalid = true
			}
		}
	}
}

// TakeValidFrame returns the most recently completed valid frame and
// clears the pending flag, resetting the FSM to Idle for the next
// frame. Returns ok==false if no valid frame is pending.
func (r *ReceiveFSM) TakeValidFrame() (Frame, bool) {
	if !r.receivedValid {
		return Frame{}, false
	}
	f := r.frame
	r.reset()
	return f, true
}

// TakeInvalidFrame clears a pending invalid-frame flag, returning
// whether one was pending.
func (r *ReceiveFSM) TakeInvalidFrame() bool {
	if !r.receivedInvalid {
		return false
	}
	r.reset()
	return true
}

func (r *ReceiveFSM) reset() {
	r.state = ReceiveIdle
	r.receivedValid = false
	r.receivedInvalid = false
	r.data = nil
	r.headerLen = 0
	r.silence = 0
}

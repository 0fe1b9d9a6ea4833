package mstp

import "time"

// MasterState names the states of the master-node token-passing FSM.
type MasterState int

const (
	StateInitialize MasterState = iota
	StateIdle
	StateUseToken
	StateWaitForReply
	StateDoneWithToken
	StatePassToken
	StatePollForMaster
	StateAnsweringRequest
)

// Transmitter writes one fully encoded frame onto the RS-485 bus. It is
// the send half of the driver-contract boundary: the node calls it
// once per outgoing frame and does not buffer beyond that.
type Transmitter interface {
	WriteFrame(data []byte) error
}

// NetworkSink receives the payload of a data frame (BACnet Data
// Expecting/Not Expecting Reply) addressed to this station or
// broadcast, handing it up to the network layer.
type NetworkSink interface {
	Deliver(src uint8, expectingReply bool, payload []byte)
}

// SendQueue supplies the next outbound NPDU when this node holds the
// token, mirroring the token holder pulling queued PDUs one at a time
// rather than a push-based send path.
type SendQueue interface {
	Next(maxLen int) (dest uint8, expectingReply bool, payload []byte, ok bool)
}

// Node is one master-node token-passing state machine instance. A Node
// is not goroutine-safe; callers drive it from a single loop, feeding
// it valid frames from a ReceiveFSM and millisecond ticks from a
// shared timer.
type Node struct {
	ThisStation   uint8
	MaxMaster     uint8
	MaxInfoFrames uint8

	tx    Transmitter
	sink  NetworkSink
	queue SendQueue

	state   MasterState
	silence time.Duration

	nextStation uint8
	pollStation uint8
	soleMaster  bool
	retryCount  int
	framesSent  int

	waitDest uint8 // station this node is waiting on a reply from
}

// NewNode constructs a Node. maxMaster and maxInfoFrames fall back to
// their package defaults when zero.
func NewNode(thisStation uint8, maxMaster, maxInfoFrames uint8, tx Transmitter, sink NetworkSink, queue SendQueue) *Node {
	if maxMaster == 0 {
		maxMaster = DefaultMaxMaster
	}
	if maxInfoFrames == 0 {
		maxInfoFrames = DefaultMaxInfoFrames
	}
	return &Node{
		ThisStation:   thisStation,
		MaxMaster:     maxMaster,
		MaxInfoFrames: maxInfoFrames,
		tx:            tx,
		sink:          sink,
		queue:         queue,
		state:         StateInitialize,
		nextStation:   thisStation,
	}
}

// State returns the node's current FSM state.
func (n *Node) State() MasterState { return n.state }

// SoleMaster reports whether this node has asserted sole-master
// status after a complete Poll-For-Master scan drew no reply.
func (n *Node) SoleMaster() bool { return n.soleMaster }

func (n *Node) nextAfter(station uint8) uint8 {
	if station >= n.MaxMaster {
		return 0
	}
	return station + 1
}

func (n *Node) send(f Frame) {
	if n.tx == nil {
		return
	}
	_ = n.tx.WriteFrame(Encode(nil, f))
}

// Tick advances the FSM by one scheduler step of length delta. It is
// intended to be called from the 1-ms timer loop shared with the
// receive FSM's own Tick.
func (n *Node) Tick(delta time.Duration) {
	n.silence += delta
	switch n.state {
	case StateInitialize:
		if n.silence >= Tno_token*2 {
			n.state = StateIdle
			n.silence = 0
		}
	case StateIdle:
		if !n.soleMaster && n.silence >= Tno_token+Tslot*time.Duration(n.ThisStation) {
			n.claimToken()
		}
	case StateWaitForReply:
		if n.silence >= Treply_timeout {
			n.state = StateDoneWithToken
			n.silence = 0
		}
	case StateDoneWithToken:
		n.passOrContinue()
	case StatePassToken:
		if n.silence >= Tusage_timeout {
			if n.retryCount == 0 {
				n.retryCount++
				n.send(Frame{Type: FrameToken, Dest: n.nextStation, Src: n.ThisStation})
				n.silence = 0
			} else {
				n.retryCount = 0
				n.beginPollForMaster()
			}
		}
	case StatePollForMaster:
		if n.silence >= Tusage_timeout {
			n.advancePoll()
		}
	case StateAnsweringRequest:
		if n.silence >= Treply_delay {
			n.send(Frame{Type: FrameReplyPostponed, Dest: n.waitDest, Src: n.ThisStation})
			n.state = StateIdle
			n.silence = 0
		}
	}
}

// claimToken is the NoToken transition: once silence has exceeded
// Tno_token plus this station's slot offset, the node enters UseToken
// directly (no Token frame is transmitted), without asserting
// sole-master (a peer may still answer a subsequent poll).
func (n *Node) claimToken() {
	n.state = StateUseToken
	n.framesSent = 0
	n.silence = 0
}

// passOrContinue decides, once a data exchange under the current
// token hold has finished, whether to use the token again (fewer than
// MaxInfoFrames sent; UseToken ends the hold early when nothing is
// queued) or pass it on.
func (n *Node) passOrContinue() {
	if n.framesSent < int(n.MaxInfoFrames) {
		n.state = StateUseToken
		return
	}
	n.state = StatePassToken
	n.nextStation = n.nextAfter(n.ThisStation)
	n.retryCount = 0
	n.send(Frame{Type: FrameToken, Dest: n.nextStation, Src: n.ThisStation})
	n.silence = 0
}

func (n *Node) beginPollForMaster() {
	n.state = StatePollForMaster
	n.pollStation = n.nextAfter(n.ThisStation)
	n.send(Frame{Type: FramePollForMaster, Dest: n.pollStation, Src: n.ThisStation})
	n.silence = 0
}

// advancePoll steps the Poll-For-Master scan to the next candidate
// station, and asserts sole-master once the scan wraps back to this
// station's own address having drawn no reply.
func (n *Node) advancePoll() {
	next := n.nextAfter(n.pollStation)
	if next == n.ThisStation {
		n.soleMaster = true
		n.nextStation = n.ThisStation
		n.state = StateUseToken
		n.framesSent = 0
		n.silence = 0
		return
	}
	n.pollStation = next
	n.send(Frame{Type: FramePollForMaster, Dest: n.pollStation, Src: n.ThisStation})
	n.silence = 0
}

// UseToken is the body of the UseToken state: send the next queued
// PDU, if any. If nothing is queued it ends the hold, so DoneWithToken
// passes the token on (a sole master keeps it).
func (n *Node) UseToken() {
	if n.state != StateUseToken {
		return
	}
	if n.queue == nil {
		if !n.soleMaster {
			n.framesSent = int(n.MaxInfoFrames)
		}
		n.state = StateDoneWithToken
		n.silence = 0
		return
	}
	dest, expectingReply, payload, ok := n.queue.Next(int(^uint16(0)))
	if !ok {
		if !n.soleMaster {
			n.framesSent = int(n.MaxInfoFrames)
		}
		n.state = StateDoneWithToken
		n.silence = 0
		return
	}
	frameType := FrameBACnetDataNotExpectReply
	if expectingReply {
		frameType = FrameBACnetDataExpectingReply
	}
	n.send(Frame{Type: frameType, Dest: dest, Src: n.ThisStation, Data: payload})
	n.framesSent++
	if expectingReply {
		n.waitDest = dest
		n.state = StateWaitForReply
		n.silence = 0
		return
	}
	n.state = StateDoneWithToken
	n.silence = 0
}

// HandleFrame processes one valid frame delivered by the receive FSM.
// Any valid frame resets the silence timer regardless of addressing,
// since silence_ms measures time since the bus was last heard from.
func (n *Node) HandleFrame(f Frame) {
	n.silence = 0
	switch n.state {
	case StateInitialize:
		n.state = StateIdle
	case StateIdle:
		n.handleIdleFrame(f)
	case StateWaitForReply:
		n.handleWaitForReplyFrame(f)
	case StatePassToken:
		// bus activity means the successor took the token: go Idle and
		// handle the frame there, since it may be addressed to us.
		n.retryCount = 0
		n.state = StateIdle
		n.handleIdleFrame(f)
	case StatePollForMaster:
		if f.Type == FrameReplyToPollForMaster && f.Dest == n.ThisStation {
			n.nextStation = f.Src
			n.retryCount = 0
			n.send(Frame{Type: FrameToken, Dest: n.nextStation, Src: n.ThisStation})
			n.state = StatePassToken
			n.silence = 0
		}
	}
}

func (n *Node) handleIdleFrame(f Frame) {
	if f.Dest != n.ThisStation && f.Dest != BroadcastAddress {
		return
	}
	switch f.Type {
	case FrameToken:
		if f.Dest == n.ThisStation {
			n.state = StateUseToken
			n.framesSent = 0
		}
	case FramePollForMaster:
		if f.Dest == n.ThisStation {
			n.send(Frame{Type: FrameReplyToPollForMaster, Dest: f.Src, Src: n.ThisStation})
		}
	case FrameBACnetDataExpectingReply:
		if n.sink != nil {
			n.sink.Deliver(f.Src, true, f.Data)
		}
		n.waitDest = f.Src
		n.state = StateAnsweringRequest
	case FrameBACnetDataNotExpectReply:
		if n.sink != nil {
			n.sink.Deliver(f.Src, false, f.Data)
		}
	}
}

func (n *Node) handleWaitForReplyFrame(f Frame) {
	if f.Src != n.waitDest {
		return
	}
	if f.Type == FrameReplyPostponed {
		return // silence already reset above; keep waiting
	}
	if n.sink != nil {
		n.sink.Deliver(f.Src, false, f.Data)
	}
	n.state = StateDoneWithToken
}

// Reply submits a reply frame for a request this node answered while
// in AnsweringRequest, sending it immediately if still within budget.
func (n *Node) Reply(payload []byte) {
	if n.state != StateAnsweringRequest {
		return
	}
	n.send(Frame{Type: FrameBACnetDataNotExpectReply, Dest: n.waitDest, Src: n.ThisStation, Data: payload})
	n.state = StateIdle
	n.silence = 0
}

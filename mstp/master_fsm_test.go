package mstp

import (
	"testing"
	"time"
)

type fakeTransmitter struct {
	sent []Frame
}

func (f *fakeTransmitter) WriteFrame(data []byte) error {
	hdr, dataLen, err := DecodeHeader(data[2:8])
	if err != nil {
		return err
	}
	if dataLen > 0 {
		body, err := DecodeData(data[8:], dataLen)
		if err != nil {
			return err
		}
		hdr.Data = body
	}
	f.sent = append(f.sent, hdr)
	return nil
}

func (f *fakeTransmitter) last() (Frame, bool) {
	if len(f.sent) == 0 {
		return Frame{}, false
	}
	return f.sent[len(f.sent)-1], true
}

type fakeSink struct {
	delivered []byte
}

func (s *fakeSink) Deliver(_ uint8, _ bool, payload []byte) {
	s.delivered = append(s.delivered, payload...)
}

type fakeQueue struct {
	pending [][]byte
	dest    uint8
}

func (q *fakeQueue) Next(int) (uint8, bool, []byte, bool) {
	if len(q.pending) == 0 {
		return 0, false, nil, false
	}
	p := q.pending[0]
	q.pending = q.pending[1:]
	return q.dest, true, p, true
}

// TestIdleNodeClaimsTokenAfterSilence checks a node observing the bus
// with no token traffic eventually generates its own token once
// Tno_token plus its slot offset has elapsed with nothing heard.
func TestIdleNodeClaimsTokenAfterSilence(t *testing.T) {
	tx := &fakeTransmitter{}
	n := NewNode(5, 10, 1, tx, nil, nil)
	n.state = StateIdle

	elapsed := time.Duration(0)
	step := time.Millisecond
	deadline := Tno_token + Tslot*5 + 5*time.Millisecond
	for elapsed < deadline {
		n.Tick(step)
		elapsed += step
		if n.State() == StateUseToken {
			break
		}
	}
	if n.State() != StateUseToken {
		t.Fatalf("node never claimed the token, state=%v", n.State())
	}
}

// TestPollForMasterAssertsSoleMasterAfterFullScan drives a node through
// PassToken -> PollForMaster with no replies and checks it ends up
// holding the token as sole master.
func TestPollForMasterAssertsSoleMasterAfterFullScan(t *testing.T) {
	tx := &fakeTransmitter{}
	n := NewNode(1, 3, 1, tx, nil, nil)
	n.state = StatePassToken
	n.nextStation = 2
	n.retryCount = 1 // already retried once

	// First Tusage_timeout: retries exhausted, enters PollForMaster.
	n.Tick(Tusage_timeout)
	if n.State() != StatePollForMaster {
		t.Fatalf("state = %v, want PollForMaster", n.State())
	}

	// Station 2 was polled on entry; scan 3 and 0, then wrap to 1
	// (itself) with no replies.
	for i := 0; i < 3 && n.State() == StatePollForMaster; i++ {
		n.Tick(Tusage_timeout)
	}

	if !n.SoleMaster() {
		t.Fatal("expected sole-master to be asserted after a full scan")
	}
	if n.State() != StateUseToken {
		t.Fatalf("state = %v, want UseToken after asserting sole master", n.State())
	}
}

// TestTokenReceivedForThisStationEntersUseToken checks a node sitting
// Idle that receives a Token frame addressed to it starts using it.
func TestTokenReceivedForThisStationEntersUseToken(t *testing.T) {
	n := NewNode(4, 10, 1, &fakeTransmitter{}, nil, nil)
	n.state = StateIdle
	n.HandleFrame(Frame{Type: FrameToken, Dest: 4, Src: 3})
	if n.State() != StateUseToken {
		t.Fatalf("state = %v, want UseToken", n.State())
	}
}

// TestUseTokenSendsQueuedDataExpectingReplyAndWaits checks that holding
// the token with a queued confirmed request sends it and transitions
// to WaitForReply.
func TestUseTokenSendsQueuedDataExpectingReplyAndWaits(t *testing.T) {
	tx := &fakeTransmitter{}
	q := &fakeQueue{pending: [][]byte{{0xAA, 0xBB}}, dest: 9}
	n := NewNode(4, 10, 1, tx, nil, q)
	n.state = StateUseToken

	n.UseToken()

	if n.State() != StateWaitForReply {
		t.Fatalf("state = %v, want WaitForReply", n.State())
	}
	sent, ok := tx.last()
	if !ok || sent.Type != FrameBACnetDataExpectingReply || sent.Dest != 9 {
		t.Fatalf("sent = %+v, ok=%v", sent, ok)
	}
}

// TestWaitForReplyTimesOutToDoneWithToken checks the Treply_timeout
// bound fires when no reply arrives.
func TestWaitForReplyTimesOutToDoneWithToken(t *testing.T) {
	n := NewNode(4, 10, 1, &fakeTransmitter{}, nil, nil)
	n.state = StateWaitForReply
	n.waitDest = 9

	n.Tick(Treply_timeout)
	if n.State() != StateDoneWithToken {
		t.Fatalf("state = %v, want DoneWithToken", n.State())
	}
}

// TestIdleNodeAnswersDataExpectingReplyAndRepliesWithinBudget checks the
// AnsweringRequest role: a data frame addressed to this station is
// delivered to the network sink, and a reply submitted before
// Treply_delay elapses is sent immediately.
func TestIdleNodeAnswersDataExpectingReplyAndRepliesWithinBudget(t *testing.T) {
	tx := &fakeTransmitter{}
	sink := &fakeSink{}
	n := NewNode(4, 10, 1, tx, sink, nil)
	n.state = StateIdle

	n.HandleFrame(Frame{Type: FrameBACnetDataExpectingReply, Dest: 4, Src: 9, Data: []byte{1}})
	if n.State() != StateAnsweringRequest {
		t.Fatalf("state = %v, want AnsweringRequest", n.State())
	}
	if len(sink.delivered) != 1 {
		t.Fatalf("sink did not receive the request payload")
	}

	n.Reply([]byte{2, 3})
	if n.State() != StateIdle {
		t.Fatalf("state after Reply = %v, want Idle", n.State())
	}
	sent, ok := tx.last()
	if !ok || sent.Dest != 9 {
		t.Fatalf("reply not sent to requester: %+v", sent)
	}
}

// TestAnsweringRequestSendsReplyPostponedOnBudgetExpiry checks a node
// that cannot answer within Treply_delay sends Reply-Postponed instead
// of leaving the requester hanging.
func TestAnsweringRequestSendsReplyPostponedOnBudgetExpiry(t *testing.T) {
	tx := &fakeTransmitter{}
	n := NewNode(4, 10, 1, tx, &fakeSink{}, nil)
	n.state = StateIdle
	n.HandleFrame(Frame{Type: FrameBACnetDataExpectingReply, Dest: 4, Src: 9})

	n.Tick(Treply_delay)

	if n.State() != StateIdle {
		t.Fatalf("state = %v, want Idle after postponing", n.State())
	}
	sent, ok := tx.last()
	if !ok || sent.Type != FrameReplyPostponed {
		t.Fatalf("expected ReplyPostponed, got %+v", sent)
	}
}

package mstp

import (
	"sync"

	"github.com/edgeo/bacnet-router/npdu"
)

// outgoingFrame is one queued NPDU awaiting its turn at the token.
type outgoingFrame struct {
	dest           uint8
	expectingReply bool
	payload        []byte
}

// chanQueue is a SendQueue backed by a slice with no length limit,
// guarded by a mutex, fed by NodeDatalink.Send and drained by the Node when it
// holds the token. This is the Go counterpart of MSTP_Get_Send's
// outgoing ring buffer in dlmstp.c.
type chanQueue struct {
	mu      sync.Mutex
	pending []outgoingFrame
}

func (q *chanQueue) push(f outgoingFrame) {
	q.mu.Lock()
	q.pending = append(q.pending, f)
	q.mu.Unlock()
}

func (q *chanQueue) Next(maxLen int) (dest uint8, expectingReply bool, payload []byte, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return 0, false, nil, false
	}
	f := q.pending[0]
	q.pending = q.pending[1:]
	return f.dest, f.expectingReply, f.payload, true
}

// chanSink is a NetworkSink that buffers delivered payloads for
// NodeDatalink.Receive to drain, the counterpart of MSTP_Put_Receive's
// inbound ring buffer.
type chanSink struct {
	mu      sync.Mutex
	pending []received
}

type received struct {
	src     uint8
	payload []byte
}

func (s *chanSink) Deliver(src uint8, expectingReply bool, payload []byte) {
	s.mu.Lock()
	s.pending = append(s.pending, received{src: src, payload: payload})
	s.mu.Unlock()
}

func (s *chanSink) pop() (received, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return received{}, false
	}
	r := s.pending[0]
	s.pending = s.pending[1:]
	return r, true
}

// NodeDatalink adapts a Node and its Port to the router package's
// Datalink contract: Send enqueues an outbound NPDU for the token
// holder to transmit, Receive drains payloads the node has already
// delivered up from the bus.
//
// Structurally, not by import, this satisfies router.Datalink: its
// method set is (Receive() (npdu.Address, []byte, bool, error),
// Send(npdu.Address, []byte) error, Close() error).
type NodeDatalink struct {
	Node   *Node
	Port   *Port
	queue  *chanQueue
	sink   *chanSink
	closer func() error
}

// NewNodeDatalink builds a Node/Port pair over tx/src and wraps them as
// a Datalink. closer is called by Close, typically the underlying
// serial port's Close.
func NewNodeDatalink(thisStation uint8, maxMaster, maxInfoFrames uint8, tx Transmitter, src ByteSource, closer func() error) *NodeDatalink {
	q := &chanQueue{}
	s := &chanSink{}
	node := NewNode(thisStation, maxMaster, maxInfoFrames, tx, s, q)
	return &NodeDatalink{
		Node:   node,
		Port:   NewPort(src, node),
		queue:  q,
		sink:   s,
		closer: closer,
	}
}

// Receive drains one payload the node has already delivered from the
// bus, if any. It never blocks: frame assembly happens on Port.Run's
// own goroutines.
func (d *NodeDatalink) Receive() (npdu.Address, []byte, bool, error) {
	r, ok := d.sink.pop()
	if !ok {
		return npdu.Address{}, nil, false, nil
	}
	return npdu.Address{MAC: []byte{r.src}}, r.payload, true, nil
}

// Send enqueues pdu for transmission to dest the next time this node
// holds the token. An empty dest.MAC means broadcast.
func (d *NodeDatalink) Send(dest npdu.Address, pdu []byte) error {
	station := uint8(BroadcastAddress)
	if len(dest.MAC) > 0 {
		station = dest.MAC[0]
	}
	d.queue.push(outgoingFrame{dest: station, expectingReply: false, payload: pdu})
	return nil
}

// Close releases the underlying serial port, if a closer was given.
func (d *NodeDatalink) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

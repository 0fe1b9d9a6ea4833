package mstp

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// ByteSource is the read half of the RS-485 driver-contract boundary:
// ReadByte blocks up to timeout for the next received octet, returning
// ok==false on timeout with no error. This mirrors the UART polling
// loop that feeds MSTP_Put_Receive one octet at a time.
type ByteSource interface {
	ReadByte(timeout time.Duration) (b byte, ok bool, err error)
}

// Port wires a ByteSource/Transmitter pair to a ReceiveFSM and a Node,
// running the three-task model: byte-driven frame assembly, the
// master-node FSM, and the shared millisecond timer. This is the Go
// equivalent of the receive-FSM thread, master-FSM thread, and
// millisecond-timer thread driven from the same RS-485 port.
type Port struct {
	Recv *ReceiveFSM
	Node *Node
	src  ByteSource
}

// NewPort builds a Port over a ByteSource, a pre-built Node (which
// already owns its Transmitter/NetworkSink/SendQueue), and a fresh
// receive FSM.
func NewPort(src ByteSource, node *Node) *Port {
	return &Port{Recv: NewReceiveFSM(), Node: node, src: src}
}

// pollInterval bounds how long each ReadByte call may block, so the
// receive task still gets a chance to call Tick even with no traffic.
const pollInterval = 5 * time.Millisecond

// Run drives the port until ctx is cancelled. It spawns the receive
// task and the millisecond timer task as goroutines under an errgroup
// and blocks until both exit; the caller's context cancellation is the
// only normal exit path.
func (p *Port) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.runReceive(ctx) })
	g.Go(func() error { return p.runTimer(ctx) })

	return g.Wait()
}

func (p *Port) runReceive(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		b, ok, err := p.src.ReadByte(pollInterval)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		p.Recv.PutByte(b)
		if f, valid := p.Recv.TakeValidFrame(); valid {
			p.Node.HandleFrame(f)
		} else if p.Recv.TakeInvalidFrame() {
			// malformed frame discarded; the master FSM's own silence
			// timer will eventually notice the bus went quiet if this
			// was in fact a lost token.
		}
	}
}

func (p *Port) runTimer(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Recv.Tick(time.Millisecond)
			p.Node.Tick(time.Millisecond)
			if p.Node.State() == StateUseToken {
				p.Node.UseToken()
			}
		}
	}
}

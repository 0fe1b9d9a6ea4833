package router

import (
	"context"
	"log/slog"

	"github.com/edgeo/bacnet-router/npdu"
)

// RunWorker drives one port's worker loop: forward frames arriving off
// the datalink to mainBox as Data messages, and transmit Data messages
// the main loop hands back to this port's own mailbox, until a
// Shutdown service message arrives or ctx is cancelled.
//
// This is the Go counterpart of the per-port pthread loop
// (dl_mstp_thread / the BACnet/IP port thread): one thread per port,
// reading from the datalink and writing to the shared main mailbox.
func RunWorker(ctx context.Context, p *Port, mainBox *Mailbox, log *slog.Logger) {
	p.State = PortRunning
	defer func() { p.State = PortFinished }()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.PortBox.Recv():
			if !p.handleInbound(msg, log) {
				return
			}
			continue
		default:
		}

		src, pdu, ok, err := p.dl.Receive()
		if err != nil {
			log.Error("datalink receive failed", slog.Int("port", int(p.ID)), slog.String("error", err.Error()))
			continue
		}
		if !ok {
			continue
		}

		buf := NewBuffer(npdu.Address{}, src, pdu)
		mainBox.Send(Message{Type: MessageData, Origin: MailboxID(p.ID), Data: buf})
	}
}

// handleInbound processes one message addressed to this port's own
// mailbox: either a Service command from the main loop, or a Data
// message the main loop is handing back for transmission. It returns
// false when the worker should exit (a Shutdown command).
func (p *Port) handleInbound(msg Message, log *slog.Logger) bool {
	switch msg.Type {
	case MessageService:
		switch msg.Service {
		case ServiceShutdown:
			return false
		case ServiceChangeIP, ServiceChangeMAC:
			// interface reconfiguration is out of scope for the worker
			// loop itself; the caller rebuilds the Datalink and Port.
		}
		return true
	case MessageData:
		if msg.Data == nil {
			return true
		}
		if err := p.dl.Send(msg.Data.Dest, msg.Data.PDU); err != nil {
			log.Error("datalink send failed", slog.Int("port", int(p.ID)), slog.String("error", err.Error()))
		}
		msg.Data.Release()
		return true
	}
	return true
}

// Package transport provides the BACnet/IP UDP transport: a
// Datalink implementation the router's BIP port worker drives, wrapping
// BVLC framing around a UDP socket.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/edgeo/bacnet-router/bvlc"
	"github.com/edgeo/bacnet-router/npdu"
)

// UDPTransport implements BACnet/IP transport over UDP, framing every
// NPDU in a BVLC Original-Unicast/Original-Broadcast-NPDU wrapper.
type UDPTransport struct {
	localAddr string

	mu           sync.RWMutex
	conn         *net.UDPConn
	readTimeout  time.Duration
	writeTimeout time.Duration
	closed       bool
}

// NewUDPTransport returns a transport bound to localAddr (host:port,
// or ":47808" to listen on every interface) once Open is called.
func NewUDPTransport(localAddr string) *UDPTransport {
	return &UDPTransport{
		localAddr:    localAddr,
		readTimeout:  3 * time.Second,
		writeTimeout: 3 * time.Second,
	}
}

// SetReadTimeout sets the default read timeout used when Receive is
// called without a context deadline.
func (t *UDPTransport) SetReadTimeout(d time.Duration) {
	t.mu.Lock()
	t.readTimeout = d
	t.mu.Unlock()
}

// Open opens the UDP socket.
func (t *UDPTransport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}
	var addr *net.UDPAddr
	var err error
	if t.localAddr != "" {
		addr, err = net.ResolveUDPAddr("udp4", t.localAddr)
		if err != nil {
			return fmt.Errorf("resolve local address: %w", err)
		}
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("listen UDP: %w", err)
	}
	t.conn = conn
	t.closed = false
	return nil
}

// Close closes the UDP socket.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil || t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

// SendUnicast wraps npdu in an Original-Unicast-NPDU BVLC message and
// sends it to addr.
func (t *UDPTransport) SendUnicast(ctx context.Context, addr *net.UDPAddr, npduBytes []byte) error {
	return t.sendRaw(ctx, addr, bvlc.AppendOriginalUnicastNPDU(nil, npduBytes))
}

// SendBroadcast wraps npdu in an Original-Broadcast-NPDU BVLC message
// and sends it to the IPv4 limited broadcast address on port.
func (t *UDPTransport) SendBroadcast(ctx context.Context, port int, npduBytes []byte) error {
	addr := &net.UDPAddr{IP: net.IPv4bcast, Port: port}
	return t.sendRaw(ctx, addr, bvlc.AppendOriginalBroadcastNPDU(nil, npduBytes))
}

// SendForwarded relays npdu to addr wrapped as a Forwarded-NPDU on
// behalf of origin, the BBMD fan-out path.
func (t *UDPTransport) SendForwarded(ctx context.Context, addr, origin *net.UDPAddr, npduBytes []byte) error {
	return t.sendRaw(ctx, addr, bvlc.AppendForwardedNPDU(nil, origin, npduBytes))
}

func (t *UDPTransport) sendRaw(ctx context.Context, addr *net.UDPAddr, data []byte) error {
	t.mu.RLock()
	conn := t.conn
	writeTimeout := t.writeTimeout
	t.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("transport not open")
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	n, err := conn.WriteToUDP(data, addr)
	if err != nil {
		return fmt.Errorf("write UDP: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("partial write: %d of %d bytes", n, len(data))
	}
	return nil
}

// Received is one decoded inbound BVLC message with its peer address.
type Received struct {
	Peer *net.UDPAddr
	BVLC bvlc.Message
}

// Receive blocks until the context deadline (or, when ctx has none, for
// the read timeout) for one inbound UDP datagram and decodes its BVLC
// header.
func (t *UDPTransport) Receive(ctx context.Context) (Received, error) {
	t.mu.RLock()
	conn := t.conn
	readTimeout := t.readTimeout
	t.mu.RUnlock()
	if conn == nil {
		return Received{}, fmt.Errorf("transport not open")
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(readTimeout)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return Received{}, fmt.Errorf("set read deadline: %w", err)
	}
	buf := make([]byte, 1500)
	n, addr, err := conn.ReadFromUDP(buf)
	if err != nil {
		return Received{}, err
	}
	msg, err := bvlc.Decode(buf[:n])
	if err != nil {
		return Received{}, err
	}
	return Received{Peer: addr, BVLC: msg}, nil
}

// BIPDatalink adapts UDPTransport to router.Datalink: each Receive
// call decodes one BVLC message (non-blocking beyond pollTimeout) and
// surfaces its NPDU payload with the peer as the source address; Send
// wraps the outbound NPDU as an Original-Unicast-NPDU (or broadcast,
// when dest carries no MAC).
type BIPDatalink struct {
	T           *UDPTransport
	Port        int
	PollTimeout time.Duration
}

// Receive implements router.Datalink.
func (d *BIPDatalink) Receive() (npdu.Address, []byte, bool, error) {
	timeout := d.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	r, err := d.T.Receive(ctx)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return npdu.Address{}, nil, false, nil
		}
		return npdu.Address{}, nil, false, err
	}
	if r.BVLC.Payload == nil {
		return npdu.Address{}, nil, false, nil
	}
	mac := bvlc.AppendAddress(nil, r.Peer)
	return npdu.Address{MAC: mac}, r.BVLC.Payload, true, nil
}

// Send implements router.Datalink.
func (d *BIPDatalink) Send(dest npdu.Address, pdu []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if len(dest.MAC) == 0 {
		return d.T.SendBroadcast(ctx, d.Port, pdu)
	}
	addr, _, err := bvlc.DecodeAddress(dest.MAC)
	if err != nil {
		return err
	}
	return d.T.SendUnicast(ctx, addr, pdu)
}

// Close implements router.Datalink.
func (d *BIPDatalink) Close() error { return d.T.Close() }

// Package bacnet is a minimal BACnet/IP client built directly on the
// wire-layer packages a router port uses: bactag for primitives, apdu
// for the application layer, npdu for the network header, and
// transport for BVLC-framed UDP. It exists to drive Who-Is/I-Am
// discovery and ReadProperty/WriteProperty against a real device from
// the command line, not to reimplement a second copy of the codec.
package bacnet

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/edgeo/bacnet-router/apdu"
	"github.com/edgeo/bacnet-router/bacerr"
	"github.com/edgeo/bacnet-router/bactag"
	"github.com/edgeo/bacnet-router/metrics"
	"github.com/edgeo/bacnet-router/npdu"
	"github.com/edgeo/bacnet-router/object"
	"github.com/edgeo/bacnet-router/transport"
)

// DefaultPort is the standard BACnet/IP UDP port.
const DefaultPort = 47808

// Device is a remote device discovered by Who-Is/I-Am: enough to
// address it (Addr) and to size requests to what it can accept
// (MaxAPDU).
type Device struct {
	Instance     uint32
	Addr         *net.UDPAddr
	MaxAPDU      int
	Segmentation uint32
	VendorID     uint32
}

// Client is a single-outstanding-request BACnet/IP client: one socket,
// one Transaction State Machine, no concurrent request pipelining.
type Client struct {
	t       *transport.UDPTransport
	tsm     *apdu.TSM
	log     *slog.Logger
	met     *metrics.Registry
	retries int

	mu      sync.Mutex
	devices map[uint32]Device
}

// Option configures a Client at construction.
type Option func(*Client)

// WithLogger attaches a structured logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// WithMetrics counts discovered devices and request outcomes against reg.
func WithMetrics(reg *metrics.Registry) Option { return func(c *Client) { c.met = reg } }

// WithRetries sets the number of confirmed-request retransmissions
// before a request gives up. The default is 3.
func WithRetries(n int) Option { return func(c *Client) { c.retries = n } }

// NewClient opens a UDP socket bound to localAddr (":0" for an
// ephemeral port, or "" to let the OS choose) and returns a client
// ready to discover and query devices.
func NewClient(ctx context.Context, localAddr string, opts ...Option) (*Client, error) {
	c := &Client{
		t:       transport.NewUDPTransport(localAddr),
		tsm:     apdu.NewTSM(),
		log:     slog.Default(),
		retries: 3,
		devices: make(map[uint32]Device),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.t.Open(ctx); err != nil {
		return nil, fmt.Errorf("open transport: %w", err)
	}
	return c, nil
}

// Close releases the client's socket.
func (c *Client) Close() error { return c.t.Close() }

// Known returns the devices learned by a prior Discover call, keyed by
// device instance.
func (c *Client) Known() map[uint32]Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uint32]Device, len(c.devices))
	for k, v := range c.devices {
		out[k] = v
	}
	return out
}

// Discover broadcasts an unrestricted Who-Is and collects every I-Am
// reply that arrives within window.
func (c *Client) Discover(ctx context.Context, window time.Duration) ([]Device, error) {
	frame := npdu.Append(nil, npdu.NPDU{ExpectingReply: false})
	frame = apdu.AppendUnconfirmedRequest(frame, apdu.UnconfirmedRequest{Service: apdu.ServiceWhoIs})
	if err := c.t.SendBroadcast(ctx, DefaultPort, frame); err != nil {
		return nil, fmt.Errorf("broadcast who-is: %w", err)
	}

	deadline := time.Now().Add(window)
	var found []Device
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		rctx, cancel := context.WithTimeout(ctx, remaining)
		r, err := c.t.Receive(rctx)
		cancel()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return found, ctx.Err()
			}
			continue
		}
		dev, ok := c.handleIAm(r)
		if !ok {
			continue
		}
		found = append(found, dev)
	}
	if c.met != nil {
		c.met.KnownNetworks.Set(int64(len(c.Known())))
	}
	return found, nil
}

func (c *Client) handleIAm(r transport.Received) (Device, bool) {
	if r.BVLC.Payload == nil {
		return Device{}, false
	}
	n, _, err := npdu.Decode(r.BVLC.Payload)
	if err != nil || n.NetworkLayerMsg {
		return Device{}, false
	}
	a, err := apdu.Decode(n.Payload)
	if err != nil || a.Type != apdu.TypeUnconfirmedRequest || a.UnconfirmedRequest.Service != apdu.ServiceIAm {
		return Device{}, false
	}
	dev, err := decodeIAm(a.UnconfirmedRequest.Payload)
	if err != nil {
		c.log.Debug("malformed i-am", slog.Any("error", err))
		return Device{}, false
	}
	dev.Addr = r.Peer
	c.mu.Lock()
	c.devices[dev.Instance] = dev
	c.mu.Unlock()
	return dev, true
}

// decodeIAm parses the four application-tagged values of an I-Am
// payload: device object-identifier, max-apdu-length-accepted,
// segmentation-supported, vendor-identifier.
func decodeIAm(payload []byte) (Device, error) {
	oid, n, err := bactag.DecodeApplication(payload)
	if err != nil || oid.Tag != bactag.ObjectID {
		return Device{}, bacerr.ErrInvalidResponse
	}
	rest := payload[n:]

	maxAPDU, n2, err := bactag.DecodeApplication(rest)
	if err != nil {
		return Device{}, bacerr.ErrInvalidResponse
	}
	rest = rest[n2:]

	seg, n3, err := bactag.DecodeApplication(rest)
	if err != nil {
		return Device{}, bacerr.ErrInvalidResponse
	}
	rest = rest[n3:]

	vendor, _, err := bactag.DecodeApplication(rest)
	if err != nil {
		return Device{}, bacerr.ErrInvalidResponse
	}

	return Device{
		Instance:     oid.ObjID.Instance,
		MaxAPDU:      int(maxAPDU.Unsigned),
		Segmentation: seg.Enum,
		VendorID:     uint32(vendor.Unsigned),
	}, nil
}

// ReadProperty reads one property of one object on dev.
func (c *Client) ReadProperty(ctx context.Context, dev Device, objType object.Type, instance uint32, prop object.ID) (bactag.Value, error) {
	var payload []byte
	payload = bactag.AppendContext(payload, 0, bactag.Value{Tag: bactag.ObjectID, ObjID: bactag.ObjectIdentifier{Type: uint16(objType), Instance: instance}})
	payload = bactag.AppendContext(payload, 1, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: uint64(prop)})

	a, err := c.doConfirmed(ctx, dev, apdu.ServiceReadProperty, payload)
	if err != nil {
		return bactag.Value{}, err
	}
	if a.Type != apdu.TypeComplexAck {
		return bactag.Value{}, fmt.Errorf("read property: unexpected PDU type %v", a.Type)
	}
	return decodeReadPropertyAck(a.ComplexAck.Payload)
}

func decodeReadPropertyAck(payload []byte) (bactag.Value, error) {
	_, n, err := bactag.DecodeContextValue(payload, bactag.ObjectID)
	if err != nil {
		return bactag.Value{}, fmt.Errorf("read ack: object-id: %w", err)
	}
	rest := payload[n:]

	_, n2, err := bactag.DecodeContextValue(rest, bactag.UnsignedInt)
	if err != nil {
		return bactag.Value{}, fmt.Errorf("read ack: property-identifier: %w", err)
	}
	rest = rest[n2:]

	_, class, length, hlen, err := bactag.DecodeTagNumber(rest)
	if err != nil || class != bactag.ClassContext || length != bactag.LengthOpening {
		return bactag.Value{}, bacerr.ErrInvalidResponse
	}
	rest = rest[hlen:]

	val, _, err := bactag.DecodeApplication(rest)
	if err != nil {
		return bactag.Value{}, fmt.Errorf("read ack: value: %w", err)
	}
	return val, nil
}

// WriteProperty writes value to one property of one object on dev. A
// priority of 0 omits the priority parameter; this stack's commandable
// objects (object.AnalogValues) then command the value at priority 16,
// the lowest.
func (c *Client) WriteProperty(ctx context.Context, dev Device, objType object.Type, instance uint32, prop object.ID, value bactag.Value, priority int) error {
	var payload []byte
	payload = bactag.AppendContext(payload, 0, bactag.Value{Tag: bactag.ObjectID, ObjID: bactag.ObjectIdentifier{Type: uint16(objType), Instance: instance}})
	payload = bactag.AppendContext(payload, 1, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: uint64(prop)})
	payload = bactag.AppendOpeningTag(payload, 3)
	payload = bactag.AppendApplication(payload, value)
	payload = bactag.AppendClosingTag(payload, 3)
	if priority > 0 {
		payload = bactag.AppendContext(payload, 4, bactag.Value{Tag: bactag.UnsignedInt, Unsigned: uint64(priority)})
	}

	a, err := c.doConfirmed(ctx, dev, apdu.ServiceWriteProperty, payload)
	if err != nil {
		return err
	}
	if a.Type != apdu.TypeSimpleAck {
		return fmt.Errorf("write property: unexpected PDU type %v", a.Type)
	}
	return nil
}

// doConfirmed sends a confirmed request to dev and retransmits on the
// TSM's backoff schedule until a matching reply arrives, the retry
// budget is exhausted, or ctx is cancelled.
func (c *Client) doConfirmed(ctx context.Context, dev Device, service apdu.ConfirmedServiceChoice, payload []byte) (*apdu.APDU, error) {
	if dev.Addr == nil {
		return nil, fmt.Errorf("device %d has no known address (run Discover first)", dev.Instance)
	}
	invokeID := c.tsm.NextInvokeID()
	c.tsm.Begin(invokeID, service, dev.Addr, c.retries)

	request := npdu.Append(nil, npdu.NPDU{ExpectingReply: true})
	request = apdu.AppendConfirmedRequest(request, apdu.ConfirmedRequest{
		MaxSegments:     0,
		MaxResponseSize: 1476,
		InvokeID:        invokeID,
		Service:         service,
		Payload:         payload,
	})

	bo := apdu.RetryBackoff(c.retries)
	for {
		if err := c.t.SendUnicast(ctx, dev.Addr, request); err != nil {
			c.tsm.Complete(invokeID, apdu.Result{})
			return nil, fmt.Errorf("send request: %w", err)
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			c.tsm.Complete(invokeID, apdu.Result{Err: bacerr.ErrTimeout})
			c.countOutcome(false)
			return nil, bacerr.ErrTimeout
		}

		attemptCtx, cancel := context.WithTimeout(ctx, wait)
		a, matched := c.awaitReply(attemptCtx, invokeID)
		cancel()
		if matched {
			c.tsm.Complete(invokeID, apdu.Result{})
			c.countOutcome(a.Type != apdu.TypeError && a.Type != apdu.TypeReject && a.Type != apdu.TypeAbort)
			return replyToResult(a)
		}
		if ctx.Err() != nil {
			c.tsm.Complete(invokeID, apdu.Result{Err: ctx.Err()})
			return nil, ctx.Err()
		}
	}
}

// awaitReply polls the socket until ctx expires, looking for a reply
// APDU that carries invokeID.
func (c *Client) awaitReply(ctx context.Context, invokeID uint8) (*apdu.APDU, bool) {
	for {
		r, err := c.t.Receive(ctx)
		if err != nil {
			return nil, false
		}
		if r.BVLC.Payload == nil {
			continue
		}
		n, _, err := npdu.Decode(r.BVLC.Payload)
		if err != nil || n.NetworkLayerMsg {
			continue
		}
		a, err := apdu.Decode(n.Payload)
		if err != nil {
			continue
		}
		if id, ok := invokeIDOf(a); ok && id == invokeID {
			return a, true
		}
		if a.Type == apdu.TypeUnconfirmedRequest {
			c.handleIAm(transport.Received{Peer: r.Peer, BVLC: r.BVLC})
		}
	}
}

func invokeIDOf(a *apdu.APDU) (uint8, bool) {
	switch a.Type {
	case apdu.TypeSimpleAck:
		return a.SimpleAck.InvokeID, true
	case apdu.TypeComplexAck:
		return a.ComplexAck.InvokeID, true
	case apdu.TypeError:
		return a.Error.InvokeID, true
	case apdu.TypeReject:
		return a.Reject.InvokeID, true
	case apdu.TypeAbort:
		return a.Abort.InvokeID, true
	default:
		return 0, false
	}
}

func replyToResult(a *apdu.APDU) (*apdu.APDU, error) {
	switch a.Type {
	case apdu.TypeError:
		return nil, &bacerr.Error{Class: a.Error.Class, Code: a.Error.Code}
	case apdu.TypeReject:
		return nil, &bacerr.Reject{InvokeID: a.Reject.InvokeID, Reason: a.Reject.Reason}
	case apdu.TypeAbort:
		return nil, &bacerr.Abort{InvokeID: a.Abort.InvokeID, Server: a.Abort.Server, Reason: a.Abort.Reason}
	default:
		return a, nil
	}
}

func (c *Client) countOutcome(ok bool) {
	if c.met == nil {
		return
	}
	if ok {
		c.met.FramesLocal.Inc()
	} else {
		c.met.FramesDropped.Inc()
	}
}

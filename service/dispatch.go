// Package service implements the confirmed/unconfirmed service handlers
// that marshal between the APDU/NPDU codecs and the object registry:
// ReadProperty, WriteProperty, ReadPropertyMultiple, SubscribeCOV,
// Who-Is, and I-Am.
package service

import (
	"log/slog"

	"github.com/edgeo/bacnet-router/apdu"
	"github.com/edgeo/bacnet-router/bacerr"
	"github.com/edgeo/bacnet-router/object"
)

// ConfirmedHandlerFunc processes a confirmed request and returns the
// bytes of the ack's service-specific payload (for ComplexAck) or nil
// (for SimpleAck). The full request is passed, not just its payload,
// so handlers that must bound their response (ReadPropertyMultiple) can
// see MaxResponseSize.
type ConfirmedHandlerFunc func(src any, cr apdu.ConfirmedRequest) (ackPayload []byte, complex bool, err error)

// UnconfirmedHandlerFunc processes an unconfirmed request's payload.
type UnconfirmedHandlerFunc func(src any, payload []byte)

// Dispatcher routes confirmed/unconfirmed requests to registered
// handlers by service choice (two handler tables), gated by
// Device_Communication_Control.
type Dispatcher struct {
	Device   *object.Device
	confirmed   map[apdu.ConfirmedServiceChoice]ConfirmedHandlerFunc
	unconfirmed map[apdu.UnconfirmedServiceChoice]UnconfirmedHandlerFunc
	logger      *slog.Logger
}

// NewDispatcher returns a Dispatcher gated by device's communication
// state, with empty handler tables; callers install the ReadProperty/
// WriteProperty/RPM/SubscribeCOV/Who-Is handlers via RegisterConfirmed/
// RegisterUnconfirmed.
func NewDispatcher(device *object.Device, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		Device:      device,
		confirmed:   make(map[apdu.ConfirmedServiceChoice]ConfirmedHandlerFunc),
		unconfirmed: make(map[apdu.UnconfirmedServiceChoice]UnconfirmedHandlerFunc),
		logger:      logger,
	}
}

// RegisterConfirmed installs a handler for a confirmed service choice.
func (d *Dispatcher) RegisterConfirmed(choice apdu.ConfirmedServiceChoice, fn ConfirmedHandlerFunc) {
	d.confirmed[choice] = fn
}

// RegisterUnconfirmed installs a handler for an unconfirmed service choice.
func (d *Dispatcher) RegisterUnconfirmed(choice apdu.UnconfirmedServiceChoice, fn UnconfirmedHandlerFunc) {
	d.unconfirmed[choice] = fn
}

// DispatchConfirmed runs the handler registered for cr.Service, honoring
// the Device_Communication_Control gate: while disabled, only
// DeviceCommunicationControl and ReinitializeDevice are accepted; every
// other confirmed request is silently dropped (no wire response).
func (d *Dispatcher) DispatchConfirmed(src any, cr apdu.ConfirmedRequest) (ackPayload []byte, complex bool, drop bool, err error) {
	isDCC := cr.Service == apdu.ServiceDeviceCommunicationControl
	isReinit := cr.Service == apdu.ServiceReinitializeDevice
	if d.Device != nil && !d.Device.AcceptsRequest(isDCC, isReinit) {
		d.logger.Debug("dropping confirmed request while communication disabled",
			slog.Int("service", int(cr.Service)))
		return nil, false, true, nil
	}
	fn, ok := d.confirmed[cr.Service]
	if !ok {
		return nil, false, false, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
	}
	ackPayload, complex, err = fn(src, cr)
	return ackPayload, complex, false, err
}

// DispatchUnconfirmed runs the handler registered for ur.Service, if any.
func (d *Dispatcher) DispatchUnconfirmed(src any, ur apdu.UnconfirmedRequest) {
	if d.Device != nil && !d.Device.AcceptsRequest(false, false) {
		return
	}
	if fn, ok := d.unconfirmed[ur.Service]; ok {
		fn(src, ur.Payload)
	}
}

package service

import (
	"sync"
	"time"

	"github.com/edgeo/bacnet-router/apdu"
	"github.com/edgeo/bacnet-router/bacerr"
	"github.com/edgeo/bacnet-router/bactag"
	"github.com/edgeo/bacnet-router/object"
)

// covSubscription is one active SubscribeCOV registration.
type covSubscription struct {
	SubscriberProcessID uint32
	ObjType             object.Type
	Instance            uint32
	ConfirmedNotify     bool
	Expires             time.Time
}

func (s covSubscription) expired(now time.Time) bool {
	return !s.Expires.IsZero() && now.After(s.Expires)
}

// COVSubscriptions tracks active subscriptions keyed by (subscriber
// process ID, object). A zero Lifetime in the request means "until
// cancelled" (Expires left zero), following the same
// sync.RWMutex-guarded-map idiom used throughout this module for
// shared registries.
type COVSubscriptions struct {
	mu   sync.RWMutex
	subs map[string]covSubscription
}

// NewCOVSubscriptions returns an empty subscription table.
func NewCOVSubscriptions() *COVSubscriptions {
	return &COVSubscriptions{subs: make(map[string]covSubscription)}
}

func covKey(pid uint32, typ object.Type, instance uint32) string {
	return itoa(uint32(typ)) + ":" + itoa(instance) + "/" + itoa(pid)
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Active reports every live (non-expired) subscription on the given
// object, used by the notification sweep to know who to tell about a
// COVPending change.
func (c *COVSubscriptions) Active(typ object.Type, instance uint32, now time.Time) []covSubscription {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []covSubscription
	for _, s := range c.subs {
		if s.ObjType == typ && s.Instance == instance && !s.expired(now) {
			out = append(out, s)
		}
	}
	return out
}

func (c *COVSubscriptions) add(s covSubscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[covKey(s.SubscriberProcessID, s.ObjType, s.Instance)] = s
}

func (c *COVSubscriptions) remove(pid uint32, typ object.Type, instance uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, covKey(pid, typ, instance))
}

// decodeSubscribeCOVRequest parses subscriber-process-id[0],
// monitored-object-id[1], issue-confirmed-notifications[2] optional,
// lifetime[3] optional (a missing/zero lifetime subscribes indefinitely;
// omitting both optional parameters is a cancellation request).
func decodeSubscribeCOVRequest(payload []byte) (covSubscription, bool, error) {
	pidVal, n, err := bactag.DecodeContextValue(payload, bactag.UnsignedInt)
	if err != nil {
		return covSubscription{}, false, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
	}
	rest := payload[n:]

	oidVal, n2, err := bactag.DecodeContextValue(rest, bactag.ObjectID)
	if err != nil {
		return covSubscription{}, false, bacerr.New(bacerr.ClassServices, bacerr.CodeInconsistentParameters)
	}
	rest = rest[n2:]

	sub := covSubscription{
		SubscriberProcessID: uint32(pidVal.Unsigned),
		ObjType:             object.Type(oidVal.ObjID.Type),
		Instance:            oidVal.ObjID.Instance,
	}
	isCancel := len(rest) == 0

	if len(rest) > 0 {
		if confVal, n3, err := bactag.DecodeContextValue(rest, bactag.Boolean); err == nil {
			sub.ConfirmedNotify = confVal.Bool
			rest = rest[n3:]
		}
	}
	if len(rest) > 0 {
		if lifeVal, _, err := bactag.DecodeContextValue(rest, bactag.UnsignedInt); err == nil && lifeVal.Unsigned > 0 {
			sub.Expires = time.Now().Add(time.Duration(lifeVal.Unsigned) * time.Second)
		}
	}
	return sub, isCancel, nil
}

// HandleSubscribeCOV implements the SubscribeCOV confirmed service:
// register, refresh, or cancel a subscription against reg, acking with
// a SimpleAck on success.
func HandleSubscribeCOV(reg *object.Registry, table *COVSubscriptions) ConfirmedHandlerFunc {
	return func(_ any, cr apdu.ConfirmedRequest) ([]byte, bool, error) {
		sub, isCancel, err := decodeSubscribeCOVRequest(cr.Payload)
		if err != nil {
			return nil, false, err
		}
		if _, err := reg.Lookup(sub.ObjType, sub.Instance); err != nil {
			return nil, false, err
		}
		if isCancel {
			table.remove(sub.SubscriberProcessID, sub.ObjType, sub.Instance)
			return nil, false, nil
		}
		table.add(sub)
		return nil, false, nil
	}
}

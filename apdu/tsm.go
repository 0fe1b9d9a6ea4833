package apdu

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/edgeo/bacnet-router/bacerr"
)

// TreplyTimeout is the default confirmed-request reply timeout, matching
// the MS/TP Treply_timeout default used as the APDU-layer fallback when
// a more specific datalink timeout is not configured.
const TreplyTimeout = 255 * time.Millisecond

// TransactionState is the lifecycle state of one TSM slot.
type TransactionState int

const (
	StateAwaitingReply TransactionState = iota
	StateSegmentedReply
)

// Transaction is one outstanding confirmed-service invocation.
type Transaction struct {
	DestAddress  any // opaque link/network address, owned by the caller
	InvokeID     uint8
	Service      ConfirmedServiceChoice
	StartTime    time.Time
	RetriesLeft  int
	State        TransactionState
	resultCh     chan Result
}

// Result is delivered to the caller when a transaction resolves.
type Result struct {
	Ack     *ComplexAck
	Simple  *SimpleAck
	Err     error // *bacerr.Error, *bacerr.Reject, *bacerr.Abort, or bacerr.ErrTimeout
}

// TSM is the Transaction State Machine: an array of outstanding
// confirmed-request slots keyed by invoke_id, with retry/timeout
// semantics. It generalizes the client's pending-channel correlation
// map into a server-and-client-usable table.
type TSM struct {
	mu       sync.Mutex
	slots    map[uint8]*Transaction
	nextID   uint8
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a TSM at construction.
type Option func(*TSM)

// WithTimeout overrides the default per-attempt reply timeout.
func WithTimeout(d time.Duration) Option {
	return func(t *TSM) { t.timeout = d }
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *TSM) { t.logger = l }
}

// NewTSM builds an empty TSM.
func NewTSM(opts ...Option) *TSM {
	t := &TSM{
		slots:   make(map[uint8]*Transaction),
		timeout: TreplyTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NextInvokeID allocates the next invoke_id, wrapping 0..255 and
// skipping any id currently in use.
func (t *TSM) NextInvokeID() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		t.nextID++
		if _, busy := t.slots[t.nextID]; !busy {
			return t.nextID
		}
	}
}

// Begin reserves a TSM slot for a new confirmed request and returns its
// Transaction; Wait on that Transaction yields exactly one Result: on
// ack, error, reject, abort, timeout, or context cancellation.
func (t *TSM) Begin(invokeID uint8, service ConfirmedServiceChoice, dest any, retries int) *Transaction {
	tx := &Transaction{
		DestAddress: dest,
		InvokeID:    invokeID,
		Service:     service,
		StartTime:   time.Now(),
		RetriesLeft: retries,
		resultCh:    make(chan Result, 1),
	}
	t.mu.Lock()
	t.slots[invokeID] = tx
	t.mu.Unlock()
	return tx
}

// Wait blocks until ctx is cancelled, the per-attempt timeout elapses,
// or a reply completes the transaction.
func (t *TSM) Wait(ctx context.Context, tx *Transaction) Result {
	select {
	case <-ctx.Done():
		t.free(tx.InvokeID)
		return Result{Err: ctx.Err()}
	case <-time.After(t.timeout):
		t.free(tx.InvokeID)
		return Result{Err: bacerr.ErrTimeout}
	case r := <-tx.resultCh:
		return r
	}
}

// Complete resolves the outstanding transaction for invokeID, if any,
// and frees its slot. Returns false if no transaction was outstanding
// (an unmatched reply is discarded).
func (t *TSM) Complete(invokeID uint8, r Result) bool {
	t.mu.Lock()
	tx, ok := t.slots[invokeID]
	if ok {
		delete(t.slots, invokeID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	tx.resultCh <- r
	return true
}

func (t *TSM) free(invokeID uint8) {
	t.mu.Lock()
	delete(t.slots, invokeID)
	t.mu.Unlock()
}

// Outstanding reports the number of currently reserved slots.
func (t *TSM) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}

// RetryBackoff builds the schedule used between confirmed-request
// retransmissions: a constant TreplyTimeout interval (Multiplier 1.0,
// with the backoff library's default randomization jitter), bounded by
// maxRetries.
func RetryBackoff(maxRetries int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = TreplyTimeout
	b.Multiplier = 1.0
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(maxRetries))
}

// Package session tracks in-flight Authorization Request/Response
// exchanges: a bounded, TTL-evicting registry keyed by (client_id, state,
// nonce) that drives the exchange through
// INIT -> REQUEST_BUILT -> REQUEST_DELIVERED -> RESPONSE_RECEIVED ->
// VERIFIED | REJECTED, rejecting a second RESPONSE_RECEIVED for the same
// key as a replay. It never persists anything past its TTL window; a
// Verifier restart loses all in-flight exchanges, which is the point —
// durability is out of scope, eviction is not.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/eidverify/oid4vp/pkg/logger"
)

// Status is one state in an exchange's lifecycle.
type Status string

const (
	StatusInit              Status = "INIT"
	StatusRequestBuilt      Status = "REQUEST_BUILT"
	StatusRequestDelivered  Status = "REQUEST_DELIVERED"
	StatusResponseReceived  Status = "RESPONSE_RECEIVED"
	StatusVerified          Status = "VERIFIED"
	StatusRejected          Status = "REJECTED"
	StatusError             Status = "ERROR"
)

// validTransitions lists, for each status, the statuses it may move to.
// A transition not listed here is rejected by Exchange.transition.
var validTransitions = map[Status][]Status{
	StatusInit:             {StatusRequestBuilt, StatusError},
	StatusRequestBuilt:     {StatusRequestDelivered, StatusError},
	StatusRequestDelivered: {StatusResponseReceived, StatusError},
	StatusResponseReceived: {StatusVerified, StatusRejected, StatusError},
	StatusVerified:         {},
	StatusRejected:         {},
	StatusError:            {},
}

// DefaultTTL bounds how long an exchange may sit unresolved before the
// registry evicts it. OID4VP Responses normally arrive within seconds of
// the Request being delivered; an exchange outliving this is presumed
// abandoned.
const DefaultTTL = 10 * time.Minute

// Exchange is one in-flight Authorization Request/Response round trip.
type Exchange struct {
	ClientID string
	State    string
	Nonce    string

	mu      sync.Mutex
	status  Status
	reason  string
	ctx     context.Context
	cancel  context.CancelFunc
	created time.Time
}

// Status reports the exchange's current lifecycle state.
func (e *Exchange) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Reason returns the rejection/error detail, if any.
func (e *Exchange) Reason() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reason
}

// Context is cancelled when the exchange reaches a terminal state
// (VERIFIED, REJECTED or ERROR) or when the registry evicts it; resolver and verifier calls in flight for this
// exchange should be bound to it so a cancellation aborts pending work.
func (e *Exchange) Context() context.Context {
	return e.ctx
}

func (e *Exchange) transition(to Status, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	allowed := validTransitions[e.status]
	ok := false
	for _, s := range allowed {
		if s == to {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("session: invalid transition %s -> %s", e.status, to)
	}

	e.status = to
	e.reason = reason
	if to == StatusVerified || to == StatusRejected || to == StatusError {
		e.cancel()
	}
	return nil
}

// MarkRequestBuilt transitions INIT -> REQUEST_BUILT.
func (e *Exchange) MarkRequestBuilt() error { return e.transition(StatusRequestBuilt, "") }

// MarkRequestDelivered transitions REQUEST_BUILT -> REQUEST_DELIVERED.
func (e *Exchange) MarkRequestDelivered() error { return e.transition(StatusRequestDelivered, "") }

// MarkResponseReceived transitions REQUEST_DELIVERED -> RESPONSE_RECEIVED.
// Calling it twice on the same Exchange is the replay case; the second
// call returns an error rather than re-entering RESPONSE_RECEIVED.
func (e *Exchange) MarkResponseReceived() error { return e.transition(StatusResponseReceived, "") }

// MarkVerified transitions RESPONSE_RECEIVED -> VERIFIED.
func (e *Exchange) MarkVerified() error { return e.transition(StatusVerified, "") }

// MarkRejected transitions RESPONSE_RECEIVED -> REJECTED with reason.
func (e *Exchange) MarkRejected(reason string) error { return e.transition(StatusRejected, reason) }

// Cancel aborts the exchange, transitioning it to ERROR and cancelling
// Context() so any pending resolver fetch tied to it unwinds. No
// cryptographic work performed before the call is retried or persisted.
func (e *Exchange) Cancel(reason string) {
	_ = e.transition(StatusError, reason)
}

// Registry is a bounded, TTL-evicting map of in-flight Exchanges.
type Registry struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, *Exchange]
	log   *logger.Log
}

// NewRegistry builds a Registry. ttl <= 0 uses DefaultTTL. log is optional;
// when set, Begin, ReceiveResponse and TTL eviction are logged with the
// exchange's (client_id, state) for correlation — nonce is omitted from log
// lines since it is the value a replay attempt is trying to reuse.
func NewRegistry(ttl time.Duration, log ...*logger.Log) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	var l *logger.Log
	if len(log) > 0 {
		l = log[0]
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *Exchange](ttl),
		ttlcache.WithEvictionCallback(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Exchange]) {
			if reason == ttlcache.EvictionReasonExpired {
				ex := item.Value()
				ex.Cancel("exchange evicted: exceeded TTL with no terminal state")
				if l != nil {
					l.Info("exchange evicted", "client_id", ex.ClientID, "state", ex.State)
				}
			}
		}),
	)
	go cache.Start()
	return &Registry{cache: cache, log: l}
}

// Stop stops the registry's eviction goroutine.
func (r *Registry) Stop() {
	r.cache.Stop()
}

func key(clientID, state, nonce string) string {
	return clientID + "|" + state + "|" + nonce
}

// Begin creates a new Exchange in INIT and registers it under
// (clientID, state, nonce). It returns an error if an exchange is
// already registered under that exact key, since state/nonce are
// expected to be freshly generated per Request (see pkg/reqobj).
func (r *Registry) Begin(clientID, state, nonce string) (*Exchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(clientID, state, nonce)
	if item := r.cache.Get(k); item != nil {
		return nil, fmt.Errorf("session: exchange already exists for client_id=%s state=%s", clientID, state)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ex := &Exchange{
		ClientID: clientID,
		State:    state,
		Nonce:    nonce,
		status:   StatusInit,
		ctx:      ctx,
		cancel:   cancel,
		created:  time.Now(),
	}
	r.cache.Set(k, ex, ttlcache.DefaultTTL)
	if r.log != nil {
		r.log.Info("exchange begun", "client_id", clientID, "state", state)
	}
	return ex, nil
}

// Lookup returns the Exchange registered for (clientID, state, nonce),
// if any is still live.
func (r *Registry) Lookup(clientID, state, nonce string) (*Exchange, bool) {
	item := r.cache.Get(key(clientID, state, nonce))
	if item == nil || item.Value() == nil {
		return nil, false
	}
	return item.Value(), true
}

// ReceiveResponse looks up the exchange for (clientID, state, nonce) and
// transitions it to RESPONSE_RECEIVED. A second call for the same key —
// whether concurrent or sequential — fails the transition and returns an
// error distinguishable only by the exchange already being past
// REQUEST_DELIVERED; callers should treat that as nonce/state replay.
func (r *Registry) ReceiveResponse(clientID, state, nonce string) (*Exchange, error) {
	ex, ok := r.Lookup(clientID, state, nonce)
	if !ok {
		return nil, fmt.Errorf("session: no exchange registered for client_id=%s state=%s", clientID, state)
	}
	if err := ex.MarkResponseReceived(); err != nil {
		if r.log != nil {
			r.log.Info("response rejected", "client_id", clientID, "state", state, "reason", err.Error())
		}
		return ex, fmt.Errorf("session: replay or out-of-order response: %w", err)
	}
	if r.log != nil {
		r.log.Info("response received", "client_id", clientID, "state", state)
	}
	return ex, nil
}

// Len returns the number of live exchanges.
func (r *Registry) Len() int {
	return r.cache.Len()
}

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidverify/oid4vp/pkg/logger"
)

func TestExchangeLifecycle_HappyPath(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	ex, err := reg.Begin("verifier-1", "state-abc", "nonce-xyz")
	require.NoError(t, err)
	assert.Equal(t, StatusInit, ex.Status())

	require.NoError(t, ex.MarkRequestBuilt())
	require.NoError(t, ex.MarkRequestDelivered())

	got, err := reg.ReceiveResponse("verifier-1", "state-abc", "nonce-xyz")
	require.NoError(t, err)
	assert.Same(t, ex, got)
	assert.Equal(t, StatusResponseReceived, ex.Status())

	require.NoError(t, ex.MarkVerified())
	assert.Equal(t, StatusVerified, ex.Status())

	select {
	case <-ex.Context().Done():
	default:
		t.Fatal("exchange context should be cancelled once a terminal state is reached")
	}
}

func TestExchangeLifecycle_Rejected(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	ex, err := reg.Begin("verifier-1", "state-abc", "nonce-xyz")
	require.NoError(t, err)
	require.NoError(t, ex.MarkRequestBuilt())
	require.NoError(t, ex.MarkRequestDelivered())
	_, err = reg.ReceiveResponse("verifier-1", "state-abc", "nonce-xyz")
	require.NoError(t, err)

	require.NoError(t, ex.MarkRejected("descriptor mismatch"))
	assert.Equal(t, StatusRejected, ex.Status())
	assert.Equal(t, "descriptor mismatch", ex.Reason())
}

func TestBegin_DuplicateKeyRejected(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	_, err := reg.Begin("verifier-1", "state-abc", "nonce-xyz")
	require.NoError(t, err)

	_, err = reg.Begin("verifier-1", "state-abc", "nonce-xyz")
	assert.Error(t, err)
}

func TestReceiveResponse_Replay(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	ex, err := reg.Begin("verifier-1", "state-abc", "nonce-xyz")
	require.NoError(t, err)
	require.NoError(t, ex.MarkRequestBuilt())
	require.NoError(t, ex.MarkRequestDelivered())

	_, err = reg.ReceiveResponse("verifier-1", "state-abc", "nonce-xyz")
	require.NoError(t, err)

	// A second RESPONSE_RECEIVED for the same (client_id, state, nonce)
	// is the replay case: the exchange is already past REQUEST_DELIVERED
	// so the transition is rejected.
	_, err = reg.ReceiveResponse("verifier-1", "state-abc", "nonce-xyz")
	assert.Error(t, err)
}

func TestReceiveResponse_UnknownExchange(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	_, err := reg.ReceiveResponse("verifier-1", "never-registered", "nonce")
	assert.Error(t, err)
}

func TestInvalidTransitionRejected(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	ex, err := reg.Begin("verifier-1", "state-abc", "nonce-xyz")
	require.NoError(t, err)

	// INIT cannot jump straight to VERIFIED.
	err = ex.transition(StatusVerified, "")
	assert.Error(t, err)
	assert.Equal(t, StatusInit, ex.Status())
}

func TestCancel_TransitionsToError(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	ex, err := reg.Begin("verifier-1", "state-abc", "nonce-xyz")
	require.NoError(t, err)

	ex.Cancel("resolver fetch aborted")
	assert.Equal(t, StatusError, ex.Status())
	assert.Equal(t, "resolver fetch aborted", ex.Reason())

	select {
	case <-ex.Context().Done():
	default:
		t.Fatal("cancelling the exchange should cancel its context")
	}
}

func TestLookup(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	_, ok := reg.Lookup("verifier-1", "state-abc", "nonce-xyz")
	assert.False(t, ok)

	ex, err := reg.Begin("verifier-1", "state-abc", "nonce-xyz")
	require.NoError(t, err)

	got, ok := reg.Lookup("verifier-1", "state-abc", "nonce-xyz")
	require.True(t, ok)
	assert.Same(t, ex, got)
}

func TestRegistry_AcceptsOptionalLogger(t *testing.T) {
	log := logger.NewSimple("session-test")
	reg := NewRegistry(time.Minute, log)
	defer reg.Stop()

	ex, err := reg.Begin("verifier-1", "state-abc", "nonce-xyz")
	require.NoError(t, err)
	require.NoError(t, ex.MarkRequestBuilt())
	require.NoError(t, ex.MarkRequestDelivered())

	_, err = reg.ReceiveResponse("verifier-1", "state-abc", "nonce-xyz")
	require.NoError(t, err)

	_, err = reg.ReceiveResponse("verifier-1", "state-abc", "nonce-xyz")
	assert.Error(t, err)
}

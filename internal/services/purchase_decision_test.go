package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arcana/internal/interfaces"
)

func TestPollTimeoutAlwaysWins(t *testing.T) {
	createdAt := time.Now().Add(-PURCHASE_CONFIRMATION_TIMEOUT - time.Minute)

	// even a finalized success report loses to the wall-clock deadline
	decision := decidePollOutcome(time.Now(), createdAt, 3, 0, &interfaces.SignatureStatus{Found: true, Finalized: true}, nil)
	assert.Equal(t, pollFail, decision.Action)
	assert.Equal(t, "confirmation timeout", decision.FailReason)

	// same with an rpc error in hand
	decision = decidePollOutcome(time.Now(), createdAt, 3, 0, nil, errors.New("connection refused"))
	assert.Equal(t, pollFail, decision.Action)
	assert.Equal(t, "confirmation timeout", decision.FailReason)
}

func TestPollNotFoundRetriesThenFails(t *testing.T) {
	createdAt := time.Now().Add(-time.Minute)
	notFound := &interfaces.SignatureStatus{Found: false}

	decision := decidePollOutcome(time.Now(), createdAt, 1, 0, notFound, nil)
	assert.Equal(t, pollRetry, decision.Action)
	assert.Equal(t, PURCHASE_POLL_DELAY, decision.Delay)
	assert.Equal(t, 0, decision.NextRPCRetries)

	decision = decidePollOutcome(time.Now(), createdAt, PURCHASE_MAX_NOT_FOUND_POLLS, 0, notFound, nil)
	assert.Equal(t, pollFail, decision.Action)
	assert.Equal(t, "signature never appeared on chain", decision.FailReason)
}

func TestPollChainErrorFailsImmediately(t *testing.T) {
	createdAt := time.Now().Add(-time.Minute)

	decision := decidePollOutcome(time.Now(), createdAt, 1, 0, &interfaces.SignatureStatus{Found: true, ExecError: "exit code 34"}, nil)
	assert.Equal(t, pollFail, decision.Action)
	assert.Contains(t, decision.FailReason, "exit code 34")
}

func TestPollWaitsForDepthWithoutAttemptBound(t *testing.T) {
	createdAt := time.Now().Add(-time.Minute)
	shallow := &interfaces.SignatureStatus{Found: true, Confirmations: 1}

	// depth polling is not subject to the not-found attempt cap
	decision := decidePollOutcome(time.Now(), createdAt, PURCHASE_MAX_NOT_FOUND_POLLS+25, 0, shallow, nil)
	assert.Equal(t, pollRetry, decision.Action)
	assert.Equal(t, PURCHASE_POLL_DELAY, decision.Delay)
}

func TestPollCompletesOnFinalized(t *testing.T) {
	createdAt := time.Now().Add(-time.Minute)

	decision := decidePollOutcome(time.Now(), createdAt, 5, 0, &interfaces.SignatureStatus{Found: true, Finalized: true, Confirmations: 4}, nil)
	assert.Equal(t, pollComplete, decision.Action)
}

func TestPollCompletesOnEnoughConfirmations(t *testing.T) {
	createdAt := time.Now().Add(-time.Minute)

	// deep enough counts even before the chain reports finalized
	decision := decidePollOutcome(time.Now(), createdAt, 5, 0, &interfaces.SignatureStatus{Found: true, Confirmations: PURCHASE_MIN_CONFIRMATIONS}, nil)
	assert.Equal(t, pollComplete, decision.Action)

	decision = decidePollOutcome(time.Now(), createdAt, 5, 0, &interfaces.SignatureStatus{Found: true, Confirmations: PURCHASE_MIN_CONFIRMATIONS - 1}, nil)
	assert.Equal(t, pollRetry, decision.Action)
}

func TestPollRPCErrorsRetryWithLongerDelayThenEscalate(t *testing.T) {
	createdAt := time.Now().Add(-time.Minute)
	rpcErr := errors.New("dial tcp: i/o timeout")

	decision := decidePollOutcome(time.Now(), createdAt, 1, 0, nil, rpcErr)
	assert.Equal(t, pollRetry, decision.Action)
	assert.Equal(t, PURCHASE_RPC_RETRY_DELAY, decision.Delay)
	assert.Equal(t, 1, decision.NextRPCRetries)

	decision = decidePollOutcome(time.Now(), createdAt, 1, PURCHASE_MAX_RPC_RETRIES-1, nil, rpcErr)
	assert.Equal(t, pollFail, decision.Action)
	assert.Contains(t, decision.FailReason, "rpc error")
}

package services

import (
	"fmt"
	"time"

	"arcana/internal/interfaces"
)

type pollAction int

const (
	pollRetry pollAction = iota
	pollComplete
	pollFail
)

type pollDecision struct {
	Action         pollAction
	Delay          time.Duration
	NextRPCRetries int
	FailReason     string
}

// PollPayload rides the task queue between poll steps. Attempt and
// RPCRetries are the only in-flight counters; everything else a poll needs
// is re-read from the persisted purchase row.
type PollPayload struct {
	PurchaseID string `msgpack:"purchase_id" json:"purchase_id"`
	Attempt    int    `msgpack:"attempt" json:"attempt"`
	RPCRetries int    `msgpack:"rpc_retries" json:"rpc_retries"`
}

// decidePollOutcome maps one chain lookup onto the purchase state machine.
// The wall-clock timeout is checked first and wins unconditionally, even
// over a success report from the chain.
func decidePollOutcome(now, createdAt time.Time, attempt, rpcRetries int, status *interfaces.SignatureStatus, rpcErr error) pollDecision {
	if now.Sub(createdAt) > PURCHASE_CONFIRMATION_TIMEOUT {
		return pollDecision{Action: pollFail, FailReason: "confirmation timeout"}
	}

	if rpcErr != nil {
		if rpcRetries+1 >= PURCHASE_MAX_RPC_RETRIES {
			return pollDecision{Action: pollFail, FailReason: fmt.Sprintf("rpc error: %v", rpcErr)}
		}
		return pollDecision{Action: pollRetry, Delay: PURCHASE_RPC_RETRY_DELAY, NextRPCRetries: rpcRetries + 1}
	}

	if !status.Found {
		if attempt >= PURCHASE_MAX_NOT_FOUND_POLLS {
			return pollDecision{Action: pollFail, FailReason: "signature never appeared on chain"}
		}
		return pollDecision{Action: pollRetry, Delay: PURCHASE_POLL_DELAY}
	}

	if status.ExecError != "" {
		return pollDecision{Action: pollFail, FailReason: fmt.Sprintf("chain error: %s", status.ExecError)}
	}

	if !status.Finalized && status.Confirmations < PURCHASE_MIN_CONFIRMATIONS {
		// depth polling is bounded only by the timeout ceiling
		return pollDecision{Action: pollRetry, Delay: PURCHASE_POLL_DELAY}
	}

	return pollDecision{Action: pollComplete}
}

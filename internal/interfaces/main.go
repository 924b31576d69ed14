package interfaces

import (
	"context"
	"time"

	"github.com/go-redis/redis_rate/v10"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}

// TaskScheduler defers a unit of work: execute operation with payload after
// delay. Delivery is at-least-once, so consumers must be idempotent against
// redelivery.
type TaskScheduler interface {
	Schedule(ctx context.Context, operation string, payload interface{}, delay time.Duration) error
}

// SignatureStatus is what the chain reports for a submitted transfer.
type SignatureStatus struct {
	Found         bool
	ExecError     string
	Confirmations int
	Finalized     bool
}

// ChainClient looks up the settlement status of a signed transfer. It does
// not retry; network errors surface to the caller, which owns the retry
// policy.
type ChainClient interface {
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)
}

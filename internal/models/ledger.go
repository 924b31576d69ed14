package models

import (
	"time"

	"github.com/uptrace/bun"
)

// LedgerEntry is the append-only audit trail of every reward grant. The
// unique reference_id is the idempotency backstop: the same grant can never
// land twice even if two callers slip past their own guards.
type LedgerEntry struct {
	bun.BaseModel `bun:"table:ledger_entry"`
	ID            int64                  `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64                  `bun:"user_id" json:"user_id"`
	Kind          RewardKind             `bun:"kind" json:"kind"`
	Amount        int64                  `bun:"amount" json:"amount"`
	CardID        *string                `bun:"card_id" json:"card_id"`
	ReferenceID   string                 `bun:"reference_id" json:"reference_id"`
	Metadata      map[string]interface{} `bun:"metadata,type:jsonb" json:"metadata"`
	CreatedAt     time.Time              `bun:"created_at,default:current_timestamp" json:"created_at"`
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	PURCHASE_AWAITING_SIGNATURE = "awaiting_signature"
	PURCHASE_SUBMITTED          = "submitted"
	PURCHASE_CONFIRMED          = "confirmed"
	PURCHASE_FAILED             = "failed"
	PURCHASE_EXPIRED            = "expired"
)

// PendingPurchase is the durable record of a token-paid premium pass purchase.
// Status only moves forward along
// awaiting_signature -> submitted -> {confirmed|failed|expired}; rows are
// never deleted.
type PendingPurchase struct {
	bun.BaseModel  `bun:"table:pending_purchase"`
	ID             string    `bun:"id,pk" json:"id"`
	UserID         int64     `bun:"user_id" json:"user_id"`
	SeasonID       string    `bun:"season_id" json:"season_id"`
	AmountNano     int64     `bun:"amount_nano" json:"amount_nano"`
	BuyerWallet    string    `bun:"buyer_wallet" json:"buyer_wallet"`
	TreasuryWallet string    `bun:"treasury_wallet" json:"treasury_wallet"`
	Status         string    `bun:"status" json:"status"`
	Signature      *string   `bun:"signature" json:"signature"`
	FailReason     *string   `bun:"fail_reason" json:"fail_reason"`
	CreatedAt      time.Time `bun:"created_at" json:"created_at"`
	ExpiresAt      time.Time `bun:"expires_at" json:"expires_at"`
	UpdatedAt      time.Time `bun:"updated_at" json:"updated_at"`
}

func (p *PendingPurchase) Terminal() bool {
	return PurchaseStatusTerminal(p.Status)
}

func PurchaseStatusTerminal(status string) bool {
	switch status {
	case PURCHASE_CONFIRMED, PURCHASE_FAILED, PURCHASE_EXPIRED:
		return true
	}

	return false
}

// UnsignedTransfer is what the client signs via its wallet; the comment ties
// the on-chain message back to the pending purchase row.
type UnsignedTransfer struct {
	PurchaseID string    `json:"purchase_id"`
	To         string    `json:"to"`
	AmountNano int64     `json:"amount_nano"`
	Comment    string    `json:"comment"`
	ValidUntil time.Time `json:"valid_until"`
}

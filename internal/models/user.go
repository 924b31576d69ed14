package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:user"`
	ID            int64     `bun:"id,pk" json:"id"`
	FirstName     string    `bun:"first_name" json:"first_name"`
	IsBot         bool      `bun:"is_bot" json:"-"`
	LastName      string    `bun:"last_name" json:"last_name"`
	Username      string    `bun:"username" json:"username"`
	LanguageCode  string    `bun:"language_code" json:"language_code"`
	PhotoURL      string    `bun:"photo_url" json:"photo_url"`
	Gold          int64     `bun:"gold" json:"gold"`
	Gems          int64     `bun:"gems" json:"gems"`
	XP            int64     `bun:"xp" json:"xp"`
	Title         *string   `bun:"title" json:"title"`
	Avatar        *string   `bun:"avatar" json:"avatar"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`

	TONWallet *string `bun:"-" json:"ton_wallet"`
	IsNewUser bool    `bun:"-" json:"is_new_user"`
}

// UserFromAuth only use in middleware
type UserFromAuth struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	IsBot        bool   `json:"is_bot"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	PhotoURL     string `json:"photo_url"`
}

type UserWallet struct {
	bun.BaseModel `bun:"table:user_wallet"`
	UserID        int64     `bun:"user_id,pk" json:"user_id"`
	TONWallet     *string   `bun:"ton_wallet" json:"ton_wallet"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
}

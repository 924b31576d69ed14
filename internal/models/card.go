package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Card struct {
	bun.BaseModel `bun:"table:card"`
	ID            string `bun:"id,pk" json:"id"`
	Name          string `bun:"name" json:"name"`
	Archetype     string `bun:"archetype" json:"archetype"`
	Rarity        string `bun:"rarity" json:"rarity"`
	// Weight drives pack-opening odds; higher is more common.
	Weight int `bun:"weight" json:"-"`
}

type UserCard struct {
	bun.BaseModel `bun:"table:user_card"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64     `bun:"user_id" json:"user_id"`
	CardID        string    `bun:"card_id" json:"card_id"`
	Count         int       `bun:"count" json:"count"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
}

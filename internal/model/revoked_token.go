package model

import "time"

// RevokedToken is one entry of the logout denylist. Rows are append-only:
// they are never updated or deleted while the signing key lives, because a
// removed entry would silently resurrect a logged-out session. The unique
// index on the token string is what makes concurrent double-logout resolve
// to exactly one insert.
type RevokedToken struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Token     string    `gorm:"not null;uniqueIndex" json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

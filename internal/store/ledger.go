// Package store holds the gorm-backed implementations of the auth core's
// storage interfaces.
package store

import (
	"context"

	"github.com/flagforge/api/internal/auth"
	"github.com/flagforge/api/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the revoked_tokens table. Uniqueness lives in the database
// index, so the insert itself decides who revoked first: the conflicting
// insert simply affects zero rows. No integrity-error string matching, no
// advisory locks.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Revoke(ctx context.Context, token string) (auth.RevocationStatus, error) {
	entry := model.RevokedToken{Token: token}
	result := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry)
	if result.Error != nil {
		return auth.RevocationDuplicate, result.Error
	}
	if result.RowsAffected == 0 {
		return auth.RevocationDuplicate, nil
	}
	return auth.RevocationAdded, nil
}

func (l *Ledger) IsRevoked(ctx context.Context, token string) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&model.RevokedToken{}).
		Where("token = ?", token).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

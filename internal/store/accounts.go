package store

import (
	"context"
	"errors"

	"github.com/flagforge/api/internal/auth"
	"github.com/flagforge/api/internal/model"
	"gorm.io/gorm"
)

// Accounts resolves verified subject claims to live user rows, keyed by the
// immutable id so account renames never strand outstanding sessions.
type Accounts struct {
	db *gorm.DB
}

func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

func (a *Accounts) Resolve(ctx context.Context, accountID int64) (*model.User, error) {
	var user model.User
	err := a.db.WithContext(ctx).First(&user, accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.ErrUnknownSubject
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

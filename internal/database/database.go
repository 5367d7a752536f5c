package database

import (
	"github.com/flagforge/api/internal/config"
	"github.com/flagforge/api/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Team{},
		&model.Challenge{},
		&model.ChallengeFile{},
		&model.Solve{},
		&model.RevokedToken{},
		&model.Announcement{},
	)
	if err != nil {
		return err
	}

	// AutoMigrate already builds these from struct tags; the explicit
	// statements keep databases created by older builds consistent.
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_revoked_tokens_token ON revoked_tokens(token)")
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_solves_team_challenge ON solves(team_id, challenge_id)")

	return nil
}

// Seeds the admin account and, with -demo, a handful of demo challenges.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/flagforge/api/internal/auth"
	"github.com/flagforge/api/internal/config"
	"github.com/flagforge/api/internal/database"
	"github.com/flagforge/api/internal/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	demo := flag.Bool("demo", false, "also create demo challenges")
	flag.Parse()

	cfg := config.Load()
	if cfg.AdminPassword == "" {
		log.Fatal().Msg("ADMIN_PASSWORD must be set")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	hasher, err := auth.NewHasher(cfg.PasswordHashScheme)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid password hash scheme")
	}

	ctx := context.Background()
	passHash, err := hasher.Hash(ctx, cfg.AdminPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash admin password")
	}

	admin := model.User{
		Username: cfg.AdminUser,
		Email:    "admin@local.host",
		PassHash: passHash,
		Admin:    true,
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&admin)
	if result.Error != nil {
		log.Fatal().Err(result.Error).Msg("failed to create admin user")
	}
	if result.RowsAffected == 0 {
		log.Info().Str("username", cfg.AdminUser).Msg("admin user already exists")
	} else {
		log.Info().Str("username", cfg.AdminUser).Msg("admin user created")
	}

	if !*demo {
		return
	}

	challenges := []model.Challenge{
		{
			Name:        "warmup",
			Description: "Read the source. The flag is in plain sight.",
			Flag:        "flag{hello_world}",
			Points:      50,
			Tags:        datatypes.JSON([]byte(`["misc","beginner"]`)),
		},
		{
			Name:        "classic-overflow",
			Description: "A tiny binary with a big buffer problem.",
			Flag:        "flag{smashing_the_stack}",
			Points:      200,
			Tags:        datatypes.JSON([]byte(`["pwn"]`)),
		},
		{
			Name:        "leaky-bucket",
			Description: "The S3 bucket is public. The flag is not supposed to be.",
			Flag:        "flag{check_your_acls}",
			Points:      150,
			Tags:        datatypes.JSON([]byte(`["cloud","misc"]`)),
		},
	}
	for i := range challenges {
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&challenges[i])
		if result.Error != nil {
			log.Fatal().Err(result.Error).Str("name", challenges[i].Name).Msg("failed to create challenge")
		}
	}
	log.Info().Int("count", len(challenges)).Msg("demo challenges seeded")
}

package main

import (
	"context"
	"os"

	"github.com/flagforge/api/internal/auth"
	"github.com/flagforge/api/internal/cache"
	"github.com/flagforge/api/internal/config"
	"github.com/flagforge/api/internal/database"
	"github.com/flagforge/api/internal/handler"
	"github.com/flagforge/api/internal/storage"
	"github.com/flagforge/api/internal/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisCache *cache.RedisCache
	redisCache, err = cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		// Fail-open: the scoreboard just loses its cache.
		log.Warn().Err(err).Msg("failed to connect to redis, continuing without cache")
		redisCache = nil
	}

	hasher, err := auth.NewHasher(cfg.PasswordHashScheme)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid password hash scheme")
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret, err = auth.GenerateSecret()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to generate signing secret")
		}
		log.Warn().Msg("JWT_SECRET not set, generated a random key: tokens will not survive a restart and cannot be verified by other instances")
	}
	codec := auth.NewCodec(secret)
	verifier := auth.NewVerifier(codec, store.NewLedger(db), store.NewAccounts(db))

	fileStore, err := newFileStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize file store")
	}

	r := handler.NewRouter(handler.RouterConfig{
		DB:            db,
		Hasher:        hasher,
		Codec:         codec,
		Verifier:      verifier,
		Store:         fileStore,
		Cache:         redisCache,
		TokenLifetime: cfg.TokenLifetime,
		ScoreboardTTL: cfg.ScoreboardCacheTTL,
		Logger:        log.Logger,
	})

	log.Info().Str("port", cfg.Port).Msg("api server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func newFileStore(cfg *config.Config) (storage.Store, error) {
	if cfg.FileBackend == "s3" {
		return storage.NewS3Store(context.Background(), storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			TTL:       cfg.PresignTTL,
		})
	}
	return storage.NewLocalStore(cfg.FileStoreDir)
}

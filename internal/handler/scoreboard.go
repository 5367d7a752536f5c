package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flagforge/api/internal/cache"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ScoreboardHandler struct {
	db    *gorm.DB
	cache *cache.RedisCache
	ttl   time.Duration
}

func NewScoreboardHandler(db *gorm.DB, redisCache *cache.RedisCache, ttl time.Duration) *ScoreboardHandler {
	return &ScoreboardHandler{db: db, cache: redisCache, ttl: ttl}
}

type ScoreboardEntry struct {
	Rank      int        `json:"rank"`
	TeamID    int64      `json:"teamId"`
	Name      string     `json:"name"`
	Points    int        `json:"points"`
	LastSolve *time.Time `json:"lastSolve"`
}

// Get serves the ranking. The board is cached briefly in redis and
// invalidated on every solve; when redis is down the query runs every time
// (fail-open, same as the rest of the cache usage).
func (h *ScoreboardHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		if data, err := h.cache.Get(ctx, cache.ScoreboardKey); err == nil {
			c.Data(http.StatusOK, "application/json", data)
			return
		}
	}

	var entries []ScoreboardEntry
	err := h.db.WithContext(ctx).
		Table("teams").
		Select(`teams.id AS team_id, teams.name,
			COALESCE((SELECT SUM(challenges.points) FROM solves
				JOIN challenges ON challenges.id = solves.challenge_id
				WHERE solves.team_id = teams.id), 0) AS points,
			(SELECT MAX(solves.created_at) FROM solves
				WHERE solves.team_id = teams.id) AS last_solve`).
		Order("points DESC, last_solve ASC NULLS LAST, teams.id ASC").
		Scan(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build scoreboard"})
		return
	}
	if entries == nil {
		entries = []ScoreboardEntry{}
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	body, err := json.Marshal(gin.H{"scoreboard": entries})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build scoreboard"})
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, cache.ScoreboardKey, body, h.ttl); err != nil {
			log.Warn().Err(err).Msg("failed to cache scoreboard")
		}
	}

	c.Data(http.StatusOK, "application/json", body)
}

package handler

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/flagforge/api/internal/cache"
	"github.com/flagforge/api/internal/middleware"
	"github.com/flagforge/api/internal/model"
	"github.com/flagforge/api/internal/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChallengeHandler struct {
	db    *gorm.DB
	store storage.Store
	cache *cache.RedisCache
}

func NewChallengeHandler(db *gorm.DB, store storage.Store, redisCache *cache.RedisCache) *ChallengeHandler {
	return &ChallengeHandler{db: db, store: store, cache: redisCache}
}

type ChallengeView struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Points      int                   `json:"points"`
	Tags        datatypes.JSON        `json:"tags"`
	Hints       datatypes.JSON        `json:"hints"`
	FlagHash    string                `json:"flagHash"`
	SolveCount  int64                 `json:"solveCount"`
	Files       []model.ChallengeFile `json:"files"`
}

// List returns every published challenge. The flag itself never leaves the
// server; its sha256 is exposed so clients can self-check before submitting.
func (h *ChallengeHandler) List(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	var challenges []model.Challenge
	if err := db.Preload("Files").Order("id ASC").Find(&challenges).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list challenges"})
		return
	}

	views := make([]ChallengeView, 0, len(challenges))
	for i := range challenges {
		view, err := challengeView(db, &challenges[i])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list challenges"})
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{"challenges": views})
}

type CreateChallengeRequest struct {
	Name        string         `json:"name" binding:"required,max=60"`
	Description string         `json:"description" binding:"max=1500"`
	Flag        string         `json:"flag" binding:"required,max=120"`
	Points      int            `json:"points" binding:"required,min=1"`
	Tags        datatypes.JSON `json:"tags"`
	Hints       datatypes.JSON `json:"hints"`
}

func (h *ChallengeHandler) Create(c *gin.Context) {
	var req CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, flag and points are required"})
		return
	}

	challenge := model.Challenge{
		Name:        req.Name,
		Description: req.Description,
		Flag:        req.Flag,
		Points:      req.Points,
		Tags:        req.Tags,
		Hints:       req.Hints,
	}
	result := h.db.WithContext(c.Request.Context()).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&challenge)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create challenge"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "challenge name already in use"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "challenge created", "id": challenge.ID})
}

type UpdateChallengeRequest struct {
	Name        *string         `json:"name" binding:"omitempty,min=1,max=60"`
	Description *string         `json:"description" binding:"omitempty,max=1500"`
	Flag        *string         `json:"flag" binding:"omitempty,min=1,max=120"`
	Points      *int            `json:"points" binding:"omitempty,min=1"`
	Tags        *datatypes.JSON `json:"tags"`
	Hints       *datatypes.JSON `json:"hints"`
}

func (h *ChallengeHandler) Update(c *gin.Context) {
	challengeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	var req UpdateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Flag != nil {
		updates["flag"] = *req.Flag
	}
	if req.Points != nil {
		updates["points"] = *req.Points
	}
	if req.Tags != nil {
		updates["tags"] = *req.Tags
	}
	if req.Hints != nil {
		updates["hints"] = *req.Hints
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Model(&model.Challenge{}).
		Where("id = ?", challengeID).
		Updates(updates)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update challenge"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no challenge associated with the id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "challenge updated"})
}

type SolveRequest struct {
	Flag string `json:"flag" binding:"required,max=120"`
}

// Solve submits a flag. The first correct submission per team wins the
// points; the (team, challenge) unique index absorbs concurrent repeats.
func (h *ChallengeHandler) Solve(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if user.TeamID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "user must be part of a team to solve a challenge"})
		return
	}

	challengeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "flag is required"})
		return
	}

	db := h.db.WithContext(c.Request.Context())

	var challenge model.Challenge
	if err := db.First(&challenge, challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no challenge associated with the id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit flag"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Flag), []byte(challenge.Flag)) != 1 {
		middleware.RecordFlagSubmission("wrong")
		c.JSON(http.StatusForbidden, gin.H{"error": "flag does not match for challenge"})
		return
	}

	solve := model.Solve{
		UserID:      user.ID,
		TeamID:      *user.TeamID,
		ChallengeID: challenge.ID,
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&solve)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit flag"})
		return
	}
	if result.RowsAffected == 0 {
		middleware.RecordFlagSubmission("duplicate")
		c.JSON(http.StatusConflict, gin.H{"error": "already solved"})
		return
	}

	middleware.RecordFlagSubmission("correct")
	if h.cache != nil {
		h.cache.Delete(c.Request.Context(), cache.ScoreboardKey)
	}
	c.JSON(http.StatusOK, gin.H{"message": "challenge solved"})
}

// Solves lists who solved a challenge, first solver first.
func (h *ChallengeHandler) Solves(c *gin.Context) {
	challengeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	type challengeSolve struct {
		TeamID   int64     `json:"teamId"`
		TeamName string    `json:"teamName"`
		SolvedAt time.Time `json:"solvedAt"`
	}
	var solves []challengeSolve
	err = h.db.WithContext(c.Request.Context()).
		Table("solves").
		Select("solves.team_id, teams.name AS team_name, solves.created_at AS solved_at").
		Joins("JOIN teams ON teams.id = solves.team_id").
		Where("solves.challenge_id = ?", challengeID).
		Order("solves.created_at ASC").
		Scan(&solves).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list solves"})
		return
	}
	if solves == nil {
		solves = []challengeSolve{}
	}
	c.JSON(http.StatusOK, gin.H{"solves": solves})
}

func challengeView(db *gorm.DB, challenge *model.Challenge) (ChallengeView, error) {
	flagHash := sha256.Sum256([]byte(challenge.Flag))
	view := ChallengeView{
		ID:          challenge.ID,
		Name:        challenge.Name,
		Description: challenge.Description,
		Points:      challenge.Points,
		Tags:        challenge.Tags,
		Hints:       challenge.Hints,
		FlagHash:    hex.EncodeToString(flagHash[:]),
		Files:       challenge.Files,
	}
	if view.Tags == nil {
		view.Tags = datatypes.JSON([]byte("[]"))
	}
	if view.Files == nil {
		view.Files = []model.ChallengeFile{}
	}
	err := db.Model(&model.Solve{}).
		Where("challenge_id = ?", challenge.ID).
		Count(&view.SolveCount).Error
	return view, err
}

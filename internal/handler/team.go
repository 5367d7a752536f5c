package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/flagforge/api/internal/auth"
	"github.com/flagforge/api/internal/middleware"
	"github.com/flagforge/api/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TeamHandler struct {
	db     *gorm.DB
	hasher auth.Hasher
}

func NewTeamHandler(db *gorm.DB, hasher auth.Hasher) *TeamHandler {
	return &TeamHandler{db: db, hasher: hasher}
}

type TeamSummary struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type TeamProfile struct {
	TeamSummary
	Members []UserSummary  `json:"members"`
	Solves  []SolveSummary `json:"solves"`
}

type CreateTeamRequest struct {
	Name     string `json:"name" binding:"required,max=30"`
	Password string `json:"password" binding:"required,max=70"`
}

// Create registers a team and makes the caller its first member.
func (h *TeamHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if user.TeamID != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "user already in a team"})
		return
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and password are required"})
		return
	}

	passHash, err := h.hasher.Hash(c.Request.Context(), req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create team"})
		return
	}

	team := model.Team{Name: req.Name, PassHash: passHash}
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&team)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return auth.ErrDuplicateIdentity
		}
		return tx.Model(&model.User{}).Where("id = ?", user.ID).Update("team_id", team.ID).Error
	})
	if errors.Is(err, auth.ErrDuplicateIdentity) {
		c.JSON(http.StatusConflict, gin.H{"error": "team name already in use"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create team"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "team registered", "id": team.ID})
}

type JoinTeamRequest struct {
	Name     string `json:"name" binding:"required,max=30"`
	Password string `json:"password" binding:"required,max=70"`
}

// Join adds the caller to an existing team. The rejection for a wrong name
// and a wrong password is the same.
func (h *TeamHandler) Join(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if user.TeamID != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "user already in a team"})
		return
	}

	var req JoinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and password are required"})
		return
	}

	var team model.Team
	err := h.db.WithContext(c.Request.Context()).
		Where("name = ?", req.Name).
		First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !h.hasher.Verify(req.Password, team.PassHash)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "team name and/or password does not match"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join team"})
		return
	}

	err = h.db.WithContext(c.Request.Context()).
		Model(&model.User{}).
		Where("id = ? AND team_id IS NULL", user.ID).
		Update("team_id", team.ID).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join team"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user added to team"})
}

type UpdateTeamRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=30"`
	Password *string `json:"password" binding:"omitempty,min=1,max=70"`
}

// Update renames the caller's team or rotates its join password.
func (h *TeamHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if user.TeamID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "user not in a team"})
		return
	}

	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Name == nil && req.Password == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		var count int64
		h.db.WithContext(c.Request.Context()).
			Model(&model.Team{}).
			Where("name = ? AND id <> ?", *req.Name, *user.TeamID).
			Count(&count)
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "team name already in use"})
			return
		}
		updates["name"] = *req.Name
	}
	if req.Password != nil {
		passHash, err := h.hasher.Hash(c.Request.Context(), *req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update team"})
			return
		}
		updates["pass_hash"] = passHash
	}

	err := h.db.WithContext(c.Request.Context()).
		Model(&model.Team{}).
		Where("id = ?", *user.TeamID).
		Updates(updates).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update team"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "team updated"})
}

// Mine returns the caller's own team profile.
func (h *TeamHandler) Mine(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if user.TeamID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "user not in a team"})
		return
	}
	h.renderProfile(c, *user.TeamID)
}

// List returns every team's public summary, best first.
func (h *TeamHandler) List(c *gin.Context) {
	teams, err := teamStandings(h.db.WithContext(c.Request.Context()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list teams"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

// Get returns one team's public profile.
func (h *TeamHandler) Get(c *gin.Context) {
	teamID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team id"})
		return
	}
	h.renderProfile(c, teamID)
}

func (h *TeamHandler) renderProfile(c *gin.Context, teamID int64) {
	db := h.db.WithContext(c.Request.Context())

	var team model.Team
	if err := db.First(&team, teamID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no team associated with the id"})
		return
	}

	profile := TeamProfile{TeamSummary: TeamSummary{ID: team.ID, Name: team.Name}}

	err := db.Table("solves").
		Select("COALESCE(SUM(challenges.points), 0)").
		Joins("JOIN challenges ON challenges.id = solves.challenge_id").
		Where("solves.team_id = ?", team.ID).
		Scan(&profile.Points).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load team"})
		return
	}

	var members []model.User
	if err := db.Where("team_id = ?", team.ID).Order("id ASC").Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load team"})
		return
	}
	profile.Members = []UserSummary{}
	for i := range members {
		summary, err := userSummary(db, &members[i])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load team"})
			return
		}
		profile.Members = append(profile.Members, summary)
	}

	var solves []SolveSummary
	err = db.Table("solves").
		Select("solves.challenge_id, challenges.name, challenges.points, solves.created_at AS solved_at").
		Joins("JOIN challenges ON challenges.id = solves.challenge_id").
		Where("solves.team_id = ?", team.ID).
		Order("solves.created_at ASC").
		Scan(&solves).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load team"})
		return
	}
	if solves == nil {
		solves = []SolveSummary{}
	}
	profile.Solves = solves

	c.JSON(http.StatusOK, profile)
}

func teamStandings(db *gorm.DB) ([]TeamSummary, error) {
	var teams []TeamSummary
	err := db.Table("teams").
		Select(`teams.id, teams.name,
			COALESCE((SELECT SUM(challenges.points) FROM solves
				JOIN challenges ON challenges.id = solves.challenge_id
				WHERE solves.team_id = teams.id), 0) AS points`).
		Order("points DESC, teams.id ASC").
		Scan(&teams).Error
	if teams == nil {
		teams = []TeamSummary{}
	}
	return teams, err
}

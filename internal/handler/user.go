package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/flagforge/api/internal/auth"
	"github.com/flagforge/api/internal/middleware"
	"github.com/flagforge/api/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserHandler struct {
	db     *gorm.DB
	hasher auth.Hasher
}

func NewUserHandler(db *gorm.DB, hasher auth.Hasher) *UserHandler {
	return &UserHandler{db: db, hasher: hasher}
}

type UserSummary struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	TeamID   *int64  `json:"teamId"`
	TeamName *string `json:"teamName"`
	Points   int     `json:"points"`
}

type SolveSummary struct {
	ChallengeID int64     `json:"challengeId"`
	Name        string    `json:"name"`
	Points      int       `json:"points"`
	SolvedAt    time.Time `json:"solvedAt"`
}

type UserProfile struct {
	UserSummary
	Solves []SolveSummary `json:"solves"`
}

type PrivateProfile struct {
	UserProfile
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

// List returns every account's public summary.
func (h *UserHandler) List(c *gin.Context) {
	var users []UserSummary
	err := h.db.WithContext(c.Request.Context()).
		Table("users").
		Select(`users.id, users.username, users.team_id, teams.name AS team_name,
			COALESCE((SELECT SUM(challenges.points) FROM solves
				JOIN challenges ON challenges.id = solves.challenge_id
				WHERE solves.user_id = users.id), 0) AS points`).
		Joins("LEFT JOIN teams ON teams.id = users.team_id").
		Order("points DESC, users.id ASC").
		Scan(&users).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	if users == nil {
		users = []UserSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Get returns one account's public profile with its solves.
func (h *UserHandler) Get(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var user model.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no user associated with the id"})
		return
	}

	profile, err := publicProfile(h.db.WithContext(c.Request.Context()), &user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

type ChangePasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required,max=70"`
}

// ChangePassword replaces the caller's password hash. Outstanding tokens
// stay valid: sessions resolve by account id, and password rotation is not
// revocation.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "newPassword is required"})
		return
	}

	passHash, err := h.hasher.Hash(c.Request.Context(), req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password too long"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change password"})
		return
	}

	err = h.db.WithContext(c.Request.Context()).
		Model(&model.User{}).
		Where("id = ?", user.ID).
		Update("pass_hash", passHash).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

func userSummary(db *gorm.DB, user *model.User) (UserSummary, error) {
	summary := UserSummary{ID: user.ID, Username: user.Username, TeamID: user.TeamID}

	if user.TeamID != nil {
		var team model.Team
		if err := db.First(&team, *user.TeamID).Error; err != nil {
			return summary, err
		}
		summary.TeamName = &team.Name
	}

	err := db.Table("solves").
		Select("COALESCE(SUM(challenges.points), 0)").
		Joins("JOIN challenges ON challenges.id = solves.challenge_id").
		Where("solves.user_id = ?", user.ID).
		Scan(&summary.Points).Error
	return summary, err
}

func userSolves(db *gorm.DB, userID int64) ([]SolveSummary, error) {
	var solves []SolveSummary
	err := db.Table("solves").
		Select("solves.challenge_id, challenges.name, challenges.points, solves.created_at AS solved_at").
		Joins("JOIN challenges ON challenges.id = solves.challenge_id").
		Where("solves.user_id = ?", userID).
		Order("solves.created_at ASC").
		Scan(&solves).Error
	if solves == nil {
		solves = []SolveSummary{}
	}
	return solves, err
}

func publicProfile(db *gorm.DB, user *model.User) (*UserProfile, error) {
	summary, err := userSummary(db, user)
	if err != nil {
		return nil, err
	}
	solves, err := userSolves(db, user.ID)
	if err != nil {
		return nil, err
	}
	return &UserProfile{UserSummary: summary, Solves: solves}, nil
}

func privateProfile(db *gorm.DB, user *model.User) (*PrivateProfile, error) {
	profile, err := publicProfile(db, user)
	if err != nil {
		return nil, err
	}
	return &PrivateProfile{UserProfile: *profile, Email: user.Email, Admin: user.Admin}, nil
}

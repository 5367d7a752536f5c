package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/flagforge/api/internal/auth"
	"github.com/flagforge/api/internal/middleware"
	"github.com/flagforge/api/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AuthHandler struct {
	db            *gorm.DB
	hasher        auth.Hasher
	codec         *auth.Codec
	verifier      *auth.Verifier
	tokenLifetime time.Duration
}

func NewAuthHandler(db *gorm.DB, hasher auth.Hasher, codec *auth.Codec, verifier *auth.Verifier, tokenLifetime time.Duration) *AuthHandler {
	return &AuthHandler{
		db:            db,
		hasher:        hasher,
		codec:         codec,
		verifier:      verifier,
		tokenLifetime: tokenLifetime,
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=25"`
	Password string `json:"password" binding:"required,max=70"`
	Email    string `json:"email" binding:"required,email,max=50"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,max=25"`
	Password string `json:"password" binding:"required,max=70"`
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, password and email are required"})
		return
	}

	passHash, err := h.hasher.Hash(c.Request.Context(), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password too long"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	user := model.User{
		Username: req.Username,
		Email:    req.Email,
		PassHash: passHash,
	}
	// Insert-or-conflict in one statement: the unique indexes on username
	// and email decide, not a read-then-write race.
	result := h.db.WithContext(c.Request.Context()).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&user)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": auth.ErrDuplicateIdentity.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user registered"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	// One uniform rejection for unknown user and wrong password: the
	// response must not confirm that a username exists.
	unauthorized := func() {
		middleware.RecordLogin(false)
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidCredentials.Error()})
	}

	var user model.User
	err := h.db.WithContext(c.Request.Context()).
		Where("username = ?", req.Username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			unauthorized()
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	if !h.hasher.Verify(req.Password, user.PassHash) {
		unauthorized()
		return
	}

	token, err := h.codec.Issue(user.ID, time.Now(), h.tokenLifetime)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	middleware.RecordLogin(true)
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.tokenLifetime.Seconds()),
	})
}

// Logout revokes the exact token the request authenticated with. The
// second logout of the same token is a soft conflict, not a fault.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
		return
	}

	status, err := h.verifier.Revoke(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}

	middleware.RecordRevocation(status == auth.RevocationAdded)
	if status == auth.RevocationDuplicate {
		c.JSON(http.StatusConflict, gin.H{"error": auth.ErrAlreadyRevoked.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}

// Me returns the caller's private profile.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	profile, err := privateProfile(h.db.WithContext(c.Request.Context()), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/flagforge/api/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AnnouncementHandler struct {
	db *gorm.DB
}

func NewAnnouncementHandler(db *gorm.DB) *AnnouncementHandler {
	return &AnnouncementHandler{db: db}
}

// List is public: everyone sees announcements, newest first.
func (h *AnnouncementHandler) List(c *gin.Context) {
	var announcements []model.Announcement
	err := h.db.WithContext(c.Request.Context()).
		Order("created_at DESC").
		Find(&announcements).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list announcements"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": announcements})
}

type CreateAnnouncementRequest struct {
	Title string `json:"title" binding:"required,max=60"`
	Body  string `json:"body" binding:"required,max=1500"`
}

func (h *AnnouncementHandler) Create(c *gin.Context) {
	var req CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and body are required"})
		return
	}

	announcement := model.Announcement{Title: req.Title, Body: req.Body}
	if err := h.db.WithContext(c.Request.Context()).Create(&announcement).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create announcement"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "announcement created", "id": announcement.ID})
}

type UpdateAnnouncementRequest struct {
	Title *string `json:"title" binding:"omitempty,min=1,max=60"`
	Body  *string `json:"body" binding:"omitempty,min=1,max=1500"`
}

func (h *AnnouncementHandler) Update(c *gin.Context) {
	announcementID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid announcement id"})
		return
	}

	var req UpdateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Title == nil && req.Body == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}

	result := h.db.WithContext(c.Request.Context()).
		Model(&model.Announcement{}).
		Where("id = ?", announcementID).
		Updates(updates)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update announcement"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "announcement not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "announcement updated"})
}

func (h *AnnouncementHandler) Delete(c *gin.Context) {
	announcementID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid announcement id"})
		return
	}

	result := h.db.WithContext(c.Request.Context()).Delete(&model.Announcement{}, announcementID)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete announcement"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "announcement not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "announcement deleted"})
}

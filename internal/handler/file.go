package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/flagforge/api/internal/model"
	"github.com/flagforge/api/internal/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type FileHandler struct {
	db    *gorm.DB
	store storage.Store
}

func NewFileHandler(db *gorm.DB, store storage.Store) *FileHandler {
	return &FileHandler{db: db, store: store}
}

// Upload attaches a file to a challenge. The upload streams through the
// file store; only the storage key and size land in the database.
func (h *FileHandler) Upload(c *gin.Context) {
	challengeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Filename == "" || len(fileHeader.Filename) > model.FileNameMaxLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too long/no filename"})
		return
	}

	db := h.db.WithContext(c.Request.Context())

	var challenge model.Challenge
	if err := db.First(&challenge, challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no challenge associated with the id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add file"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add file"})
		return
	}
	defer src.Close()

	key, size, err := h.store.Save(c.Request.Context(), fileHeader.Filename, src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add file"})
		return
	}

	file := model.ChallengeFile{
		ChallengeID: challenge.ID,
		Name:        fileHeader.Filename,
		Key:         key,
		Size:        size,
	}
	if err := db.Create(&file).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add file"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "file added", "id": file.ID})
}

// Download serves a challenge file: a redirect to a presigned URL when the
// backend offers one, otherwise a direct stream.
func (h *FileHandler) Download(c *gin.Context) {
	fileID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	var file model.ChallengeFile
	if err := h.db.WithContext(c.Request.Context()).First(&file, fileID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no file associated with the id"})
		return
	}

	url, ok, err := h.store.URL(c.Request.Context(), file.Key, file.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to serve file"})
		return
	}
	if ok {
		c.Redirect(http.StatusTemporaryRedirect, url)
		return
	}

	reader, err := h.store.Open(c.Request.Context(), file.Key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to serve file"})
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.DataFromReader(http.StatusOK, file.Size, "application/octet-stream", reader, nil)
}

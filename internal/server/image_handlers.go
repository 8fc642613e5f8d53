package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/captionly-dev/captionly/internal/auth"
	"github.com/captionly-dev/captionly/internal/models"
)

// uploadField is the multipart field the image is read from
const uploadField = "image"

// UpdateCaptionRequest replaces an image's caption
type UpdateCaptionRequest struct {
	Description string `json:"description"`
}

// ReportImageRequest flags an image for moderation
type ReportImageRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (s *Server) uploadImage(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image"})
		return
	}

	// Trust the bytes, not the client's Content-Type
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is not an image"})
		return
	}

	image := models.Image{
		UserID:      sessionData.UserID,
		Filename:    filepath.Base(fileHeader.Filename),
		ContentType: mtype.String(),
		Size:        int64(len(data)),
	}
	image.Description = s.captioner.Caption(image.Filename, image.ContentType, image.Size, 0)

	if err := s.db.Create(&image).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to store image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
		return
	}

	s.logger.Info().
		Str("image_id", image.ID).
		Str("user_id", image.UserID).
		Str("content_type", image.ContentType).
		Int64("size", image.Size).
		Msg("Image uploaded")

	image.User = &models.User{Username: sessionData.Username}
	c.JSON(http.StatusCreated, imageDetail(&image))
}

func (s *Server) updateCaption(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req UpdateCaptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	image, ok := s.ownedImage(c, sessionData)
	if !ok {
		return
	}

	if err := s.db.Model(image).Update("description", req.Description).Error; err != nil {
		s.logger.Error().Err(err).Str("image_id", image.ID).Msg("Failed to update caption")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update caption"})
		return
	}
	image.Description = req.Description

	c.JSON(http.StatusOK, imageDetail(image))
}

func (s *Server) regenerateCaption(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	image, ok := s.ownedImage(c, sessionData)
	if !ok {
		return
	}

	image.Generation++
	image.Description = s.captioner.Caption(image.Filename, image.ContentType, image.Size, image.Generation)

	err := s.db.Model(image).Updates(map[string]any{
		"generation":  image.Generation,
		"description": image.Description,
	}).Error
	if err != nil {
		s.logger.Error().Err(err).Str("image_id", image.ID).Msg("Failed to regenerate caption")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to regenerate caption"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Caption regenerated",
		"image":   imageDetail(image),
	})
}

func (s *Server) listImages(c *gin.Context) {
	s.respondWithImagePage(c, func(db *gorm.DB) *gorm.DB { return db })
}

func (s *Server) listMyImages(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	s.respondWithImagePage(c, func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", sessionData.UserID)
	})
}

func (s *Server) deleteImage(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	image, ok := s.ownedImage(c, sessionData)
	if !ok {
		return
	}

	if err := s.removeImage(image.ID); err != nil {
		s.logger.Error().Err(err).Str("image_id", image.ID).Msg("Failed to delete image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image"})
		return
	}

	s.logger.Info().Str("image_id", image.ID).Str("user_id", sessionData.UserID).Msg("Image deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}

func (s *Server) reportImage(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req ReportImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	var image models.Image
	if err := models.FindByID(s.db, c.Param("id"), &image); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	report := models.Report{
		ImageID:    image.ID,
		ReporterID: sessionData.UserID,
		Reason:     strings.TrimSpace(req.Reason),
		Status:     models.ReportPending,
	}
	if err := s.db.Create(&report).Error; err != nil {
		s.logger.Error().Err(err).Str("image_id", image.ID).Msg("Failed to create report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to report image"})
		return
	}

	s.logger.Info().Str("report_id", report.ID).Str("image_id", image.ID).Msg("Image reported")
	c.JSON(http.StatusCreated, gin.H{
		"message": "Report submitted",
		"report":  reportDetail(&report),
	})
}

// ownedImage loads the :id image and checks the caller may modify it.
// It writes the error response itself and reports false when the handler should stop.
func (s *Server) ownedImage(c *gin.Context, sessionData *auth.SessionData) (*models.Image, bool) {
	var image models.Image
	if err := models.FindByIDWithPreload(s.db, c.Param("id"), &image, "User"); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return nil, false
		}
		s.logger.Error().Err(err).Msg("Failed to get image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get image"})
		return nil, false
	}

	if image.UserID != sessionData.UserID && !sessionData.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own images"})
		return nil, false
	}
	return &image, true
}

// removeImage deletes an image together with its reports
func (s *Server) removeImage(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_id = ?", id).Delete(&models.Report{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Image{}).Error
	})
}

func (s *Server) respondWithImagePage(c *gin.Context, scope func(*gorm.DB) *gorm.DB) {
	p := parsePagination(c)

	var total int64
	if err := s.db.Model(&models.Image{}).Scopes(scope).Count(&total).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count images")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list images"})
		return
	}

	var images []models.Image
	err := s.db.Scopes(scope).Preload("User").
		Order("created_at DESC, id DESC").
		Offset(p.Offset()).
		Limit(p.PerPage).
		Find(&images).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list images")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list images"})
		return
	}

	details := make([]*ImageDetail, len(images))
	for i := range images {
		details[i] = imageDetail(&images[i])
	}

	c.JSON(http.StatusOK, ImagePageResponse{
		Images:  details,
		Total:   total,
		Page:    p.Page,
		PerPage: p.PerPage,
		Pages:   p.Pages(total),
	})
}

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/captionly-dev/captionly/internal/models"
)

const searchLimit = 20

// UpdateProfileRequest changes the caller's own profile
type UpdateProfileRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email" binding:"omitempty,email"`
}

func (s *Server) getProfile(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var user models.User
	if err := models.FindByID(s.db, sessionData.UserID, &user); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, userDetail(&user))
}

func (s *Server) updateProfile(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	var user models.User
	if err := models.FindByID(s.db, sessionData.UserID, &user); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	updates := map[string]any{}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email cannot be empty"})
			return
		}
		if email != user.Email {
			var taken int64
			s.db.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&taken)
			if taken > 0 {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
				return
			}
		}
		updates["email"] = email
	}

	if len(updates) > 0 {
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update profile")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
		if err := models.FindByID(s.db, user.ID, &user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Profile updated")
	c.JSON(http.StatusOK, gin.H{"user": userDetail(&user)})
}

func (s *Server) searchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))

	users := []models.User{}
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		err := s.db.
			Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ?", like, like).
			Order("username ASC").
			Limit(searchLimit).
			Find(&users).Error
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to search users")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search users"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"users": userDetails(users)})
}

func (s *Server) getUserByID(c *gin.Context) {
	var user models.User
	if err := models.FindByID(s.db, c.Param("id"), &user); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to get user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
		return
	}

	c.JSON(http.StatusOK, userDetail(&user))
}

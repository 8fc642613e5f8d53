package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/captionly-dev/captionly/internal/models"
)

// UpdateUserRequest is an admin edit of any user; nil fields are left alone
type UpdateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email" binding:"omitempty,email"`
	FullName *string `json:"full_name"`
	IsActive *bool   `json:"is_active"`
	Role     *string `json:"role" binding:"omitempty,oneof=user admin"`
}

// ChangeStatusRequest activates or deactivates a user
type ChangeStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ChangeRoleRequest promotes or demotes a user
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

// UpdateReportRequest moves a report through moderation
type UpdateReportRequest struct {
	Status string `json:"status" binding:"required,oneof=pending resolved dismissed"`
}

func (s *Server) listUsers(c *gin.Context) {
	p := parsePagination(c)

	scope := func(db *gorm.DB) *gorm.DB {
		if q := strings.TrimSpace(c.Query("query")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			db = db.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like, like)
		}
		if role := c.Query("role"); role != "" {
			db = db.Where("role = ?", role)
		}
		return db
	}

	var total int64
	if err := s.db.Model(&models.User{}).Scopes(scope).Count(&total).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	var users []models.User
	err := s.db.Scopes(scope).
		Order("created_at ASC, id ASC").
		Offset(p.Offset()).
		Limit(p.PerPage).
		Find(&users).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": userDetails(users),
		"total": total,
	})
}

func (s *Server) updateUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	user, ok := s.targetUser(c)
	if !ok {
		return
	}

	updates := map[string]any{}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username cannot be empty"})
			return
		}
		updates["username"] = username
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email cannot be empty"})
			return
		}
		updates["email"] = email
	}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}

	if len(updates) > 0 {
		var taken int64
		s.db.Model(&models.User{}).
			Where("id <> ? AND (username = ? OR email = ?)", user.ID, updates["username"], updates["email"]).
			Count(&taken)
		if taken > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already in use"})
			return
		}

		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		if err := models.FindByID(s.db, user.ID, user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User updated by admin")
	c.JSON(http.StatusOK, gin.H{"user": userDetail(user)})
}

func (s *Server) deleteUser(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	user, ok := s.targetUser(c)
	if !ok {
		return
	}
	if user.ID == sessionData.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		imageIDs := tx.Model(&models.Image{}).Select("id").Where("user_id = ?", user.ID)
		if err := tx.Where("image_id IN (?) OR reporter_id = ?", imageIDs, user.ID).Delete(&models.Report{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Image{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", user.ID).Delete(&models.User{}).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to delete user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User deleted")
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (s *Server) changeUserStatus(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	user, ok := s.targetUser(c)
	if !ok {
		return
	}
	if user.ID == sessionData.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot change your own status"})
		return
	}

	if err := s.db.Model(user).Update("is_active", *req.IsActive).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to change user status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change user status"})
		return
	}
	user.IsActive = *req.IsActive

	s.logger.Info().Str("user_id", user.ID).Bool("is_active", user.IsActive).Msg("User status changed")
	c.JSON(http.StatusOK, gin.H{"message": "User status updated", "user": userDetail(user)})
}

func (s *Server) changeUserRole(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	user, ok := s.targetUser(c)
	if !ok {
		return
	}
	if user.ID == sessionData.UserID && req.Role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot remove your own admin role"})
		return
	}

	if err := s.db.Model(user).Update("role", req.Role).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to change user role")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change user role"})
		return
	}
	user.Role = req.Role

	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("User role changed")
	c.JSON(http.StatusOK, gin.H{"message": "User role updated", "user": userDetail(user)})
}

func (s *Server) adminListImages(c *gin.Context) {
	s.respondWithImagePage(c, func(db *gorm.DB) *gorm.DB { return db })
}

func (s *Server) adminDeleteImage(c *gin.Context) {
	var image models.Image
	if err := models.FindByID(s.db, c.Param("id"), &image); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	if err := s.removeImage(image.ID); err != nil {
		s.logger.Error().Err(err).Str("image_id", image.ID).Msg("Failed to delete image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image"})
		return
	}

	s.logger.Info().Str("image_id", image.ID).Msg("Image deleted by admin")
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}

func (s *Server) listReports(c *gin.Context) {
	p := parsePagination(c)

	scope := func(db *gorm.DB) *gorm.DB {
		if status := c.Query("status"); status != "" {
			db = db.Where("status = ?", status)
		}
		return db
	}

	var total int64
	if err := s.db.Model(&models.Report{}).Scopes(scope).Count(&total).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}

	var reports []models.Report
	err := s.db.Scopes(scope).
		Order("created_at DESC, id DESC").
		Offset(p.Offset()).
		Limit(p.PerPage).
		Find(&reports).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}

	details := make([]*ReportDetail, len(reports))
	for i := range reports {
		details[i] = reportDetail(&reports[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": details,
		"total":   total,
	})
}

func (s *Server) updateReport(c *gin.Context) {
	var req UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	var report models.Report
	if err := models.FindByID(s.db, c.Param("id"), &report); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}

	if err := s.db.Model(&report).Update("status", req.Status).Error; err != nil {
		s.logger.Error().Err(err).Str("report_id", report.ID).Msg("Failed to update report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update report"})
		return
	}
	report.Status = req.Status

	c.JSON(http.StatusOK, gin.H{"message": "Report updated", "report": reportDetail(&report)})
}

func (s *Server) getStats(c *gin.Context) {
	var users, images, pending int64

	counts := []struct {
		model any
		where string
		args  []any
		out   *int64
	}{
		{&models.User{}, "", nil, &users},
		{&models.Image{}, "", nil, &images},
		{&models.Report{}, "status = ?", []any{models.ReportPending}, &pending},
	}
	for _, cnt := range counts {
		q := s.db.Model(cnt.model)
		if cnt.where != "" {
			q = q.Where(cnt.where, cnt.args...)
		}
		if err := q.Count(cnt.out).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to compute stats")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"users":           users,
		"images":          images,
		"pending_reports": pending,
	})
}

// targetUser loads the :id user, writing a 404 when it does not exist
func (s *Server) targetUser(c *gin.Context) (*models.User, bool) {
	var user models.User
	if err := models.FindByID(s.db, c.Param("id"), &user); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return nil, false
		}
		s.logger.Error().Err(err).Msg("Failed to get user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
		return nil, false
	}
	return &user, true
}

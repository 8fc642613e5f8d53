package server

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/captionly-dev/captionly/internal/models"
)

const (
	defaultPage    = 1
	defaultPerPage = 20
	maxPerPage     = 100
)

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	IsActive  bool      `json:"is_active"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func userDetail(u *models.User) *UserDetail {
	return &UserDetail{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func userDetails(users []models.User) []*UserDetail {
	out := make([]*UserDetail, len(users))
	for i := range users {
		out[i] = userDetail(&users[i])
	}
	return out
}

// ImageDetail represents an image returned in responses
type ImageDetail struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func imageDetail(img *models.Image) *ImageDetail {
	d := &ImageDetail{
		ID:          img.ID,
		Description: img.Description,
		Filename:    img.Filename,
		ContentType: img.ContentType,
		Size:        img.Size,
		UserID:      img.UserID,
		CreatedAt:   img.CreatedAt,
	}
	if img.User != nil {
		d.Username = img.User.Username
	}
	return d
}

// ImagePageResponse is one page of images
type ImagePageResponse struct {
	Images  []*ImageDetail `json:"images"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Pages   int            `json:"pages"`
}

// pagination reads page and per_page from the query string
type pagination struct {
	Page    int
	PerPage int
}

func parsePagination(c *gin.Context) pagination {
	p := pagination{Page: defaultPage, PerPage: defaultPerPage}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("per_page")); err == nil && v > 0 {
		p.PerPage = min(v, maxPerPage)
	}
	return p
}

func (p pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

func (p pagination) Pages(total int64) int {
	return int(math.Ceil(float64(total) / float64(p.PerPage)))
}

// ReportDetail represents a report returned in responses
type ReportDetail struct {
	ID         string    `json:"id"`
	ImageID    string    `json:"image_id"`
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func reportDetail(r *models.Report) *ReportDetail {
	return &ReportDetail{
		ID:         r.ID,
		ImageID:    r.ImageID,
		ReporterID: r.ReporterID,
		Reason:     r.Reason,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
	}
}

// useJSONFieldNames makes bind errors name fields the way clients send them
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// bindingMessage turns a bind error into a short sentence for the error body
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Report statuses
const (
	ReportPending   = "pending"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User is an account of the captioning service
type User struct {
	BaseModel
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role" gorm:"not null;default:user"`
	IsActive     bool      `json:"is_active" gorm:"not null"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Image is an uploaded picture and its current caption
type Image struct {
	BaseModel
	UserID      string `json:"user_id" gorm:"index;not null"`
	Filename    string `json:"filename" gorm:"not null"`
	ContentType string `json:"content_type" gorm:"not null"`
	Size        int64  `json:"size" gorm:"not null"`
	Description string `json:"description"`
	Generation  int    `json:"generation" gorm:"not null;default:0"` // Bumped on every regenerate

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Report is a complaint about an image
type Report struct {
	BaseModel
	ImageID    string    `json:"image_id" gorm:"index;not null"`
	ReporterID string    `json:"reporter_id" gorm:"index;not null"`
	Reason     string    `json:"reason" gorm:"type:text;not null"`
	Status     string    `json:"status" gorm:"index;not null;default:pending"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// PasswordReset is a single-use reset token. Only its hash is stored.
type PasswordReset struct {
	BaseModel
	UserID    string     `json:"user_id" gorm:"index;not null"`
	TokenHash string     `json:"-" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &Image{}, &Report{}, &PasswordReset{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindByIDWithPreload finds a record by ID with preloading
func FindByIDWithPreload[T any](db *gorm.DB, id string, model *T, preloads ...string) error {
	query := db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	return query.Where("id = ?", id).First(model).Error
}

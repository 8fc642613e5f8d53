package api

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
)

// ID is a backend identifier. Backends send either strings or numbers; both decode to a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Roles known to the backend
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User mirrors the backend's user representation
type User struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	IsActive bool   `json:"is_active"`
	Role     string `json:"role"`
}

// Usable reports whether the record identifies someone
func (u User) Usable() bool {
	return u.ID != "" && u.Username != ""
}

// IsAdmin reports whether the user holds the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserPatch is a partial user; nil fields are left untouched
type UserPatch struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	FullName *string `json:"full_name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

// Apply returns a copy of u with the non-nil fields of p merged in
func (u User) Apply(p UserPatch) User {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	return u
}

// Credentials identify a user by email or by username, never both
type Credentials struct {
	Email    string `json:"email,omitempty" validate:"omitempty,email,excluded_with=Username"`
	Username string `json:"username,omitempty" validate:"required_without=Email"`
	Password string `json:"password" validate:"required"`
}

// Identifier returns whichever of username/email was supplied
func (c Credentials) Identifier() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Email
}

// LoginResponse carries the token under one of two field names, and sometimes the user
type LoginResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	Token       string `json:"token,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// BearerToken returns access_token, falling back to token
func (r LoginResponse) BearerToken() (string, bool) {
	if r.AccessToken != "" {
		return r.AccessToken, true
	}
	if r.Token != "" {
		return r.Token, true
	}
	return "", false
}

// Registration is the body of POST /auth/register
type Registration struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name,omitempty"`
}

// RegisterResponse is what the backend answers to a registration
type RegisterResponse struct {
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// PasswordChange is the body of POST /auth/change-password
type PasswordChange struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// PasswordReset is the body of POST /auth/reset-password
type PasswordReset struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// MessageResponse is the generic {"message": "..."} acknowledgement
type MessageResponse struct {
	Message string `json:"message,omitempty"`
}

// ForgotPasswordResponse may carry a reset token when the backend runs in development mode
type ForgotPasswordResponse struct {
	Message    string `json:"message,omitempty"`
	ResetToken string `json:"reset_token,omitempty"`
}

// ProfileUpdate is the body of PUT /profile
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
}

// Patch converts the update into the equivalent local user patch
func (p ProfileUpdate) Patch() UserPatch {
	return UserPatch{FullName: p.FullName, Email: p.Email}
}

// Image is an uploaded picture and its caption
type Image struct {
	ID          ID     `json:"id"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description"`
	UserID      ID     `json:"user_id,omitempty"`
	Username    string `json:"username,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// Page selects a window of a paginated listing
type Page struct {
	Page    int
	PerPage int
}

// Default pagination, matching the feed screens
const (
	DefaultPage    = 1
	DefaultPerPage = 20
)

// ImagePage is one page of images
type ImagePage struct {
	Images  []Image `json:"images"`
	Total   int     `json:"total,omitempty"`
	Page    int     `json:"page,omitempty"`
	PerPage int     `json:"per_page,omitempty"`
	Pages   int     `json:"pages,omitempty"`
}

// UserPage is one page of users
type UserPage struct {
	Users []User `json:"users"`
	Total int    `json:"total,omitempty"`
}

// UserFilter narrows the admin user listing
type UserFilter struct {
	Query   string
	Role    string `validate:"omitempty,oneof=user admin"`
	Page    int
	PerPage int
}

// Report statuses
const (
	ReportPending   = "pending"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

// Report is a user complaint about an image
type Report struct {
	ID         ID     `json:"id"`
	ImageID    ID     `json:"image_id"`
	ReporterID ID     `json:"reporter_id,omitempty"`
	Reason     string `json:"reason"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// ReportPage is one page of reports
type ReportPage struct {
	Reports []Report `json:"reports"`
	Total   int      `json:"total,omitempty"`
}

// ReportFilter narrows the report listing
type ReportFilter struct {
	Status  string `validate:"omitempty,oneof=pending resolved dismissed"`
	Page    int
	PerPage int
}

// Stats is the admin dashboard summary
type Stats struct {
	Users          int `json:"users"`
	Images         int `json:"images"`
	PendingReports int `json:"pending_reports"`
}

// pageQuery renders pagination, applying defaults for unset fields
func pageQuery(page, perPage int) url.Values {
	if page <= 0 {
		page = DefaultPage
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
}

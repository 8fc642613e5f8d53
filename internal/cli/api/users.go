package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// UserService wraps the profile and user lookup endpoints
type UserService struct {
	r Requester
}

// GetProfile returns the user the current token belongs to
func (s *UserService) GetProfile(ctx context.Context) (*User, error) {
	raw, err := callRaw(ctx, s.r, http.MethodGet, "/profile", nil, nil)
	if err != nil {
		return nil, err
	}
	return unwrapUser(raw)
}

// UpdateProfile changes the current user's full name and/or email
func (s *UserService) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	if update.Email != nil && strings.TrimSpace(*update.Email) == "" {
		return nil, &ValidationError{Field: "email", Reason: "cannot be empty"}
	}
	if err := validateRequest(update); err != nil {
		return nil, err
	}

	raw, err := callRaw(ctx, s.r, http.MethodPut, "/profile", nil, update)
	if err != nil {
		return nil, err
	}
	return unwrapUser(raw)
}

// GetUserByID looks up another user
func (s *UserService) GetUserByID(ctx context.Context, id ID) (*User, error) {
	if err := requireID("id", string(id)); err != nil {
		return nil, err
	}

	raw, err := callRaw(ctx, s.r, http.MethodGet, idPath("/", id, ""), nil, nil)
	if err != nil {
		return nil, err
	}
	return unwrapUser(raw)
}

// SearchUsers finds users matching query
func (s *UserService) SearchUsers(ctx context.Context, query string) ([]User, error) {
	raw, err := callRaw(ctx, s.r, http.MethodGet, "/search", url.Values{"query": {query}}, nil)
	if err != nil {
		return nil, err
	}
	return unwrapUsers(raw), nil
}

// ChangePassword is exposed here too because the profile screen owns it
func (s *UserService) ChangePassword(ctx context.Context, change PasswordChange) (*MessageResponse, error) {
	return (&AuthService{r: s.r}).ChangePassword(ctx, change)
}

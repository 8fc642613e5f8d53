package api

import (
	"context"
	"net/http"
)

// AuthService wraps the /auth endpoints
type AuthService struct {
	r Requester
}

// Login exchanges credentials for a token
func (s *AuthService) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	if err := validateRequest(creds); err != nil {
		return nil, err
	}

	var resp LoginResponse
	if err := call(ctx, s.r, http.MethodPost, "/auth/login", nil, creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account. It does not log in.
func (s *AuthService) Register(ctx context.Context, reg Registration) (*RegisterResponse, error) {
	if err := validateRequest(reg); err != nil {
		return nil, err
	}

	raw, err := callRaw(ctx, s.r, http.MethodPost, "/auth/register", nil, reg)
	if err != nil {
		return nil, err
	}

	resp := &RegisterResponse{}
	if u, err := unwrapUser(raw); err == nil && u.Usable() {
		resp.User = u
	}
	var msg MessageResponse
	if err := decodeLenient(raw, &msg); err == nil {
		resp.Message = msg.Message
	}
	return resp, nil
}

// ChangePassword changes the password of the logged in user
func (s *AuthService) ChangePassword(ctx context.Context, change PasswordChange) (*MessageResponse, error) {
	if err := validateRequest(change); err != nil {
		return nil, err
	}

	var resp MessageResponse
	if err := call(ctx, s.r, http.MethodPost, "/auth/change-password", nil, change, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForgotPassword asks the backend to start a password reset for email
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResponse, error) {
	body := struct {
		Email string `json:"email" validate:"required,email"`
	}{Email: email}
	if err := validateRequest(body); err != nil {
		return nil, err
	}

	var resp ForgotPasswordResponse
	if err := call(ctx, s.r, http.MethodPost, "/auth/forgot-password", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPassword completes a reset with the token the backend issued
func (s *AuthService) ResetPassword(ctx context.Context, reset PasswordReset) (*MessageResponse, error) {
	if err := validateRequest(reset); err != nil {
		return nil, err
	}

	var resp MessageResponse
	if err := call(ctx, s.r, http.MethodPost, "/auth/reset-password", nil, reset, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

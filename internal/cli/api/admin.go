package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// AdminService wraps the admin-only endpoints
type AdminService struct {
	r Requester
}

// ListUsers returns registered users
func (s *AdminService) ListUsers(ctx context.Context, filter UserFilter) (*UserPage, error) {
	if err := validateRequest(filter); err != nil {
		return nil, err
	}

	query := url.Values{}
	if filter.Query != "" {
		query.Set("query", filter.Query)
	}
	if filter.Role != "" {
		query.Set("role", filter.Role)
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(filter.PerPage))
	}

	raw, err := callRaw(ctx, s.r, http.MethodGet, "/users", query, nil)
	if err != nil {
		return nil, err
	}

	page := &UserPage{}
	_ = decodeLenient(raw, page)
	page.Users = unwrapUsers(raw)
	return page, nil
}

// UpdateUser applies a partial update to any user
func (s *AdminService) UpdateUser(ctx context.Context, id ID, patch UserPatch) (*User, error) {
	if err := requireID("id", string(id)); err != nil {
		return nil, err
	}
	if err := validateRequest(patch); err != nil {
		return nil, err
	}

	raw, err := callRaw(ctx, s.r, http.MethodPut, idPath("/users/", id, ""), nil, patch)
	if err != nil {
		return nil, err
	}
	return unwrapUser(raw)
}

// DeleteUser removes a user account
func (s *AdminService) DeleteUser(ctx context.Context, id ID) error {
	if err := requireID("id", string(id)); err != nil {
		return err
	}
	return call(ctx, s.r, http.MethodDelete, idPath("/users/", id, ""), nil, nil, nil)
}

// ChangeUserStatus activates or deactivates a user
func (s *AdminService) ChangeUserStatus(ctx context.Context, id ID, active bool) error {
	if err := requireID("id", string(id)); err != nil {
		return err
	}

	body := struct {
		IsActive bool `json:"is_active"`
	}{IsActive: active}
	return call(ctx, s.r, http.MethodPut, idPath("/users/change-status/", id, ""), nil, body, nil)
}

// ChangeUserRole grants or revokes admin
func (s *AdminService) ChangeUserRole(ctx context.Context, id ID, role string) error {
	if err := requireID("id", string(id)); err != nil {
		return err
	}

	body := struct {
		Role string `json:"role" validate:"required,oneof=user admin"`
	}{Role: role}
	if err := validateRequest(body); err != nil {
		return err
	}
	return call(ctx, s.r, http.MethodPut, idPath("/users/change-role/", id, ""), nil, body, nil)
}

// ListImages returns every image, for moderation
func (s *AdminService) ListImages(ctx context.Context, page Page) (*ImagePage, error) {
	return listImages(ctx, s.r, "/admin/images", page)
}

// DeleteImage removes any image
func (s *AdminService) DeleteImage(ctx context.Context, id ID) error {
	if err := requireID("id", string(id)); err != nil {
		return err
	}
	return call(ctx, s.r, http.MethodDelete, idPath("/admin/images/", id, ""), nil, nil, nil)
}

// ListReports returns moderation reports
func (s *AdminService) ListReports(ctx context.Context, filter ReportFilter) (*ReportPage, error) {
	if err := validateRequest(filter); err != nil {
		return nil, err
	}

	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(filter.PerPage))
	}

	raw, err := callRaw(ctx, s.r, http.MethodGet, "/reports", query, nil)
	if err != nil {
		return nil, err
	}

	page := &ReportPage{}
	if err := decodeLenient(raw, page); err != nil {
		page = &ReportPage{}
	}
	if page.Reports == nil {
		page.Reports = []Report{}
	}
	return page, nil
}

// UpdateReport moves a report to a new status
func (s *AdminService) UpdateReport(ctx context.Context, id ID, status string) error {
	if err := requireID("id", string(id)); err != nil {
		return err
	}

	body := struct {
		Status string `json:"status" validate:"required,oneof=pending resolved dismissed"`
	}{Status: status}
	if err := validateRequest(body); err != nil {
		return err
	}
	return call(ctx, s.r, http.MethodPut, idPath("/reports/", id, ""), nil, body, nil)
}

// Stats returns the dashboard counters
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := call(ctx, s.r, http.MethodGet, "/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/captionly-dev/captionly/internal/config"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type testServer struct {
	t   *testing.T
	srv *Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{Addr: "127.0.0.1:0"},
		Database: config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "test.sqlite")},
		Auth: config.AuthConfig{
			JWTSecret:         "test-secret",
			TokenTTL:          time.Hour,
			ResetTokenTTL:     time.Hour,
			ExposeResetTokens: true,
		},
	}

	srv, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := srv.GetDB().DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &testServer{t: t, srv: srv}
}

func (ts *testServer) do(method, path, token string, body any) (int, map[string]any) {
	ts.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.serve(req, token)
}

func (ts *testServer) upload(token, filename string, content []byte) (int, map[string]any) {
	ts.t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(uploadField, filename)
	require.NoError(ts.t, err)
	_, err = part.Write(content)
	require.NoError(ts.t, err)
	require.NoError(ts.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return ts.serve(req, token)
}

func (ts *testServer) serve(req *http.Request, token string) (int, map[string]any) {
	ts.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	body := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec.Code, body
}

// signup registers and logs in, returning the token and user id
func (ts *testServer) signup(username string) (string, string) {
	ts.t.Helper()

	code, body := ts.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	})
	require.Equal(ts.t, http.StatusCreated, code, body)

	code, body = ts.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"username": username,
		"password": "secret1",
	})
	require.Equal(ts.t, http.StatusOK, code, body)

	user := body["user"].(map[string]any)
	return body["access_token"].(string), user["id"].(string)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "alice", "email": "Alice@Example.com", "password": "secret1", "full_name": "Alice",
	})
	require.Equal(t, http.StatusCreated, code)
	first := body["user"].(map[string]any)
	assert.Equal(t, "admin", first["role"], "first account is admin")
	assert.Equal(t, "alice@example.com", first["email"])
	assert.Equal(t, true, first["is_active"])
	assert.NotContains(t, first, "password_hash")

	code, body = ts.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "bob", "email": "bob@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "user", body["user"].(map[string]any)["role"])

	code, body = ts.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "bob", "email": "other@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Username or email already registered", body["error"])

	code, body = ts.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "carol", "email": "carol@example.com", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "password must be at least 6 characters", body["error"])
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("alice")

	tests := []struct {
		name     string
		body     map[string]any
		wantCode int
		wantErr  string
	}{
		{"by username", map[string]any{"username": "alice", "password": "secret1"}, http.StatusOK, ""},
		{"by email", map[string]any{"email": "alice@example.com", "password": "secret1"}, http.StatusOK, ""},
		{"wrong password", map[string]any{"username": "alice", "password": "nope"}, http.StatusUnauthorized, "Invalid username or password"},
		{"unknown user", map[string]any{"username": "zed", "password": "secret1"}, http.StatusUnauthorized, "Invalid username or password"},
		{"no identifier", map[string]any{"password": "secret1"}, http.StatusBadRequest, "Username or email is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := ts.do(http.MethodPost, "/api/auth/login", "", tt.body)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, body["error"])
				return
			}
			assert.NotEmpty(t, body["access_token"])
			assert.Equal(t, "alice", body["user"].(map[string]any)["username"])
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Authorization header required", body["error"])

	code, body = ts.do(http.MethodGet, "/api/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid or expired token", body["error"])
}

func TestProfile(t *testing.T) {
	ts := newTestServer(t)
	token, id := ts.signup("alice")
	ts.signup("bob")

	code, body := ts.do(http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, body["id"])
	assert.Equal(t, "alice", body["username"])

	code, body = ts.do(http.MethodPut, "/api/profile", token, map[string]any{"full_name": "Alice A"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Alice A", body["user"].(map[string]any)["full_name"])

	code, body = ts.do(http.MethodPut, "/api/profile", token, map[string]any{"email": "bob@example.com"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Email already in use", body["error"])

	code, _ = ts.do(http.MethodPut, "/api/profile", token, map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUserLookup(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup("alice")
	_, bobID := ts.signup("bob")

	code, body := ts.do(http.MethodGet, "/api/"+bobID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "bob", body["username"])

	code, body = ts.do(http.MethodGet, "/api/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", body["error"])

	code, body = ts.do(http.MethodGet, "/api/search?query=BO", token, nil)
	require.Equal(t, http.StatusOK, code)
	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].(map[string]any)["username"])
}

func TestChangePassword(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup("alice")

	code, body := ts.do(http.MethodPost, "/api/auth/change-password", token, map[string]any{
		"current_password": "wrong", "new_password": "newpass",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Current password is incorrect", body["error"])

	code, _ = ts.do(http.MethodPost, "/api/auth/change-password", token, map[string]any{
		"current_password": "secret1", "new_password": "newpass",
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.do(http.MethodPost, "/api/auth/login", "", map[string]any{"username": "alice", "password": "newpass"})
	assert.Equal(t, http.StatusOK, code)
}

func TestPasswordReset(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("alice")

	code, body := ts.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]any{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, body, "reset_token")

	code, body = ts.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]any{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, code)
	resetToken, _ := body["reset_token"].(string)
	require.NotEmpty(t, resetToken)

	code, body = ts.do(http.MethodPost, "/api/auth/reset-password", "", map[string]any{"token": "bogus", "new_password": "newpass"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired reset token", body["error"])

	code, _ = ts.do(http.MethodPost, "/api/auth/reset-password", "", map[string]any{"token": resetToken, "new_password": "newpass"})
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.do(http.MethodPost, "/api/auth/reset-password", "", map[string]any{"token": resetToken, "new_password": "again1"})
	assert.Equal(t, http.StatusBadRequest, code, "tokens are single use")

	code, _ = ts.do(http.MethodPost, "/api/auth/login", "", map[string]any{"username": "alice", "password": "newpass"})
	assert.Equal(t, http.StatusOK, code)
}

func TestPasswordReset_Expired(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("alice")
	ts.srv.config.Auth.ResetTokenTTL = -time.Minute

	_, body := ts.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]any{"email": "alice@example.com"})
	resetToken := body["reset_token"].(string)

	code, _ := ts.do(http.MethodPost, "/api/auth/reset-password", "", map[string]any{"token": resetToken, "new_password": "newpass"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUploadAndCaption(t *testing.T) {
	ts := newTestServer(t)
	adminToken, _ := ts.signup("admin")
	aliceToken, aliceID := ts.signup("alice")
	bobToken, _ := ts.signup("bob")

	code, body := ts.upload(aliceToken, "notes.txt", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "File is not an image", body["error"])

	code, body = ts.upload(aliceToken, "beach_dog.png", pngBytes)
	require.Equal(t, http.StatusCreated, code, body)
	id := body["id"].(string)
	assert.Equal(t, "A photo of beach dog", body["description"])
	assert.Equal(t, "image/png", body["content_type"])
	assert.Equal(t, aliceID, body["user_id"])
	assert.Equal(t, "alice", body["username"])

	code, body = ts.do(http.MethodPost, "/api/"+id+"/regenerate", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "An image showing beach dog", body["image"].(map[string]any)["description"])

	code, body = ts.do(http.MethodPut, "/api/caption/"+id, bobToken, map[string]any{"description": "mine now"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "You can only modify your own images", body["error"])

	code, body = ts.do(http.MethodPut, "/api/caption/"+id, aliceToken, map[string]any{"description": "A dog on a beach"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "A dog on a beach", body["description"])

	code, _ = ts.do(http.MethodPut, "/api/caption/"+id, adminToken, map[string]any{"description": "Moderated"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(http.MethodPost, "/api/missing/regenerate", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUpload_MissingFile(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup("alice")

	code, body := ts.do(http.MethodPost, "/api/upload", token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No image provided", body["error"])
}

func TestListImages_Pagination(t *testing.T) {
	ts := newTestServer(t)
	aliceToken, _ := ts.signup("alice")
	bobToken, _ := ts.signup("bob")

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		code, _ := ts.upload(aliceToken, name, pngBytes)
		require.Equal(t, http.StatusCreated, code)
	}
	code, _ := ts.upload(bobToken, "d.png", pngBytes)
	require.Equal(t, http.StatusCreated, code)

	code, body := ts.do(http.MethodGet, "/api/images?page=1&per_page=3", bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["images"], 3)
	assert.EqualValues(t, 4, body["total"])
	assert.EqualValues(t, 2, body["pages"])
	assert.EqualValues(t, 3, body["per_page"])

	code, body = ts.do(http.MethodGet, "/api/images?page=2&per_page=3", bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["images"], 1)

	code, body = ts.do(http.MethodGet, "/api/images/user", bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	images := body["images"].([]any)
	require.Len(t, images, 1)
	assert.Equal(t, "d.png", images[0].(map[string]any)["filename"])
	assert.EqualValues(t, defaultPerPage, body["per_page"])
}

func TestDeleteImage(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("admin")
	aliceToken, _ := ts.signup("alice")
	bobToken, _ := ts.signup("bob")

	_, body := ts.upload(aliceToken, "a.png", pngBytes)
	id := body["id"].(string)

	code, _ := ts.do(http.MethodDelete, "/api/images/"+id, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ts.do(http.MethodDelete, "/api/images/"+id, aliceToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(http.MethodDelete, "/api/images/"+id, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("admin")
	token, _ := ts.signup("alice")

	for _, path := range []string{"/api/users", "/api/reports", "/api/stats", "/api/admin/images"} {
		code, body := ts.do(http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusForbidden, code, path)
		assert.Equal(t, "Admin access required", body["error"], path)
	}
}

func TestAdmin_ManageUsers(t *testing.T) {
	ts := newTestServer(t)
	adminToken, adminID := ts.signup("admin")
	aliceToken, aliceID := ts.signup("alice")
	ts.signup("bob")

	code, body := ts.do(http.MethodGet, "/api/users?role=user", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["total"])

	code, body = ts.do(http.MethodGet, "/api/users?query=ali", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["users"], 1)

	code, body = ts.do(http.MethodPut, "/api/users/"+aliceID, adminToken, map[string]any{"full_name": "Alice Admin-Edited"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Alice Admin-Edited", body["user"].(map[string]any)["full_name"])

	code, _ = ts.do(http.MethodPut, "/api/users/"+aliceID, adminToken, map[string]any{"username": "bob"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.do(http.MethodPut, "/api/users/change-role/"+aliceID, adminToken, map[string]any{"role": "root"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(http.MethodPut, "/api/users/change-role/"+aliceID, adminToken, map[string]any{"role": "admin"})
	require.Equal(t, http.StatusOK, code)

	// The new role applies to the existing token
	code, _ = ts.do(http.MethodGet, "/api/stats", aliceToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(http.MethodPut, "/api/users/change-status/"+adminID, adminToken, map[string]any{"is_active": false})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(http.MethodPut, "/api/users/change-status/"+aliceID, adminToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(http.MethodPut, "/api/users/change-status/"+aliceID, adminToken, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, code)

	code, body = ts.do(http.MethodGet, "/api/profile", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Account is deactivated", body["error"])

	code, body = ts.do(http.MethodPost, "/api/auth/login", "", map[string]any{"username": "alice", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Account is deactivated", body["error"])
}

func TestAdmin_DeleteUserCascades(t *testing.T) {
	ts := newTestServer(t)
	adminToken, adminID := ts.signup("admin")
	aliceToken, aliceID := ts.signup("alice")

	_, body := ts.upload(aliceToken, "a.png", pngBytes)
	imageID := body["id"].(string)
	code, _ := ts.do(http.MethodPost, "/api/images/"+imageID+"/report", adminToken, map[string]any{"reason": "spam"})
	require.Equal(t, http.StatusCreated, code)

	code, _ = ts.do(http.MethodDelete, "/api/users/"+adminID, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(http.MethodDelete, "/api/users/"+aliceID, adminToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = ts.do(http.MethodGet, "/api/profile", aliceToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "User not found", body["error"])

	_, body = ts.do(http.MethodGet, "/api/stats", adminToken, nil)
	assert.EqualValues(t, 1, body["users"])
	assert.EqualValues(t, 0, body["images"])
	assert.EqualValues(t, 0, body["pending_reports"])
}

func TestAdmin_Reports(t *testing.T) {
	ts := newTestServer(t)
	adminToken, _ := ts.signup("admin")
	aliceToken, _ := ts.signup("alice")
	bobToken, _ := ts.signup("bob")

	_, body := ts.upload(aliceToken, "a.png", pngBytes)
	imageID := body["id"].(string)

	code, _ := ts.do(http.MethodPost, "/api/images/"+imageID+"/report", bobToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = ts.do(http.MethodPost, "/api/images/"+imageID+"/report", bobToken, map[string]any{"reason": "offensive"})
	require.Equal(t, http.StatusCreated, code)
	reportID := body["report"].(map[string]any)["id"].(string)

	code, body = ts.do(http.MethodGet, "/api/reports?status=pending", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	reports := body["reports"].([]any)
	require.Len(t, reports, 1)
	assert.Equal(t, "offensive", reports[0].(map[string]any)["reason"])

	_, body = ts.do(http.MethodGet, "/api/stats", adminToken, nil)
	assert.EqualValues(t, 3, body["users"])
	assert.EqualValues(t, 1, body["images"])
	assert.EqualValues(t, 1, body["pending_reports"])

	code, _ = ts.do(http.MethodPut, "/api/reports/"+reportID, adminToken, map[string]any{"status": "resolved"})
	require.Equal(t, http.StatusOK, code)

	_, body = ts.do(http.MethodGet, "/api/reports?status=pending", adminToken, nil)
	assert.Empty(t, body["reports"])

	code, _ = ts.do(http.MethodDelete, "/api/admin/images/"+imageID, adminToken, nil)
	require.Equal(t, http.StatusOK, code)

	_, body = ts.do(http.MethodGet, "/api/admin/images", adminToken, nil)
	assert.EqualValues(t, 0, body["total"])
}

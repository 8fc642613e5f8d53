package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/captionly-dev/captionly/internal/cli/kvstore"
)

// failingStore simulates a broken credential backend
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) { return "", errors.New("locked") }
func (failingStore) Set(context.Context, string, string) error   { return errors.New("locked") }
func (failingStore) Remove(context.Context, string) error        { return errors.New("locked") }

func TestDo_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), kvstore.KeyToken, "t1"))

	c := New(srv.URL+"/api/", store)
	req, err := c.NewRequest(context.Background(), http.MethodGet, "/profile", nil, nil)
	require.NoError(t, err)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Do(req, &out))

	assert.True(t, out.OK)
	assert.Equal(t, "Bearer t1", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
}

func TestDo_NoTokenNoHeader(t *testing.T) {
	for name, store := range map[string]kvstore.Store{
		"empty store":   kvstore.NewMemoryStore(),
		"failing store": failingStore{},
		"nil store":     nil,
	} {
		t.Run(name, func(t *testing.T) {
			var gotAuth []string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Values("Authorization")
			}))
			defer srv.Close()

			c := New(srv.URL, store)
			req, err := c.NewRequest(context.Background(), http.MethodGet, "/images", nil, nil)
			require.NoError(t, err)
			require.NoError(t, c.Do(req, nil))
			assert.Empty(t, gotAuth)
		})
	}
}

func TestNewRequest_PathQueryAndBody(t *testing.T) {
	var gotPath, gotQuery string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", nil)
	query := url.Values{"page": {"2"}, "per_page": {"10"}}
	req, err := c.NewRequest(context.Background(), http.MethodPost, "images/42/report", query, map[string]string{"reason": "spam"})
	require.NoError(t, err)
	require.NoError(t, c.Do(req, nil))

	assert.Equal(t, "/api/images/42/report", gotPath)
	assert.Equal(t, "page=2&per_page=10", gotQuery)
	assert.Equal(t, "spam", gotBody["reason"])
}

func TestDo_HTTPErrorCarriesServerMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field", http.StatusUnauthorized, `{"error": "Invalid credentials"}`, "Invalid credentials"},
		{"message field", http.StatusBadRequest, `{"message": "Bad input"}`, "Bad input"},
		{"detail field", http.StatusConflict, `{"detail": "Username taken"}`, "Username taken"},
		{"non string error", http.StatusBadRequest, `{"error": {"code": 3}}`, ""},
		{"plain text", http.StatusInternalServerError, `oops`, ""},
		{"empty", http.StatusNotFound, ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL, nil)
			req, err := c.NewRequest(context.Background(), http.MethodGet, "/profile", nil, nil)
			require.NoError(t, err)

			err = c.Do(req, nil)
			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.message, httpErr.Message)
			assert.True(t, IsStatus(err, tt.status))
		})
	}
}

func TestDo_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := New(addr, nil)
	req, err := c.NewRequest(context.Background(), http.MethodGet, "/profile", nil, nil)
	require.NoError(t, err)

	err = c.Do(req, nil)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.MethodGet, transportErr.Method)
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestDo_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[1,2,3]`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	req, err := c.NewRequest(context.Background(), http.MethodGet, "/stats", nil, nil)
	require.NoError(t, err)

	var out struct{ Users int }
	err = c.Do(req, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestNewMultipartRequest(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	var gotFilename, gotPartType string
	var gotBytes []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))
		assert.Equal(t, "Bearer up", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()

		gotFilename = header.Filename
		gotPartType = header.Header.Get("Content-Type")
		gotBytes, _ = io.ReadAll(file)
		w.Write([]byte(`{"id": "img1"}`))
	}))
	defer srv.Close()

	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), kvstore.KeyToken, "up"))

	c := New(srv.URL, store)
	req, err := c.NewMultipartRequest(context.Background(), "/upload", "image", "cat.png", bytes.NewReader(png))
	require.NoError(t, err)

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, c.Do(req, &out))

	assert.Equal(t, "img1", out.ID)
	assert.Equal(t, "cat.png", gotFilename)
	assert.Equal(t, "image/png", gotPartType)
	assert.Equal(t, png, gotBytes)
}

func TestOptions(t *testing.T) {
	custom := &http.Client{}
	c := New("http://example.test/api/", nil, WithHTTPClient(custom), WithTimeout(5))

	assert.Equal(t, "http://example.test/api", c.BaseURL())
	assert.Same(t, custom, c.httpClient)
	assert.EqualValues(t, 5, c.httpClient.Timeout)
}

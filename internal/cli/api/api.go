// Package api groups the backend endpoints into Auth, Users, Images and Admin.
// Every method issues exactly one request and either returns the decoded,
// normalized body or the error from the client (transport, HTTP status,
// decode) or a *ValidationError raised before any I/O.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/captionly-dev/captionly/internal/cli/client"
)

// Requester is the subset of *client.Client the API layer needs
type Requester interface {
	NewRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error)
	NewMultipartRequest(ctx context.Context, path, field, filename string, content io.Reader) (*http.Request, error)
	Do(req *http.Request, out any) error
}

var _ Requester = (*client.Client)(nil)

// API bundles the endpoint groups over one requester
type API struct {
	Auth   *AuthService
	Users  *UserService
	Images *ImageService
	Admin  *AdminService
}

// New creates the endpoint groups
func New(r Requester) *API {
	return &API{
		Auth:   &AuthService{r: r},
		Users:  &UserService{r: r},
		Images: &ImageService{r: r},
		Admin:  &AdminService{r: r},
	}
}

// call builds and sends one JSON request
func call(ctx context.Context, r Requester, method, path string, query url.Values, body, out any) error {
	req, err := r.NewRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	return r.Do(req, out)
}

// callRaw is call for endpoints whose body shape has to be probed
func callRaw(ctx context.Context, r Requester, method, path string, query url.Values, body any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := call(ctx, r, method, path, query, body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func idPath(prefix string, id ID, suffix string) string {
	return prefix + url.PathEscape(string(id)) + suffix
}

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// ImageService wraps the upload and caption endpoints
type ImageService struct {
	r Requester
}

// UploadField is the multipart field the backend reads the file from
const UploadField = "image"

// Upload sends an image and returns it with its generated caption
func (s *ImageService) Upload(ctx context.Context, filename string, content io.Reader) (*Image, error) {
	if err := requireID("filename", filename); err != nil {
		return nil, err
	}

	req, err := s.r.NewMultipartRequest(ctx, "/upload", UploadField, filename, content)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := s.r.Do(req, &raw); err != nil {
		return nil, err
	}
	return unwrapImage(raw)
}

// UpdateCaption replaces an image's caption with user text
func (s *ImageService) UpdateCaption(ctx context.Context, id ID, description string) (*Image, error) {
	if err := requireID("id", string(id)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		return nil, &ValidationError{Field: "description", Reason: "is required"}
	}

	body := struct {
		Description string `json:"description"`
	}{Description: description}

	raw, err := callRaw(ctx, s.r, http.MethodPut, idPath("/caption/", id, ""), nil, body)
	if err != nil {
		return nil, err
	}
	return unwrapImage(raw)
}

// RegenerateCaption asks the backend for a fresh AI caption
func (s *ImageService) RegenerateCaption(ctx context.Context, id ID) (*Image, error) {
	if err := requireID("id", string(id)); err != nil {
		return nil, err
	}

	raw, err := callRaw(ctx, s.r, http.MethodPost, idPath("/", id, "/regenerate"), nil, nil)
	if err != nil {
		return nil, err
	}
	return unwrapImage(raw)
}

// ListMine returns the current user's images
func (s *ImageService) ListMine(ctx context.Context, page Page) (*ImagePage, error) {
	return listImages(ctx, s.r, "/images/user", page)
}

// ListAll returns the public feed
func (s *ImageService) ListAll(ctx context.Context, page Page) (*ImagePage, error) {
	return listImages(ctx, s.r, "/images", page)
}

// Delete removes one of the current user's images
func (s *ImageService) Delete(ctx context.Context, id ID) error {
	if err := requireID("id", string(id)); err != nil {
		return err
	}
	return call(ctx, s.r, http.MethodDelete, idPath("/images/", id, ""), nil, nil, nil)
}

// Report flags an image for moderation
func (s *ImageService) Report(ctx context.Context, id ID, reason string) error {
	if err := requireID("id", string(id)); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return &ValidationError{Field: "reason", Reason: "is required"}
	}

	body := struct {
		Reason string `json:"reason"`
	}{Reason: reason}
	return call(ctx, s.r, http.MethodPost, idPath("/images/", id, "/report"), nil, body, nil)
}

func listImages(ctx context.Context, r Requester, path string, page Page) (*ImagePage, error) {
	raw, err := callRaw(ctx, r, http.MethodGet, path, pageQuery(page.Page, page.PerPage), nil)
	if err != nil {
		return nil, err
	}
	return unwrapImagePage(raw), nil
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyResponse means a 2xx response had no body where one was expected
var ErrEmptyResponse = errors.New("empty response body")

// unwrapUser accepts both {...user} and {"user": {...}}
func unwrapUser(raw json.RawMessage) (*User, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyResponse
	}

	var wrapped struct {
		User *User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}

	var flat User
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &flat, nil
}

// unwrapImage accepts both {...image} and {"image": {...}}
func unwrapImage(raw json.RawMessage) (*Image, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyResponse
	}

	var wrapped struct {
		Image *Image `json:"image"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Image != nil {
		return wrapped.Image, nil
	}

	var flat Image
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &flat, nil
}

// unwrapUsers accepts a bare array or {"users": [...]}; anything else is an empty list
func unwrapUsers(raw json.RawMessage) []User {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []User{}
	}

	if raw[0] == '[' {
		var users []User
		if err := json.Unmarshal(raw, &users); err == nil && users != nil {
			return users
		}
		return []User{}
	}

	var page UserPage
	if err := json.Unmarshal(raw, &page); err != nil || page.Users == nil {
		return []User{}
	}
	return page.Users
}

// decodeLenient decodes raw into out, treating an empty body as success
func decodeLenient(raw json.RawMessage, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// unwrapImagePage accepts {"images": [...], ...} or a bare array; anything else is an empty page
func unwrapImagePage(raw json.RawMessage) *ImagePage {
	raw = bytes.TrimSpace(raw)
	page := &ImagePage{}

	if len(raw) > 0 && raw[0] == '[' {
		_ = json.Unmarshal(raw, &page.Images)
	} else if len(raw) > 0 {
		if err := json.Unmarshal(raw, page); err != nil {
			page = &ImagePage{}
		}
	}

	if page.Images == nil {
		page.Images = []Image{}
	}
	return page
}

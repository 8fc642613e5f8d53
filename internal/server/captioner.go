package server

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Captioner describes an uploaded image. Attempt starts at 0 and grows with every regenerate.
type Captioner interface {
	Caption(filename, contentType string, size int64, attempt int) string
}

// StubCaptioner produces deterministic captions without looking at pixels
type StubCaptioner struct{}

var stubTemplates = []string{
	"A photo of %s",
	"An image showing %s",
	"A picture that looks like %s",
	"A snapshot of %s",
}

func (StubCaptioner) Caption(filename, contentType string, size int64, attempt int) string {
	subject := strings.TrimSuffix(filename, filepath.Ext(filename))
	subject = strings.NewReplacer("_", " ", "-", " ").Replace(subject)
	if strings.TrimSpace(subject) == "" {
		subject = "something"
	}

	template := stubTemplates[attempt%len(stubTemplates)]
	return fmt.Sprintf(template, strings.TrimSpace(subject))
}

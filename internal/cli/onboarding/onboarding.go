// Package onboarding tracks whether the intro slideshow has been seen.
package onboarding

import (
	"context"
	"errors"

	"github.com/captionly-dev/captionly/internal/cli/kvstore"
)

const completedValue = "true"

// Slide is one page of the intro
type Slide struct {
	ID          string
	Title       string
	Description string
}

// Slides is the intro content, shown in order
var Slides = []Slide{
	{
		ID:          "1",
		Title:       "Welcome to Image Captioning App",
		Description: "Discover the power of AI-generated captions for your photos",
	},
	{
		ID:          "2",
		Title:       "Upload Your Photos",
		Description: "Simply upload your photos and get automatic captions",
	},
	{
		ID:          "3",
		Title:       "Text to Speech",
		Description: "Listen to your captions with our integrated text-to-speech feature",
	},
	{
		ID:          "4",
		Title:       "Ready to Start?",
		Description: "Join us now and experience the magic of AI image captioning",
	},
}

// Flag reads and writes the introCompleted key
type Flag struct {
	store kvstore.Store
}

// NewFlag creates a flag over store
func NewFlag(store kvstore.Store) *Flag {
	return &Flag{store: store}
}

// Completed reports whether the intro was finished. A missing key is not an error.
func (f *Flag) Completed(ctx context.Context) (bool, error) {
	value, err := f.store.Get(ctx, kvstore.KeyIntroCompleted)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == completedValue, nil
}

// Complete marks the intro as finished. The flag is never cleared.
func (f *Flag) Complete(ctx context.Context) error {
	return f.store.Set(ctx, kvstore.KeyIntroCompleted, completedValue)
}

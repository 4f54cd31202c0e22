package vision

import (
	"context"
	"errors"
	"fmt"

	"github.com/raine/candle-listing-bot/internal/attributes"
)

// ErrNoAnnotations is returned when the service answered but produced no
// labels, objects or colors for the image.
var ErrNoAnnotations = errors.New("no annotations in vision response")

// Provider turns an image into the signals the attribute engine consumes.
type Provider interface {
	Analyze(ctx context.Context, image []byte) (*attributes.Signals, error)
}

// validate checks converted signals at the service boundary.
func validate(s *attributes.Signals) error {
	if len(s.Labels) == 0 && len(s.Objects) == 0 && len(s.Colors) == 0 {
		return ErrNoAnnotations
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("vision response: %w", err)
	}
	return nil
}

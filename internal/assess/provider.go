package assess

import (
	"context"
	"errors"
	"fmt"

	"github.com/linnemanlabs/infrasense/internal/severity"
)

var (
	// ErrNotLoaded means the provider's underlying model is absent.
	ErrNotLoaded = errors.New("model not loaded")

	// ErrDecode means the input could not be interpreted as the expected media.
	ErrDecode = errors.New("could not decode input")
)

// TextProvider classifies an incident description. Implementations are
// shared across requests and must be safe for concurrent use.
type TextProvider interface {
	PredictText(ctx context.Context, text string) (severity.Level, error)
}

// ImageProvider classifies an incident photo. Implementations are shared
// across requests and must be safe for concurrent use.
type ImageProvider interface {
	PredictImage(ctx context.Context, image []byte) (ImagePrediction, error)
}

// UnavailableText is a TextProvider whose model failed to load at startup.
// Every call fails with ErrNotLoaded.
type UnavailableText struct {
	Name  string
	Cause error
}

// PredictText implements TextProvider.
func (u UnavailableText) PredictText(context.Context, string) (severity.Level, error) {
	return 0, notLoaded("text", u.Name, u.Cause)
}

// UnavailableImage is an ImageProvider whose model failed to load at startup.
// Every call fails with ErrNotLoaded.
type UnavailableImage struct {
	Name  string
	Cause error
}

// PredictImage implements ImageProvider.
func (u UnavailableImage) PredictImage(context.Context, []byte) (ImagePrediction, error) {
	return ImagePrediction{}, notLoaded("image", u.Name, u.Cause)
}

func notLoaded(kind, name string, cause error) error {
	if name == "" {
		name = kind
	}
	if cause == nil {
		return fmt.Errorf("%s model %q: %w", kind, name, ErrNotLoaded)
	}
	return fmt.Errorf("%s model %q: %w: %w", kind, name, ErrNotLoaded, cause)
}

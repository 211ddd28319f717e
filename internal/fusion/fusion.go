// Package fusion reconciles the text and image severity classifications into
// a single final severity. It performs no I/O and holds no state, so it is
// safe to call from any goroutine.
package fusion

import (
	"errors"
	"fmt"
	"math"

	"github.com/linnemanlabs/infrasense/internal/severity"
)

// ErrInvalidInput is returned when a severity or confidence is out of range.
var ErrInvalidInput = errors.New("invalid fusion input")

// Policy constants. These are contractual and must not be re-tuned.
const (
	TextWeight       = 0.65
	ImageWeight      = 0.35
	ConfidenceCutoff = 0.7
	MediumThreshold  = 0.6
	HighThreshold    = 1.6
)

// Rule identifies which branch of the policy produced a decision.
type Rule string

const (
	// RuleTextDominance fires when the text classifier reports High.
	RuleTextDominance Rule = "text_dominance"

	// RuleConfidentImage fires when the image classifier reports High with
	// confidence at or above ConfidenceCutoff.
	RuleConfidentImage Rule = "confident_image"

	// RuleWeighted is the weighted-average fallback.
	RuleWeighted Rule = "weighted"
)

// Decision is the outcome of Explain.
type Decision struct {
	Final severity.Level
	Rule  Rule
	// Weighted is only set when Rule is RuleWeighted.
	Weighted float64
}

// Combine returns the fused severity for a text score, an image score and the
// image classifier's confidence.
func Combine(text, image severity.Level, confidence float64) (severity.Level, error) {
	d, err := Explain(text, image, confidence)
	if err != nil {
		return 0, err
	}
	return d.Final, nil
}

// Explain is Combine plus the rule that decided the outcome.
// Rules are evaluated in priority order and the first match wins.
func Explain(text, image severity.Level, confidence float64) (Decision, error) {
	if err := validate(text, image, confidence); err != nil {
		return Decision{}, err
	}

	if text == severity.High {
		return Decision{Final: severity.High, Rule: RuleTextDominance}, nil
	}

	if image == severity.High && confidence >= ConfidenceCutoff {
		return Decision{Final: severity.High, Rule: RuleConfidentImage}, nil
	}

	w := TextWeight*float64(text) + ImageWeight*float64(image)
	return Decision{Final: levelForScore(w), Rule: RuleWeighted, Weighted: w}, nil
}

// levelForScore maps a weighted score onto the scale. Each threshold belongs
// to the upper tier.
func levelForScore(w float64) severity.Level {
	switch {
	case w < MediumThreshold:
		return severity.Low
	case w < HighThreshold:
		return severity.Medium
	default:
		return severity.High
	}
}

func validate(text, image severity.Level, confidence float64) error {
	var errs []error
	if !text.Valid() {
		errs = append(errs, fmt.Errorf("%w: text severity %d", ErrInvalidInput, int(text)))
	}
	if !image.Valid() {
		errs = append(errs, fmt.Errorf("%w: image severity %d", ErrInvalidInput, int(image)))
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		errs = append(errs, fmt.Errorf("%w: image confidence %v (must be 0..1)", ErrInvalidInput, confidence))
	}
	return errors.Join(errs...)
}

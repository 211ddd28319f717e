// Package onnximage implements an image severity provider that runs an
// ONNX export of the incident photo classifier.
package onnximage

import (
	"context"
	"errors"
	"fmt"

	"github.com/linnemanlabs/infrasense/internal/assess"
	"github.com/linnemanlabs/infrasense/internal/severity"
)

const (
	// DefaultImageSize is the square input edge the classifier was trained on.
	DefaultImageSize = 224

	// DefaultMaxPixels bounds decoded image area (about 128 MiB as RGBA).
	DefaultMaxPixels = 32_000_000
)

// DefaultLabels is the class order of the exported model's output
// (alphabetical, as produced by the training pipeline).
var DefaultLabels = []severity.Level{severity.High, severity.Low, severity.Medium}

// Config holds the model location and preprocessing settings.
type Config struct {
	ModelPath   string
	LibraryPath string
	ImageSize   int
	// Labels maps model output index to severity. Must be a permutation of the scale.
	Labels       []severity.Level
	ChannelOrder ChannelOrder
	// MaxPixels rejects uploads whose header declares a larger width*height.
	MaxPixels int
}

// Classifier is an assess.ImageProvider backed by ONNX Runtime. It is
// immutable after construction and safe for concurrent use.
type Classifier struct {
	model     scorer
	size      int
	maxPixels int
	order     ChannelOrder
	layout    Layout
	labels    []severity.Level
}

// New loads the model and returns a ready Classifier.
func New(cfg Config) (*Classifier, error) {
	cfg, err := withDefaults(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.ModelPath == "" {
		return nil, errors.New("onnximage: model path is required")
	}

	sess, err := newONNXSession(cfg.ModelPath, cfg.LibraryPath, cfg.ImageSize, len(cfg.Labels))
	if err != nil {
		return nil, fmt.Errorf("onnximage: %w", err)
	}
	return newClassifier(sess, cfg, sess.layout), nil
}

func newClassifier(model scorer, cfg Config, layout Layout) *Classifier {
	return &Classifier{
		model:     model,
		size:      cfg.ImageSize,
		maxPixels: cfg.MaxPixels,
		order:     cfg.ChannelOrder,
		layout:    layout,
		labels:    append([]severity.Level(nil), cfg.Labels...),
	}
}

func withDefaults(cfg Config) (Config, error) {
	if cfg.ImageSize == 0 {
		cfg.ImageSize = DefaultImageSize
	}
	if cfg.ImageSize < 0 {
		return cfg, fmt.Errorf("onnximage: invalid image size %d", cfg.ImageSize)
	}
	if cfg.MaxPixels == 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}
	if cfg.MaxPixels < 0 {
		return cfg, fmt.Errorf("onnximage: invalid max pixels %d", cfg.MaxPixels)
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = DefaultLabels
	}
	if err := severity.CheckOrder(cfg.Labels); err != nil {
		return cfg, fmt.Errorf("onnximage: labels: %w", err)
	}
	switch cfg.ChannelOrder {
	case "":
		cfg.ChannelOrder = ChannelsBGR
	case ChannelsBGR, ChannelsRGB:
	default:
		return cfg, fmt.Errorf("onnximage: unknown channel order %q", cfg.ChannelOrder)
	}
	return cfg, nil
}

// ParseLabels parses a comma separated model class order such as
// "High,Low,Medium".
func ParseLabels(s string) ([]severity.Level, error) {
	labels, err := severity.ParseOrder(s)
	if err != nil {
		return nil, fmt.Errorf("onnximage: labels %q: %w", s, err)
	}
	return labels, nil
}

// PredictImage decodes, preprocesses and classifies an image. RawScores are
// returned in scale order regardless of the model's class order.
func (c *Classifier) PredictImage(ctx context.Context, data []byte) (assess.ImagePrediction, error) {
	img, err := decode(data, c.maxPixels)
	if err != nil {
		return assess.ImagePrediction{}, err
	}
	if err := ctx.Err(); err != nil {
		return assess.ImagePrediction{}, err
	}

	scores, err := c.model.score(toTensor(img, c.size, c.order, c.layout))
	if err != nil {
		return assess.ImagePrediction{}, fmt.Errorf("onnximage: %w", err)
	}
	return c.interpret(scores)
}

// interpret maps model-order scores onto the scale. Ties resolve to the
// earliest model class.
func (c *Classifier) interpret(scores []float32) (assess.ImagePrediction, error) {
	if len(scores) != len(c.labels) {
		return assess.ImagePrediction{}, fmt.Errorf("onnximage: model returned %d scores, want %d", len(scores), len(c.labels))
	}

	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}

	raw := make([]float64, severity.NumLevels)
	for i, s := range scores {
		raw[c.labels[i]] = float64(s)
	}

	return assess.ImagePrediction{
		Severity:   c.labels[best],
		Confidence: float64(scores[best]),
		RawScores:  raw,
	}, nil
}

// Close releases the ONNX session.
func (c *Classifier) Close() error {
	if c.model != nil {
		return c.model.close()
	}
	return nil
}

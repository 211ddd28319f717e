package main

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/infrasense/internal/assess"
	ic "github.com/linnemanlabs/infrasense/internal/cfg"
	"github.com/linnemanlabs/infrasense/internal/provider/claudetext"
	"github.com/linnemanlabs/infrasense/internal/provider/keyword"
	"github.com/linnemanlabs/infrasense/internal/provider/onnximage"
)

// buildTextProvider constructs the configured text provider. A provider
// that fails to load is replaced by assess.UnavailableText so the service
// still starts and reports the failure per request.
func buildTextProvider(ctx context.Context, L log.Logger, c *ic.Config) assess.TextProvider {
	switch c.TextProvider {
	case ic.TextProviderClaude:
		p, err := claudetext.New(c.ClaudeAPIKey, c.ClaudeModel, time.Duration(c.ClaudeTimeoutSeconds)*time.Second)
		if err != nil {
			L.Error(ctx, err, "text provider unavailable", "provider", c.TextProvider)
			return assess.UnavailableText{Name: c.TextProvider, Cause: err}
		}
		L.Info(ctx, "initialized text provider", "provider", c.TextProvider, "model", c.ClaudeModel)
		return p

	default:
		var (
			p   *keyword.Classifier
			err error
		)
		if c.KeywordLexiconPath != "" {
			p, err = keyword.Load(c.KeywordLexiconPath)
		} else {
			p, err = keyword.New(keyword.DefaultLexicon())
		}
		if err != nil {
			L.Error(ctx, err, "text provider unavailable", "provider", c.TextProvider, "lexicon", c.KeywordLexiconPath)
			return assess.UnavailableText{Name: c.TextProvider, Cause: err}
		}
		L.Info(ctx, "initialized text provider", "provider", c.TextProvider, "lexicon", c.KeywordLexiconPath)
		return p
	}
}

// buildImageProvider loads the ONNX image model. The returned close func is
// never nil.
func buildImageProvider(ctx context.Context, L log.Logger, c *ic.Config) (assess.ImageProvider, func() error) {
	noop := func() error { return nil }

	if c.ImageModelPath == "" {
		L.Warn(ctx, "image provider unavailable, no model configured")
		return assess.UnavailableImage{Name: "onnx"}, noop
	}

	labels, err := onnximage.ParseLabels(c.ImageLabels)
	if err != nil {
		L.Error(ctx, err, "image provider unavailable", "labels", c.ImageLabels)
		return assess.UnavailableImage{Name: c.ImageModelPath, Cause: err}, noop
	}

	p, err := onnximage.New(onnximage.Config{
		ModelPath:    c.ImageModelPath,
		LibraryPath:  c.ORTLibraryPath,
		ImageSize:    c.ImageSize,
		MaxPixels:    c.ImageMaxPixels,
		Labels:       labels,
		ChannelOrder: onnximage.ChannelOrder(c.ChannelOrder),
	})
	if err != nil {
		L.Error(ctx, err, "image provider unavailable", "model", c.ImageModelPath)
		return assess.UnavailableImage{Name: c.ImageModelPath, Cause: err}, noop
	}

	L.Info(ctx, "initialized image provider",
		"model", c.ImageModelPath,
		"image_size", c.ImageSize,
		"labels", c.ImageLabels,
		"channel_order", c.ChannelOrder,
	)
	return p, p.Close
}

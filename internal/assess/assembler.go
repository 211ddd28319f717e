package assess

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/infrasense/internal/fusion"
	"github.com/linnemanlabs/infrasense/internal/severity"
)

const (
	providerText  = "text"
	providerImage = "image"

	outcomeSuccess = "success"
	outcomeError   = "error"

	scoreTolerance = 1e-6
)

// CompleteEvent describes a finished assessment for the OnComplete hook.
type CompleteEvent struct {
	Outcome  string
	Final    severity.Level
	Rule     fusion.Rule
	Duration float64
}

// Hooks are optional callbacks invoked by the Assembler. Nil fields are skipped.
// OnResult receives each successful Result and must not modify it.
type Hooks struct {
	OnProvider func(provider string, duration float64, err error)
	OnComplete func(e *CompleteEvent)
	OnResult   func(ctx context.Context, r *Result)
}

// Assembler runs both providers for a request, waits for both, and fuses
// their output into a Result. It holds no per-request state.
type Assembler struct {
	text   TextProvider
	image  ImageProvider
	logger log.Logger
	hooks  Hooks
	tracer trace.Tracer
}

// NewAssembler creates an Assembler over the given providers. Both providers
// are required; use UnavailableText / UnavailableImage for models that failed
// to load.
func NewAssembler(text TextProvider, image ImageProvider, logger log.Logger, hooks Hooks) *Assembler {
	if text == nil {
		panic(xerrors.New("text provider is required"))
	}
	if image == nil {
		panic(xerrors.New("image provider is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Assembler{
		text:   text,
		image:  image,
		logger: logger,
		hooks:  hooks,
		tracer: otel.Tracer("github.com/linnemanlabs/infrasense/internal/assess"),
	}
}

// Assess classifies the description and the photo concurrently and returns
// the fused Result. If either provider fails the error is returned and no
// Result is produced.
func (a *Assembler) Assess(ctx context.Context, text string, image []byte) (*Result, error) {
	start := time.Now()
	id := ulid.Make().String()

	ctx, span := a.tracer.Start(ctx, "assess.run", trace.WithAttributes(
		attribute.String("infrasense.assessment.id", id),
		attribute.Int("infrasense.text.length", len(text)),
		attribute.Int("infrasense.image.bytes", len(image)),
	))
	defer span.End()

	L := a.logger.With("assessment_id", id)

	var (
		textLevel severity.Level
		imagePred ImagePrediction
		g         errgroup.Group
	)

	g.Go(func() error {
		lvl, err := a.predictText(ctx, text)
		if err != nil {
			return fmt.Errorf("text provider: %w", err)
		}
		textLevel = lvl
		return nil
	})

	g.Go(func() error {
		pred, err := a.predictImage(ctx, image)
		if err != nil {
			return fmt.Errorf("image provider: %w", err)
		}
		imagePred = pred
		return nil
	})

	// barrier: both providers have returned past this point
	if err := g.Wait(); err != nil {
		return nil, a.fail(ctx, L, span, start, err)
	}

	if err := checkImage(imagePred); err != nil {
		return nil, a.fail(ctx, L, span, start, fmt.Errorf("image provider: %w", err))
	}

	d, err := fusion.Explain(textLevel, imagePred.Severity, imagePred.Confidence)
	if err != nil {
		return nil, a.fail(ctx, L, span, start, err)
	}

	result := &Result{
		ID:   id,
		Text: TextPrediction{Severity: textLevel},
		Image: ImagePrediction{
			Severity:   imagePred.Severity,
			Confidence: imagePred.Confidence,
			RawScores:  append([]float64(nil), imagePred.RawScores...),
		},
		Final: d.Final,
	}

	dur := time.Since(start).Seconds()
	span.SetAttributes(
		attribute.String("infrasense.severity.text", textLevel.String()),
		attribute.String("infrasense.severity.image", imagePred.Severity.String()),
		attribute.Float64("infrasense.image.confidence", imagePred.Confidence),
		attribute.String("infrasense.severity.final", d.Final.String()),
		attribute.String("infrasense.fusion.rule", string(d.Rule)),
	)

	L.Info(ctx, "assessment complete",
		"text_severity", textLevel.String(),
		"image_severity", imagePred.Severity.String(),
		"image_confidence", imagePred.Confidence,
		"final_severity", d.Final.String(),
		"rule", string(d.Rule),
		"weighted", d.Weighted,
		"duration", dur,
	)

	if a.hooks.OnComplete != nil {
		a.hooks.OnComplete(&CompleteEvent{
			Outcome:  outcomeSuccess,
			Final:    d.Final,
			Rule:     d.Rule,
			Duration: dur,
		})
	}
	if a.hooks.OnResult != nil {
		a.hooks.OnResult(ctx, result)
	}

	return result, nil
}

// checkImage requires one raw score per level, Severity at the argmax and
// Confidence equal to the max.
func checkImage(p ImagePrediction) error {
	if n := len(p.RawScores); n != severity.NumLevels {
		return fmt.Errorf("%w: got %d raw scores, want %d", fusion.ErrInvalidInput, n, severity.NumLevels)
	}
	if !p.Severity.Valid() {
		return fmt.Errorf("%w: image severity %v", fusion.ErrInvalidInput, p.Severity)
	}
	top := p.RawScores[0]
	for _, s := range p.RawScores[1:] {
		if s > top {
			top = s
		}
	}
	if p.RawScores[p.Severity] != top {
		return fmt.Errorf("%w: severity %v is not the top raw score", fusion.ErrInvalidInput, p.Severity)
	}
	if math.Abs(p.Confidence-top) > scoreTolerance {
		return fmt.Errorf("%w: confidence %v does not match top raw score %v", fusion.ErrInvalidInput, p.Confidence, top)
	}
	return nil
}

func (a *Assembler) predictText(ctx context.Context, text string) (severity.Level, error) {
	ctx, span := a.tracer.Start(ctx, "provider.text")
	defer span.End()

	start := time.Now()
	lvl, err := a.text.PredictText(ctx, text)
	a.observeProvider(span, providerText, start, err)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.String("infrasense.severity", lvl.String()))
	return lvl, nil
}

func (a *Assembler) predictImage(ctx context.Context, image []byte) (ImagePrediction, error) {
	ctx, span := a.tracer.Start(ctx, "provider.image")
	defer span.End()

	start := time.Now()
	pred, err := a.image.PredictImage(ctx, image)
	a.observeProvider(span, providerImage, start, err)
	if err != nil {
		return ImagePrediction{}, err
	}
	span.SetAttributes(
		attribute.String("infrasense.severity", pred.Severity.String()),
		attribute.Float64("infrasense.image.confidence", pred.Confidence),
	)
	return pred, nil
}

func (a *Assembler) observeProvider(span trace.Span, provider string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if a.hooks.OnProvider != nil {
		a.hooks.OnProvider(provider, time.Since(start).Seconds(), err)
	}
}

func (a *Assembler) fail(ctx context.Context, L log.Logger, span trace.Span, start time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	dur := time.Since(start).Seconds()
	L.Error(ctx, err, "assessment failed", "duration", dur)

	if a.hooks.OnComplete != nil {
		a.hooks.OnComplete(&CompleteEvent{
			Outcome:  outcomeError,
			Duration: dur,
		})
	}
	return err
}

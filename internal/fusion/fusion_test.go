package fusion

import (
	"errors"
	"math"
	"testing"

	"github.com/linnemanlabs/infrasense/internal/severity"
)

var confidences = []float64{0, 0.1, 0.3, 0.5, 0.69, 0.7, 0.71, 0.9, 1}

func TestCombine_TextHighDominates(t *testing.T) {
	t.Parallel()

	for _, img := range severity.Levels {
		for _, c := range confidences {
			got, err := Combine(severity.High, img, c)
			if err != nil {
				t.Fatalf("Combine(High, %v, %v): %v", img, c, err)
			}
			if got != severity.High {
				t.Errorf("Combine(High, %v, %v) = %v, want High", img, c, got)
			}
		}
	}
}

func TestCombine_ConfidentImageEscalates(t *testing.T) {
	t.Parallel()

	for _, text := range []severity.Level{severity.Low, severity.Medium} {
		for _, c := range []float64{0.7, 0.75, 0.9, 1} {
			d, err := Explain(text, severity.High, c)
			if err != nil {
				t.Fatalf("Explain(%v, High, %v): %v", text, c, err)
			}
			if d.Final != severity.High {
				t.Errorf("Explain(%v, High, %v).Final = %v, want High", text, c, d.Final)
			}
			if d.Rule != RuleConfidentImage {
				t.Errorf("Explain(%v, High, %v).Rule = %q, want %q", text, c, d.Rule, RuleConfidentImage)
			}
		}
	}
}

func TestCombine_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       severity.Level
		image      severity.Level
		confidence float64
		want       severity.Level
		wantRule   Rule
	}{
		{"all low", severity.Low, severity.Low, 0.0, severity.Low, RuleWeighted},
		{"both medium", severity.Medium, severity.Medium, 0.5, severity.Medium, RuleWeighted},
		{"unconfident high image", severity.Low, severity.High, 0.3, severity.Medium, RuleWeighted},
		{"just below cutoff", severity.Low, severity.High, 0.6999, severity.Medium, RuleWeighted},
		{"medium image alone", severity.Low, severity.Medium, 0.99, severity.Low, RuleWeighted},
		{"medium text alone", severity.Medium, severity.Low, 0.99, severity.Medium, RuleWeighted},
		{"medium text unconfident high image", severity.Medium, severity.High, 0.2, severity.Medium, RuleWeighted},
		{"text high", severity.High, severity.Low, 0.1, severity.High, RuleTextDominance},
		{"confident image at cutoff", severity.Low, severity.High, 0.7, severity.High, RuleConfidentImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := Explain(tt.text, tt.image, tt.confidence)
			if err != nil {
				t.Fatalf("Explain: %v", err)
			}
			if d.Final != tt.want {
				t.Errorf("final = %v, want %v", d.Final, tt.want)
			}
			if d.Rule != tt.wantRule {
				t.Errorf("rule = %q, want %q", d.Rule, tt.wantRule)
			}
		})
	}
}

func TestExplain_WeightedScore(t *testing.T) {
	t.Parallel()

	d, err := Explain(severity.Low, severity.High, 0.3)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if math.Abs(d.Weighted-0.7) > 1e-9 {
		t.Errorf("weighted = %v, want 0.7", d.Weighted)
	}

	d, err = Explain(severity.Medium, severity.Medium, 0.5)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if math.Abs(d.Weighted-1.0) > 1e-9 {
		t.Errorf("weighted = %v, want 1.0", d.Weighted)
	}
}

func TestLevelForScore_Boundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score float64
		want  severity.Level
	}{
		{0, severity.Low},
		{0.5999, severity.Low},
		{MediumThreshold, severity.Medium},
		{1.0, severity.Medium},
		{1.5999, severity.Medium},
		{HighThreshold, severity.High},
		{2.0, severity.High},
	}

	for _, tt := range tests {
		if got := levelForScore(tt.score); got != tt.want {
			t.Errorf("levelForScore(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestCombine_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       severity.Level
		image      severity.Level
		confidence float64
	}{
		{"text below scale", severity.Level(-1), severity.Low, 0.5},
		{"text above scale", severity.Level(3), severity.Low, 0.5},
		{"image above scale", severity.Low, severity.Level(5), 0.5},
		{"negative confidence", severity.Low, severity.Low, -0.01},
		{"confidence above one", severity.Low, severity.Low, 1.01},
		{"nan confidence", severity.Low, severity.Low, math.NaN()},
		{"infinite confidence", severity.Low, severity.Low, math.Inf(1)},
		// invalid input is rejected even when a rule would otherwise short-circuit
		{"text high with bad confidence", severity.High, severity.Low, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Combine(tt.text, tt.image, tt.confidence)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("Combine error = %v, want ErrInvalidInput", err)
			}
			if got != 0 {
				t.Errorf("Combine returned %v alongside error, want zero value", got)
			}
		})
	}
}

func TestCombine_Deterministic(t *testing.T) {
	t.Parallel()

	for _, text := range severity.Levels {
		for _, img := range severity.Levels {
			for _, c := range confidences {
				first, err := Combine(text, img, c)
				if err != nil {
					t.Fatalf("Combine: %v", err)
				}
				for i := 0; i < 5; i++ {
					again, _ := Combine(text, img, c)
					if again != first {
						t.Fatalf("Combine(%v, %v, %v) not deterministic: %v then %v", text, img, c, first, again)
					}
				}
			}
		}
	}
}

func FuzzCombine(f *testing.F) {
	f.Add(0, 0, 0.0)
	f.Add(2, 1, 0.4)
	f.Add(1, 2, 0.7)
	f.Add(-3, 9, 1.5)

	f.Fuzz(func(t *testing.T, text, image int, confidence float64) {
		got, err := Combine(severity.Level(text), severity.Level(image), confidence)
		if err != nil {
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			return
		}
		if !got.Valid() {
			t.Fatalf("Combine returned invalid level %d", got)
		}
		if severity.Level(text) == severity.High && got != severity.High {
			t.Fatalf("text High produced %v", got)
		}
	})
}

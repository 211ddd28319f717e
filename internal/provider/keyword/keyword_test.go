package keyword

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/linnemanlabs/infrasense/internal/severity"
)

func newDefault(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(DefaultLexicon())
	if err != nil {
		t.Fatalf("New(DefaultLexicon()): %v", err)
	}
	return c
}

func TestPredictText_Default(t *testing.T) {
	t.Parallel()

	c := newDefault(t)

	tests := []struct {
		text string
		want severity.Level
	}{
		{"Large SINKHOLE opened near the school gate", severity.High},
		{"There is a pothole and some litter on 5th avenue", severity.Medium},
		{"Graffiti on the park wall", severity.Low},
		{"nothing in particular", severity.Low},
		{"", severity.Low},
		{"pothole next to a gas leak", severity.High},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			got, err := c.PredictText(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("PredictText: %v", err)
			}
			if got != tt.want {
				t.Errorf("PredictText(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestPredictText_WordBoundaries(t *testing.T) {
	t.Parallel()

	c := newDefault(t)

	tests := []struct {
		name string
		text string
		want severity.Level
	}{
		{"substring of phrase", "floodlight in the park is broken", severity.Medium},
		{"longer phrase consumes shorter", "fire hydrant is leaking", severity.Medium},
		{"negated in own clause", "no one injured, small pothole", severity.Medium},
		{"contraction negates", "nobody's hurt and there isn't any fire, just graffiti", severity.Low},
		{"negation outside window", "not sure when it started but the road is flooded", severity.High},
		{"negation does not cross clauses", "no streetlight here. sinkhole opened", severity.High},
		{"phrase containing negator", "street light not working on main road", severity.Medium},
		{"punctuation around phrase", "LIVE-WIRE hanging!", severity.High},
		{"fire still high", "fire next to the hydrant", severity.High},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := c.PredictText(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("PredictText: %v", err)
			}
			if got != tt.want {
				t.Errorf("PredictText(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestNew_PhrasesLongestFirst(t *testing.T) {
	t.Parallel()

	c, err := New(Lexicon{
		High:   []string{"fire"},
		Medium: []string{"Fire  Hydrant", "pothole"},
		Low:    []string{"litter"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(c.phrases) != 4 {
		t.Fatalf("phrases = %d, want 4", len(c.phrases))
	}
	first := c.phrases[0]
	if !slices.Equal(first.tokens, []string{"fire", "hydrant"}) || first.level != severity.Medium {
		t.Errorf("first phrase = %v (%v), want [fire hydrant] (Medium)", first.tokens, first.level)
	}
}

func TestNew_EmptyLexicon(t *testing.T) {
	t.Parallel()

	if _, err := New(Lexicon{High: []string{"  ", ""}}); err == nil {
		t.Fatal("expected error for lexicon with only blank phrases")
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lexicon.json")
	body := `{"high":["Dam Breach"],"medium":["pothole"],"low":[]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write lexicon: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, _ := c.PredictText(context.Background(), "possible dam breach upstream")
	if got != severity.High {
		t.Errorf("PredictText = %v, want High", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		substr string
	}{
		{"missing file", filepath.Join(dir, "missing.json"), "read lexicon"},
		{"invalid json", bad, "parse lexicon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error = %q, want substring %q", err, tt.substr)
			}
		})
	}
}

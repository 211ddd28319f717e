// Package keyword implements an offline text severity provider that matches
// incident descriptions against per-severity phrase lists.
package keyword

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/linnemanlabs/infrasense/internal/severity"
)

// Lexicon maps each severity to the phrases that indicate it.
type Lexicon struct {
	High   []string `json:"high"`
	Medium []string `json:"medium"`
	Low    []string `json:"low"`
}

// negators cancel a phrase when one appears within negationWindow tokens
// before it in the same clause.
var negators = map[string]bool{
	"no": true, "not": true, "without": true, "never": true, "none": true, "zero": true,
}

const negationWindow = 3

type phrase struct {
	tokens []string
	level  severity.Level
}

// Classifier scores text against a Lexicon. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	// longest first so a longer phrase consumes the words of a shorter one
	phrases []phrase
}

// New builds a Classifier from a lexicon. An empty lexicon is rejected.
func New(lx Lexicon) (*Classifier, error) {
	c := &Classifier{}
	c.add(severity.High, lx.High)
	c.add(severity.Medium, lx.Medium)
	c.add(severity.Low, lx.Low)
	if len(c.phrases) == 0 {
		return nil, fmt.Errorf("keyword: lexicon has no phrases")
	}
	slices.SortStableFunc(c.phrases, func(a, b phrase) int {
		return cmp.Compare(len(b.tokens), len(a.tokens))
	})
	return c, nil
}

func (c *Classifier) add(lvl severity.Level, in []string) {
	for _, p := range in {
		if toks := tokenize(normalize(p)); len(toks) > 0 {
			c.phrases = append(c.phrases, phrase{tokens: toks, level: lvl})
		}
	}
}

// Load reads a JSON lexicon from path and builds a Classifier.
func Load(path string) (*Classifier, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("keyword: read lexicon: %w", err)
	}
	var lx Lexicon
	if err := json.Unmarshal(data, &lx); err != nil {
		return nil, fmt.Errorf("keyword: parse lexicon %s: %w", path, err)
	}
	return New(lx)
}

// PredictText returns the highest severity of any phrase found on word
// boundaries and not negated ("no one injured"). Text that matches nothing
// is Low.
func (c *Classifier) PredictText(_ context.Context, text string) (severity.Level, error) {
	best := severity.Low
	for _, clause := range strings.FieldsFunc(normalize(text), isClauseBreak) {
		toks := tokenize(clause)
		for i := 0; i < len(toks); {
			p, ok := c.longestAt(toks, i)
			if !ok {
				i++
				continue
			}
			if p.level > best && !negated(toks, i) {
				best = p.level
				if best == severity.High {
					return best, nil
				}
			}
			i += len(p.tokens)
		}
	}
	return best, nil
}

func (c *Classifier) longestAt(toks []string, i int) (phrase, bool) {
	for _, p := range c.phrases {
		if len(p.tokens) <= len(toks)-i && slices.Equal(p.tokens, toks[i:i+len(p.tokens)]) {
			return p, true
		}
	}
	return phrase{}, false
}

func negated(toks []string, i int) bool {
	for j := max(0, i-negationWindow); j < i; j++ {
		if negators[toks[j]] {
			return true
		}
	}
	return false
}

// normalize lowercases s and expands "n't" so "isn't" negates like "is not".
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "’", "'")
	return strings.ReplaceAll(s, "n't", " not")
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isClauseBreak(r rune) bool {
	return strings.ContainsRune(".,;:!?\n", r)
}

// Package claudetext implements a text severity provider backed by the
// Claude Messages API.
package claudetext

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/infrasense/internal/severity"
)

const (
	responseTokens = 8
	defaultTimeout = 30 * time.Second
)

const systemPrompt = `You classify citizen reports of damaged public infrastructure by severity.

Reply with exactly one word: Low, Medium or High.
- High: immediate danger to people or property (collapse, exposed wiring, gas leak, flooding, open manhole).
- Medium: damage that needs repair soon but is not dangerous right now (potholes, leaks, broken lights).
- Low: cosmetic or nuisance issues (litter, graffiti, faded paint).`

// ErrEmptyResponse is returned when the model reply has no text content.
var ErrEmptyResponse = errors.New("claudetext: empty response")

// Client is a text provider that asks Claude for a severity label. It holds
// no per-request state and is safe for concurrent use.
type Client struct {
	api   anthropic.Client
	model string
}

// New creates a Client. Extra request options (base URL, HTTP client) are
// appended after the API key and retry settings. Retries are disabled.
func New(apiKey, model string, timeout time.Duration, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("claudetext: api key is required")
	}
	if model == "" {
		return nil, errors.New("claudetext: model is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	return &Client{
		api:   anthropic.NewClient(append(base, opts...)...),
		model: model,
	}, nil
}

// PredictText implements assess.TextProvider. Blank text is Low without a
// call; the Messages API rejects empty text blocks.
func (c *Client) PredictText(ctx context.Context, text string) (severity.Level, error) {
	if strings.TrimSpace(text) == "" {
		return severity.Low, nil
	}
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: responseTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("claudetext: messages call: %w", err)
	}
	return parseReply(msg)
}

// parseReply extracts the severity label from the first text block.
func parseReply(msg *anthropic.Message) (severity.Level, error) {
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		reply := strings.Trim(strings.TrimSpace(block.Text), ".*\"'")
		if reply == "" {
			continue
		}
		// tolerate a trailing explanation after the label
		word, _, _ := strings.Cut(reply, " ")
		lvl, err := severity.Parse(strings.TrimRight(word, ".,:;"))
		if err != nil {
			return 0, fmt.Errorf("claudetext: %w", err)
		}
		return lvl, nil
	}
	return 0, ErrEmptyResponse
}

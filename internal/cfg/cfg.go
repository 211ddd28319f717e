package cfg

import (
	"errors"
	"flag"
	"fmt"

	"github.com/linnemanlabs/infrasense/internal/severity"
)

// Text provider kinds accepted by -text-provider.
const (
	TextProviderKeyword = "keyword"
	TextProviderClaude  = "claude"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	MaxUploadBytes        int64

	TextProvider       string
	KeywordLexiconPath string

	ClaudeAPIKey         string
	ClaudeModel          string
	ClaudeTimeoutSeconds int

	ImageModelPath string
	ORTLibraryPath string
	ImageSize      int
	ImageMaxPixels int
	ImageLabels    string
	ChannelOrder   string

	SlackWebhookURL   string
	NotifyMinSeverity string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8000, "API listen TCP port (1..65535)")
	fs.Int64Var(&c.MaxUploadBytes, "max-upload-bytes", 10<<20, "maximum multipart request size in bytes")

	fs.StringVar(&c.TextProvider, "text-provider", TextProviderKeyword, "text severity provider (keyword|claude)")
	fs.StringVar(&c.KeywordLexiconPath, "keyword-lexicon", "", "JSON lexicon for the keyword provider (empty = built-in)")

	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude text provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model used for text classification")
	fs.IntVar(&c.ClaudeTimeoutSeconds, "claude-timeout-seconds", 15, "per-request timeout for the Claude text provider (1..120)")

	fs.StringVar(&c.ImageModelPath, "image-model", "", "path to the ONNX image classifier (empty = image provider unavailable)")
	fs.StringVar(&c.ORTLibraryPath, "ort-library", "", "path to the onnxruntime shared library (empty = next to the model)")
	fs.IntVar(&c.ImageSize, "image-size", 224, "square input edge of the image classifier (1..4096)")
	fs.IntVar(&c.ImageMaxPixels, "image-max-pixels", 32_000_000, "largest decoded image area in pixels, checked from the header before decoding")
	fs.StringVar(&c.ImageLabels, "image-labels", "High,Low,Medium", "comma separated model class order")
	fs.StringVar(&c.ChannelOrder, "channel-order", "bgr", "pixel channel order fed to the model (bgr|rgb)")

	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for severe assessment notifications (empty = disabled)")
	fs.StringVar(&c.NotifyMinSeverity, "notify-min-severity", "High", "lowest final severity that triggers a notification")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("invalid MAX_UPLOAD_BYTES %d (must be positive)", c.MaxUploadBytes))
	}

	switch c.TextProvider {
	case TextProviderKeyword:
	case TextProviderClaude:
		// a missing key or model leaves the provider unavailable at runtime
		if c.ClaudeTimeoutSeconds <= 0 || c.ClaudeTimeoutSeconds > 120 {
			errs = append(errs, fmt.Errorf("invalid CLAUDE_TIMEOUT_SECONDS %d (must be 1..120)", c.ClaudeTimeoutSeconds))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid TEXT_PROVIDER %q (must be keyword or claude)", c.TextProvider))
	}

	if c.ImageSize <= 0 || c.ImageSize > 4096 {
		errs = append(errs, fmt.Errorf("invalid IMAGE_SIZE %d (must be 1..4096)", c.ImageSize))
	}
	if c.ImageMaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("invalid IMAGE_MAX_PIXELS %d (must be positive)", c.ImageMaxPixels))
	}
	if _, err := severity.ParseOrder(c.ImageLabels); err != nil {
		errs = append(errs, fmt.Errorf("invalid IMAGE_LABELS %q: %w", c.ImageLabels, err))
	}
	if c.ChannelOrder != "bgr" && c.ChannelOrder != "rgb" {
		errs = append(errs, fmt.Errorf("invalid CHANNEL_ORDER %q (must be bgr or rgb)", c.ChannelOrder))
	}

	if c.SlackWebhookURL != "" {
		if _, err := severity.Parse(c.NotifyMinSeverity); err != nil {
			errs = append(errs, fmt.Errorf("invalid NOTIFY_MIN_SEVERITY: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

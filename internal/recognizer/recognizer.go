// Package recognizer wraps Tesseract behind a small interface so each
// orientation trial can own an isolated recognition session.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
)

// Backend names.
const (
	BackendGosseract = "gosseract"
	BackendCLI       = "cli"
)

// Defaults.
const (
	DefaultLanguage      = "eng"
	DefaultPageSegMode   = 1 // automatic page segmentation with orientation and script detection
	DefaultTesseractPath = "tesseract"
	EnvTessdataPrefix    = "TESSDATA_PREFIX"
)

// ErrEmptyImage is returned when Recognize is handed a nil or empty image.
var ErrEmptyImage = errors.New("empty image")

// Config describes how to construct a recognizer.
type Config struct {
	Backend       string            `json:"backend" yaml:"backend" mapstructure:"backend"`
	Language      string            `json:"language" yaml:"language" mapstructure:"language"`
	TessdataDir   string            `json:"tessdata_dir" yaml:"tessdata_dir" mapstructure:"tessdata_dir"`
	TesseractPath string            `json:"tesseract_path" yaml:"tesseract_path" mapstructure:"tesseract_path"`
	PageSegMode   int               `json:"page_seg_mode" yaml:"page_seg_mode" mapstructure:"page_seg_mode"`
	EngineMode    int               `json:"engine_mode" yaml:"engine_mode" mapstructure:"engine_mode"`
	Variables     map[string]string `json:"variables" yaml:"variables" mapstructure:"variables"`
	Clean         CleanOptions      `json:"-" yaml:"-" mapstructure:"-"`
}

// DefaultConfig returns a configuration for the gosseract backend.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendGosseract,
		Language:      DefaultLanguage,
		TessdataDir:   os.Getenv(EnvTessdataPrefix),
		TesseractPath: DefaultTesseractPath,
		PageSegMode:   DefaultPageSegMode,
		EngineMode:    -1,
		Clean:         DefaultCleanOptions(),
	}
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendGosseract, BackendCLI:
	default:
		return fmt.Errorf("unknown recognizer backend %q (valid: %s, %s)", c.Backend, BackendGosseract, BackendCLI)
	}
	if strings.TrimSpace(c.Language) == "" {
		return errors.New("recognizer language cannot be empty")
	}
	if c.PageSegMode < 0 || c.PageSegMode > 13 {
		return fmt.Errorf("page segmentation mode must be between 0 and 13, got %d", c.PageSegMode)
	}
	if c.EngineMode < -1 || c.EngineMode > 3 {
		return fmt.Errorf("engine mode must be between -1 and 3, got %d", c.EngineMode)
	}
	if c.Backend == BackendCLI && c.TesseractPath == "" {
		return errors.New("tesseract path cannot be empty for the cli backend")
	}
	return nil
}

// languages splits "eng+por" style language specs.
func (c Config) languages() []string {
	parts := strings.Split(c.Language, "+")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Result is the outcome of one recognition pass.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Words      int     `json:"words"`
}

// Recognizer extracts text from an image. Implementations are not safe for
// concurrent use; callers create one per goroutine.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (Result, error)
	Close() error
}

// Factory creates a fresh, independent Recognizer.
type Factory func() (Recognizer, error)

// NewFactory returns a Factory for the configured backend.
func NewFactory(cfg Config) (Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendCLI:
		return func() (Recognizer, error) { return NewCLI(cfg, nil), nil }, nil
	default:
		return func() (Recognizer, error) { return NewTesseract(cfg) }, nil
	}
}

// Error reports a failed recognition step.
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s recognizer: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

func checkImage(img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return ErrEmptyImage
	}
	return nil
}

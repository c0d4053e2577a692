//nolint:lll
package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/orient/internal/models"
	"github.com/MeKo-Tech/orient/internal/onnx"
	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/MeKo-Tech/orient/internal/preprocess"
	"github.com/MeKo-Tech/orient/internal/recognizer"
	"github.com/MeKo-Tech/orient/internal/textquality"
)

// Config represents the complete configuration for the orient application.
// It covers every command (detect, batch, pdf, serve) and is loaded from
// configuration files, .env files, environment variables and command-line flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Detection strategy: "heuristic" or "classifier"
	Strategy string `mapstructure:"strategy" yaml:"strategy" json:"strategy"`

	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine" json:"engine"`
	Recognizer RecognizerConfig `mapstructure:"recognizer" yaml:"recognizer" json:"recognizer"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier" json:"classifier"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output" json:"output"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server" json:"server"`
	Batch      BatchConfig      `mapstructure:"batch" yaml:"batch" json:"batch"`
	GPU        GPUConfig        `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// EngineConfig contains the heuristic engine's policy values.
type EngineConfig struct {
	MaxDimension           int                 `mapstructure:"max_dimension" yaml:"max_dimension" json:"max_dimension"`
	Padding                int                 `mapstructure:"padding" yaml:"padding" json:"padding"`
	SkipBlur               bool                `mapstructure:"skip_blur" yaml:"skip_blur" json:"skip_blur"`
	TrialTimeout           time.Duration       `mapstructure:"trial_timeout" yaml:"trial_timeout" json:"trial_timeout"`
	MinConfidenceThreshold float64             `mapstructure:"min_confidence_threshold" yaml:"min_confidence_threshold" json:"min_confidence_threshold"`
	MinTextLength          int                 `mapstructure:"min_text_length" yaml:"min_text_length" json:"min_text_length"`
	MinWords               int                 `mapstructure:"min_words" yaml:"min_words" json:"min_words"`
	TextSaturation         int                 `mapstructure:"text_saturation" yaml:"text_saturation" json:"text_saturation"`
	WordSaturation         int                 `mapstructure:"word_saturation" yaml:"word_saturation" json:"word_saturation"`
	ScoreWeights           ScoreWeightsConfig  `mapstructure:"score_weights" yaml:"score_weights" json:"score_weights"`
	ReadabilityWeights     textquality.Weights `mapstructure:"readability_weights" yaml:"readability_weights" json:"readability_weights"`
}

// ScoreWeightsConfig weighs the signals combined into a hypothesis score.
type ScoreWeightsConfig struct {
	Readability float64 `mapstructure:"readability" yaml:"readability" json:"readability"`
	Words       float64 `mapstructure:"words" yaml:"words" json:"words"`
	Confidence  float64 `mapstructure:"confidence" yaml:"confidence" json:"confidence"`
	Text        float64 `mapstructure:"text" yaml:"text" json:"text"`
}

// RecognizerConfig contains Tesseract settings.
type RecognizerConfig struct {
	Backend            string            `mapstructure:"backend" yaml:"backend" json:"backend"`
	Language           string            `mapstructure:"language" yaml:"language" json:"language"`
	TessdataDir        string            `mapstructure:"tessdata_dir" yaml:"tessdata_dir" json:"tessdata_dir"`
	TesseractPath      string            `mapstructure:"tesseract_path" yaml:"tesseract_path" json:"tesseract_path"`
	PageSegMode        int               `mapstructure:"page_seg_mode" yaml:"page_seg_mode" json:"page_seg_mode"`
	EngineMode         int               `mapstructure:"engine_mode" yaml:"engine_mode" json:"engine_mode"`
	Variables          map[string]string `mapstructure:"variables" yaml:"variables" json:"variables"`
	NormalizeForm      string            `mapstructure:"normalize_form" yaml:"normalize_form" json:"normalize_form"`
	CollapseWhitespace bool              `mapstructure:"collapse_whitespace" yaml:"collapse_whitespace" json:"collapse_whitespace"`

	// TypographicReplacements maps curly quotes, dashes and non-breaking
	// spaces to ASCII before scoring. Off by default, since it changes the
	// space statistics of the raw recognizer text.
	TypographicReplacements bool `mapstructure:"typographic_replacements" yaml:"typographic_replacements" json:"typographic_replacements"`
}

// ClassifierConfig contains settings for the model-based strategy.
type ClassifierConfig struct {
	ModelPath           string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold" json:"confidence_threshold"`
	NumThreads          int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	HeuristicFallback   bool    `mapstructure:"heuristic_fallback" yaml:"heuristic_fallback" json:"heuristic_fallback"`
	HeuristicOnly       bool    `mapstructure:"heuristic_only" yaml:"heuristic_only" json:"heuristic_only"`
	Warmup              bool    `mapstructure:"warmup" yaml:"warmup" json:"warmup"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format              string `mapstructure:"format" yaml:"format" json:"format"`
	File                string `mapstructure:"file" yaml:"file" json:"file"`
	ConfidencePrecision int    `mapstructure:"confidence_precision" yaml:"confidence_precision" json:"confidence_precision"`
	VerboseTrials       bool   `mapstructure:"verbose_trials" yaml:"verbose_trials" json:"verbose_trials"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// GPUConfig contains GPU acceleration settings for the classifier.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	eng := orientation.DefaultConfig()
	rec := recognizer.DefaultConfig()
	cls := orientation.DefaultClassifierConfig()

	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  "info",
		Strategy:  orientation.StrategyHeuristic,
		Engine: EngineConfig{
			MaxDimension:           eng.Preprocess.MaxDimension,
			Padding:                eng.Preprocess.Padding,
			TrialTimeout:           eng.TrialTimeout,
			MinConfidenceThreshold: eng.MinConfidenceThreshold,
			MinTextLength:          eng.Scoring.MinTextLength,
			MinWords:               eng.Scoring.MinWords,
			TextSaturation:         eng.Scoring.TextSaturation,
			WordSaturation:         eng.Scoring.WordSaturation,
			ScoreWeights: ScoreWeightsConfig{
				Readability: eng.Scoring.Weights.Readability,
				Words:       eng.Scoring.Weights.Words,
				Confidence:  eng.Scoring.Weights.Confidence,
				Text:        eng.Scoring.Weights.Text,
			},
			ReadabilityWeights: eng.Readability,
		},
		Recognizer: RecognizerConfig{
			Backend:       rec.Backend,
			Language:      rec.Language,
			TessdataDir:   rec.TessdataDir,
			TesseractPath: rec.TesseractPath,
			PageSegMode:   rec.PageSegMode,
			EngineMode:    rec.EngineMode,
			NormalizeForm: rec.Clean.NormalizeForm,
		},
		Classifier: ClassifierConfig{
			ConfidenceThreshold: cls.ConfidenceThreshold,
			HeuristicFallback:   cls.UseHeuristicFallback,
		},
		Output: OutputConfig{
			Format:              "text",
			ConfidencePrecision: 2,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      120,
			ShutdownTimeout: 10,
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: true,
		},
		GPU: GPUConfig{
			MemoryLimit: "auto",
		},
	}
}

// Output formats accepted by every command.
var validFormats = []string{"text", "json", "csv", "yaml"}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := validateThreshold(c.Engine.MinConfidenceThreshold, "engine.min_confidence_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Classifier.ConfidenceThreshold, "classifier.confidence_threshold"); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	if _, err := parseMemoryLimit(c.GPU.MemoryLimit); err != nil {
		return fmt.Errorf("invalid GPU memory limit: %w", err)
	}

	if err := c.ToEngineConfig().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.ToRecognizerConfig().Validate(); err != nil {
		return fmt.Errorf("recognizer: %w", err)
	}
	return nil
}

// ToEngineConfig converts the config to the orientation engine configuration.
func (c *Config) ToEngineConfig() orientation.Config {
	cfg := orientation.DefaultConfig()
	if c.Strategy != "" {
		cfg.Strategy = c.Strategy
	}
	cfg.Preprocess = preprocess.Config{
		MaxDimension: c.Engine.MaxDimension,
		Padding:      c.Engine.Padding,
		SkipBlur:     c.Engine.SkipBlur,
	}
	cfg.TrialTimeout = c.Engine.TrialTimeout
	cfg.MinConfidenceThreshold = c.Engine.MinConfidenceThreshold
	cfg.Scoring = orientation.ScoringConfig{
		MinTextLength:  c.Engine.MinTextLength,
		MinWords:       c.Engine.MinWords,
		TextSaturation: c.Engine.TextSaturation,
		WordSaturation: c.Engine.WordSaturation,
		Weights: orientation.ScoreWeights{
			Readability: c.Engine.ScoreWeights.Readability,
			Words:       c.Engine.ScoreWeights.Words,
			Confidence:  c.Engine.ScoreWeights.Confidence,
			Text:        c.Engine.ScoreWeights.Text,
		},
	}
	cfg.Readability = c.Engine.ReadabilityWeights
	cfg.Classifier = c.ToClassifierConfig()
	return cfg
}

// ToRecognizerConfig converts to recognizer.Config. An empty tessdata dir
// falls back to <models_dir>/tessdata when that directory exists.
func (c *Config) ToRecognizerConfig() recognizer.Config {
	cfg := recognizer.DefaultConfig()
	cfg.Backend = c.Recognizer.Backend
	cfg.Language = c.Recognizer.Language
	cfg.PageSegMode = c.Recognizer.PageSegMode
	cfg.EngineMode = c.Recognizer.EngineMode
	cfg.Variables = c.Recognizer.Variables
	if c.Recognizer.TesseractPath != "" {
		cfg.TesseractPath = c.Recognizer.TesseractPath
	}
	if c.Recognizer.TessdataDir != "" {
		cfg.TessdataDir = c.Recognizer.TessdataDir
	} else if dir := models.GetTessdataDir(c.ModelsDir); dir != "" {
		cfg.TessdataDir = dir
	}
	if c.Recognizer.NormalizeForm != "" {
		cfg.Clean.NormalizeForm = c.Recognizer.NormalizeForm
	}
	cfg.Clean.CollapseWhitespace = c.Recognizer.CollapseWhitespace
	if c.Recognizer.TypographicReplacements {
		cfg.Clean.Language = cfg.Language
	}
	return cfg
}

// ToClassifierConfig converts to orientation.ClassifierConfig.
func (c *Config) ToClassifierConfig() orientation.ClassifierConfig {
	cfg := orientation.DefaultClassifierConfig()
	cfg.ConfidenceThreshold = c.Classifier.ConfidenceThreshold
	cfg.NumThreads = c.Classifier.NumThreads
	cfg.UseHeuristicFallback = c.Classifier.HeuristicFallback
	cfg.HeuristicOnly = c.Classifier.HeuristicOnly
	cfg.EnableWarmup = c.Classifier.Warmup
	if c.Classifier.ModelPath != "" {
		cfg.ModelPath = c.Classifier.ModelPath
	} else if c.ModelsDir != "" {
		cfg.UpdateModelPath(c.ModelsDir)
	}
	cfg.GPU = c.toGPUConfig()
	return cfg
}

func (c *Config) toGPUConfig() onnx.GPUConfig {
	cfg := onnx.DefaultGPUConfig()
	cfg.UseGPU = c.GPU.Enabled
	cfg.DeviceID = c.GPU.Device
	if limit, err := parseMemoryLimit(c.GPU.MemoryLimit); err == nil {
		cfg.GPUMemLimit = limit
	}
	return cfg
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// parseMemoryLimit converts limits like "1GB" or "512MB" to bytes. "auto"
// and "" mean no limit and yield 0.
func parseMemoryLimit(limit string) (uint64, error) {
	if limit == "" || limit == "auto" {
		return 0, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(limit))
	units := []struct {
		suffix string
		factor float64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	for _, u := range units {
		if !strings.HasSuffix(upper, u.suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(upper, u.suffix), 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid number in memory limit: %s", limit)
		}
		return uint64(n * u.factor), nil
	}
	return 0, errors.New("memory limit must end with one of: B, KB, MB, GB")
}

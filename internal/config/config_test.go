package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/MeKo-Tech/orient/internal/models"
	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/MeKo-Tech/orient/internal/recognizer"
)

const (
	infoLevel  = "info"
	debugLevel = "debug"
	autoValue  = "auto"
)

// TestDefaultConfig verifies that DefaultConfig returns expected values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ModelsDir != models.DefaultModelsDir {
		t.Errorf("Expected models_dir %s, got %s", models.DefaultModelsDir, cfg.ModelsDir)
	}
	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected log_level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Strategy != orientation.StrategyHeuristic {
		t.Errorf("Expected strategy heuristic, got %s", cfg.Strategy)
	}

	if cfg.Engine.MaxDimension != 1600 {
		t.Errorf("Expected max_dimension 1600, got %d", cfg.Engine.MaxDimension)
	}
	if cfg.Engine.Padding != 20 {
		t.Errorf("Expected padding 20, got %d", cfg.Engine.Padding)
	}
	if cfg.Engine.TrialTimeout != 30*time.Second {
		t.Errorf("Expected trial_timeout 30s, got %s", cfg.Engine.TrialTimeout)
	}
	if cfg.Engine.MinConfidenceThreshold != 0.3 {
		t.Errorf("Expected min_confidence_threshold 0.3, got %f", cfg.Engine.MinConfidenceThreshold)
	}
	if cfg.Engine.ScoreWeights.Readability != 0.60 {
		t.Errorf("Expected readability weight 0.60, got %f", cfg.Engine.ScoreWeights.Readability)
	}

	if cfg.Recognizer.Backend != recognizer.BackendGosseract {
		t.Errorf("Expected backend gosseract, got %s", cfg.Recognizer.Backend)
	}
	if cfg.Recognizer.PageSegMode != 1 {
		t.Errorf("Expected page_seg_mode 1, got %d", cfg.Recognizer.PageSegMode)
	}

	if cfg.Classifier.ConfidenceThreshold != 0.7 {
		t.Errorf("Expected classifier threshold 0.7, got %f", cfg.Classifier.ConfidenceThreshold)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Expected output format 'text', got %s", cfg.Output.Format)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("Expected batch workers 4, got %d", cfg.Batch.Workers)
	}
	if cfg.GPU.MemoryLimit != autoValue {
		t.Errorf("Expected GPU memory limit '%s', got %s", autoValue, cfg.GPU.MemoryLimit)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"classifier strategy", func(c *Config) { c.Strategy = orientation.StrategyClassifier }, false},
		{"yaml output", func(c *Config) { c.Output.Format = "yaml" }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, true},
		{"bad output format", func(c *Config) { c.Output.Format = "xml" }, true},
		{"bad strategy", func(c *Config) { c.Strategy = "guess" }, true},
		{"threshold too high", func(c *Config) { c.Engine.MinConfidenceThreshold = 1.2 }, true},
		{"classifier threshold negative", func(c *Config) { c.Classifier.ConfidenceThreshold = -0.1 }, true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"no upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }, true},
		{"no workers", func(c *Config) { c.Batch.Workers = 0 }, true},
		{"zero trial timeout", func(c *Config) { c.Engine.TrialTimeout = 0 }, true},
		{"score weights off", func(c *Config) { c.Engine.ScoreWeights.Text = 0.5 }, true},
		{"unknown backend", func(c *Config) { c.Recognizer.Backend = "paddle" }, true},
		{"bad memory limit", func(c *Config) { c.GPU.MemoryLimit = "lots" }, true},
		{"good memory limit", func(c *Config) { c.GPU.MemoryLimit = "512MB" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestToEngineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = orientation.StrategyClassifier
	cfg.Engine.MaxDimension = 1200
	cfg.Engine.Padding = 10
	cfg.Engine.TrialTimeout = 5 * time.Second
	cfg.Engine.MinWords = 3

	eng := cfg.ToEngineConfig()
	if eng.Strategy != orientation.StrategyClassifier {
		t.Errorf("Expected classifier strategy, got %s", eng.Strategy)
	}
	if eng.Preprocess.MaxDimension != 1200 || eng.Preprocess.Padding != 10 {
		t.Errorf("Unexpected preprocess config %+v", eng.Preprocess)
	}
	if eng.TrialTimeout != 5*time.Second {
		t.Errorf("Expected trial timeout 5s, got %s", eng.TrialTimeout)
	}
	if eng.Scoring.MinWords != 3 {
		t.Errorf("Expected min words 3, got %d", eng.Scoring.MinWords)
	}
	if err := eng.Validate(); err != nil {
		t.Errorf("converted engine config invalid: %v", err)
	}
}

func TestToRecognizerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelsDir = t.TempDir()
	cfg.Recognizer.Backend = recognizer.BackendCLI
	cfg.Recognizer.Language = "por"
	cfg.Recognizer.TessdataDir = "/usr/share/tessdata"
	cfg.Recognizer.Variables = map[string]string{"tessedit_do_invert": "0"}
	cfg.Recognizer.CollapseWhitespace = true

	rc := cfg.ToRecognizerConfig()
	if rc.Backend != recognizer.BackendCLI {
		t.Errorf("Expected cli backend, got %s", rc.Backend)
	}
	if rc.Language != "por" {
		t.Errorf("Expected language por, got %s", rc.Language)
	}
	if rc.Clean.Language != "" {
		t.Errorf("Expected typographic replacements off by default, got %q", rc.Clean.Language)
	}
	if rc.TessdataDir != "/usr/share/tessdata" {
		t.Errorf("Expected tessdata dir to be kept, got %s", rc.TessdataDir)
	}
	if rc.Variables["tessedit_do_invert"] != "0" {
		t.Error("Expected variables to be passed through")
	}
	if !rc.Clean.CollapseWhitespace {
		t.Error("Expected whitespace collapse")
	}
}

func TestToRecognizerConfigTypographicReplacements(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Recognizer.Language = "por"

	raw := "a\u00A0b \u00ABc\u00BB"
	off := cfg.ToRecognizerConfig()
	if got := recognizer.PostProcessText(raw, off.Clean); got != raw {
		t.Errorf("Expected raw text to survive by default, got %q", got)
	}

	cfg.Recognizer.TypographicReplacements = true
	on := cfg.ToRecognizerConfig()
	if on.Clean.Language != "por" {
		t.Errorf("Expected replace map language por, got %q", on.Clean.Language)
	}
	if got := recognizer.PostProcessText(raw, on.Clean); got != "a b \"c\"" {
		t.Errorf("Expected replacements applied, got %q", got)
	}
}

func TestToClassifierConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelsDir = "/custom/models"
	cfg.Classifier.ConfidenceThreshold = 0.9
	cfg.Classifier.HeuristicOnly = true
	cfg.GPU.Enabled = true
	cfg.GPU.Device = 1
	cfg.GPU.MemoryLimit = "1GB"

	cc := cfg.ToClassifierConfig()
	if cc.ConfidenceThreshold != 0.9 {
		t.Errorf("Expected threshold 0.9, got %f", cc.ConfidenceThreshold)
	}
	if !cc.HeuristicOnly {
		t.Error("Expected heuristic only")
	}
	want := filepath.Join("/custom/models", models.OrientationDocPPLCNetX10)
	if cc.ModelPath != want {
		t.Errorf("Expected model path %s, got %s", want, cc.ModelPath)
	}
	if !cc.GPU.UseGPU || cc.GPU.DeviceID != 1 || cc.GPU.GPUMemLimit != 1<<30 {
		t.Errorf("Unexpected GPU config %+v", cc.GPU)
	}

	cfg.Classifier.ModelPath = "/explicit.onnx"
	if got := cfg.ToClassifierConfig().ModelPath; got != "/explicit.onnx" {
		t.Errorf("Expected explicit model path, got %s", got)
	}
}

func TestParseMemoryLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"", 0, false},
		{"auto", 0, false},
		{"512MB", 512 << 20, false},
		{"2gb", 2 << 30, false},
		{"1.5KB", 1536, false},
		{"100B", 100, false},
		{"abcMB", 0, true},
		{"12", 0, true},
		{"-1GB", 0, true},
	}
	for _, tt := range tests {
		got, err := parseMemoryLimit(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseMemoryLimit(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseMemoryLimit(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseMemoryLimit(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestValidateThreshold(t *testing.T) {
	if err := validateThreshold(0.5, "x"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validateThreshold(1.01, "x"); err == nil {
		t.Error("expected error for 1.01")
	}
}

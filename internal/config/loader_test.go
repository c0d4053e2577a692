package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// chdirTemp switches into a fresh directory for the duration of the test so
// no stray orient.yaml or .env is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil || loader.v == nil {
		t.Fatal("NewLoader() returned an unusable loader")
	}
	if loader.GetViper() != viper.GetViper() {
		t.Error("NewLoader() should use the global viper instance")
	}
}

func TestLoadWithNoConfigFile(t *testing.T) {
	chdirTemp(t)

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected default log level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Engine.TrialTimeout != 30*time.Second {
		t.Errorf("Expected default trial timeout, got %s", cfg.Engine.TrialTimeout)
	}
	if cfg.Engine.ReadabilityWeights.Letter != 0.35 {
		t.Errorf("Expected letter weight 0.35, got %f", cfg.Engine.ReadabilityWeights.Letter)
	}
}

func TestLoadWithValidYAMLFile(t *testing.T) {
	dir := chdirTemp(t)
	configFile := filepath.Join(dir, "orient.yaml")

	yamlContent := `
log_level: debug
strategy: classifier
models_dir: /custom/models
engine:
  trial_timeout: 5s
  min_confidence_threshold: 0.4
recognizer:
  backend: cli
  language: por
  variables:
    preserve_interword_spaces: "1"
server:
  port: 9090
batch:
  include: ["*.png"]
`
	if err := os.WriteFile(configFile, []byte(yamlContent), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	loader := NewLoaderWithViper(viper.New())
	cfg, err := loader.LoadWithFile(configFile)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}
	if cfg.LogLevel != debugLevel {
		t.Errorf("Expected log level '%s', got %s", debugLevel, cfg.LogLevel)
	}
	if cfg.Strategy != "classifier" {
		t.Errorf("Expected classifier strategy, got %s", cfg.Strategy)
	}
	if cfg.Engine.TrialTimeout != 5*time.Second {
		t.Errorf("Expected trial timeout 5s, got %s", cfg.Engine.TrialTimeout)
	}
	if cfg.Engine.MinConfidenceThreshold != 0.4 {
		t.Errorf("Expected threshold 0.4, got %f", cfg.Engine.MinConfidenceThreshold)
	}
	if cfg.Recognizer.Backend != "cli" || cfg.Recognizer.Language != "por" {
		t.Errorf("Unexpected recognizer config %+v", cfg.Recognizer)
	}
	if cfg.Recognizer.Variables["preserve_interword_spaces"] != "1" {
		t.Errorf("Expected variables from file, got %v", cfg.Recognizer.Variables)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if len(cfg.Batch.Include) != 1 || cfg.Batch.Include[0] != "*.png" {
		t.Errorf("Expected include patterns, got %v", cfg.Batch.Include)
	}
	if loader.GetConfigFileUsed() != configFile {
		t.Errorf("Expected config file %s, got %s", configFile, loader.GetConfigFileUsed())
	}
	// unset keys keep their defaults
	if cfg.Engine.Padding != 20 {
		t.Errorf("Expected default padding, got %d", cfg.Engine.Padding)
	}
}

func TestLoadDiscoversConfigInWorkingDir(t *testing.T) {
	dir := chdirTemp(t)
	if err := os.WriteFile(filepath.Join(dir, "orient.yaml"), []byte("server:\n  port: 7070\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected port 7070, got %d", cfg.Server.Port)
	}
}

func TestLoadWithInvalidYAMLFile(t *testing.T) {
	dir := chdirTemp(t)
	configFile := filepath.Join(dir, "orient.yaml")
	if err := os.WriteFile(configFile, []byte("server: [port: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewLoaderWithViper(viper.New()).LoadWithFile(configFile); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadWithNonExistentFile(t *testing.T) {
	_, err := NewLoaderWithViper(viper.New()).LoadWithFile("/nonexistent/orient.yaml")
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected missing file error, got %v", err)
	}
}

func TestLoadValidation(t *testing.T) {
	dir := chdirTemp(t)
	configFile := filepath.Join(dir, "orient.yaml")
	if err := os.WriteFile(configFile, []byte("server:\n  port: -1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewLoaderWithViper(viper.New()).LoadWithFile(configFile); err == nil {
		t.Error("Expected validation error")
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	cfg, err := NewLoaderWithViper(v).LoadWithoutValidation()
	if err != nil {
		t.Fatalf("LoadWithoutValidation() unexpected error: %v", err)
	}
	if cfg.Server.Port != -1 {
		t.Errorf("Expected port -1, got %d", cfg.Server.Port)
	}
}

func TestEnvironmentVariableOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ORIENT_LOG_LEVEL", "debug")
	t.Setenv("ORIENT_SERVER_PORT", "9999")
	t.Setenv("ORIENT_RECOGNIZER_LANGUAGE", "deu")
	t.Setenv("ORIENT_ENGINE_TRIAL_TIMEOUT", "2s")

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug' from env, got %s", cfg.LogLevel)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999 from env, got %d", cfg.Server.Port)
	}
	if cfg.Recognizer.Language != "deu" {
		t.Errorf("Expected language deu from env, got %s", cfg.Recognizer.Language)
	}
	if cfg.Engine.TrialTimeout != 2*time.Second {
		t.Errorf("Expected trial timeout 2s from env, got %s", cfg.Engine.TrialTimeout)
	}
}

func TestDotEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("ORIENT_SERVER_HOST", "")
	if err := os.Unsetenv("ORIENT_SERVER_HOST"); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ORIENT_SERVER_PORT", "8181")

	env := "ORIENT_SERVER_HOST=0.0.0.0\nORIENT_SERVER_PORT=1111\n"
	if err := os.WriteFile(filepath.Join(dir, DotEnvFile), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host from .env, got %s", cfg.Server.Host)
	}
	// real environment wins over .env
	if cfg.Server.Port != 8181 {
		t.Errorf("Expected port 8181 from environment, got %d", cfg.Server.Port)
	}
}

func TestLoadDotEnvMissing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should not fail, got %v", err)
	}
}

func TestGetResolvedConfig(t *testing.T) {
	chdirTemp(t)
	loader := NewLoaderWithViper(viper.New())
	if _, err := loader.Load(); err != nil {
		t.Fatal(err)
	}
	settings := loader.GetResolvedConfig()
	if _, ok := settings["engine"]; !ok {
		t.Error("Expected engine section in resolved settings")
	}
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orient.yaml")
	if err := GenerateDefaultConfigFile(path); err != nil {
		t.Fatalf("GenerateDefaultConfigFile() error: %v", err)
	}

	data, err := os.ReadFile(path) //nolint:gosec // test file
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "orient configuration") {
		t.Error("Expected header comment in generated file")
	}

	var decoded Config
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("generated file is not valid YAML: %v", err)
	}
	if decoded.Engine.TrialTimeout != 30*time.Second {
		t.Errorf("Expected trial timeout 30s, got %s", decoded.Engine.TrialTimeout)
	}

	// the generated file loads back through viper
	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile(generated) error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	paths := GetConfigSearchPaths()
	want := []string{".", filepath.Join("/tmp/xdg", "orient"), "/etc/orient"}
	if len(paths) != len(want) {
		t.Fatalf("Expected %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d: expected %s, got %s", i, want[i], paths[i])
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "orient"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "ORIENT"

	// DotEnvFile is loaded from the working directory before the environment
	// is consulted.
	DotEnvFile = ".env"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so cobra flag
// bindings made in the root command apply.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on an explicit viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load loads configuration from files, .env, environment variables and
// defaults, then validates it.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation is Load without the final validation step.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path. An empty path
// searches the standard locations.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if err := LoadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return &config, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so AutomaticEnv can resolve nested values.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("models_dir", d.ModelsDir)
	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)
	l.v.SetDefault("strategy", d.Strategy)

	l.v.SetDefault("engine.max_dimension", d.Engine.MaxDimension)
	l.v.SetDefault("engine.padding", d.Engine.Padding)
	l.v.SetDefault("engine.skip_blur", d.Engine.SkipBlur)
	l.v.SetDefault("engine.trial_timeout", d.Engine.TrialTimeout)
	l.v.SetDefault("engine.min_confidence_threshold", d.Engine.MinConfidenceThreshold)
	l.v.SetDefault("engine.min_text_length", d.Engine.MinTextLength)
	l.v.SetDefault("engine.min_words", d.Engine.MinWords)
	l.v.SetDefault("engine.text_saturation", d.Engine.TextSaturation)
	l.v.SetDefault("engine.word_saturation", d.Engine.WordSaturation)
	l.v.SetDefault("engine.score_weights.readability", d.Engine.ScoreWeights.Readability)
	l.v.SetDefault("engine.score_weights.words", d.Engine.ScoreWeights.Words)
	l.v.SetDefault("engine.score_weights.confidence", d.Engine.ScoreWeights.Confidence)
	l.v.SetDefault("engine.score_weights.text", d.Engine.ScoreWeights.Text)
	l.v.SetDefault("engine.readability_weights.letter", d.Engine.ReadabilityWeights.Letter)
	l.v.SetDefault("engine.readability_weights.space", d.Engine.ReadabilityWeights.Space)
	l.v.SetDefault("engine.readability_weights.case", d.Engine.ReadabilityWeights.Case)
	l.v.SetDefault("engine.readability_weights.strangeness", d.Engine.ReadabilityWeights.Strangeness)

	l.v.SetDefault("recognizer.backend", d.Recognizer.Backend)
	l.v.SetDefault("recognizer.language", d.Recognizer.Language)
	l.v.SetDefault("recognizer.tessdata_dir", d.Recognizer.TessdataDir)
	l.v.SetDefault("recognizer.tesseract_path", d.Recognizer.TesseractPath)
	l.v.SetDefault("recognizer.page_seg_mode", d.Recognizer.PageSegMode)
	l.v.SetDefault("recognizer.engine_mode", d.Recognizer.EngineMode)
	l.v.SetDefault("recognizer.normalize_form", d.Recognizer.NormalizeForm)
	l.v.SetDefault("recognizer.collapse_whitespace", d.Recognizer.CollapseWhitespace)
	l.v.SetDefault("recognizer.typographic_replacements", d.Recognizer.TypographicReplacements)

	l.v.SetDefault("classifier.model_path", d.Classifier.ModelPath)
	l.v.SetDefault("classifier.confidence_threshold", d.Classifier.ConfidenceThreshold)
	l.v.SetDefault("classifier.num_threads", d.Classifier.NumThreads)
	l.v.SetDefault("classifier.heuristic_fallback", d.Classifier.HeuristicFallback)
	l.v.SetDefault("classifier.heuristic_only", d.Classifier.HeuristicOnly)
	l.v.SetDefault("classifier.warmup", d.Classifier.Warmup)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.file", d.Output.File)
	l.v.SetDefault("output.confidence_precision", d.Output.ConfidencePrecision)
	l.v.SetDefault("output.verbose_trials", d.Output.VerboseTrials)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	l.v.SetDefault("batch.workers", d.Batch.Workers)
	l.v.SetDefault("batch.recursive", d.Batch.Recursive)
	l.v.SetDefault("batch.include", d.Batch.Include)
	l.v.SetDefault("batch.exclude", d.Batch.Exclude)
	l.v.SetDefault("batch.continue_on_error", d.Batch.ContinueOnError)

	l.v.SetDefault("gpu.enabled", d.GPU.Enabled)
	l.v.SetDefault("gpu.device", d.GPU.Device)
	l.v.SetDefault("gpu.memory_limit", d.GPU.MemoryLimit)
}

// GenerateDefaultConfigFile writes the default configuration as YAML.
func GenerateDefaultConfigFile(filename string) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	data, err := MarshalYAML(DefaultConfig())
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MarshalYAML renders cfg as a commented YAML document.
func MarshalYAML(cfg Config) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	doc.HeadComment = "orient configuration\nEnvironment variables use the " + EnvPrefix + "_ prefix, e.g. " +
		EnvPrefix + "_RECOGNIZER_LANGUAGE=por"
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "orient"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "orient"))
	}

	paths = append(paths, "/etc/orient")
	return paths
}

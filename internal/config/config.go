// Package config loads the answer eraser settings.
//
// Settings start from Default, are overlaid by an optional YAML file and
// then by ANSWER_ERASER_* environment variables, and are finally checked by
// Validate. Durations are written as Go duration strings ("90s", "2m").
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/answer-eraser/internal/detection"
	"github.com/ironsheep/answer-eraser/internal/gateway"
)

// DefaultFile is read when no --config flag is given and it exists in the
// working directory.
const DefaultFile = "answer-eraser.yaml"

// EnvPrefix starts every environment override.
const EnvPrefix = "ANSWER_ERASER_"

// Config is the complete settings tree.
type Config struct {
	// Pipeline is "local" or "remote".
	Pipeline string `yaml:"pipeline"`
	// Strategy is "fusion" or "classify" (local pipeline only).
	Strategy string `yaml:"strategy"`
	// OnClassifyFailure is "empty" or "propagate".
	OnClassifyFailure string `yaml:"on_classify_failure"`
	// Inpainter is "neighborhood", "white" or "crossfade".
	Inpainter         string  `yaml:"inpainter"`
	CrossfadeStrength float64 `yaml:"crossfade_strength"`

	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	CleanModel string `yaml:"clean_model"`
	Endpoint   string `yaml:"endpoint"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
	CleanTimeout   time.Duration `yaml:"clean_timeout"`
	Retry          Retry         `yaml:"retry"`

	OCR OCR `yaml:"ocr"`

	// KeysFile overrides the key file location.
	KeysFile string `yaml:"keys_file"`
	LogLevel string `yaml:"log_level"`
	// MaxProcessingDimension downscales input pages; 0 disables.
	MaxProcessingDimension int `yaml:"max_processing_dimension"`
}

// Retry configures the cleaning path's backoff.
type Retry struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxJitter   time.Duration `yaml:"max_jitter"`
}

// OCR configures the text detector.
type OCR struct {
	// Engine is "tesseract" or "edges".
	Engine         string   `yaml:"engine"`
	Languages      []string `yaml:"languages"`
	TessdataPrefix string   `yaml:"tessdata_prefix"`
	MinConfidence  float64  `yaml:"min_confidence"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Pipeline:          "local",
		Strategy:          "fusion",
		OnClassifyFailure: "empty",
		Inpainter:         "neighborhood",
		CrossfadeStrength: 0.85,
		Provider:          string(gateway.Poe),
		RequestTimeout:    gateway.DefaultRequestTimeout,
		CleanTimeout:      gateway.DefaultCleanTimeout,
		Retry: Retry{
			MaxAttempts: 5,
			BaseDelay:   2 * time.Second,
			MaxJitter:   250 * time.Millisecond,
		},
		OCR: OCR{
			Engine:    "tesseract",
			Languages: []string{"chi_tra", "chi_sim", "eng"},
		},
		LogLevel:               "info",
		MaxProcessingDimension: 1568,
	}
}

// Load builds the settings from path (skipped when empty) and the process
// environment, then validates them.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func (c *Config) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ApplyEnv overlays ANSWER_ERASER_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(p *string) func(string) error {
		return func(v string) error { *p = v; return nil }
	}
	num := func(p *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			*p = n
			return err
		}
	}
	float := func(p *float64) func(string) error {
		return func(v string) error {
			f, err := strconv.ParseFloat(v, 64)
			*p = f
			return err
		}
	}
	dur := func(p *time.Duration) func(string) error {
		return func(v string) error {
			d, err := time.ParseDuration(v)
			*p = d
			return err
		}
	}
	list := func(p *[]string) func(string) error {
		return func(v string) error {
			var out []string
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
			*p = out
			return nil
		}
	}

	setters := []struct {
		name string
		set  func(string) error
	}{
		{"PIPELINE", str(&c.Pipeline)},
		{"STRATEGY", str(&c.Strategy)},
		{"ON_CLASSIFY_FAILURE", str(&c.OnClassifyFailure)},
		{"INPAINTER", str(&c.Inpainter)},
		{"CROSSFADE_STRENGTH", float(&c.CrossfadeStrength)},
		{"PROVIDER", str(&c.Provider)},
		{"MODEL", str(&c.Model)},
		{"CLEAN_MODEL", str(&c.CleanModel)},
		{"ENDPOINT", str(&c.Endpoint)},
		{"REQUEST_TIMEOUT", dur(&c.RequestTimeout)},
		{"CLEAN_TIMEOUT", dur(&c.CleanTimeout)},
		{"RETRY_MAX_ATTEMPTS", num(&c.Retry.MaxAttempts)},
		{"RETRY_BASE_DELAY", dur(&c.Retry.BaseDelay)},
		{"RETRY_MAX_JITTER", dur(&c.Retry.MaxJitter)},
		{"OCR_ENGINE", str(&c.OCR.Engine)},
		{"OCR_LANGUAGES", list(&c.OCR.Languages)},
		{"TESSDATA_PREFIX", str(&c.OCR.TessdataPrefix)},
		{"KEYS_FILE", str(&c.KeysFile)},
		{"LOG_LEVEL", str(&c.LogLevel)},
		{"MAX_PROCESSING_DIMENSION", num(&c.MaxProcessingDimension)},
	}

	var errs []string
	for _, s := range setters {
		v, ok := lookup(EnvPrefix + s.name)
		if !ok {
			continue
		}
		if err := s.set(strings.TrimSpace(v)); err != nil {
			errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, s.name, err))
		}
	}
	if len(errs) > 0 {
		return errors.New("invalid environment: " + strings.Join(errs, "; "))
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string
	bad := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch c.Pipeline {
	case "local", "remote":
	default:
		bad("pipeline must be local or remote, got %q", c.Pipeline)
	}
	switch c.Strategy {
	case "fusion", "classify":
	default:
		bad("strategy must be fusion or classify, got %q", c.Strategy)
	}
	if _, err := detection.ParseClassifyFailurePolicy(c.OnClassifyFailure); err != nil {
		bad("on_classify_failure: %v", err)
	}
	switch c.Inpainter {
	case "neighborhood", "white":
	case "crossfade":
		if c.CrossfadeStrength <= 0 || c.CrossfadeStrength > 1 {
			bad("crossfade_strength must be in (0, 1], got %v", c.CrossfadeStrength)
		}
	default:
		bad("inpainter must be neighborhood, white or crossfade, got %q", c.Inpainter)
	}
	if _, err := gateway.ParseProvider(c.Provider); err != nil {
		bad("provider: %v", err)
	}
	if c.RequestTimeout <= 0 {
		bad("request_timeout must be positive")
	}
	if c.CleanTimeout <= 0 {
		bad("clean_timeout must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		bad("retry.max_attempts must be at least 1")
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxJitter < 0 {
		bad("retry delays must not be negative")
	}
	switch c.OCR.Engine {
	case "tesseract":
		if len(c.OCR.Languages) == 0 {
			bad("ocr.languages must not be empty")
		}
	case "edges":
		if c.Pipeline == "local" && c.Strategy == "classify" {
			bad("the classify strategy needs recognized text; use ocr.engine tesseract")
		}
	default:
		bad("ocr.engine must be tesseract or edges, got %q", c.OCR.Engine)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		bad("log_level: %v", err)
	}
	if c.MaxProcessingDimension < 0 {
		bad("max_processing_dimension must not be negative")
	}

	if len(errs) > 0 {
		return errors.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}

// RetryPolicy converts the retry settings for the gateway.
func (c *Config) RetryPolicy() gateway.RetryPolicy {
	return gateway.RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   c.Retry.BaseDelay,
		MaxJitter:   c.Retry.MaxJitter,
	}
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

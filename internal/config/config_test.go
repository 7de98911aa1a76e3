package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answer-eraser.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.RequestTimeout != 60*time.Second || cfg.CleanTimeout != 120*time.Second {
		t.Errorf("unexpected timeouts %v %v", cfg.RequestTimeout, cfg.CleanTimeout)
	}
	p := cfg.RetryPolicy()
	if p.MaxAttempts != 5 || p.BaseDelay != 2*time.Second || p.MaxJitter != 250*time.Millisecond {
		t.Errorf("unexpected retry policy %+v", p)
	}
	if !reflect.DeepEqual(cfg.OCR.Languages, []string{"chi_tra", "chi_sim", "eng"}) {
		t.Errorf("unexpected languages %v", cfg.OCR.Languages)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
pipeline: local
strategy: classify
on_classify_failure: propagate
inpainter: crossfade
crossfade_strength: 0.5
provider: claude
model: claude-3-5-haiku-latest
request_timeout: 30s
retry:
  max_attempts: 3
  base_delay: 500ms
ocr:
  languages: [eng]
  tessdata_prefix: /opt/tessdata
log_level: debug
max_processing_dimension: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Strategy != "classify" || cfg.OnClassifyFailure != "propagate" || cfg.Inpainter != "crossfade" {
		t.Errorf("unexpected pipeline settings %+v", cfg)
	}
	if cfg.Provider != "claude" || cfg.Model != "claude-3-5-haiku-latest" {
		t.Errorf("unexpected backend %q %q", cfg.Provider, cfg.Model)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("request_timeout = %v", cfg.RequestTimeout)
	}
	if cfg.CleanTimeout != 120*time.Second {
		t.Errorf("unset keys should keep defaults, clean_timeout = %v", cfg.CleanTimeout)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != 500*time.Millisecond || cfg.Retry.MaxJitter != 250*time.Millisecond {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if !reflect.DeepEqual(cfg.OCR.Languages, []string{"eng"}) || cfg.OCR.TessdataPrefix != "/opt/tessdata" {
		t.Errorf("ocr = %+v", cfg.OCR)
	}
	if cfg.Level() != logrus.DebugLevel || cfg.MaxProcessingDimension != 0 {
		t.Errorf("level %v, max dim %d", cfg.Level(), cfg.MaxProcessingDimension)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "pipline: local\n", "pipline"},
		{"bad duration", "request_timeout: soon\n", "time.Duration"},
		{"invalid value", "pipeline: cloud\n", "pipeline must be local or remote"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pipeline != "local" {
		t.Errorf("empty file should keep defaults, got %q", cfg.Pipeline)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"ANSWER_ERASER_PIPELINE":                 "remote",
		"ANSWER_ERASER_PROVIDER":                 " gemini ",
		"ANSWER_ERASER_CLEAN_TIMEOUT":            "3m",
		"ANSWER_ERASER_RETRY_MAX_ATTEMPTS":       "2",
		"ANSWER_ERASER_OCR_LANGUAGES":            "eng, chi_sim,,",
		"ANSWER_ERASER_CROSSFADE_STRENGTH":       "0.3",
		"ANSWER_ERASER_MAX_PROCESSING_DIMENSION": "2048",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Pipeline != "remote" || cfg.Provider != "gemini" || cfg.CleanTimeout != 3*time.Minute {
		t.Errorf("unexpected %q %q %v", cfg.Pipeline, cfg.Provider, cfg.CleanTimeout)
	}
	if cfg.Retry.MaxAttempts != 2 || cfg.CrossfadeStrength != 0.3 || cfg.MaxProcessingDimension != 2048 {
		t.Errorf("unexpected numbers %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.OCR.Languages, []string{"eng", "chi_sim"}) {
		t.Errorf("languages = %v", cfg.OCR.Languages)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	err := Default().ApplyEnv(envMap(map[string]string{
		"ANSWER_ERASER_RETRY_MAX_ATTEMPTS": "many",
		"ANSWER_ERASER_REQUEST_TIMEOUT":    "10",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"RETRY_MAX_ATTEMPTS", "REQUEST_TIMEOUT"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should name %s: %v", name, err)
		}
	}
}

func TestApplyEnv_NothingSet(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyEnv(noEnv); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Error("no variables should leave defaults untouched")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   string
	}{
		{"strategy", func(c *Config) { c.Strategy = "magic" }, "strategy"},
		{"policy", func(c *Config) { c.OnClassifyFailure = "ignore" }, "on_classify_failure"},
		{"inpainter", func(c *Config) { c.Inpainter = "blur" }, "inpainter"},
		{"crossfade strength", func(c *Config) { c.Inpainter = "crossfade"; c.CrossfadeStrength = 1.5 }, "crossfade_strength"},
		{"provider", func(c *Config) { c.Provider = "llama" }, "provider"},
		{"timeout", func(c *Config) { c.RequestTimeout = 0 }, "request_timeout"},
		{"clean timeout", func(c *Config) { c.CleanTimeout = -time.Second }, "clean_timeout"},
		{"attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max_attempts"},
		{"delays", func(c *Config) { c.Retry.MaxJitter = -1 }, "retry delays"},
		{"engine", func(c *Config) { c.OCR.Engine = "vision" }, "ocr.engine"},
		{"languages", func(c *Config) { c.OCR.Languages = nil }, "ocr.languages"},
		{"classify needs text", func(c *Config) { c.Strategy = "classify"; c.OCR.Engine = "edges" }, "classify strategy"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"dimension", func(c *Config) { c.MaxProcessingDimension = -1 }, "max_processing_dimension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Pipeline = "x"
	cfg.Provider = "y"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "pipeline") || !strings.Contains(err.Error(), "provider") {
		t.Errorf("expected both problems, got %v", err)
	}
}

func TestValidate_EdgesWithFusion(t *testing.T) {
	cfg := Default()
	cfg.OCR.Engine = "edges"
	cfg.OCR.Languages = nil
	if err := cfg.Validate(); err != nil {
		t.Errorf("edges engine with fusion should validate: %v", err)
	}
}

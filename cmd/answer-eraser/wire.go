package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/answer-eraser/internal/config"
	"github.com/ironsheep/answer-eraser/internal/detection"
	"github.com/ironsheep/answer-eraser/internal/eraser"
	"github.com/ironsheep/answer-eraser/internal/gateway"
	"github.com/ironsheep/answer-eraser/internal/inpaint"
	"github.com/ironsheep/answer-eraser/internal/keystore"
	"github.com/ironsheep/answer-eraser/internal/ocr"
)

// loadConfig reads path, or DefaultFile when path is empty and the file
// exists.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}
	return config.Load(path)
}

// newLogger writes to stderr; stdout carries the MCP protocol.
func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stderr
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	log.SetLevel(cfg.Level())
	return log
}

// keyFile returns the file key store from config or the default location.
func keyFile(cfg *config.Config) (*keystore.FileStore, error) {
	path := cfg.KeysFile
	if path == "" {
		var err error
		if path, err = keystore.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return keystore.NewFileStore(path), nil
}

// keyChain looks in the environment before the key file.
func keyChain(cfg *config.Config) (keystore.Store, error) {
	file, err := keyFile(cfg)
	if err != nil {
		return nil, err
	}
	return keystore.Chain{keystore.NewEnvStore(), file}, nil
}

func newGateway(cfg *config.Config, keys keystore.Store, log logrus.FieldLogger) (*gateway.Gateway, error) {
	provider, err := gateway.ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	key, err := keys.Key(string(provider))
	if err != nil {
		return nil, fmt.Errorf("%w (set %s or run 'answer-eraser keys set %s')", err, keystore.EnvVar(string(provider)), provider)
	}

	return gateway.New(gateway.Backend{
		Provider:   provider,
		Endpoint:   cfg.Endpoint,
		Model:      cfg.Model,
		CleanModel: cfg.CleanModel,
		APIKey:     key,
	},
		gateway.WithLogger(log),
		gateway.WithRetryPolicy(cfg.RetryPolicy()),
		gateway.WithTimeouts(cfg.RequestTimeout, cfg.CleanTimeout),
	)
}

func newTextDetector(cfg *config.Config) ocr.TextDetector {
	if cfg.OCR.Engine == "edges" {
		d := ocr.NewEdgeDensity()
		if cfg.OCR.MinConfidence > 0 && cfg.OCR.MinConfidence <= 1 {
			d.MinConfidence = cfg.OCR.MinConfidence
		}
		return d
	}
	t := ocr.NewTesseract(cfg.OCR.Languages, cfg.OCR.TessdataPrefix)
	t.MinConfidence = cfg.OCR.MinConfidence
	return t
}

func newInpainter(cfg *config.Config) inpaint.Inpainter {
	switch cfg.Inpainter {
	case "white":
		return inpaint.NewWhiteFill()
	case "crossfade":
		return inpaint.NewCrossFade(cfg.CrossfadeStrength)
	default:
		return inpaint.NewNeighborhood()
	}
}

func newStrategy(cfg *config.Config, c gateway.Completer, text ocr.TextDetector, log logrus.FieldLogger) (detection.Strategy, error) {
	if cfg.Strategy == "classify" {
		policy, err := detection.ParseClassifyFailurePolicy(cfg.OnClassifyFailure)
		if err != nil {
			return nil, err
		}
		return detection.NewClassifier(c, text, policy, detection.WithLogger(log)), nil
	}
	return detection.NewFusion(c, text, detection.WithLogger(log)), nil
}

// pipeline is everything the erase command and the MCP server need.
type pipeline struct {
	eraser *eraser.Eraser
	text   ocr.TextDetector
}

// newPipeline wires config into a ready eraser. Keys come from keys.
func newPipeline(cfg *config.Config, keys keystore.Store, log logrus.FieldLogger) (*pipeline, error) {
	gw, err := newGateway(cfg, keys, log)
	if err != nil {
		return nil, err
	}
	text := newTextDetector(cfg)
	opts := []eraser.Option{
		eraser.WithLogger(log),
		eraser.WithMaxDimension(cfg.MaxProcessingDimension),
	}

	if cfg.Pipeline == string(eraser.Remote) {
		return &pipeline{eraser: eraser.NewRemote(gw, opts...), text: text}, nil
	}

	completer := gateway.NewLoggingCompleter(gw, log.WithField("component", "completer"))
	strategy, err := newStrategy(cfg, completer, text, log)
	if err != nil {
		return nil, err
	}
	return &pipeline{
		eraser: eraser.NewLocal(strategy, newInpainter(cfg), opts...),
		text:   text,
	}, nil
}

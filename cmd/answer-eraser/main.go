package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/answer-eraser/internal/config"
	"github.com/ironsheep/answer-eraser/internal/gateway"
	"github.com/ironsheep/answer-eraser/internal/imaging"
	"github.com/ironsheep/answer-eraser/internal/keystore"
	"github.com/ironsheep/answer-eraser/internal/ocr"
	"github.com/ironsheep/answer-eraser/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `answer-eraser - remove handwritten answers from worksheet photos

Usage:
  answer-eraser [--config file] [command]

Commands:
  serve                       Run the MCP server on stdin/stdout (default)
  erase <input> <output>      Erase the answers in one worksheet image
  keys set <provider>         Store an API key read from stdin
  keys delete <provider>      Remove a stored API key
  keys status                 Show which providers have a key
  version                     Print version information
  help                        Print this help message

Providers: claude, openai, gemini, poe

Environment variables:
  ANSWER_ERASER_<PROVIDER>_API_KEY   API key, checked before the key file
  ANSWER_ERASER_LOG_LEVEL=debug      Enable debug logging
  ANSWER_ERASER_*                    Override any config setting

Without --config, answer-eraser.yaml is read from the working directory
when present.`

func main() {
	configPath, args, err := splitArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "--version", "-v", "version":
		fmt.Printf("answer-eraser %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		fmt.Printf("  Tesseract:  %s\n", ocr.Version())
		return
	case "--help", "-h", "help":
		fmt.Println(usage)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "answer-eraser: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		err = runServe(ctx, cfg, log)
	case "erase":
		err = runErase(ctx, cfg, log, args)
	case "keys":
		err = runKeys(cfg, args, os.Stdin, os.Stdout)
	default:
		err = fmt.Errorf("unknown command %q (see 'answer-eraser help')", cmd)
	}
	if err != nil {
		log.WithError(err).Error("answer-eraser failed")
		os.Exit(1)
	}
}

// splitArgs removes --config (or --config=path) from args.
func splitArgs(args []string) (string, []string, error) {
	var path string
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--config" || a == "-c":
			if i+1 >= len(args) {
				return "", nil, errors.New("--config needs a file path")
			}
			path = args[i+1]
			i++
		case strings.HasPrefix(a, "--config="):
			path = strings.TrimPrefix(a, "--config=")
		default:
			rest = append(rest, a)
		}
	}
	return path, rest, nil
}

func runServe(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	keys, err := keyChain(cfg)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, keys, log)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"version":  Version,
		"commit":   GitCommit,
		"pipeline": cfg.Pipeline,
		"provider": cfg.Provider,
	}).Debug("starting MCP server")

	srv := server.New(
		server.WithEraser(p.eraser),
		server.WithTextDetector(p.text),
		server.WithLogger(log),
	)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runErase(ctx context.Context, cfg *config.Config, log *logrus.Logger, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: answer-eraser erase <input> <output>")
	}
	in, out := args[0], args[1]

	keys, err := keyChain(cfg)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, keys, log)
	if err != nil {
		return err
	}

	img, err := imaging.NewImageCache().Load(in)
	if err != nil {
		return err
	}
	cleaned, err := p.eraser.EraseAnswers(ctx, img)
	if err != nil {
		return err
	}
	if err := imaging.Save(cleaned, out); err != nil {
		return err
	}
	log.WithField("output", out).Info("worksheet saved")
	return nil
}

func runKeys(cfg *config.Config, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: answer-eraser keys set|delete|status [provider]")
	}
	file, err := keyFile(cfg)
	if err != nil {
		return err
	}

	switch args[0] {
	case "status":
		env := keystore.NewEnvStore()
		for _, p := range gateway.Providers {
			source := "not set"
			if _, err := env.Key(string(p)); err == nil {
				source = "environment"
			} else if file.Has(string(p)) {
				source = file.Path()
			}
			fmt.Fprintf(stdout, "%-8s %s\n", p, source)
		}
		return nil
	case "set", "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: answer-eraser keys %s <provider>", args[0])
		}
		provider, err := gateway.ParseProvider(args[1])
		if err != nil {
			return err
		}
		if args[0] == "delete" {
			return file.Delete(string(provider))
		}

		fmt.Fprintf(stdout, "API key for %s: ", provider)
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read key: %w", err)
		}
		if err := file.Save(string(provider), strings.TrimSpace(line)); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\nsaved to %s\n", file.Path())
		return nil
	default:
		return fmt.Errorf("unknown keys command %q", args[0])
	}
}

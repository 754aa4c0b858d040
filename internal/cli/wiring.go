package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/berth-dev/interview/internal/config"
	"github.com/berth-dev/interview/internal/coordinator"
	"github.com/berth-dev/interview/internal/generator"
	"github.com/berth-dev/interview/internal/log"
	"github.com/berth-dev/interview/internal/persistence"
	"github.com/berth-dev/interview/internal/questionbank"
	"github.com/berth-dev/interview/internal/telemetry"
)

// projectRoot returns --dir or the working directory.
func projectRoot() (string, error) {
	if rootDir != "" {
		return rootDir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return dir, nil
}

// resolve makes a config-relative path absolute against root.
func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(root, path)
}

// env bundles what every command needs.
type env struct {
	root   string
	cfg    *config.Config
	bank   *questionbank.Bank
	logger *log.Logger
}

func loadEnv() (*env, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(root)
	if err != nil {
		return nil, err
	}

	bank := questionbank.Default()
	if cfg.BankFile != "" {
		bank, err = questionbank.Load(resolve(root, cfg.BankFile))
		if err != nil {
			return nil, err
		}
	}

	var logger *log.Logger
	if verbose {
		logger = log.NewWriterLogger(os.Stderr)
	} else if logger, err = log.NewLogger(root); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: event log disabled: %v\n", err)
	}

	return &env{root: root, cfg: cfg, bank: bank, logger: logger}, nil
}

// newGenerator builds the configured backend behind a circuit breaker.
func newGenerator(cfg config.GeneratorConfig) (generator.Generator, error) {
	var backend generator.Generator
	switch cfg.Backend {
	case "http", "":
		backend = generator.NewHTTPClient(generator.HTTPOptions{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			Timeout:     cfg.CallTimeout(),
			Temperature: cfg.Temperature,
		})
	case "claude-cli":
		backend = &generator.CLIClient{Model: cfg.Model, Timeout: cfg.CallTimeout()}
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown generator backend %q (want http, claude-cli or none)", cfg.Backend)
	}
	breaker := generator.NewCircuitBreaker(cfg.MaxFailures, cfg.CooldownPeriod())
	return generator.NewGuarded(backend, breaker, cfg.CallTimeout()), nil
}

// stack is a coordinator with its closable dependencies.
type stack struct {
	coord    *coordinator.Coordinator
	recorder telemetry.Recorder
	store    *persistence.SQLite
}

func (e *env) newStack(ctx context.Context) (*stack, error) {
	gen, err := newGenerator(e.cfg.Generator)
	if err != nil {
		return nil, err
	}

	recorder, err := telemetry.New(ctx, e.telemetryConfig())
	if err != nil {
		return nil, err
	}

	st := &stack{recorder: recorder}
	var persister persistence.Persister = persistence.Noop{}
	if e.cfg.Persistence.Enabled {
		db, err := persistence.OpenSQLite(ctx, resolve(e.root, e.cfg.Persistence.Path))
		if err != nil {
			_ = recorder.Close(ctx)
			return nil, err
		}
		st.store = db
		persister = db
	}

	st.coord = coordinator.New(coordinator.Options{
		Generator: gen,
		Bank:      e.bank,
		Persister: persister,
		Recorder:  recorder,
		Logger:    e.logger,
	})
	return st, nil
}

// close flushes persistence and telemetry, bounded by a timeout.
func (s *stack) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.coord.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: closing database: %v\n", err)
		}
	}
	if err := s.recorder.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: flushing telemetry: %v\n", err)
	}
}

// closeRecorder flushes a recorder the client owns, bounded by a timeout.
func closeRecorder(r telemetry.Recorder) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: flushing telemetry: %v\n", err)
	}
}

func (e *env) telemetryConfig() telemetry.Config {
	return telemetry.Config{
		Endpoint: e.cfg.Telemetry.Endpoint,
		Enabled:  e.cfg.Telemetry.Enabled,
		Insecure: e.cfg.Telemetry.Insecure,
	}
}

func (e *env) reaperOptions() coordinator.ReaperOptions {
	return coordinator.ReaperOptions{
		AutoFinalize: e.cfg.Coordinator.AutoFinalize,
		Retention:    e.cfg.Coordinator.Retention(),
		Interval:     e.cfg.Coordinator.ReapEvery(),
	}
}

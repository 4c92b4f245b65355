package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/danieljhkim/trialgate/internal/activation"
	"github.com/danieljhkim/trialgate/internal/clock"
	"github.com/danieljhkim/trialgate/internal/config"
	"github.com/danieljhkim/trialgate/internal/engine"
	"github.com/danieljhkim/trialgate/internal/fingerprint"
	"github.com/danieljhkim/trialgate/internal/fsops"
	"github.com/danieljhkim/trialgate/internal/license"
	"github.com/danieljhkim/trialgate/internal/loader"
	"github.com/danieljhkim/trialgate/internal/logger"
	"github.com/danieljhkim/trialgate/internal/state"
)

// runtime is an engine together with the resources it owns.
type runtime struct {
	cfg     *config.Config
	paths   *config.Paths
	logg    *logger.Logger
	engine  *engine.Engine
	closers []func() error
}

// Close releases store connections.
func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i]()
	}
}

// loadConfig reads the optional .env file and the environment, then
// applies flag overrides.
func loadConfig() (*config.Config, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	if err := config.LoadDotenv(files...); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if rootDir != "" {
		cfg.Root = rootDir
	}
	return cfg, nil
}

// newRuntime creates an engine with real implementations of all
// dependencies. validate enforces the settings a gate run needs.
func newRuntime(ctx context.Context, validate bool) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	paths, err := cfg.Paths()
	if err != nil {
		return nil, fmt.Errorf("failed to get config paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "trialgate",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})

	rt := &runtime{cfg: cfg, paths: paths, logg: logg}

	fs := fsops.NewRealFS()
	store, closer, err := openStore(ctx, cfg, paths, fs)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		rt.closers = append(rt.closers, closer)
	}

	fetcher := loader.NewHTTPFetcher(&http.Client{}, cfg.PayloadURL, userAgent())
	executor := loader.NewProcessExecutor(fs, paths.Payloads, cfg.Interpreter)
	notifier := loader.NotifierFunc(PrintError)

	rt.engine = engine.New(engine.Deps{
		Records:  state.NewRecords(store),
		Deriver:  fingerprint.NewSHA256Deriver(fingerprint.NewSystemProvider(rootCmd.Version)),
		Verifier: license.AcceptAny{},
		Loader:   loader.New(fetcher, executor, notifier, logg),
		Panel:    newPanel(cfg),
		Display:  newTerminalDisplay(os.Stdout),
		Clock:    &clock.RealClock{},
		Logger:   logg,
	}, engine.Options{
		AllowedPage:   cfg.AllowedPage,
		PaymentURL:    cfg.PaymentURL,
		TrialDuration: cfg.TrialDuration,
		CheckInterval: cfg.CheckInterval,
	})

	return rt, nil
}

// openStore opens the configured state backend. The returned closer may
// be nil.
func openStore(ctx context.Context, cfg *config.Config, paths *config.Paths, fs fsops.FS) (state.Store, func() error, error) {
	switch cfg.StoreDriver {
	case config.StoreFile, "":
		return state.NewFileStore(fs, paths.State), nil, nil

	case config.StoreSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = paths.Database
		}
		store, err := state.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.StoreRedis:
		store, client, err := state.OpenRedis(ctx, cfg.RedisURL, cfg.RedisNamespace)
		if err != nil {
			return nil, nil, err
		}
		return store, client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newPanel(cfg *config.Config) activation.Panel {
	if cfg.Panel == config.PanelWeb {
		panel := activation.NewWebPanel(cfg.PanelAddr)
		panel.OnListen = func(url string) {
			PrintInfo("Activation panel: " + url)
		}
		return panel
	}
	return activation.NewTerminalPanel(os.Stdin, os.Stdout)
}

func userAgent() string {
	return "trialgate/" + rootCmd.Version
}

// formatJSON formats a value as indented JSON.
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatError formats an error for display.
func formatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	out, err := formatJSON(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, out)
	return err
}

// ReportError writes a command error to w.
func ReportError(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, formatError(err))
}

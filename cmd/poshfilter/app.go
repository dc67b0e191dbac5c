// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/poshfilter/poshfilter/internal/app/filter"
	"github.com/poshfilter/poshfilter/internal/codec"
	"github.com/poshfilter/poshfilter/internal/config"
	"github.com/poshfilter/poshfilter/internal/correlate"
	"github.com/poshfilter/poshfilter/internal/history"
	"github.com/poshfilter/poshfilter/internal/runtime"
	"github.com/poshfilter/poshfilter/internal/script"
	"github.com/poshfilter/poshfilter/internal/tui"
)

// selectorHeight is the number of history entries shown at once.
const selectorHeight = 10

type (
	// App carries the streams, configuration and flags shared by every
	// command.
	App struct {
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer

		provider config.Provider
		cfg      *config.Config
		logger   *log.Logger
		flags    globalFlags
	}

	globalFlags struct {
		verbose    bool
		quiet      bool
		configFile string
	}
)

// NewApp creates an App bound to the given streams.
func NewApp(stdin io.Reader, stdout, stderr io.Writer) *App {
	return &App{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		provider: config.NewProvider(),
		cfg:      config.DefaultConfig(),
		logger:   log.New(stderr),
	}
}

// loadConfig loads the configuration and configures the logger from it.
func (a *App) loadConfig(ctx context.Context) error {
	cfg, err := a.provider.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configFile})
	if err != nil {
		return &ExitError{Code: ExitEnvironment, Err: err}
	}
	a.cfg = cfg
	a.configureLogger()
	return nil
}

// loadConfigLenient falls back to the defaults when the configuration
// cannot be loaded, so that config init and config path keep working.
func (a *App) loadConfigLenient(ctx context.Context) {
	if err := a.loadConfig(ctx); err != nil {
		a.cfg = config.DefaultConfig()
		a.configureLogger()
		a.logger.Debug("using default configuration", "err", err)
	}
}

func (a *App) configureLogger() {
	level := log.WarnLevel
	if parsed, err := log.ParseLevel(a.cfg.Log.Level); err == nil {
		level = parsed
	}
	if a.flags.verbose || a.cfg.UI.Verbose {
		level = log.DebugLevel
	}
	a.logger = log.NewWithOptions(a.stderr, log.Options{
		Level:           level,
		Prefix:          config.AppName,
		ReportTimestamp: level == log.DebugLevel,
		TimeFormat:      time.TimeOnly,
	})
}

// verbose reports whether verbose output was requested by flag or config.
func (a *App) verbose() bool {
	return a.flags.verbose || a.cfg.UI.Verbose
}

// glamourStyle maps the configured color scheme to a glamour style.
func (a *App) glamourStyle() string {
	switch a.cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		f, ok := a.stdout.(*os.File)
		if !ok || !tui.IsOutputTerminal(f) {
			return "notty"
		}
		if lipgloss.HasDarkBackground() {
			return "dark"
		}
		return "light"
	}
}

// tuiConfig returns the form configuration for the current terminal.
func (a *App) tuiConfig() tui.Config {
	tc := tui.DefaultConfig(tui.Theme(a.cfg.UI.Theme))
	tc.Input = a.stdin
	tc.Output = a.stderr
	return tc
}

// notifier returns the status line writer for the current flags.
func (a *App) notifier() *tui.Notifier {
	return tui.NewNotifier(a.stderr, lipgloss.NewRenderer(a.stderr), a.flags.quiet)
}

// loadHistory opens the configured history store. A store is returned
// even when the file cannot be read, and the problem is logged.
func (a *App) loadHistory() (*history.Store, error) {
	path, err := a.cfg.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("resolve history path: %w", err)
	}
	store, err := history.Load(path, a.cfg.History.MaxEntries)
	if err != nil {
		a.logger.Warn("history not loaded", "path", path, "err", err)
	}
	return store, nil
}

// newFilter wires a Filter from the loaded configuration.
func (a *App) newFilter() (*filter.Filter, error) {
	store, err := a.loadHistory()
	if err != nil {
		return nil, err
	}

	scriptOpts, err := a.cfg.ScriptOptions()
	if err != nil {
		return nil, err
	}
	synth, err := script.NewSynthesizer(scriptOpts)
	if err != nil {
		return nil, err
	}
	policy, err := script.ParseSlotPolicy(a.cfg.Script.Slot)
	if err != nil {
		return nil, err
	}

	tc := a.tuiConfig()
	return filter.New(filter.Dependencies{
		Resolver:  codec.NewResolver(a.cfg.CodecOptions()),
		Workspace: script.NewWorkspace(policy, a.cfg.Script.Dir, a.logger),
		Scripts:   synth,
		Runner: runtime.NewRunner(runtime.Options{
			Interpreter: a.cfg.Interpreter,
			Timeout:     time.Duration(a.cfg.Runner.Timeout),
			Logger:      a.logger,
		}),
		Correlator: correlate.New(correlate.Options{NormalizeNewlines: a.cfg.Output.NormalizeNewlines}),
		History:    store,
		Prompter:   tui.NewPrompter(tc),
		Selector:   tui.NewSelector(tc, selectorHeight),
		Notifier:   a.notifier(),
		Logger:     a.logger,
	})
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/poshfilter/poshfilter/internal/codec"
	"github.com/poshfilter/poshfilter/internal/history"
	"github.com/poshfilter/poshfilter/internal/runtime"
	"github.com/poshfilter/poshfilter/internal/script"
	"github.com/poshfilter/poshfilter/pkg/platform"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	ThemeCharm      Theme = "charm"
	ThemeDracula    Theme = "dracula"
	ThemeCatppuccin Theme = "catppuccin"
	ThemeBase16     Theme = "base16"
	ThemeBase       Theme = "base"

	// HistoryFileName is the history file created in the config directory
	// when history.path is not set.
	HistoryFileName = "history.txt"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// Theme names a huh form theme.
	Theme string

	// Duration is a time.Duration written as a Go duration string
	// ("90s", "2m") in every file format.
	Duration time.Duration

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError collects every field-level validation error of a
	// Config. It wraps ErrInvalidConfig and each field error.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Interpreter is the PowerShell executable.
		Interpreter string        `json:"interpreter" mapstructure:"interpreter" toml:"interpreter"`
		History     HistoryConfig `json:"history" mapstructure:"history" toml:"history"`
		Script      ScriptConfig  `json:"script" mapstructure:"script" toml:"script"`
		Codec       CodecConfig   `json:"codec" mapstructure:"codec" toml:"codec"`
		Runner      RunnerConfig  `json:"runner" mapstructure:"runner" toml:"runner"`
		Output      OutputConfig  `json:"output" mapstructure:"output" toml:"output"`
		UI          UIConfig      `json:"ui" mapstructure:"ui" toml:"ui"`
		Log         LogConfig     `json:"log" mapstructure:"log" toml:"log"`

		source string
	}

	// HistoryConfig configures the pipeline history.
	HistoryConfig struct {
		// Path is the history file. Empty means history.txt in the config
		// directory.
		Path       string `json:"path" mapstructure:"path" toml:"path"`
		MaxEntries int    `json:"max_entries" mapstructure:"max_entries" toml:"max_entries"`
	}

	// ScriptConfig configures script synthesis.
	ScriptConfig struct {
		// Slot is "unique" (a fresh directory per run) or "fixed" (one
		// locked directory reused by every run).
		Slot string `json:"slot" mapstructure:"slot" toml:"slot"`
		// Dir is the parent of slot directories. Empty means the system
		// temporary directory.
		Dir       string `json:"dir" mapstructure:"dir" toml:"dir"`
		Transport string `json:"transport" mapstructure:"transport" toml:"transport"`
		// Output is "xml" or "files". A selection holding control
		// characters XML cannot carry always uses "files".
		Output             string `json:"output" mapstructure:"output" toml:"output"`
		ReconfigureConsole bool   `json:"reconfigure_console" mapstructure:"reconfigure_console" toml:"reconfigure_console"`
	}

	// CodecConfig configures how interpreter output is decoded.
	CodecConfig struct {
		StderrCodePage  string   `json:"stderr_code_page" mapstructure:"stderr_code_page" toml:"stderr_code_page"`
		CodePageCommand []string `json:"code_page_command" mapstructure:"code_page_command" toml:"code_page_command"`
	}

	// RunnerConfig configures the interpreter process.
	RunnerConfig struct {
		Timeout Duration `json:"timeout" mapstructure:"timeout" toml:"timeout"`
	}

	// OutputConfig configures result post-processing.
	OutputConfig struct {
		// NormalizeNewlines converts CRLF to LF in results.
		NormalizeNewlines bool `json:"normalize_newlines" mapstructure:"normalize_newlines" toml:"normalize_newlines"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme" toml:"color_scheme"`
		Theme       Theme       `json:"theme" mapstructure:"theme" toml:"theme"`
		Verbose     bool        `json:"verbose" mapstructure:"verbose" toml:"verbose"`
	}

	// LogConfig configures the diagnostic logger.
	LogConfig struct {
		Level string `json:"level" mapstructure:"level" toml:"level"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	opts := script.DefaultOptions()
	return &Config{
		Interpreter: platform.DefaultInterpreter(platform.CurrentOS()),
		History: HistoryConfig{
			MaxEntries: history.DefaultMaxEntries,
		},
		Script: ScriptConfig{
			Slot:               string(script.SlotUnique),
			Transport:          string(opts.Transport),
			Output:             string(opts.Output),
			ReconfigureConsole: opts.ReconfigureConsole,
		},
		Codec: CodecConfig{
			StderrCodePage:  codec.SourceAuto,
			CodePageCommand: append([]string(nil), codec.DefaultCodePageCommand...),
		},
		Runner: RunnerConfig{
			Timeout: Duration(runtime.DefaultTimeout),
		},
		Output: OutputConfig{
			NormalizeNewlines: true,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Theme:       ThemeCharm,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Source returns the file the configuration was loaded from, or "" when
// only defaults and the environment apply.
func (c *Config) Source() string { return c.source }

// Validate checks every field and returns an *InvalidConfigError listing
// all problems.
func (c *Config) Validate() error {
	var errs []error
	add := func(field string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	if strings.TrimSpace(c.Interpreter) == "" {
		add("interpreter", errors.New("must not be empty"))
	}
	if c.History.MaxEntries <= 0 {
		add("history.max_entries", fmt.Errorf("must be positive, got %d", c.History.MaxEntries))
	}
	_, err := script.ParseSlotPolicy(c.Script.Slot)
	add("script.slot", err)
	_, err = c.ScriptOptions()
	add("script", err)
	add("codec.stderr_code_page", validateCodePageSource(c.Codec.StderrCodePage))
	if strings.EqualFold(c.Codec.StderrCodePage, codec.SourceCommand) && len(c.Codec.CodePageCommand) == 0 {
		add("codec.code_page_command", errors.New("must not be empty when stderr_code_page is \"command\""))
	}
	if c.Runner.Timeout <= 0 {
		add("runner.timeout", fmt.Errorf("must be positive, got %s", c.Runner.Timeout))
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if !c.UI.Theme.IsValid() {
		add("ui.theme", fmt.Errorf("unknown theme %q", c.UI.Theme))
	}
	_, err = log.ParseLevel(c.Log.Level)
	add("log.level", err)

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

func validateCodePageSource(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", codec.SourceAuto, codec.SourceCommand:
		return nil
	}
	cp, err := codec.ParseCodePage(s)
	if err != nil {
		return err
	}
	_, err = cp.Encoding()
	return err
}

// ScriptOptions converts the script section into synthesizer options.
func (c *Config) ScriptOptions() (script.Options, error) {
	transport, err := script.ParseTransport(c.Script.Transport)
	if err != nil {
		return script.Options{}, err
	}
	output, err := script.ParseOutputFormat(c.Script.Output)
	if err != nil {
		return script.Options{}, err
	}
	return script.Options{Transport: transport, Output: output, ReconfigureConsole: c.Script.ReconfigureConsole}, nil
}

// CodecOptions converts the codec section into resolver options.
func (c *Config) CodecOptions() codec.Options {
	return codec.Options{StderrCodePage: c.Codec.StderrCodePage, CodePageCommand: c.Codec.CodePageCommand}
}

// HistoryPath returns the configured history file, defaulting to
// HistoryFileName in the config directory. A leading "~/" is expanded.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, HistoryFileName), nil
	}
	return expandHome(c.History.Path)
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// AllThemes returns every supported theme.
func AllThemes() []Theme {
	return []Theme{ThemeCharm, ThemeDracula, ThemeCatppuccin, ThemeBase16, ThemeBase}
}

// IsValid reports whether t is a supported theme.
func (t Theme) IsValid() bool {
	for _, known := range AllThemes() {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the duration in Go syntax.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

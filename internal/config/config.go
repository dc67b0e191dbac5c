// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/poshfilter/poshfilter/internal/fsutil"
	"github.com/poshfilter/poshfilter/internal/issue"
	"github.com/poshfilter/poshfilter/pkg/platform"
)

const (
	// AppName is the application name.
	AppName = "poshfilter"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "POSHFILTER"

	FormatCUE  = "cue"
	FormatTOML = "toml"
	FormatJSON = "json"
)

// ErrConfigExists is returned by CreateDefaultConfig when the file exists
// and overwriting was not requested.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the poshfilter configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string
	switch platform.CurrentOS() {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(configDir, AppName), nil
}

// ConfigFilePath returns the default config file location.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// newViper returns a Viper instance carrying every default and bound to
// the environment.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("interpreter", defaults.Interpreter)
	v.SetDefault("history.path", defaults.History.Path)
	v.SetDefault("history.max_entries", defaults.History.MaxEntries)
	v.SetDefault("script.slot", defaults.Script.Slot)
	v.SetDefault("script.dir", defaults.Script.Dir)
	v.SetDefault("script.transport", defaults.Script.Transport)
	v.SetDefault("script.output", defaults.Script.Output)
	v.SetDefault("script.reconfigure_console", defaults.Script.ReconfigureConsole)
	v.SetDefault("codec.stderr_code_page", defaults.Codec.StderrCodePage)
	v.SetDefault("codec.code_page_command", defaults.Codec.CodePageCommand)
	v.SetDefault("runner.timeout", defaults.Runner.Timeout.String())
	v.SetDefault("output.normalize_newlines", defaults.Output.NormalizeNewlines)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.theme", defaults.UI.Theme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("log.level", defaults.Log.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()
	loadErr := issue.NewErrorContext().
		WithOperation("load configuration").
		WithIssue(issue.ConfigLoadFailedId).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Run 'poshfilter config show' to see the default configuration")

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Verify the file path is correct").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir := opts.ConfigDirPath
		if cfgDir == "" {
			var err error
			if cfgDir, err = ConfigDir(); err != nil {
				return nil, err
			}
		}
		for _, candidate := range []string{
			filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
			ConfigFileName + "." + ConfigFileExt,
		} {
			if fileExists(candidate) {
				resolvedPath = candidate
				break
			}
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, loadErr.WithResource(resolvedPath).Wrap(err).BuildError()
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, loadErr.WithResource(resolvedPath).Wrap(fmt.Errorf("failed to parse config: %w", err)).BuildError()
	}
	cfg.source = resolvedPath

	if err := cfg.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Check the POSHFILTER_* environment variables as well as the config file").
			Wrap(err).
			BuildError()
	}
	return &cfg, nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// expandHome expands a leading "~/" to the user's home directory.
func expandHome(path string) (string, error) {
	rest, ok := strings.CutPrefix(filepath.ToSlash(path), "~/")
	if !ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, filepath.FromSlash(rest)), nil
}

// CreateDefaultConfig writes the default configuration to path, or to the
// default location when path is empty, and returns the path written. An
// existing file is only replaced when force is set.
func CreateDefaultConfig(path string, force bool) (string, error) {
	if path == "" {
		var err error
		if path, err = ConfigFilePath(); err != nil {
			return "", err
		}
	}
	if !force && fileExists(path) {
		return path, fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err := fsutil.AtomicWrite(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return path, fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

// Dump renders cfg in the given format (cue, toml or json).
func Dump(cfg *Config, format string) (string, error) {
	switch strings.ToLower(format) {
	case "", FormatCUE:
		return GenerateCUE(cfg), nil
	case FormatTOML:
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(cfg); err != nil {
			return "", fmt.Errorf("encode toml: %w", err)
		}
		return buf.String(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode json: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unknown format %q (want cue, toml or json)", format)
	}
}

// GenerateCUE generates a CUE representation of the configuration that
// validates against #Config.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// poshfilter configuration\n")
	sb.WriteString("// Environment variables such as POSHFILTER_SCRIPT_TRANSPORT override these values.\n\n")

	fmt.Fprintf(&sb, "interpreter: %q\n", cfg.Interpreter)

	sb.WriteString("\nhistory: {\n")
	if cfg.History.Path != "" {
		fmt.Fprintf(&sb, "\tpath: %q\n", cfg.History.Path)
	}
	fmt.Fprintf(&sb, "\tmax_entries: %d\n", cfg.History.MaxEntries)
	sb.WriteString("}\n")

	sb.WriteString("\nscript: {\n")
	fmt.Fprintf(&sb, "\tslot: %q\n", cfg.Script.Slot)
	if cfg.Script.Dir != "" {
		fmt.Fprintf(&sb, "\tdir: %q\n", cfg.Script.Dir)
	}
	fmt.Fprintf(&sb, "\ttransport: %q\n", cfg.Script.Transport)
	fmt.Fprintf(&sb, "\toutput: %q\n", cfg.Script.Output)
	fmt.Fprintf(&sb, "\treconfigure_console: %v\n", cfg.Script.ReconfigureConsole)
	sb.WriteString("}\n")

	sb.WriteString("\ncodec: {\n")
	fmt.Fprintf(&sb, "\tstderr_code_page: %q\n", cfg.Codec.StderrCodePage)
	if len(cfg.Codec.CodePageCommand) > 0 {
		quoted := make([]string, len(cfg.Codec.CodePageCommand))
		for i, arg := range cfg.Codec.CodePageCommand {
			quoted[i] = fmt.Sprintf("%q", arg)
		}
		fmt.Fprintf(&sb, "\tcode_page_command: [%s]\n", strings.Join(quoted, ", "))
	}
	sb.WriteString("}\n")

	sb.WriteString("\nrunner: {\n")
	fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.Runner.Timeout.String())
	sb.WriteString("}\n")

	sb.WriteString("\noutput: {\n")
	fmt.Fprintf(&sb, "\tnormalize_newlines: %v\n", cfg.Output.NormalizeNewlines)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\ttheme: %q\n", cfg.UI.Theme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	return sb.String()
}

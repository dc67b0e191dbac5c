// SPDX-License-Identifier: MPL-2.0

// Package config handles poshfilter configuration using Viper with CUE as the
// file format.
//
// Configuration is loaded from config.cue in the platform configuration
// directory ($XDG_CONFIG_HOME/poshfilter on Linux,
// ~/Library/Application Support/poshfilter on macOS, %APPDATA%\poshfilter on
// Windows), falling back to ./config.cue. Files are validated against the
// embedded #Config schema (config_schema.cue) before being merged over the
// defaults. Every key can be overridden from the environment with the
// POSHFILTER_ prefix, dots replaced by underscores
// (POSHFILTER_SCRIPT_TRANSPORT=base64).
package config

package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context.
// Shared with the cli package so commands can retrieve the logger without
// an import cycle.
type loggerKey struct{}

// Package-level koanf instance and config file tracking.
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// findConfigFile finds the config file to use.
// Priority: explicit path > dtlc.yaml > dtlc.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("dtlc.yaml"); err == nil {
		return "dtlc.yaml"
	}
	if _, err := os.Stat("dtlc.yml"); err == nil {
		return "dtlc.yml"
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"output":              DefaultOutput,
		"python_bin":          DefaultPythonBin,
		"state_path":          DefaultStateFile,
		"uploads_dir":         DefaultUploadsDir,
		"outputs_dir":         DefaultOutputsDir,
		"validate_files":      true,
		"validate_columns":    true,
		"verbose":             false,
		"serve.port":          DefaultServePort,
		"serve.preview_rows":  DefaultPreviewRows,
		"run.timeout_seconds": DefaultTimeoutSeconds,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (DTLC_ prefix)
	// Transform: DTLC_PYTHON_BIN -> python_bin, DTLC_SERVE__PORT -> serve.port
	if err := k.Load(env.Provider("DTLC_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "DTLC_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")

			// The CLI uses --state and --python for brevity; the config
			// keys are state_path and python_bin
			if key == "state" {
				return "state_path", posflag.FlagVal(flags, f)
			}
			if key == "python" {
				return "python_bin", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetCurrentConfig returns the most recently loaded configuration, or a
// default config when LoadConfig has not run.
func GetCurrentConfig() *Config {
	if currentConfig != nil {
		return currentConfig
	}
	return &Config{
		Output:          DefaultOutput,
		PythonBin:       DefaultPythonBin,
		StatePath:       DefaultStateFile,
		UploadsDir:      DefaultUploadsDir,
		OutputsDir:      DefaultOutputsDir,
		ValidateFiles:   true,
		ValidateColumns: true,
		Serve:           ServeConfig{Port: DefaultServePort, PreviewRows: DefaultPreviewRows},
		Run:             RunConfig{TimeoutSeconds: DefaultTimeoutSeconds},
	}
}

// LoggerKey returns the context key used for storing the logger.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chtemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		ResetConfig()
	})
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	chtemp(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "output.py", cfg.Output)
	assert.Equal(t, "python3", cfg.PythonBin)
	assert.Equal(t, ".dtlc/state.db", cfg.StatePath)
	assert.Equal(t, "uploads", cfg.UploadsDir)
	assert.Equal(t, "outputs", cfg.OutputsDir)
	assert.True(t, cfg.ValidateFiles)
	assert.True(t, cfg.ValidateColumns)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, 5000, cfg.Serve.Port)
	assert.Equal(t, 20, cfg.Serve.PreviewRows)
	assert.Equal(t, 30, cfg.Run.TimeoutSeconds)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := chtemp(t)

	content := "python_bin: /usr/bin/python3.12\nserve:\n  port: 8080\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dtlc.yaml"), []byte(content), 0o644))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/python3.12", cfg.PythonBin)
	assert.Equal(t, 8080, cfg.Serve.Port)
	// Untouched keys keep their defaults.
	assert.Equal(t, "output.py", cfg.Output)
	assert.Equal(t, "dtlc.yaml", GetConfigFileUsed())
}

func TestLoadConfigExplicitFileWins(t *testing.T) {
	dir := chtemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dtlc.yaml"),
		[]byte("output: ambient.py\n"), 0o644))
	explicit := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("output: custom.py\n"), 0o644))

	cfg, err := LoadConfig(explicit, nil)
	require.NoError(t, err)
	assert.Equal(t, "custom.py", cfg.Output)
	assert.Equal(t, explicit, GetConfigFileUsed())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := chtemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dtlc.yaml"),
		[]byte("python_bin: from-file\nserve:\n  port: 8080\n"), 0o644))
	t.Setenv("DTLC_PYTHON_BIN", "from-env")
	t.Setenv("DTLC_SERVE__PORT", "9090")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.PythonBin)
	assert.Equal(t, 9090, cfg.Serve.Port)
}

func TestLoadConfigFlagsOverrideEverything(t *testing.T) {
	chtemp(t)
	t.Setenv("DTLC_OUTPUT", "from-env.py")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "output.py", "")
	flags.String("python", "python3", "")
	flags.String("state", "", "")
	require.NoError(t, flags.Parse([]string{
		"--output", "from-flag.py",
		"--python", "pypy3",
		"--state", "custom/state.db",
	}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "from-flag.py", cfg.Output)
	assert.Equal(t, "pypy3", cfg.PythonBin)
	assert.Equal(t, "custom/state.db", cfg.StatePath)
}

func TestLoadConfigUnchangedFlagsIgnored(t *testing.T) {
	chtemp(t)
	t.Setenv("DTLC_OUTPUT", "from-env.py")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "flag-default.py", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	// A flag left at its default does not shadow the env var.
	assert.Equal(t, "from-env.py", cfg.Output)
}

func TestGetCurrentConfigFallsBackToDefaults(t *testing.T) {
	ResetConfig()

	cfg := GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "python3", cfg.PythonBin)
	assert.True(t, cfg.ValidateFiles)
	assert.Equal(t, 5000, cfg.Serve.Port)
}

func TestGetCurrentConfigReturnsLoaded(t *testing.T) {
	chtemp(t)

	loaded, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Same(t, loaded, GetCurrentConfig())
}

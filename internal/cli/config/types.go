// Package config handles configuration for the dtlc CLI.
package config

// Defaults used when no config file, env var, or flag overrides them.
const (
	DefaultOutput         = "output.py"
	DefaultPythonBin      = "python3"
	DefaultStateFile      = ".dtlc/state.db"
	DefaultUploadsDir     = "uploads"
	DefaultOutputsDir     = "outputs"
	DefaultServePort      = 5000
	DefaultPreviewRows    = 20
	DefaultTimeoutSeconds = 30
)

// Config is the fully resolved CLI configuration.
type Config struct {
	// Output is the default path for generated Python code.
	Output string `koanf:"output"`
	// PythonBin is the interpreter used to execute generated scripts.
	PythonBin string `koanf:"python_bin"`
	// StatePath is the run-history database location.
	StatePath string `koanf:"state_path"`
	// UploadsDir holds CSV files uploaded through the web service.
	UploadsDir string `koanf:"uploads_dir"`
	// OutputsDir holds generated scripts and result CSVs.
	OutputsDir string `koanf:"outputs_dir"`
	// ValidateFiles enables load/save path checks during analysis.
	ValidateFiles bool `koanf:"validate_files"`
	// ValidateColumns enables header-based column checks during analysis.
	ValidateColumns bool `koanf:"validate_columns"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`

	Serve ServeConfig `koanf:"serve"`
	Run   RunConfig   `koanf:"run"`
}

// ServeConfig configures the web service.
type ServeConfig struct {
	Port        int `koanf:"port"`
	PreviewRows int `koanf:"preview_rows"`
}

// RunConfig configures script execution.
type RunConfig struct {
	TimeoutSeconds int `koanf:"timeout_seconds"`
}

package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yasurirashmika/dtlc/internal/ast"
	"github.com/yasurirashmika/dtlc/internal/cli/config"
	"github.com/yasurirashmika/dtlc/internal/codegen"
	"github.com/yasurirashmika/dtlc/internal/compiler"
	"github.com/yasurirashmika/dtlc/internal/runner"
	"github.com/yasurirashmika/dtlc/internal/state"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var (
		output  string
		timeout int
	)

	cmd := &cobra.Command{
		Use:   "run <script.dtl>",
		Short: "Compile and execute a DTL script",
		Long: `Compile a DTL script and execute the generated Python code.

Every run is recorded in the history database with its status, output
location, and diagnostics. Use 'dtlc history' to inspect past runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetCurrentConfig()
			logger := config.GetLogger(cmd.Context())
			scriptPath := args[0]

			opts := compiler.Options{
				CheckFiles:   cfg.ValidateFiles,
				CheckColumns: cfg.ValidateColumns,
			}
			if output == "" {
				output = cfg.Output
			}
			if timeout <= 0 {
				timeout = cfg.Run.TimeoutSeconds
			}

			store, err := openStore(cfg.StatePath)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.CreateRun(scriptPath)
			if err != nil {
				return err
			}

			res, err := compiler.CompileFile(scriptPath, opts)
			if err != nil {
				failure := err.Error()
				warnings := 0
				semErrors := 0
				if res != nil && res.Report != nil {
					printReport(cmd, res.Report.Errors, res.Report.Warnings)
					warnings = len(res.Report.Warnings)
					semErrors = len(res.Report.Errors)
				}
				recordErr := store.CompleteRun(run.ID, state.RunUpdate{
					Status:   state.RunStatusFailed,
					Errors:   semErrors,
					Warnings: warnings,
					Error:    failure,
				})
				if recordErr != nil {
					logger.Error("failed to record run", "run_id", run.ID, "error", recordErr)
				}
				if errors.Is(err, compiler.ErrSemantic) {
					return fmt.Errorf("compilation failed with %d semantic errors", semErrors)
				}
				return err
			}
			printReport(cmd, nil, res.Report.Warnings)

			if _, err := codegen.New(res.Program).WriteFile(output); err != nil {
				return err
			}

			r := &runner.Runner{
				Python:  cfg.PythonBin,
				Timeout: time.Duration(timeout) * time.Second,
			}
			execRes, execErr := r.Run(cmd.Context(), output)
			if execRes != nil && execRes.Stdout != "" {
				fmt.Fprint(cmd.OutOrStdout(), execRes.Stdout)
			}

			upd := state.RunUpdate{
				Status:     state.RunStatusCompleted,
				OutputPath: savedOutputPath(res),
				Warnings:   len(res.Report.Warnings),
			}
			if execErr != nil {
				upd.Status = state.RunStatusFailed
				upd.Error = execErr.Error()
				upd.OutputPath = ""
			}
			if err := store.CompleteRun(run.ID, upd); err != nil {
				logger.Error("failed to record run", "run_id", run.ID, "error", err)
			}

			if execErr != nil {
				if execRes != nil && execRes.Stderr != "" {
					fmt.Fprint(cmd.ErrOrStderr(), execRes.Stderr)
				}
				return execErr
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Run completed in %s\n", execRes.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Path for the generated Python file")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Execution timeout in seconds")

	return cmd
}

// openStore opens the run-history database, creating its directory and
// applying migrations as needed.
func openStore(path string) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore()
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// savedOutputPath returns the path of the script's save command, if any.
func savedOutputPath(res *compiler.Result) string {
	if res == nil || res.Program == nil {
		return ""
	}
	for _, cmd := range res.Program.Commands {
		if save, ok := cmd.(*ast.Save); ok {
			return save.Filename
		}
	}
	return ""
}

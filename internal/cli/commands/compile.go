package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/yasurirashmika/dtlc/internal/cli/config"
	"github.com/yasurirashmika/dtlc/internal/codegen"
	"github.com/yasurirashmika/dtlc/internal/compiler"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	var (
		output        string
		showCode      bool
		noFileCheck   bool
		noColumnCheck bool
		watch         bool
	)

	cmd := &cobra.Command{
		Use:   "compile <script.dtl>",
		Short: "Compile a DTL script to Python",
		Long: `Compile a DTL script into an executable pandas script.

The script is validated against the referenced CSV file before code is
generated: missing files, unknown columns, and misordered commands are
reported with their command positions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetCurrentConfig()
			opts := compiler.Options{
				CheckFiles:   cfg.ValidateFiles && !noFileCheck,
				CheckColumns: cfg.ValidateColumns && !noColumnCheck,
			}
			if output == "" {
				output = cfg.Output
			}

			if watch {
				return watchCompile(cmd, args[0], opts, output, showCode)
			}
			return compileScript(cmd, args[0], opts, output, showCode)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Path for the generated Python file")
	cmd.Flags().BoolVar(&showCode, "show-code", false, "Print the generated code to stdout")
	cmd.Flags().BoolVar(&noFileCheck, "no-file-check", false, "Skip load/save path validation")
	cmd.Flags().BoolVar(&noColumnCheck, "no-column-check", false, "Skip CSV header validation")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Recompile whenever the script changes")

	return cmd
}

func compileScript(cmd *cobra.Command, path string, opts compiler.Options, output string, showCode bool) error {
	out := cmd.OutOrStdout()

	res, err := compiler.CompileFile(path, opts)
	if errors.Is(err, compiler.ErrSemantic) {
		printReport(cmd, res.Report.Errors, res.Report.Warnings)
		return fmt.Errorf("compilation failed with %d semantic errors", len(res.Report.Errors))
	}
	if err != nil {
		return err
	}
	printReport(cmd, nil, res.Report.Warnings)

	if _, err := codegen.New(res.Program).WriteFile(output); err != nil {
		return err
	}
	fmt.Fprintf(out, "Compiled %s -> %s (%d commands)\n", path, output, len(res.Program.Commands))

	if showCode {
		fmt.Fprintln(out)
		fmt.Fprintln(out, res.Code)
	}
	return nil
}

func printReport(cmd *cobra.Command, errs, warnings []string) {
	errOut := cmd.ErrOrStderr()
	for _, e := range errs {
		fmt.Fprintf(errOut, "Error: %s\n", e)
	}
	for _, w := range warnings {
		fmt.Fprintf(errOut, "Warning: %s\n", w)
	}
}

// watchCompile recompiles the script on every change until the context is
// cancelled. Compilation failures are reported but do not stop the watch.
func watchCompile(cmd *cobra.Command, path string, opts compiler.Options, output string, showCode bool) error {
	logger := config.GetLogger(cmd.Context())

	run := func() {
		if err := compileScript(cmd, path, opts, output, showCode); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
	run()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors often replace the file on save, which
	// would drop a watch on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes...\n", path)

	var debounceTimer *time.Timer
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			eventAbs, err := filepath.Abs(event.Name)
			if err != nil || eventAbs != abs {
				continue
			}

			// Debounce
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				logger.Debug("script changed, recompiling", "file", event.Name)
				run()
			})

		case err := <-watcher.Errors:
			logger.Error("watcher error", "error", err)
		}
	}
}

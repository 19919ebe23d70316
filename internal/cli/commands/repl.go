package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/yasurirashmika/dtlc/internal/cli/config"
	"github.com/yasurirashmika/dtlc/internal/codegen"
	"github.com/yasurirashmika/dtlc/internal/compiler"
	"github.com/yasurirashmika/dtlc/internal/runner"
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive DTL session",
		Long: `Start an interactive session for building a DTL script command by
command. Entered commands accumulate into a script you can inspect,
compile, or run at any point.`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}
}

func runREPL(cmd *cobra.Command, _ []string) error {
	cfg := config.GetCurrentConfig()

	historyFile := filepath.Join(filepath.Dir(cfg.StatePath), "repl_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "dtl> ",
		HistoryFile:     historyFile,
		AutoComplete:    newCommandCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "DTL REPL")
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	var script []string
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if quit := handleREPLCommand(cmd, cfg, line, &script); quit {
				break
			}
			continue
		}

		// Validate the accumulated script with the new line before keeping
		// it. File checks stay off so scripts can be drafted before the
		// data exists.
		candidate := append(append([]string{}, script...), line)
		src := strings.Join(candidate, "\n")
		if _, err := compiler.Compile(src, compiler.Options{}); err != nil &&
			!errors.Is(err, compiler.ErrSemantic) {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		script = candidate
	}

	return nil
}

// handleREPLCommand executes a dot-command and reports whether to exit.
func handleREPLCommand(cmd *cobra.Command, cfg *config.Config, line string, script *[]string) bool {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	switch strings.ToLower(strings.Fields(line)[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(out)

	case ".show":
		if len(*script) == 0 {
			_, _ = fmt.Fprintln(out, "(empty script)")
			break
		}
		for i, l := range *script {
			_, _ = fmt.Fprintf(out, "%3d  %s\n", i+1, l)
		}

	case ".clear":
		*script = nil
		_, _ = fmt.Fprintln(out, "Script cleared")

	case ".compile":
		res, err := replCompile(cfg, *script)
		if err != nil {
			printREPLDiagnostics(errOut, res, err)
			break
		}
		printREPLDiagnostics(errOut, res, nil)
		_, _ = fmt.Fprintln(out, res.Code)

	case ".run":
		res, err := replCompile(cfg, *script)
		if err != nil {
			printREPLDiagnostics(errOut, res, err)
			break
		}
		printREPLDiagnostics(errOut, res, nil)
		if _, err := codegen.New(res.Program).WriteFile(cfg.Output); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		r := &runner.Runner{
			Python:  cfg.PythonBin,
			Timeout: time.Duration(cfg.Run.TimeoutSeconds) * time.Second,
		}
		execRes, execErr := r.Run(cmd.Context(), cfg.Output)
		if execRes != nil && execRes.Stdout != "" {
			_, _ = fmt.Fprint(out, execRes.Stdout)
		}
		if execErr != nil {
			if execRes != nil && execRes.Stderr != "" {
				_, _ = fmt.Fprint(errOut, execRes.Stderr)
			}
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", execErr)
		}

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", line)
	}
	return false
}

func replCompile(cfg *config.Config, script []string) (*compiler.Result, error) {
	if len(script) == 0 {
		return nil, fmt.Errorf("script is empty")
	}
	return compiler.Compile(strings.Join(script, "\n"), compiler.Options{
		CheckFiles:   cfg.ValidateFiles,
		CheckColumns: cfg.ValidateColumns,
	})
}

func printREPLDiagnostics(w io.Writer, res *compiler.Result, err error) {
	if res != nil && res.Report != nil {
		for _, e := range res.Report.Errors {
			_, _ = fmt.Fprintf(w, "Error: %s\n", e)
		}
		for _, warning := range res.Report.Warnings {
			_, _ = fmt.Fprintf(w, "Warning: %s\n", warning)
		}
	}
	if err != nil && !errors.Is(err, compiler.ErrSemantic) {
		_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	}
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help      Show this help message
  .show      Show the accumulated script
  .clear     Discard the accumulated script
  .compile   Compile the script and print the generated Python
  .run       Compile the script, then execute the generated code
  .quit      Exit the REPL

Tips:
  - DTL commands are validated as you enter them
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// newCommandCompleter creates a readline completer for DTL keywords and
// dot-commands.
func newCommandCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("load"),
		readline.PcItem("skip"),
		readline.PcItem("trim"),
		readline.PcItem("clean",
			readline.PcItem("missing",
				readline.PcItem("drop"),
				readline.PcItem("ffill"),
				readline.PcItem("bfill"),
			),
			readline.PcItem("duplicates"),
		),
		readline.PcItem("fillna"),
		readline.PcItem("rename"),
		readline.PcItem("filter"),
		readline.PcItem("select"),
		readline.PcItem("sort", readline.PcItem("by")),
		readline.PcItem("group", readline.PcItem("by")),
		readline.PcItem("save"),
		readline.PcItem(".help"),
		readline.PcItem(".show"),
		readline.PcItem(".clear"),
		readline.PcItem(".compile"),
		readline.PcItem(".run"),
		readline.PcItem(".quit"),
	)
}

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yasurirashmika/dtlc/internal/cli/config"
	"github.com/yasurirashmika/dtlc/internal/compiler"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	var (
		noFileCheck   bool
		noColumnCheck bool
	)

	cmd := &cobra.Command{
		Use:   "check <script.dtl>",
		Short: "Validate a DTL script without generating code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetCurrentConfig()
			opts := compiler.Options{
				CheckFiles:   cfg.ValidateFiles && !noFileCheck,
				CheckColumns: cfg.ValidateColumns && !noColumnCheck,
			}

			res, err := compiler.CompileFile(args[0], opts)
			if errors.Is(err, compiler.ErrSemantic) {
				printReport(cmd, res.Report.Errors, res.Report.Warnings)
				return fmt.Errorf("%s: %d errors, %d warnings",
					args[0], len(res.Report.Errors), len(res.Report.Warnings))
			}
			if err != nil {
				return err
			}
			printReport(cmd, nil, res.Report.Warnings)

			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d commands, %d warnings)\n",
				args[0], len(res.Program.Commands), len(res.Report.Warnings))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noFileCheck, "no-file-check", false, "Skip load/save path validation")
	cmd.Flags().BoolVar(&noColumnCheck, "no-column-check", false, "Skip CSV header validation")

	return cmd
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Topsis/internal/dataset"
)

// usageError marks argument problems so main can print the usage line.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// Flags must precede the input file.
const rootExample = `  topsis data.csv "1,1,1,2" "+,+,-,+" result.csv
  topsis --table data.csv "1,1,1" "-,+,+" result.csv`

func newRootCommand() *cobra.Command {
	var tableFlag bool
	var noTableFlag bool

	cmd := &cobra.Command{
		Use:           "topsis <input_file> <weights> <impacts> <output_file>",
		Short:         "Rank alternatives in a CSV decision matrix with TOPSIS",
		Example:       rootExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 4 {
				return &usageError{msg: "Incorrect number of parameters"}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := dataset.AnalyzeFile(args[0], args[1], args[2], args[3])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "TOPSIS analysis completed successfully.")
			if (tableFlag || isTerminal(out)) && !noTableFlag {
				fmt.Fprintln(out, renderResult(res))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&tableFlag, "table", false, "Print the ranked table even when stdout is not a terminal")
	cmd.Flags().BoolVar(&noTableFlag, "no-table", false, "Never print the ranked table")
	cmd.MarkFlagsMutuallyExclusive("table", "no-table")
	// Impact lists such as "-,+,+" are arguments, not shorthand flags.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

package cmd

import (
	"bytes"
	"fmt"

	"github.com/KaramelBytes/exval-cli/internal/render"
	"github.com/KaramelBytes/exval-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	detFlags      detectFlags
	detOutputPath string
	detPlotPath   string
)

var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Find exceptional values in a CSV/TSV/XLSX table",
	Long: `Detect loads a table, treats every selected column but the last as a dimension
and the last as the response, and reports the rows whose residual against the
combination and main-effect means exceeds the threshold.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		d, err := detFlags.resolve(cmd, effectiveConfig())
		if err != nil {
			return err
		}
		res, err := d.run(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, w := range res.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s\n", w)
		}

		if detOutputPath != "" {
			var buf bytes.Buffer
			if err := render.Write(&buf, res, d.render); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(detOutputPath, buf.Bytes()); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ %s\n", render.Summary(res))
			fmt.Fprintf(out, "✓ Wrote report to %s\n", detOutputPath)
		} else if err := render.Write(out, res, d.render); err != nil {
			return err
		}

		if detPlotPath != "" {
			if err := render.Plot(detPlotPath, res); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote residual plot to %s\n", detPlotPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detFlags.register(detectCmd.Flags())
	detectCmd.Flags().StringVarP(&detOutputPath, "output", "o", "", "write the report to a file instead of stdout")
	detectCmd.Flags().StringVar(&detPlotPath, "plot", "", "save a residual chart (.png|.svg|.pdf)")
}

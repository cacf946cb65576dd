package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/exval-cli/internal/render"
	"github.com/KaramelBytes/exval-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	dbFlags  detectFlags
	dbOutDir string
	dbPlot   bool
	dbQuiet  bool
)

var detectBatchCmd = &cobra.Command{
	Use:   "detect-batch <files...>",
	Short: "Detect exceptional values in multiple CSV/TSV/XLSX files with progress",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		d, err := dbFlags.resolve(cmd, effectiveConfig())
		if err != nil {
			return err
		}
		if dbPlot && dbOutDir == "" {
			return fmt.Errorf("--plot requires --out-dir")
		}
		if dbOutDir != "" {
			if err := utils.EnsureDir(dbOutDir); err != nil {
				return fmt.Errorf("create out dir: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !dbQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			res, err := d.run(path)
			if err != nil {
				return err
			}
			if !dbQuiet {
				for _, w := range res.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s: %s\n", filepath.Base(path), w)
				}
			}

			if dbOutDir == "" {
				if err := render.Write(out, res, d.render); err != nil {
					return err
				}
				continue
			}

			var buf bytes.Buffer
			if err := render.Write(&buf, res, d.render); err != nil {
				return err
			}
			base := filepath.Base(path)
			safe := strings.TrimSuffix(base, filepath.Ext(base))
			outFile := utils.UniquePath(filepath.Join(dbOutDir, safe+".exceptional."+d.render.Format.Extension()))
			if err := utils.SafeWriteFile(outFile, buf.Bytes()); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if dbPlot {
				plotFile := strings.TrimSuffix(outFile, filepath.Ext(outFile)) + ".png"
				if err := render.Plot(plotFile, res); err != nil {
					return err
				}
			}
			if !dbQuiet {
				fmt.Fprintf(out, "✓ %s -> %s (%d exceptional)\n", base, outFile, len(res.Exceptional))
			}
		}
		if !dbQuiet {
			fmt.Fprintf(out, "✓ Processed %d file(s)\n", total)
		}
		return nil
	},
}

// expandInputs globs each argument, keeps literal paths that exist, and
// returns the de-duplicated set in sorted order.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(detectBatchCmd)
	dbFlags.register(detectBatchCmd.Flags())
	detectBatchCmd.Flags().StringVar(&dbOutDir, "out-dir", "", "write one report per input into this directory (collision-safe names)")
	detectBatchCmd.Flags().BoolVar(&dbPlot, "plot", false, "with --out-dir, also save a residual chart (.png) next to each report")
	detectBatchCmd.Flags().BoolVar(&dbQuiet, "quiet", false, "suppress progress and non-essential output")
}

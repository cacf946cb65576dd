package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/exval-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set exval configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded; using defaults")
		}
		c := effectiveConfig()
		fmt.Fprintf(out, "threshold: %s\n", strconv.FormatFloat(c.Threshold, 'f', -1, 64))
		fmt.Fprintf(out, "normalize: %t\n", c.Normalize)
		fmt.Fprintf(out, "formula: %s\n", c.Formula)
		fmt.Fprintf(out, "main_effects: %t\n", c.MainEffects)
		if len(c.Columns) > 0 {
			fmt.Fprintf(out, "columns: %s\n", strings.Join(c.Columns, ", "))
		}
		fmt.Fprintf(out, "format: %s\n", c.Format)
		if c.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", c.Delimiter)
		}
		fmt.Fprintf(out, "max_rows: %d\n", c.MaxRows)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				// an unreadable or invalid file is replaced on save
				c = cfgpkg.Defaults()
			}
			cfg = c
		}
		next := *cfg
		switch key {
		case "threshold":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for threshold: %w", err)
			}
			next.Threshold = f
		case "normalize", "main_effects":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for %s: %v", key, val)
			}
			if key == "normalize" {
				next.Normalize = b
			} else {
				next.MainEffects = b
			}
		case "formula":
			next.Formula = strings.ToLower(strings.TrimSpace(val))
		case "columns":
			var cols []string
			for _, c := range strings.Split(val, ",") {
				if c = strings.TrimSpace(c); c != "" {
					cols = append(cols, c)
				}
			}
			next.Columns = cols
		case "format":
			next.Format = strings.ToLower(strings.TrimSpace(val))
		case "delimiter":
			if _, err := parseDelimiter(val); err != nil {
				return err
			}
			next.Delimiter = val
		case "max_rows":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for max_rows: %w", err)
			}
			next.MaxRows = i
		case "log_level":
			next.LogLevel = strings.ToLower(strings.TrimSpace(val))
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		cfg = &next
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

package cmd

import (
	"fmt"

	"mermaidcopy/pkg/cache"
	"mermaidcopy/pkg/errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyClear bool
	historyPrune bool
	historyInfo  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently copied diagrams",
	Long: `List the diagrams copied most recently, newest first, together with the
format they were copied in. The same database keeps rendered PNGs so that
copying an unchanged diagram again skips rasterization.

--prune drops expired renders, --clear empties renders and history.`,
	Example: `  # Last 20 copies
  mermaidcopy history

  # Cache statistics
  mermaidcopy history --info

  # Start over
  mermaidcopy history --clear --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyClear {
			if err := RequireConfirmation("clear copy history and render cache", map[string]string{
				"Database": cache.GetDBPath(),
			}); err != nil {
				return err
			}
		}

		cm, err := cache.NewManagerFromEnv()
		if err != nil {
			return errors.NewWithError(errors.ExitCodeFileOperation, "failed to open cache database", err)
		}
		defer cm.Close()

		switch {
		case historyClear:
			if err := cm.Clear(); err != nil {
				return err
			}
			green := color.New(color.FgGreen)
			_, _ = green.Println("✓ History and render cache cleared")
			return nil
		case historyPrune:
			n, err := cm.Prune()
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired render(s).\n", n)
			return nil
		case historyInfo:
			return printCacheInfo(cm)
		}

		entries, err := cm.History(historyLimit)
		if err != nil {
			return err
		}

		output := NewOutputWriter(outputFormat)
		if output.IsStructured() {
			return output.Write(entries)
		}

		if len(entries) == 0 {
			output.Printf("Nothing copied yet.\n")
			return nil
		}

		bold := color.New(color.Bold)
		output.Printf("%s\n", bold.Sprintf("%-17s %-6s %-10s %-12s %s", "COPIED", "FORMAT", "SIZE", "HASH", "SOURCE"))
		for _, e := range entries {
			size := FormatBytes(e.Bytes)
			hash := e.Hash
			if len(hash) > 12 {
				hash = hash[:12]
			}
			output.Printf("%-17s %-6s %-10s %s %s\n",
				FormatTimestamp(e.CopiedAt), e.Format, size, color.CyanString("%-12s", hash), truncate(e.Source, 40))
		}
		return nil
	},
}

func printCacheInfo(cm *cache.Manager) error {
	info, err := cm.GetCacheInfo()
	if err != nil {
		return err
	}
	info["path"] = cache.GetDBPath()

	output := NewOutputWriter(outputFormat)
	if output.IsStructured() {
		return output.Write(info)
	}

	output.Printf("Database: %s\n", info["path"])
	output.Printf("Cached renders: %v (%s)\n", info["renders_count"], FormatBytes(int(info["renders_bytes"].(int64))))
	output.Printf("History entries: %v\n", info["history_count"])
	return nil
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries to show")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete all history and cached renders")
	historyCmd.Flags().BoolVar(&historyPrune, "prune", false, "Delete expired cached renders")
	historyCmd.Flags().BoolVar(&historyInfo, "info", false, "Show cache statistics")
	historyCmd.MarkFlagsMutuallyExclusive("clear", "prune", "info")
}

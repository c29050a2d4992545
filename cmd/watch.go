package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mermaidcopy/pkg/errors"
	"mermaidcopy/pkg/watch"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	watchDebounce time.Duration
	watchInterval time.Duration
	watchInject   bool
	watchAs       string
	watchScale    float64
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>...",
	Short: "Watch documents and copy diagrams on demand",
	Long: `Keep documents under observation and announce every diagram that appears in
them. Type a diagram number and press Enter to copy it; type q to quit.

Changes are picked up through file notifications and a periodic re-scan, both
debounced. With --inject copy controls are written into the files while the
session runs and removed again when it ends.`,
	Example: `  # Watch an exported vault page
  mermaidcopy watch notes/architecture.html

  # Re-scan every 10 seconds and inject controls
  mermaidcopy watch notes/*.html --interval 10s --inject`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}

		opts := watch.Options{
			Paths:    args,
			Debounce: cfg.Watch.Debounce(),
			Interval: cfg.Watch.Interval(),
			Inject:   cfg.Watch.Inject,
		}
		if cmd.Flags().Changed("debounce") {
			opts.Debounce = watchDebounce
		}
		if cmd.Flags().Changed("interval") {
			opts.Interval = watchInterval
		}
		if cmd.Flags().Changed("inject") {
			opts.Inject = watchInject
		}

		for _, p := range args {
			if _, err := os.Stat(p); err != nil {
				return errors.FileError("cannot watch "+p, err)
			}
		}

		if IsDryRun() {
			PrintDryRunAction("watch documents", map[string]string{
				"Paths":    strings.Join(args, ", "),
				"Debounce": opts.Debounce.String(),
				"Interval": opts.Interval.String(),
				"Inject":   strconv.FormatBool(opts.Inject),
			})
			return nil
		}

		copier, cleanup, err := NewCopierBuilder().WithOverrides(watchAs, watchScale).WithSource(strings.Join(args, ",")).Build()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := GetContext()
		defer cancel()

		session := watch.NewSession(opts, copier)
		session.OnNew = announce
		if err := session.Register(ctx); err != nil {
			return err
		}
		defer session.Unregister()

		color.New(color.Faint).Fprintln(os.Stderr, "Type a diagram number to copy it, q to quit.")

		lines := make(chan string)
		go readLines(lines)

		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					// stdin closed: keep watching until interrupted
					lines = nil
					continue
				}
				if quit := handleWatchInput(session, line); quit {
					return nil
				}
			}
		}
	},
}

func announce(e watch.Entry) {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Fprintf(os.Stderr, "[%d] ", e.Number)
	fmt.Fprintf(os.Stderr, "%s diagram in %s\n", e.Kind, e.Path)
}

func handleWatchInput(session *watch.Session, line string) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false
	case "q", "quit", "exit":
		return true
	case "l", "list":
		for _, e := range session.Entries() {
			mark := " "
			if session.Copied(e.Number) {
				mark = color.GreenString("✓")
			}
			fmt.Fprintf(os.Stderr, "%s [%d] %s diagram in %s\n", mark, e.Number, e.Kind, e.Path)
		}
		return false
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		color.New(color.FgYellow).Fprintf(os.Stderr, "Unknown input %q: type a diagram number, l to list or q to quit\n", line)
		return false
	}
	// failures were already reported by the notifier
	_, _ = session.Trigger(n)
	return false
}

func readLines(out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Delay before re-scanning after a change")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "Periodic re-scan interval (0 disables it)")
	watchCmd.Flags().BoolVar(&watchInject, "inject", false, "Write copy controls into the files while watching")
	watchCmd.Flags().StringVar(&watchAs, "as", "", "Copy format for this session (png, svg)")
	watchCmd.Flags().Float64Var(&watchScale, "scale", 0, "PNG scale factor for this session")
}

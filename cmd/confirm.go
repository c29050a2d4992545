package cmd

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"mermaidcopy/pkg/errors"

	"github.com/fatih/color"
)

const (
	responseYes = "yes"
	responseY   = "y"
)

// IsDryRun returns true if dry-run mode is enabled
func IsDryRun() bool {
	return dryRunFlag
}

// PrintDryRun prints a message indicating what would happen in dry-run mode
func PrintDryRun(format string, args ...interface{}) {
	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Print("[DRY-RUN] ")
	fmt.Printf(format+"\n", args...)
}

// PrintDryRunAction prints a dry-run action with details
func PrintDryRunAction(action string, details map[string]string) {
	yellow := color.New(color.FgYellow, color.Bold)
	cyan := color.New(color.FgCyan)

	_, _ = yellow.Printf("[DRY-RUN] Would %s:\n", action)
	for _, key := range sortedKeys(details) {
		_, _ = cyan.Printf("  %s: ", key)
		fmt.Println(details[key])
	}
}

// ConfirmPrompt asks the user for confirmation
func ConfirmPrompt(message string) (bool, error) {
	if assumeYesFlag {
		return true, nil
	}

	yellow := color.New(color.FgYellow)
	_, _ = yellow.Printf("%s [y/N]: ", message)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == responseY || response == responseYes, nil
}

// ConfirmDestructive prompts for confirmation before a destructive action
func ConfirmDestructive(action string, details map[string]string) (bool, error) {
	if dryRunFlag {
		PrintDryRunAction(action, details)
		return false, nil
	}

	red := color.New(color.FgRed, color.Bold)
	_, _ = red.Printf("Warning: You are about to %s\n\n", action)

	if len(details) > 0 {
		for _, key := range sortedKeys(details) {
			fmt.Printf("  %s: %s\n", key, details[key])
		}
		fmt.Println()
	}

	return ConfirmPrompt("Do you want to continue")
}

// RequireConfirmation returns a cancellation error unless the user confirms.
// In dry-run mode it only describes the action and returns errDryRun.
func RequireConfirmation(action string, details map[string]string) error {
	confirmed, err := ConfirmDestructive(action, details)
	if err != nil {
		return err
	}
	if dryRunFlag {
		return errDryRun
	}
	if !confirmed {
		return errors.CancelledError(action)
	}
	return nil
}

// errDryRun stops a command after its dry-run report.
var errDryRun = fmt.Errorf("dry run")

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

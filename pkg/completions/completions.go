package completions

import (
	"fmt"
	"os"
	"strings"

	"mermaidcopy/pkg/config"
	"mermaidcopy/pkg/document"

	"github.com/spf13/cobra"
)

type Completer struct {
	loadConfig func() (*config.Config, error)
}

func NewCompleter() *Completer {
	return &Completer{
		loadConfig: func() (*config.Config, error) { return config.Load() },
	}
}

func (c *Completer) CompleteCopyFormat(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	formats := []string{
		"png\tPNG image at the configured scale",
		"svg\tStandalone SVG markup as text",
	}
	return c.filterPrefix(formats, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func (c *Completer) CompleteOutputFormat(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	formats := []string{"table", "json", "yaml"}
	results := c.filterPrefix(formats, toComplete)

	for i, format := range results {
		results[i] = fmt.Sprintf("%s\t%s", format, getFormatDescription(format))
	}

	return results, cobra.ShellCompDirectiveNoFileComp
}

func (c *Completer) CompleteLogLevel(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	levels := []string{"debug", "info", "warn", "error", "disabled"}
	return c.filterPrefix(levels, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func (c *Completer) CompleteProfiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := c.loadConfig()
	if err != nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}

	results := []string{}
	for _, p := range cfg.Profiles {
		desc := describeProfile(p)
		if cfg.IsProfileActive(p.Name) {
			desc += " (active)"
		}
		results = append(results, fmt.Sprintf("%s\t%s", p.Name, desc))
	}
	return c.filterPrefix(results, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// CompleteSettings completes the key and then the value of 'config set'.
func (c *Completer) CompleteSettings(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return c.filterPrefix(config.SettingKeys(), toComplete), cobra.ShellCompDirectiveNoFileComp
	case 1:
		switch args[0] {
		case "copy-format":
			return c.CompleteCopyFormat(cmd, args, toComplete)
		case "inject", "desktop-notify":
			return c.filterPrefix([]string{"true", "false"}, toComplete), cobra.ShellCompDirectiveNoFileComp
		}
	}
	return []string{}, cobra.ShellCompDirectiveNoFileComp
}

// CompleteBlocks lists the diagram blocks of the document named by the first
// argument.
func (c *Completer) CompleteBlocks(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	f, err := os.Open(args[0])
	if err != nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	defer f.Close()

	doc, err := document.Parse(f)
	if err != nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}

	results := []string{}
	for _, b := range doc.Blocks() {
		results = append(results, fmt.Sprintf("%d\t%s diagram", b.Index, b.Kind))
		if b.ID != "" {
			results = append(results, fmt.Sprintf("%s\t%s diagram #%d", b.ID, b.Kind, b.Index))
		}
	}
	return c.filterPrefix(results, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func (c *Completer) filterPrefix(items []string, prefix string) []string {
	result := []string{}
	for _, item := range items {
		itemName := strings.Split(item, "\t")[0]
		if strings.HasPrefix(strings.ToLower(itemName), strings.ToLower(prefix)) {
			result = append(result, item)
		}
	}
	return result
}

func describeProfile(p config.Profile) string {
	var parts []string
	if p.CopyFormat != "" {
		parts = append(parts, "format "+string(p.CopyFormat))
	}
	if p.Scale > 0 {
		parts = append(parts, fmt.Sprintf("scale %g", p.Scale))
	}
	if len(parts) == 0 {
		return "no overrides"
	}
	return strings.Join(parts, ", ")
}

func getFormatDescription(format string) string {
	switch format {
	case "table":
		return "Human-readable table"
	case "json":
		return "JSON for scripting"
	case "yaml":
		return "YAML for scripting"
	default:
		return ""
	}
}

func RegisterCompletions(rootCmd *cobra.Command) {
	completer := NewCompleter()

	rootCmd.RegisterFlagCompletionFunc("format", completer.CompleteOutputFormat)
	rootCmd.RegisterFlagCompletionFunc("log-level", completer.CompleteLogLevel)
	rootCmd.RegisterFlagCompletionFunc("profile", completer.CompleteProfiles)

	for _, name := range []string{"copy", "export"} {
		c, _, _ := rootCmd.Find([]string{name})
		if c != nil && c != rootCmd {
			c.RegisterFlagCompletionFunc("block", completer.CompleteBlocks)
			c.RegisterFlagCompletionFunc("as", completer.CompleteCopyFormat)
		}
	}
	if c, _, _ := rootCmd.Find([]string{"watch"}); c != nil && c != rootCmd {
		c.RegisterFlagCompletionFunc("as", completer.CompleteCopyFormat)
	}

	configSetCmd, _, _ := rootCmd.Find([]string{"config", "set"})
	if configSetCmd != nil && configSetCmd != rootCmd {
		configSetCmd.ValidArgsFunction = completer.CompleteSettings
	}

	for _, name := range []string{"use", "remove"} {
		c, _, _ := rootCmd.Find([]string{"config", "profiles", name})
		if c != nil && c != rootCmd {
			c.RegisterFlagCompletionFunc("name", completer.CompleteProfiles)
		}
	}
}

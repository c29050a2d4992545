package cmd

import (
	"mermaidcopy/pkg/document"
	"mermaidcopy/pkg/filter"
	"mermaidcopy/pkg/logger"
	"mermaidcopy/pkg/svgexport"
	"mermaidcopy/pkg/trigger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	scanFilterText  string
	scanFilterRegex string
	scanFilterFuzzy string
	scanKind        string
)

// BlockOutput represents a diagram block for structured output
type BlockOutput struct {
	Index  int     `json:"index" yaml:"index"`
	Kind   string  `json:"kind" yaml:"kind"`
	ID     string  `json:"id,omitempty" yaml:"id,omitempty"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Hash   string  `json:"hash" yaml:"hash"`
	Text   string  `json:"text,omitempty" yaml:"text,omitempty"`
}

var scanCmd = &cobra.Command{
	Use:   "scan <file>",
	Short: "List the rendered diagrams of a document",
	Long: `List every rendered Mermaid diagram found in an exported note, an HTML page
or an SVG file. Diagrams that were not rendered yet are skipped.`,
	Example: `  # List diagrams
  mermaidcopy scan note.html

  # Only diagrams whose labels fuzzy-match "login"
  mermaidcopy scan note.html --filter-fuzzy login

  # Output as JSON
  mermaidcopy scan note.html --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}

		f := &filter.BlockFilter{Text: scanFilterText, TextRegex: scanFilterRegex, TextFuzzy: scanFilterFuzzy, Kind: scanKind}
		blocks, err := filterBlocks(doc.Blocks(), f)
		if err != nil {
			return err
		}

		logger.Info().Int("count", len(blocks)).Str("path", args[0]).Msg("Found diagrams")

		outputs := make([]BlockOutput, 0, len(blocks))
		for _, b := range blocks {
			outputs = append(outputs, mapToBlockOutput(b))
		}

		output := NewOutputWriter(outputFormat)
		if output.IsStructured() {
			return output.Write(outputs)
		}

		if len(outputs) == 0 {
			output.Printf("No rendered diagrams found.\n")
			return nil
		}

		bold := color.New(color.Bold)
		faint := color.New(color.Faint)
		output.Printf("%s\n", bold.Sprintf("%-3s %-10s %-16s %s", "#", "KIND", "SIZE", "LABELS"))
		for _, o := range outputs {
			size := color.CyanString("%-16s", formatSize(o.Width, o.Height))
			output.Printf("%-3d %-10s %s %s\n", o.Index, o.Kind, size, truncate(o.Text, 48))
			if o.ID != "" {
				output.Printf("    %s\n", faint.Sprintf("id %s", o.ID))
			}
		}
		return nil
	},
}

func filterBlocks(blocks []document.Block, f *filter.BlockFilter) ([]document.Block, error) {
	filtered := []document.Block{}
	for _, b := range blocks {
		ok, err := f.Matches(b.Kind.String(), b.Text())
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

func mapToBlockOutput(b document.Block) BlockOutput {
	out := BlockOutput{
		Index: b.Index,
		Kind:  b.Kind.String(),
		ID:    b.ID,
		Text:  b.Text(),
	}
	if g, err := svgexport.NewGraphic(b.SVG, nil); err == nil {
		out.Width, out.Height = g.Size()
		out.Hash = trigger.Identity(svgexport.Serialize(g))
	}
	return out
}

func formatSize(w, h float64) string {
	if w == 0 && h == 0 {
		return "-"
	}
	return formatNumber(w) + "×" + formatNumber(h)
}

func init() {
	scanCmd.Flags().StringVar(&scanFilterText, "filter-text", "", "Only diagrams whose labels contain this text (case-insensitive)")
	scanCmd.Flags().StringVar(&scanFilterRegex, "filter-regex", "", "Only diagrams whose labels match this regex")
	scanCmd.Flags().StringVar(&scanFilterFuzzy, "filter-fuzzy", "", "Only diagrams whose labels fuzzy-match this text")
	scanCmd.Flags().StringVar(&scanKind, "kind", "", "Only diagrams of this kind (embed, preview, standalone)")
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"mermaidcopy/pkg/config"
	"mermaidcopy/pkg/document"
	"mermaidcopy/pkg/errors"
	"mermaidcopy/pkg/logger"
	"mermaidcopy/pkg/progress"
	"mermaidcopy/pkg/trigger"

	"github.com/spf13/cobra"
)

var (
	exportBlock  string
	exportAs     string
	exportScale  float64
	exportOutput string
	exportAll    bool
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a diagram to a file",
	Long: `Convert a rendered diagram exactly like 'copy' does, but write the result to a
file or to standard output instead of the clipboard.

With --all every diagram of the document is written into the output
directory as diagram-<n>.png or diagram-<n>.svg.`,
	Example: `  # Export the first diagram as PNG next to the note
  mermaidcopy export note.html -o diagram.png

  # Pipe the SVG markup of diagram 3
  mermaidcopy export note.html --block 3 --as svg -o -

  # Export all diagrams
  mermaidcopy export note.html --all -o diagrams/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}

		cfg, err := NewCopierBuilder().WithOverrides(exportAs, exportScale).Settings().Settings()
		if err != nil {
			return err
		}

		if exportAll {
			return exportAllBlocks(doc.Blocks(), cfg)
		}

		block, err := doc.Find(exportBlock)
		if err != nil {
			return err
		}

		target := exportOutput
		if target == "" {
			target = fmt.Sprintf("diagram-%d.%s", block.Index, cfg.CopyFormat)
		}

		if IsDryRun() {
			PrintDryRunAction("export diagram", map[string]string{
				"Block":  fmt.Sprintf("%d (%s)", block.Index, block.Kind),
				"Format": string(cfg.CopyFormat),
				"Output": target,
			})
			return nil
		}

		var p *trigger.Payload
		err = progress.WithSpinner("Rendering diagram", func() error {
			var convErr error
			p, convErr = renderBlock(block, cfg)
			return convErr
		})
		if err != nil {
			return err
		}

		return writePayload(target, p)
	},
}

func exportAllBlocks(blocks []document.Block, cfg *config.Config) error {
	if len(blocks) == 0 {
		return errors.NoDiagramError("document")
	}
	if exportOutput == "" || exportOutput == "-" {
		return errors.ValidationError("--all needs an output directory (-o <dir>)")
	}

	if IsDryRun() {
		PrintDryRun("Would export %d diagram(s) as %s into %s", len(blocks), cfg.CopyFormat, exportOutput)
		return nil
	}

	if err := os.MkdirAll(exportOutput, 0755); err != nil {
		return errors.FileError("failed to create output directory", err)
	}

	bar := progress.NewBar(len(blocks), "Exporting")
	failed := 0
	for _, b := range blocks {
		target := filepath.Join(exportOutput, fmt.Sprintf("diagram-%d.%s", b.Index, cfg.CopyFormat))
		p, err := renderBlock(b, cfg)
		if err == nil {
			err = writePayload(target, p)
		}
		if err != nil {
			failed++
			logger.Warn().Err(err).Int("block", b.Index).Msg("export failed")
		}
		bar.Increment()
	}
	bar.Finish()

	if failed > 0 {
		return errors.New(errors.ExitCodeGeneral,
			fmt.Sprintf("%d of %d diagram(s) could not be exported", failed, len(blocks)))
	}
	return nil
}

// renderBlock converts one diagram, naming it in the error while keeping the
// conversion's exit code.
func renderBlock(b document.Block, cfg *config.Config) (*trigger.Payload, error) {
	p, err := trigger.Convert(b.SVG, nil, cfg.CopyFormat, cfg.Scale)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("diagram %d", b.Index))
	}
	return p, nil
}

func writePayload(target string, p *trigger.Payload) error {
	if target == "-" {
		_, err := os.Stdout.Write(p.Data)
		return err
	}
	if err := os.WriteFile(target, p.Data, 0644); err != nil {
		return errors.FileError("failed to write "+target, err)
	}
	logger.Info().Str("path", target).Int("bytes", len(p.Data)).Msg("diagram exported")
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportBlock, "block", "b", "", "Diagram number or trigger id (default: first diagram)")
	exportCmd.Flags().StringVar(&exportAs, "as", "", "Output format (png, svg)")
	exportCmd.Flags().Float64Var(&exportScale, "scale", 0, "PNG scale factor")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file, directory with --all, or - for stdout")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every diagram of the document")
}

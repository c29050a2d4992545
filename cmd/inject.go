package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	injectRemove bool
	injectOutput string
)

var injectCmd = &cobra.Command{
	Use:   "inject <file>",
	Short: "Add or remove copy controls in a document",
	Long: `Add a "Copy diagram" control next to the edit button of every rendered
diagram block that does not have one yet. Each control carries a unique id
that 'copy --block <id>' accepts. Running the command twice changes nothing.

--remove deletes every control again.`,
	Example: `  # Add controls in place
  mermaidcopy inject note.html

  # Preview the change
  mermaidcopy inject note.html --dry-run

  # Remove all controls
  mermaidcopy inject note.html --remove`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		doc, err := readDocument(path)
		if err != nil {
			return err
		}

		action := "added"
		var changed int
		if injectRemove {
			action = "removed"
			changed = doc.RemoveTriggers()
		} else {
			changed = doc.InjectTriggers()
		}

		target := injectOutput
		if target == "" {
			target = path
		}

		if IsDryRun() {
			PrintDryRun("Would write %s with %d copy control(s) %s", target, changed, action)
			return nil
		}

		if changed == 0 && target == path {
			fmt.Printf("No copy controls %s.\n", action)
			return nil
		}

		if err := writeDocument(target, doc); err != nil {
			return err
		}
		if target != "-" {
			green := color.New(color.FgGreen)
			_, _ = green.Printf("✓ %d copy control(s) %s in %s\n", changed, action, target)
		}
		return nil
	},
}

func init() {
	injectCmd.Flags().BoolVar(&injectRemove, "remove", false, "Remove injected copy controls")
	injectCmd.Flags().StringVarP(&injectOutput, "output", "o", "", "Write the result here instead of in place (- for stdout)")
}

package cmd

import "github.com/spf13/cobra"

func RegisterCommands(root *cobra.Command) {
	root.AddCommand(versionCmd)
	root.AddCommand(clipboardServeCmd)

	root.AddCommand(scanCmd)
	root.AddCommand(copyCmd)
	root.AddCommand(exportCmd)
	root.AddCommand(injectCmd)
	root.AddCommand(watchCmd)
	root.AddCommand(historyCmd)
	root.AddCommand(configCmd)
}

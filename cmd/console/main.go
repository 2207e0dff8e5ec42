// AgentStudio Console — the orchestration core behind the studio's agent
// configuration surfaces.
//
// It coordinates:
//   - Selection funnel (agent / version / system)
//   - Resource repositories over the studio backend
//   - Spec and schema editors with dirty tracking
//   - System graph manager (single-expand, cached members)
//   - Widget bridge (test + builder embeds, UI-control protocol)

package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "console",
	Short: "AgentStudio configuration console",
	Long: `The AgentStudio console orchestrates the agent configuration surfaces:
selection, spec and schema editing, system graphs, and the embedded
test and builder widgets.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

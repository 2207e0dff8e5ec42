package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstudio/agentstudio/console/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the console version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agentstudio-console %s\n", config.Load().Version)
	},
}

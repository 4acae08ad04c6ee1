package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "topups",
	Short: "Online top-ups microservice",
	Long:  "A microservice for SumUp online top-ups: checkout creation, reconciliation, and ledger booking.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

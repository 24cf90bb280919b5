package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sonna-ai/sonna/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "sonna-configure",
		Short: "Configuration tool for the Sonna reminder engine",
		Long:  "CLI tool for managing scheduler policy, rate limits, and CORS settings",
	}

	rootCmd.AddCommand(commands.NewPolicyCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

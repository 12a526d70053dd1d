// Package main provides the CLI entry point for the naive supervised
// networks trainer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nic-ch/naive-supervised/cmd/naive-supervised/commands"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "naive-supervised",
	Short: "Naive supervised networks trainer",
	Long: `Naive supervised networks trainer.

Searches for a shared weight vector that makes the desired candidate of
every candidate group score highest among its competitors, by stochastic
mutation over fixed-point reduction networks.

It provides:
  - Training over any number of candidate group files, in parallel
  - Rank evaluation of a saved weight vector without training
  - A SQLite journal of past training runs`,
	Version: version,
}

func main() {
	rootCmd.AddCommand(commands.TrainCmd)
	rootCmd.AddCommand(commands.RankCmd)
	rootCmd.AddCommand(commands.JournalCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

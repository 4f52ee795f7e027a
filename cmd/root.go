/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "velotracker",
	Short: "VeloTracker backend server and tooling",
	Long: `VeloTracker is the REST backend for the VeloTracker cycling app.

It serves user authentication and ride storage over HTTP and ships
with a migration runner for the Postgres schema.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

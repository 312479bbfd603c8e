// Package main is the entry point for the alm-linker CLI.
package main

import (
	"fmt"
	"os"

	"github.com/alm-toolkit/alm-linker/pkg/version"
	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "alm-linker",
	Short: "Link pull-request build artifacts to ALM platform records",
	Long: `alm-linker runs once per pull-request event in CI. It finds the
change-management record whose title carries the pull request number,
uploads the build artifacts (or a workspace snapshot) as file entities,
and replaces the record's reference field with the new links.`,
	Version:       version.FullString(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to config file (default: $ALM_LINKER_CONFIG)")

	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(artifactsCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "alm-linker: %v\n", err)
		os.Exit(1)
	}
}

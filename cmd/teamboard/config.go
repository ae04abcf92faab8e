package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tgienger/teamboard/internal/config"
)

var forceInit bool

var initConfigCmd = &cobra.Command{
	Use:         "init-config",
	Short:       "Write a default config file",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSetup: "true"},
	RunE:        runInitConfig,
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSetup: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("teamboard %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(initConfigCmd, versionCmd)
	initConfigCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}
	if err := config.WriteDefault(configPath); err != nil {
		return err
	}
	color.Green("✓ Wrote %s", configPath)
	return nil
}

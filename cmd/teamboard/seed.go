package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tgienger/teamboard/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin account and demo data",
	Long: `Create the admin account, the default project types and, on an empty
database, a few demo projects with tasks. Running it again is safe.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	res, err := seed.Run(cmd.Context(), database, cfg.Auth.BcryptCost, log)
	if err != nil {
		return err
	}

	if res.AdminCreated {
		color.Green("✓ Created admin user %q (password %q)", seed.AdminUsername, seed.AdminPassword)
		color.Yellow("  Change the admin password after the first login.")
	} else {
		fmt.Printf("Admin user %q already exists\n", seed.AdminUsername)
	}
	fmt.Printf("Project types created: %d\n", res.ProjectTypes)
	fmt.Printf("Projects created:      %d\n", res.Projects)
	fmt.Printf("Tasks created:         %d\n", res.Tasks)
	return nil
}

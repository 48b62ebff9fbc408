package cli

import (
	"fmt"
	"os"

	"mission-progression-system/services"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// SeedCmd upserts the mission catalog from the embedded seed or a file.
func SeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the mission catalog",
		Long: `Upsert missions and their translations by code.

Missions missing from the seed are left untouched.

Examples:
  missions seed                      # embedded catalog
  missions seed --file missions.yaml # catalog from a file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := loadSeed(file)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.catalog.Apply(cmd.Context(), seed)
			if err != nil {
				return err
			}
			fmt.Printf("%s seeded %d missions\n", color.New(color.FgGreen).Sprint("✓"), n)
			for _, m := range a.catalog.Snapshot().Missions() {
				fmt.Printf("  %-22s %-12s %d translation(s)\n", m.Code, m.Category, len(m.Translations))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file to apply instead of the embedded catalog")
	return cmd
}

func loadSeed(file string) ([]services.SeedMission, error) {
	if file == "" {
		return services.DefaultSeed()
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return services.ParseSeed(data)
}

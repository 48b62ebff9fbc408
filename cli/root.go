package cli

import "github.com/spf13/cobra"

// RootCmd returns the missions command with every subcommand attached.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "missions",
		Short: "Mission progression service",
		Long: `missions runs the mission progression service and its maintenance tasks.

Configuration is read from the environment (and an optional .env file).
DATABASE_URL, MISSION_SERVICE_TOKEN and EVENTS_SERVICE_TOKEN are required.`,
		SilenceUsage: true,
	}

	root.AddCommand(ServeCmd())
	root.AddCommand(SeedCmd())
	root.AddCommand(ReconcileCmd())
	return root
}

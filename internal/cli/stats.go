package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// StatsCmd returns the stats command
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show mirror contents and event log health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			stats, err := rt.services.Stats().Collect(ctx)
			if err != nil {
				return fmt.Errorf("collecting stats: %w", err)
			}

			fmt.Println("Mirror contents:")
			fmt.Printf("  %-15s %d\n", "projects", stats.Projects)
			fmt.Printf("  %-15s %d\n", "boards", stats.Boards)
			fmt.Printf("  %-15s %d\n", "columns", stats.Columns)
			fmt.Printf("  %-15s %d\n", "users", stats.Users)
			fmt.Printf("  %-15s %d\n", "tasks", stats.Tasks)
			fmt.Printf("  %-15s %d\n", "comments", stats.Comments)

			fmt.Println("\nTasks by state:")
			fmt.Printf("  %-15s %d\n", "active", stats.TasksActive)
			fmt.Printf("  %-15s %d\n", "completed", stats.TasksCompleted)
			fmt.Printf("  %-15s %d\n", "archived", stats.TasksArchived)

			fmt.Println("\nEvent log:")
			fmt.Printf("  %-15s %d\n", "events", stats.Events)
			fmt.Printf("  %-15s %d\n", "pending", stats.EventsPending)
			fmt.Printf("  %-15s %d\n", "errored", stats.EventsErrored)

			if len(stats.TopProjects) > 0 {
				fmt.Println("\nTop projects by tasks:")
				for _, p := range stats.TopProjects {
					fmt.Printf("  %6d  %s\n", p.Tasks, p.Title)
				}
			}
			return nil
		},
	}
}

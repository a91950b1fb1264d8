package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"boardsync.app/mirror/internal/model"
	"boardsync.app/mirror/internal/service"
)

// ImportCmd returns the import command
func ImportCmd() *cobra.Command {
	var (
		projectID string
		all       bool
		reset     bool
		prune     bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Pull a full project snapshot from YouGile into the mirror",
		Long: `Imports a project tree (boards, columns, tasks, assignees, comments)
from the YouGile API into the local mirror. Safe to run multiple times,
every write is an idempotent upsert.

Use --reset to drop the project's local tree first, or --prune to remove
local rows the source no longer has.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" && !all {
				return fmt.Errorf("either --project or --all is required")
			}
			if projectID != "" && all {
				return fmt.Errorf("--project and --all are mutually exclusive")
			}

			ctx := cmd.Context()
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()
			if _, err := rt.requireSource(); err != nil {
				return err
			}

			opts := service.ImportOptions{ProjectID: projectID, Reset: reset, Prune: prune}
			importer := rt.services.Importer()

			var summary *model.ImportSummary
			if all {
				fmt.Println("Importing all projects...")
				summary, err = importer.ImportAll(ctx, opts)
			} else {
				fmt.Printf("Importing project %s...\n", projectID)
				summary, err = importer.ImportProject(ctx, opts)
			}
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Println("\n✓ Import complete")
			fmt.Printf("  %-12s %d\n", "projects", summary.Projects)
			fmt.Printf("  %-12s %d\n", "boards", summary.Boards)
			fmt.Printf("  %-12s %d\n", "columns", summary.Columns)
			fmt.Printf("  %-12s %d\n", "users", summary.Users)
			fmt.Printf("  %-12s %d\n", "tasks", summary.Tasks)
			fmt.Printf("  %-12s %d\n", "assignees", summary.Assignees)
			fmt.Printf("  %-12s %d\n", "comments", summary.Comments)
			if prune {
				fmt.Printf("  %-12s %d\n", "pruned", summary.Pruned)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id to import")
	cmd.Flags().BoolVar(&all, "all", false, "Import every project the source lists")
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop the project's local tree before importing")
	cmd.Flags().BoolVar(&prune, "prune", false, "Remove local rows the source no longer has")

	return cmd
}

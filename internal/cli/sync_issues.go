package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SyncIssuesCmd returns the sync-issues command
func SyncIssuesCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync-issues",
		Short: "Project mirrored tasks into GitLab issues",
		Long: `Projects every mirrored task into the configured GitLab project: one
issue per task, closed exactly when the task is completed or archived.
Links between tasks and issues persist across runs, so repeated syncs
update the same issues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if !rt.cfg.GitLab.Enabled() {
				return fmt.Errorf("GitLab is not configured, set GITLAB_TOKEN and GITLAB_PROJECT_ID")
			}

			summary, err := rt.services.IssueSync().SyncIssues(ctx, dryRun)
			if err != nil {
				return fmt.Errorf("issue sync failed: %w", err)
			}

			if dryRun {
				fmt.Println("[DRY RUN] No issues were written.")
			}
			fmt.Println("\n✓ Issue sync complete")
			fmt.Printf("  %-12s %d\n", "examined", summary.Examined)
			fmt.Printf("  %-12s %d\n", "created", summary.Created)
			fmt.Printf("  %-12s %d\n", "updated", summary.Updated)
			fmt.Printf("  %-12s %d\n", "closed", summary.Closed)
			fmt.Printf("  %-12s %d\n", "skipped", summary.Skipped)

			if len(summary.Errors) > 0 {
				fmt.Println("\nFailed tasks:")
				for _, e := range summary.Errors {
					fmt.Printf("  %s: %s\n", e.TaskID, e.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing issues")

	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"boardsync.app/mirror/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mirror",
		Short: "Operations tool for the YouGile mirror",
		Long: `mirror manages the local YouGile mirror: full snapshot imports, webhook
event catch-up, mirror statistics, issue projection into GitLab and
webhook subscription management.`,
	}

	rootCmd.AddCommand(cli.ImportCmd())
	rootCmd.AddCommand(cli.CatchupCmd())
	rootCmd.AddCommand(cli.StatsCmd())
	rootCmd.AddCommand(cli.SyncIssuesCmd())
	rootCmd.AddCommand(cli.WebhooksCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"boardsync.app/mirror/common/logger"
	"boardsync.app/mirror/core/config"
	"boardsync.app/mirror/internal/yougile"
)

// WebhooksCmd returns the webhooks command
func WebhooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Manage YouGile webhook subscriptions",
		Long: `Lists, creates and deletes the webhook subscriptions YouGile delivers
through. The receiver only mirrors what actually arrives, so production
deployments need an active subscription pointing at their public URL.`,
	}

	cmd.AddCommand(webhooksListCmd())
	cmd.AddCommand(webhooksCreateCmd())
	cmd.AddCommand(webhooksDeleteCmd())

	return cmd
}

// sourceFromEnv builds the API client without touching the database,
// subscription management needs nothing else.
func sourceFromEnv() (*yougile.Client, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger.Setup(cfg)

	if !cfg.YouGile.Enabled() {
		return nil, fmt.Errorf("the YouGile API is not configured, set YOUGILE_API_KEY")
	}
	return yougile.New(yougile.Config{
		BaseURL:       cfg.YouGile.BaseURL,
		APIKey:        cfg.YouGile.APIKey,
		Timeout:       cfg.YouGile.Timeout,
		MaxRetries:    cfg.YouGile.MaxRetries,
		RatePerMinute: cfg.YouGile.RatePerMinute,
	}, slog.Default()), nil
}

func webhooksListCmd() *cobra.Command {
	var includeDeleted bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List webhook subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sourceFromEnv()
			if err != nil {
				return err
			}

			hooks, err := client.ListWebhooks(cmd.Context(), includeDeleted)
			if err != nil {
				return fmt.Errorf("listing webhooks: %w", err)
			}
			if len(hooks) == 0 {
				fmt.Println("No webhook subscriptions.")
				return nil
			}

			fmt.Printf("%-36s %-10s %-12s %s\n", "ID", "STATUS", "EVENT", "URL")
			for _, hook := range hooks {
				id, _ := hook["id"].(string)
				url, _ := hook["url"].(string)
				event, _ := hook["event"].(string)

				status := "active"
				if disabled, _ := hook["disabled"].(bool); disabled {
					status = "disabled"
				}
				if deleted, _ := hook["deleted"].(bool); deleted {
					status = "deleted"
				}
				fmt.Printf("%-36s %-10s %-12s %s\n", id, status, event, url)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "Include deleted subscriptions")

	return cmd
}

func webhooksCreateCmd() *cobra.Command {
	var (
		url   string
		event string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a webhook subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				return fmt.Errorf("--url is required")
			}

			client, err := sourceFromEnv()
			if err != nil {
				return err
			}

			hook, err := client.CreateWebhook(cmd.Context(), url, event)
			if err != nil {
				return fmt.Errorf("creating webhook: %w", err)
			}

			id, _ := hook["id"].(string)
			fmt.Printf("✓ Webhook created: %s\n", id)
			fmt.Printf("  %-8s %s\n", "url", url)
			fmt.Printf("  %-8s %s\n", "event", event)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Delivery URL, typically <public base>/webhook/yougile")
	cmd.Flags().StringVar(&event, "event", "task-*", "Event filter pattern")

	return cmd
}

func webhooksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a webhook subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sourceFromEnv()
			if err != nil {
				return err
			}

			// Deletion is an update with the deleted flag set.
			if _, err := client.UpdateWebhook(cmd.Context(), args[0], map[string]any{"deleted": true}); err != nil {
				return fmt.Errorf("deleting webhook: %w", err)
			}

			fmt.Printf("✓ Webhook deleted: %s\n", args[0])
			return nil
		},
	}
}

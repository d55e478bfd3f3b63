package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/services/workflow"
	"github.com/spf13/cobra"
)

// NewWebhookCmd creates the webhook command
func NewWebhookCmd() *cobra.Command {
	var (
		todoID int64
		output string
	)

	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Send a todo to the workflow webhook",
		Long: "Post a stored todo to WORKFLOW_WEBHOOK_URL the same way enrichment does, " +
			"wait for the acknowledgement and print it. The description is not stored.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if todoID <= 0 {
				return fmt.Errorf("--todo is required")
			}

			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			log, err := logger.NewDevelopmentLogger(false)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync(log) }()

			client := workflow.NewClient(cfg.WorkflowWebhookURL, cfg.WorkflowWebhookSecret, log)
			if !client.Enabled() {
				return fmt.Errorf("WORKFLOW_WEBHOOK_URL is not configured")
			}

			todo, err := database.NewTodoRepository(db).GetByID(cmd.Context(), todoID)
			if err != nil {
				if database.IsNotFound(err) {
					return fmt.Errorf("todo %d not found", todoID)
				}
				return err
			}

			return runWebhook(cmd.Context(), cmd.OutOrStdout(), client, todo, output)
		},
	}

	cmd.Flags().Int64Var(&todoID, "todo", 0, "ID of the todo to send (required)")
	cmd.Flags().StringVarP(&output, "output", "o", formatYAML, "Output format (yaml or json)")

	return cmd
}

// DescriptionGenerator asks the workflow to describe a todo
type DescriptionGenerator interface {
	GenerateDescription(ctx context.Context, todo *models.Todo) (*workflow.Ack, error)
}

func runWebhook(ctx context.Context, w io.Writer, generator DescriptionGenerator, todo *models.Todo, output string) error {
	ack, err := generator.GenerateDescription(ctx, todo)
	if err != nil {
		return err
	}
	return render(w, output, ack)
}

package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/spf13/cobra"
)

const formatTable = "table"

// NewTodosCmd creates the todos command
func NewTodosCmd() *cobra.Command {
	var (
		username string
		active   bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "todos",
		Short: "List a user's todos",
		Long:  "List the todos of one user, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--user is required")
			}

			_, db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			return runTodos(cmd.Context(), cmd.OutOrStdout(),
				database.NewUserRepository(db), database.NewTodoRepository(db),
				username, active, output)
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "Username whose todos to list (required)")
	cmd.Flags().BoolVar(&active, "active", false, "Only list todos that are not completed")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "Output format (table, yaml or json)")

	return cmd
}

func runTodos(ctx context.Context, w io.Writer, users database.UserStore, todos database.TodoStore, username string, active bool, output string) error {
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		if database.IsNotFound(err) {
			return fmt.Errorf("user %q not found", username)
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	var list []*models.Todo
	if active {
		list, err = todos.ListActiveByUser(ctx, user.ID, 0)
	} else {
		list, err = todos.ListByUser(ctx, user.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to list todos: %w", err)
	}

	if output != formatTable {
		return render(w, output, list)
	}

	if len(list) == 0 {
		_, err := fmt.Fprintf(w, "No todos for %s\n", user.Username)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tPRIORITY\tTITLE\tUPDATED")
	for _, t := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			t.ID, mark(t.Completed), mark(t.Priority), t.Text, t.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func mark(b bool) string {
	if b {
		return "x"
	}
	return "-"
}

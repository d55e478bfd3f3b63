package main

import (
	"fmt"
	"os"

	"github.com/benvon/todo-assistant/cmd/todoctl/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "todoctl",
		Short: "Operator tool for the todo assistant",
		Long:  "CLI tool for applying the schema, inspecting todos and exercising the AI and workflow integrations",
	}

	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewEnhanceCmd())
	rootCmd.AddCommand(commands.NewTodosCmd())
	rootCmd.AddCommand(commands.NewWebhookCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

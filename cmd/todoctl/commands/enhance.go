package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/benvon/todo-assistant/internal/config"
	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/services/ai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Enhancer turns free text into a suggestion
type Enhancer interface {
	Enhance(ctx context.Context, input string) models.Enhancement
}

// NewEnhanceCmd creates the enhance command
func NewEnhanceCmd() *cobra.Command {
	var (
		output   string
		fallback bool
		debug    bool
	)

	cmd := &cobra.Command{
		Use:   "enhance <text>",
		Short: "Turn free text into a todo suggestion",
		Long: "Run the same enhancement the chat assistant uses and print the structured result. " +
			"Without OPENAI_API_KEY, or with --fallback, the keyword table answers.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.NewDevelopmentLogger(debug)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync(log) }()

			var provider ai.Provider
			if !fallback {
				provider, err = providerFromEnv(log, debug)
				if err != nil {
					return err
				}
			}

			return runEnhance(cmd.Context(), cmd.OutOrStdout(), ai.NewEnhancer(provider, log), strings.Join(args, " "), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatYAML, "Output format (yaml or json)")
	cmd.Flags().BoolVar(&fallback, "fallback", false, "Skip the AI provider and use the keyword table")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log prompts and responses")

	return cmd
}

func runEnhance(ctx context.Context, w io.Writer, enhancer Enhancer, text, output string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("text is required")
	}
	return render(w, output, enhancer.Enhance(ctx, text))
}

// providerFromEnv builds the configured provider, or nil when no key is set
func providerFromEnv(log *zap.Logger, debug bool) (ai.Provider, error) {
	cfg, err := config.LoadWithoutDatabase()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.OpenAIKey == "" {
		log.Info("ai_provider_not_configured_using_fallback")
		return nil, nil
	}

	return ai.DefaultRegistry().GetProvider(cfg.AIProvider, ai.ProviderConfig{
		APIKey:    cfg.OpenAIKey,
		Model:     cfg.AIModel,
		BaseURL:   cfg.AIBaseURL,
		Logger:    log,
		DebugMode: debug,
	})
}

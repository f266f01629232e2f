package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ray/internal/adapters/driven/ai"
	"github.com/custodia-labs/ray/internal/core/domain"
)

var settingsEmbeddingBaseURL string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure language model and embedding providers.

API keys are read from the environment (or a .env file), never stored:
  GROQ_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm [provider] [model]",
	Short: "Configure the primary LLM provider",
	Long: `Sets the language model tried first. The local Ollama model is always
tried after it when the primary fails.

Without arguments, prompts for a provider and model.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runSettingsLLM,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding [provider] [model]",
	Short: "Configure the embedding provider",
	Long: `Sets the embedding model used to build the index. Changing it makes the
existing index incompatible; run 'ray reset' and ingest again.

Without arguments, prompts for a provider and model.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runSettingsEmbedding,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that configured providers are reachable",
	Args:  cobra.NoArgs,
	RunE:  runSettingsCheck,
}

// checkProviders builds the AI services for settings and pings them.
// Tests replace it to avoid network calls.
var checkProviders = func(ctx context.Context, settings *domain.Settings) ([]ai.Check, error) {
	services, err := ai.Build(settings)
	if err != nil {
		return nil, err
	}
	defer services.Close()
	return ai.Validate(ctx, services, settings), nil
}

func init() {
	settingsEmbeddingCmd.Flags().StringVar(&settingsEmbeddingBaseURL, "base-url", "", "embedding API endpoint (Ollama)")
	for _, c := range []*cobra.Command{settingsCmd, settingsShowCmd, settingsLLMCmd, settingsEmbeddingCmd, settingsCheckCmd} {
		needs(c, levelSettings)
	}
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[LLM]")
	for i, l := range settings.LLMChain() {
		role := "primary"
		if i > 0 {
			role = "fallback"
		}
		cmd.Printf("  %s: %s, %s\n", role, l.Provider.Description(), l.Model)
		if l.BaseURL != "" {
			cmd.Printf("    Base URL: %s\n", l.BaseURL)
		}
		printAPIKey(cmd, l.Provider, l.APIKey)
		printStatus(cmd, l.IsConfigured())
	}
	cmd.Printf("  Timeout: %s\n", settings.LLMTimeout)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	printAPIKey(cmd, settings.Embedding.Provider, settings.Embedding.APIKey)
	printStatus(cmd, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Index: %s\n", settings.IndexPath)
	cmd.Printf("  Conversations: %s\n", settings.StorePath)
	cmd.Println()

	cmd.Println("[Agent]")
	cmd.Printf("  Retrieval k: %d\n", settings.RetrievalK)
	cmd.Printf("  Memory window: %d exchanges\n", settings.MemoryWindow)
	cmd.Printf("  Max iterations: %d\n", settings.MaxIterations)

	return nil
}

func printAPIKey(cmd *cobra.Command, provider domain.AIProvider, key string) {
	if !provider.RequiresAPIKey() {
		return
	}
	if key != "" {
		cmd.Printf("    API Key: %s\n", maskAPIKey(key))
	} else {
		cmd.Printf("    API Key: (not set, export %s)\n", provider.APIKeyEnv())
	}
}

func printStatus(cmd *cobra.Command, configured bool) {
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("    Status: %s\n", status)
}

func runSettingsLLM(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider, model, err := selectProvider(cmd, args, "LLM", domain.AllLLMProviders(), domain.DefaultLLMModels())
	if err != nil {
		return err
	}

	if err := settingsService.SetLLMProvider(provider, model); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Printf("LLM provider configured: %s (%s)\n", provider.Description(), model)
	if provider.RequiresAPIKey() {
		cmd.Printf("Make sure %s is set in the environment.\n", provider.APIKeyEnv())
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	defaults := domain.DefaultEmbeddingModels()
	providers := []domain.AIProvider{domain.AIProviderOllama, domain.AIProviderOpenAI}
	provider, model, err := selectProvider(cmd, args, "Embedding", providers, defaults)
	if err != nil {
		return err
	}

	if err := settingsService.SetEmbedding(provider, model, settingsEmbeddingBaseURL); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	cmd.Println("Existing indexes built with another model must be reset and re-ingested.")
	return nil
}

// selectProvider takes provider and model from args, or prompts for them.
func selectProvider(
	cmd *cobra.Command,
	args []string,
	kind string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) (domain.AIProvider, string, error) {
	if len(args) > 0 {
		provider := domain.AIProvider(args[0])
		if _, ok := defaults[provider]; !ok {
			return "", "", fmt.Errorf("unknown %s provider %q", strings.ToLower(kind), args[0])
		}
		model := defaults[provider]
		if len(args) > 1 {
			model = args[1]
		}
		return provider, model, nil
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Printf("Select %s Provider\n", kind)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1]

	defaultModel := defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}
	return provider, model, nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	checks, err := checkProviders(cmd.Context(), settings)
	if err != nil {
		return err
	}

	failed := 0
	for _, c := range checks {
		if c.OK() {
			cmd.Printf("  ok    %-9s %s/%s\n", c.Component, c.Provider, c.Model)
			continue
		}
		failed++
		cmd.Printf("  FAIL  %-9s %s/%s: %v\n", c.Component, c.Provider, c.Model, c.Err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d providers unreachable", failed, len(checks))
	}
	cmd.Println("All providers reachable.")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and saves the result
// to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to edwin! Let's configure your document index.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. LLM provider for planning, enrichment and chat.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{string(ProviderOllama), string(ProviderOpenAI)},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	model, err := askWithDefault("LLM model", defaultModels[cfg.Provider])
	if err != nil {
		return nil, fmt.Errorf("model prompt: %w", err)
	}
	cfg.Model = model

	// 2. Embeddings.
	embeddingPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{
			"local  - in-process sentence-transformers model",
			"openai - OpenAI embeddings API",
			"ollama - embeddings served by Ollama",
		},
	}
	embIdx, _, err := embeddingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding provider selection: %w", err)
	}
	embProviders := []EmbeddingProviderType{EmbeddingLocal, EmbeddingOpenAI, EmbeddingOllama}
	cfg.EmbeddingProvider = embProviders[embIdx]
	preset := GetEmbeddingPreset(cfg.EmbeddingProvider)

	if cfg.EmbeddingModel, err = askWithDefault("Embedding model", preset.Model); err != nil {
		return nil, fmt.Errorf("embedding model prompt: %w", err)
	}
	if cfg.EmbeddingDimensions, err = askInt("Embedding dimensions", preset.Dimensions); err != nil {
		return nil, fmt.Errorf("embedding dimensions prompt: %w", err)
	}

	// 3. Vector store.
	storePrompt := promptui.Select{
		Label: "Select vector store",
		Items: []string{
			"qdrant  - Qdrant server over gRPC",
			"chromem - embedded store persisted to a local directory",
		},
	}
	storeIdx, _, err := storePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("store selection: %w", err)
	}
	if storeIdx == 0 {
		cfg.Store.Type = StoreQdrant
		if cfg.Store.Qdrant.Host, err = askWithDefault("Qdrant host", cfg.Store.Qdrant.Host); err != nil {
			return nil, fmt.Errorf("qdrant host prompt: %w", err)
		}
		if cfg.Store.Qdrant.Port, err = askInt("Qdrant gRPC port", cfg.Store.Qdrant.Port); err != nil {
			return nil, fmt.Errorf("qdrant port prompt: %w", err)
		}
	} else {
		cfg.Store.Type = StoreChromem
		if cfg.Store.Chromem.Dir, err = askWithDefault("Store directory", cfg.Store.Chromem.Dir); err != nil {
			return nil, fmt.Errorf("store dir prompt: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API key.
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment (or .env) before running edwin.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// askWithDefault displays a prompt pre-filled with def. Pressing Enter keeps it.
func askWithDefault(label, def string) (string, error) {
	p := promptui.Prompt{
		Label:     label,
		Default:   def,
		AllowEdit: true,
	}
	result, err := p.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result), nil
}

func askInt(label string, def int) (int, error) {
	p := promptui.Prompt{
		Label:     label,
		Default:   strconv.Itoa(def),
		AllowEdit: true,
		Validate:  validatePositiveInt,
	}
	result, err := p.Run()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(result))
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a whole number")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/ray/internal/adapters/driven/ai"
	"github.com/custodia-labs/ray/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ray/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ray/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ray/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/ray/internal/adapters/driven/watcher"
	"github.com/custodia-labs/ray/internal/adapters/driven/websearch/duckduckgo"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/core/services"
	"github.com/custodia-labs/ray/internal/logger"
	"github.com/custodia-labs/ray/internal/normalisers"
	"github.com/custodia-labs/ray/internal/postprocessors/chunker"
)

// promptDir is the directory under the data directory holding prompt overrides.
const promptDir = "prompts"

// resolveDataDir returns the --data-dir flag or ~/.ray.
func resolveDataDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".ray"), nil
}

// closers releases resources in reverse order of acquisition.
type closers []func()

func (c *closers) add(f func()) {
	*c = append(*c, f)
}

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// compose wires adapters into services for level.
func compose(ctx context.Context, level string) (func(), error) {
	dir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}

	var configStore driven.ConfigStore
	if ephemeral {
		configStore = memory.NewConfigStore(nil)
	} else {
		fileStore, err := file.NewConfigStore(dir)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		configStore = fileStore
	}
	settingsSvc := services.NewSettingsService(configStore, dir)
	settingsService = settingsSvc
	if level == levelSettings {
		return func() {}, nil
	}

	logger.Section("Startup")
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	var cleanup closers
	fail := func(err error) (func(), error) {
		cleanup.run()
		return nil, err
	}

	prompts, err := file.NewPromptStore(filepath.Join(dir, promptDir))
	if err != nil {
		return fail(fmt.Errorf("open prompts: %w", err))
	}

	aiServices, err := ai.Build(settings)
	if err != nil {
		return fail(err)
	}
	cleanup.add(aiServices.Close)

	// Index
	manager := services.NewIndexManager(flat.NewStore(settings.IndexPath), aiServices.Embedding)
	retrieval := services.NewRetrievalEngine(manager, settings.RetrievalK)
	if err := retrieval.Reload(ctx); err != nil {
		return fail(fmt.Errorf("load index: %w", err))
	}
	retrievalService = retrieval
	ingestService = services.NewIngestService(normalisers.NewDefaultRegistry(), chunker.New(), manager, retrieval)

	// Conversations
	var turns driven.TurnStore
	if ephemeral {
		turns = memory.NewTurnStore()
	} else {
		store, err := sqlite.NewStore(settings.StorePath)
		if err != nil {
			return fail(fmt.Errorf("open conversation store: %w", err))
		}
		cleanup.add(func() {
			if err := store.Close(); err != nil {
				logger.Warn("close conversation store: %v", err)
			}
		})
		turns = store
	}
	mem := services.NewConversationMemory(turns, settings.MemoryWindow)
	conversationService = mem

	// Agent
	models := make([]driven.ChatModel, len(aiServices.Models))
	for i, m := range aiServices.Models {
		models[i] = m
	}
	router := services.NewLLMRouter(settings.LLMTimeout, models...)
	logger.Debug("router chain: %v", router.Providers())
	agentService = services.NewAgentOrchestrator(
		services.NewIntentClassifier(router, prompts),
		router,
		mem,
		prompts,
		services.NewDocumentQA(retrieval, router, prompts, settings.RetrievalK),
		duckduckgo.New(duckduckgo.Config{}),
		settings.MaxIterations,
	)

	if level == levelWatch {
		w := watcher.New(settings.IndexPath, flat.VectorsFile, retrieval)
		if err := w.Start(ctx); err != nil {
			logger.Warn("index watcher disabled: %v", err)
		} else {
			cleanup.add(func() {
				if err := w.Close(); err != nil {
					logger.Warn("close index watcher: %v", err)
				}
			})
		}
	}

	return cleanup.run, nil
}

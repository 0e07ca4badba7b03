package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/lectern/internal/adapters/driven/ai"
	"github.com/custodia-labs/lectern/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lectern/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lectern/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lectern/internal/adapters/driving/cli"
	"github.com/custodia-labs/lectern/internal/connectors/filesystem"
	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
	"github.com/custodia-labs/lectern/internal/core/services"
	"github.com/custodia-labs/lectern/internal/logger"
	"github.com/custodia-labs/lectern/internal/normalisers"
	"github.com/custodia-labs/lectern/internal/normalisers/course"
	"github.com/custodia-labs/lectern/internal/postprocessors/chunker"
)

// bootstrap wires every service for one command invocation. When the
// settings are invalid it returns the settings service alone so the user can
// fix them.
func bootstrap(_ context.Context, opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, os.Getenv).WithValidator(ai.Validator{})

	settings, err := settingsService.Get()
	if err != nil {
		return &cli.Services{Settings: settingsService}, err
	}
	logger.Debug("config: %s", settingsService.Path())

	catalog, content, closeStore, err := openCollections(opts, settings.Storage)
	if err != nil {
		return &cli.Services{Settings: settingsService}, err
	}

	svc, err := wireServices(opts, settings, catalog, content)
	if err != nil {
		_ = closeStore()
		return &cli.Services{Settings: settingsService}, err
	}
	svc.Settings = settingsService
	svc.Close = closeStore
	return svc, nil
}

// openCollections opens the catalog and content collections, in memory for
// --ephemeral and in SQLite otherwise.
func openCollections(
	opts cli.Options,
	storage domain.StorageSettings,
) (catalog, content driven.VectorCollection, closeFn func() error, err error) {
	if opts.Ephemeral {
		logger.Debug("storage: in-memory")
		return memory.NewVectorCollection(driven.CollectionCatalog),
			memory.NewVectorCollection(driven.CollectionContent),
			func() error { return nil }, nil
	}

	dataDir := storage.DataDir
	if dataDir == "" && opts.ConfigDir != "" {
		dataDir = filepath.Join(opts.ConfigDir, "data")
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening index: %w", err)
	}
	logger.Debug("storage: %s", store.Path())

	catalog, err = store.Collection(driven.CollectionCatalog)
	if err == nil {
		content, err = store.Collection(driven.CollectionContent)
	}
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}
	return catalog, content, store.Close, nil
}

func wireServices(
	opts cli.Options,
	settings domain.Settings,
	catalog, content driven.VectorCollection,
) (*cli.Services, error) {
	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	index, err := services.NewCourseIndex(embedder, catalog, content, settings.Retrieval)
	if err != nil {
		return nil, err
	}

	chunks, err := chunker.New(
		chunker.WithChunkSize(settings.Chunking.Size),
		chunker.WithOverlap(settings.Chunking.Overlap),
	)
	if err != nil {
		return nil, err
	}

	docsDir := settings.Documents.Dir
	if opts.DocsDir != "" {
		docsDir = opts.DocsDir
	}
	source := filesystem.New(docsDir, normalisers.DefaultRegistry(), filesystem.WithRecursive(true))
	ingest := services.NewIngestService(course.New(), chunks, index, source)

	generator, err := newGenerator(opts, settings, index)
	if err != nil {
		return nil, err
	}
	query := services.NewQueryService(generator, index, memory.NewSessionStore(settings.Conversation.MaxHistory))

	return &cli.Services{
		Ingest:  ingest,
		Ask:     query,
		Catalog: query,
	}, nil
}

// newGenerator builds the generation loop. Without an LLM provider it returns
// nil and questions fail with ErrLLMUnavailable while search keeps working.
func newGenerator(opts cli.Options, settings domain.Settings, index *services.CourseIndex) (*services.Generator, error) {
	llm, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if llm == nil {
		logger.Debug("llm: not configured")
		return nil, nil
	}

	search, err := services.NewSearchTool(index, settings.Retrieval.MaxResults)
	if err != nil {
		return nil, err
	}
	tools := services.NewToolManager()
	if err := errors.Join(tools.Register(search), tools.Register(services.NewOutlineTool(index))); err != nil {
		return nil, err
	}
	if err := registerExpert(tools, settings); err != nil {
		return nil, err
	}

	promptDir := ""
	if opts.ConfigDir != "" {
		promptDir = filepath.Join(opts.ConfigDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, err
	}

	return services.NewGenerator(llm, tools, prompts, services.GeneratorConfig{
		MaxToolRounds: settings.Conversation.MaxToolRounds,
		MaxTokens:     settings.LLM.MaxTokens,
		Temperature:   settings.LLM.Temperature,
	})
}

// registerExpert adds the external expert tool when expert.url is set.
// The expert shares the LLM client credentials.
func registerExpert(tools *services.ToolManager, settings domain.Settings) error {
	svc, err := ai.CreateExpertService(&settings.Expert, settings.LLM.Auth)
	if err != nil || svc == nil {
		return err
	}
	tool, err := services.NewExpertTool(svc, settings.Expert.Name, settings.Expert.Description)
	if err != nil {
		return err
	}
	logger.Debug("expert: %s registered as %s", settings.Expert.URL, settings.Expert.Name)
	return tools.Register(tool)
}

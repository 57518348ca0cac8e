package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"propchat/internal/config"
	"propchat/internal/repository"
	"propchat/internal/service"
)

const memorySearchLogSize = 1000

// App holds the wired search pipeline shared by the server and the CLI
type App struct {
	Config *config.Config
	Search *service.SearchService

	closers []func() error
}

// New builds the LLM client, catalog loader, bookmark store and search service
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	bookmarks, searchLog, err := a.openStores(ctx, &cfg.Bookmarks)
	if err != nil {
		a.Close()
		return nil, err
	}

	catalog, err := service.NewCatalogLoader(&cfg.Data)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to prepare catalog loader: %w", err)
	}

	aiClient := service.NewOpenAIClient(&cfg.LLM)
	if cfg.LLM.Enabled {
		log.Info().
			Str("api_base", cfg.LLM.APIBase).
			Str("chat_model", cfg.LLM.ChatModel).
			Str("embedding_model", cfg.LLM.EmbeddingModel).
			Float64("intent_temperature", cfg.LLM.IntentTemperature).
			Float64("reply_temperature", cfg.LLM.ReplyTemperature).
			Int("max_concurrency", cfg.LLM.MaxConcurrency).
			Msg("language model client initialized")
	} else {
		log.Warn().Msg("language model disabled: set GROQ_API_KEY to enable intent extraction and replies")
	}

	a.Search = service.NewSearchService(
		catalog,
		service.NewIntentExtractor(aiClient, &cfg.LLM),
		service.NewResponseComposer(aiClient, &cfg.LLM),
		bookmarks,
		searchLog,
		aiClient,
	)
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.BookmarkConfig) (repository.BookmarkStore, repository.SearchLogger, error) {
	switch cfg.Backend {
	case "postgres":
		repo, err := repository.NewPostgresRepository(a.Config.GetPostgreSQLDSN(), cfg.MaxConnections, cfg.MaxIdleConnections)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, repo.Close)
		if err := repo.InitSchema(ctx); err != nil {
			return nil, nil, err
		}
		log.Info().Msg("bookmarks stored in PostgreSQL")
		return repo, repo, nil

	case "redis":
		store := repository.NewRedisBookmarkStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		a.closers = append(a.closers, store.Close)
		if err := store.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("bookmarks stored in Redis")
		return store, repository.NewMemorySearchLog(memorySearchLogSize), nil

	default:
		log.Info().Msg("bookmarks stored in memory")
		return repository.NewMemoryBookmarkStore(), repository.NewMemorySearchLog(memorySearchLogSize), nil
	}
}

// Close waits for background work and releases store connections
func (a *App) Close() error {
	if a.Search != nil {
		a.Search.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

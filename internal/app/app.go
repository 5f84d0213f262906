// ABOUTME: Builds the full agenda object graph from a Config
// ABOUTME: Shared by the CLI commands and the MCP server entry points
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/harper/agenda/internal/charm"
	"github.com/harper/agenda/internal/config"
	"github.com/harper/agenda/internal/core"
	"github.com/harper/agenda/internal/datetime"
	"github.com/harper/agenda/internal/index"
	"github.com/harper/agenda/internal/llm"
	"github.com/harper/agenda/internal/models"
	"github.com/harper/agenda/internal/storage/sqlite"
)

// App holds every long-lived component
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sqlite.DB
	Items     *sqlite.ItemStore
	Reconcile *sqlite.ReconcileStore
	Index     *index.Index
	Pipeline  *core.Pipeline
	Responder *core.Responder
	Reindexer *core.Reindexer

	closers []func() error
}

type options struct {
	completer core.Completer
	embedder  index.Embedder
	kv        index.KV
	resolver  *datetime.Resolver
}

// Option overrides a collaborator New would otherwise build from config
type Option func(*options)

// WithCompleter replaces the language model client
func WithCompleter(c core.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithEmbedder replaces the embedding client
func WithEmbedder(e index.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithKV replaces the charm KV store used by the charm backend
func WithKV(kv index.KV) Option {
	return func(o *options) { o.kv = kv }
}

// WithResolver replaces the date resolver
func WithResolver(r *datetime.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// New opens the stores and wires the pipeline. Close releases everything.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	resolver := o.resolver
	if resolver == nil {
		resolver = datetime.NewResolver()
	}
	a.Items = sqlite.NewItemStore(db, resolver, logger.Named("store"))
	a.Reconcile = sqlite.NewReconcileStore(db)

	chat, intent, embedder, err := buildModels(ctx, cfg, logger, o)
	if err != nil {
		return nil, err
	}

	backend, err := a.buildBackend(cfg, o)
	if err != nil {
		return nil, err
	}

	pk, err := a.Items.PrimaryKey(ctx, models.KindItem)
	if err != nil {
		return nil, fmt.Errorf("inspect item key: %w", err)
	}
	if len(pk) != 1 {
		return nil, fmt.Errorf("item table must have a single-column key, got %v", pk)
	}

	a.Index = index.New(backend, embedder, index.Options{
		K:           cfg.SemanticSearchK,
		Threshold:   cfg.RelevanceThreshold,
		IDKey:       pk[0],
		Concurrency: cfg.ReindexConcurrency,
		Logger:      logger.Named("index"),
	})

	classifier := core.NewClassifier(intent, core.ClassifierConfig{
		TaskTypes:      cfg.TaskTypes,
		OperationTypes: cfg.OperationTypes,
		Policy:         core.Policy{Threshold: cfg.ValidThreshold, MaxAttempts: cfg.MaxAttempts},
	}, logger.Named("classifier"))
	extractor := core.NewExtractor(intent, logger.Named("extractor"))

	a.Pipeline = core.NewPipeline(classifier, extractor, a.Items, a.Index, a.Reconcile, logger.Named("pipeline"))
	a.Responder = core.NewResponder(chat, logger.Named("responder"))
	a.Reindexer = core.NewReindexer(a.Items, a.Index, a.Reconcile, logger.Named("reindex"))
	return a, nil
}

func buildModels(ctx context.Context, cfg *config.Config, logger *zap.Logger, o options) (chat, intent core.Completer, embedder index.Embedder, err error) {
	var client *llm.OpenAIClient
	needClient := o.completer == nil || (o.embedder == nil && cfg.EmbeddingProvider == config.ProviderOpenAI)
	if needClient {
		client, err = llm.NewOpenAIClient(&llm.ClientConfig{
			APIKey:         cfg.OpenAIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbeddingModel,
			Temperature:    0.3,
			Timeout:        cfg.Timeout,
			MaxRetries:     cfg.MaxRetries,
			RetryDelay:     cfg.RetryDelay,
		}, logger.Named("llm"))
		if err != nil {
			return nil, nil, nil, err
		}
	}

	if o.completer != nil {
		chat, intent = o.completer, o.completer
	} else {
		chat, intent = client, client.WithChatModel(cfg.IntentModel)
	}

	switch {
	case o.embedder != nil:
		embedder = o.embedder
	case cfg.EmbeddingProvider == config.ProviderGenAI:
		embedder, err = llm.NewGenAIEmbedder(ctx, cfg.GenAIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, nil, err
		}
	default:
		embedder = client
	}
	return chat, intent, embedder, nil
}

func (a *App) buildBackend(cfg *config.Config, o options) (index.Backend, error) {
	switch cfg.IndexBackend {
	case config.BackendFlat:
		return index.NewFlatBackend(cfg.IndexPath)
	case config.BackendCharm:
		kv := o.kv
		if kv == nil {
			client, err := charm.NewClient(&charm.Config{
				Host:     cfg.CharmHost,
				DBName:   cfg.CharmDB,
				AutoSync: cfg.CharmAutoSync,
			})
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, client.Close)
			kv = client
		}
		return index.NewCharmBackend(kv), nil
	default:
		return sqlite.NewDocumentStore(a.DB), nil
	}
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/tendant/simple-content/pkg/simplecontent/presets"
	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/dbosruntime"
	"github.com/docmakerhq/docmaker/internal/dedupe"
	"github.com/docmakerhq/docmaker/internal/docstore"
	"github.com/docmakerhq/docmaker/internal/extract"
	"github.com/docmakerhq/docmaker/internal/imagegen"
	"github.com/docmakerhq/docmaker/internal/influencers"
	"github.com/docmakerhq/docmaker/internal/llm"
	"github.com/docmakerhq/docmaker/internal/research"
	"github.com/docmakerhq/docmaker/internal/scrapeapi"
	"github.com/docmakerhq/docmaker/internal/slides"
	"github.com/docmakerhq/docmaker/internal/storage"
	"github.com/docmakerhq/docmaker/internal/workflows"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// app holds everything a command needs after wiring.
type app struct {
	db       *sql.DB
	store    *docstore.Store
	uploader storage.Uploader
	reader   storage.Reader
	writer   storage.Writer
	dedupe   *dedupe.Tracker
	runtime  *dbosruntime.Runtime // nil without DBOS
	runner   *workflows.Runner
	library  *slides.Library

	cleanups []func()
}

// buildApp wires the full pipeline. withDBOS controls whether the
// durable runtime is initialized; without it jobs run in-process.
func buildApp(ctx context.Context, withDBOS bool) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	a.cleanups = append(a.cleanups, func() { db.Close() })

	store, err := docstore.NewStore(db, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = store

	tracker, err := dedupe.NewTracker(db, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.dedupe = tracker

	if err := a.initStorage(); err != nil {
		a.close()
		return nil, err
	}

	if withDBOS && cfg.DBOS.DatabaseURL != "" {
		runtime, err := dbosruntime.NewRuntime(ctx, dbosruntime.Config{
			DatabaseURL: cfg.DBOS.DatabaseURL,
			AppName:     "docmaker",
			QueueName:   cfg.DBOS.QueueName,
			Concurrency: cfg.DBOS.Concurrency,
		}, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize DBOS: %w", err)
		}
		a.runtime = runtime
	}

	if err := a.initPipeline(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// initStorage selects the remote simple-content API or the embedded
// development preset.
func (a *app) initStorage() error {
	if cfg.Storage.ContentAPIURL != "" {
		logger.Info("using simple-content HTTP API",
			zap.String("url", cfg.Storage.ContentAPIURL))
		contentStore := storage.NewHTTPContentStore(cfg.Storage.ContentAPIURL)
		a.uploader = contentStore
		a.reader = contentStore
		a.writer = storage.NewHTTPDerivedWriter(cfg.Storage.ContentAPIURL)
		return nil
	}

	logger.Info("using embedded simple-content service",
		zap.String("dir", cfg.Storage.Dir))
	svc, cleanup, err := presets.NewDevelopment(
		presets.WithDevStorage(cfg.Storage.Dir),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize content service: %w", err)
	}
	a.cleanups = append(a.cleanups, cleanup)

	contentStore := storage.NewContentStore(svc)
	a.uploader = contentStore
	a.reader = contentStore
	a.writer = storage.NewDerivedWriter(svc)
	return nil
}

// initPipeline builds the provider clients, stage components, and the
// workflow runner with every job registered.
func (a *app) initPipeline(ctx context.Context) error {
	openai := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:      cfg.LLM.OpenAIKey,
		BaseURL:     cfg.LLM.OpenAIBaseURL,
		Model:       cfg.LLM.OpenAIModel,
		ImageModel:  cfg.LLM.ImageModel,
		Timeout:     cfg.LLM.RequestTimeout,
		MinInterval: cfg.LLM.MinInterval,
		MaxRetries:  cfg.LLM.MaxRetries,
	}, logger)

	// Slides go to Gemini when configured, otherwise share the OpenAI
	// client.
	var slidesClient llm.Client = openai
	if cfg.LLM.GeminiKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey: cfg.LLM.GeminiKey,
			Model:  cfg.LLM.GeminiModel,
		}, logger)
		if err != nil {
			return err
		}
		a.cleanups = append(a.cleanups, gemini.Close)
		slidesClient = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, slides will use the OpenAI client")
	}

	scraper := scrapeapi.NewClient(scrapeapi.Config{
		BaseURL: cfg.Scraper.BaseURL,
		APIKey:  cfg.Scraper.APIKey,
	}, logger)

	library, err := slides.NewLibrary(cfg.Slides.TemplateDir, logger)
	if err != nil {
		return err
	}
	if cfg.Slides.Watch && cfg.Slides.TemplateDir != "" {
		if err := library.Watch(); err != nil {
			logger.Warn("template watch disabled", zap.Error(err))
		}
	}
	a.library = library
	a.cleanups = append(a.cleanups, func() { library.Close() })

	runner := workflows.NewRunner(a.store, a.runtime, logger)
	runner.Register(docmaker.JobParse, workflows.NewParseWorkflow(a.store, a.reader, a.writer, logger))
	runner.Register(docmaker.JobExtract, workflows.NewExtractWorkflow(a.store, a.reader, extract.NewExtractor(openai, logger), logger))
	runner.Register(docmaker.JobResearch, workflows.NewResearchWorkflow(a.store, research.NewResearcher(openai, scraper, logger), logger))
	runner.Register(docmaker.JobInfluencers, workflows.NewInfluencersWorkflow(a.store, influencers.NewFinder(scraper, logger), logger))
	runner.Register(docmaker.JobImages, workflows.NewImagesWorkflow(a.store, imagegen.NewGenerator(openai, a.writer, logger), logger))
	runner.Register(docmaker.JobSlides, workflows.NewSlidesWorkflow(a.store, slides.NewGenerator(slidesClient, library, cfg.Slides.BatchSize, logger), logger))
	runner.Register(docmaker.JobGenerate, workflows.NewGenerateWorkflow(runner, a.store, logger))
	a.runner = runner
	return nil
}

// close runs cleanups in reverse order.
func (a *app) close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
}

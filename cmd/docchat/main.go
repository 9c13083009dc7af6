package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/viraj200524/Document-Website-Chat/internal/chunkstore"
	"github.com/viraj200524/Document-Website-Chat/internal/chunkstore/memory"
	"github.com/viraj200524/Document-Website-Chat/internal/chunkstore/sqlite"
	"github.com/viraj200524/Document-Website-Chat/internal/config"
	"github.com/viraj200524/Document-Website-Chat/internal/embedding"
	"github.com/viraj200524/Document-Website-Chat/internal/embedding/openai"
	"github.com/viraj200524/Document-Website-Chat/internal/embedding/tfidf"
	"github.com/viraj200524/Document-Website-Chat/internal/index"
	"github.com/viraj200524/Document-Website-Chat/internal/ingest"
	"github.com/viraj200524/Document-Website-Chat/internal/loader"
	applog "github.com/viraj200524/Document-Website-Chat/internal/log"
	"github.com/viraj200524/Document-Website-Chat/internal/retrieval"
	"github.com/viraj200524/Document-Website-Chat/internal/service"
	"github.com/viraj200524/Document-Website-Chat/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config.yaml (default: ./config.yaml, then ~/.config/docchat/config.yaml)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := applog.New(applog.Config{Level: parseLevel(cfg.Log.Level), JSON: cfg.Log.JSON})

	embedder, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return err
	}
	mgr := index.NewManager(embedder, logger)

	store, err := buildStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// a persistent store may carry chunks from a previous run
	if persisted := store.All(); len(persisted) > 0 {
		if err := mgr.Restore(context.Background(), persisted, store.SnapshotVersion()); err != nil {
			return fmt.Errorf("restore index: %w", err)
		}
		logger.Info("index restored", "chunks", len(persisted), "snapshot", store.SnapshotVersion())
	}

	splitter := loader.NewSplitter(cfg.Loader.ChunkSize, cfg.Loader.ChunkOverlap)
	registry := loader.NewRegistry(
		loader.NewText(splitter),
		loader.NewPDF(splitter),
		loader.NewWeb(loader.WebConfig{
			Timeout:      time.Duration(cfg.Loader.FetchTimeoutSecs) * time.Second,
			MaxRedirects: cfg.Loader.MaxRedirects,
			UserAgent:    cfg.Loader.UserAgent,
		}, splitter, logger),
	)

	coord := ingest.NewCoordinator(registry, store, mgr, logger)
	defer coord.Close()
	engine := retrieval.NewEngine(mgr, store, logger)
	svc := service.New(coord, engine, store, cfg.Retrieval.TopK)

	// sources given on the command line are ingested before the UI starts
	if args := flag.Args(); len(args) > 0 {
		g, ctx := errgroup.WithContext(context.Background())
		for _, ref := range args {
			g.Go(func() error {
				handle, err := svc.Add(ctx, ref)
				if err != nil {
					return fmt.Errorf("add %s: %w", ref, err)
				}
				status, err := svc.Await(ctx, handle)
				if err != nil {
					return err
				}
				if status.Error != "" {
					logger.Warn("source failed", "origin", ref, "error", status.Error)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	p := tea.NewProgram(tui.New(svc), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func buildEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "", "tfidf":
		return tfidf.New(), nil
	case "openai":
		oc := cfg.OpenAI
		if oc == nil {
			oc = &config.OpenAIEmbedderConfig{}
		}
		return openai.NewClient(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}

func buildStore(cfg config.StoreConfig, logger *slog.Logger) (chunkstore.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.NewStore(), nil
	case "sqlite":
		return sqlite.Open(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

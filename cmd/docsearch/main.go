package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docsearch/internal/config"
	"docsearch/internal/domain"
	"docsearch/internal/embedding/openai"
	"docsearch/internal/embedding/tfidf"
	"docsearch/internal/extract"
	"docsearch/internal/logging"
	"docsearch/internal/server"
	"docsearch/internal/service"
	"docsearch/internal/tool"
	"docsearch/internal/tui"
	"docsearch/internal/vectorstore/memory"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	var (
		cfgPath string
		query   string
		serve   bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docsearch/config.yaml if not provided)")
	flag.StringVar(&query, "query", "", "Run a single search, print the result and exit")
	flag.BoolVar(&serve, "serve", false, "Serve the document_search tool over JSON-RPC instead of starting the TUI")
	flag.Parse()
	if flag.NArg() != 1 || (serve && query != "") {
		fmt.Fprintln(os.Stderr, "Usage: docsearch [-config=config.yaml] [-query \"...\" | -serve] document")
		os.Exit(2)
	}

	if err := run(cfgPath, flag.Arg(0), query, serve); err != nil {
		slog.Error("docsearch failed", "error", err)
		os.Exit(1)
	}
}

func run(cfgPath, docPath, query string, serve bool) error {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Configure(os.Stderr, cfg.Log.Level)

	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return err
	}
	svc := service.New(extract.New(logger), emb, memory.NewIndex(), service.Options{
		TopK:      cfg.Retrieval.TopK,
		Separator: cfg.Retrieval.Separator,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := svc.Build(ctx, service.BuildRequest{Path: docPath, Chunking: cfg.Chunker.Splitter()})
	if err != nil {
		return fmt.Errorf("index %s: %w", docPath, err)
	}

	switch {
	case query != "":
		out, err := svc.Search(ctx, query)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		fmt.Println(out)
		return nil
	case serve:
		return serveTools(ctx, cfg.Server.Addr, svc, logger)
	default:
		banner := fmt.Sprintf("%s: %d chunks, %s embeddings (dim %d)", report.Source, report.Chunks, emb.Name(), report.Dimension)
		_, err := tea.NewProgram(tui.New(svc, banner, cfg.Retrieval.TopK), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}
}

func newEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		oc := cfg.OpenAI
		if oc == nil {
			return nil, errors.New("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:     oc.BaseURL,
			APIKeyEnv:   oc.APIKeyEnv,
			Model:       oc.Model,
			Timeout:     time.Duration(oc.TimeoutSecs) * time.Second,
			BatchSize:   oc.BatchSize,
			Concurrency: oc.Concurrency,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func serveTools(ctx context.Context, addr string, svc tool.Searcher, logger *slog.Logger) error {
	srv := server.New("docsearch", version, logger, tool.NewDocumentSearchTool(svc))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down tool server")
	return srv.Shutdown(shutdownCtx)
}

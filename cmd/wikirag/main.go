package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wikirag/internal/config"
	"wikirag/internal/embedding"
	"wikirag/internal/generator"
	"wikirag/internal/indexer"
	"wikirag/internal/prompt"
	"wikirag/internal/retriever"
	"wikirag/internal/service"
	"wikirag/internal/store"
	"wikirag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath string
		docsDir string
		ask     string
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/wikirag/config.yaml if not provided)")
	flag.StringVar(&docsDir, "docs", "", "Directory with documents to index (defaults to wiki.articles_dir)")
	flag.StringVar(&ask, "ask", "", "Answer a single question and exit instead of starting the TUI")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if docsDir == "" {
		docsDir = cfg.Wiki.ArticlesDir
	}

	emb, err := embedding.NewClient(embedding.Config{
		BaseURL:     cfg.Embedder.BaseURL,
		APIKeyEnv:   cfg.Embedder.APIKeyEnv,
		Model:       cfg.Embedder.Model,
		Timeout:     time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		Concurrency: cfg.Embedder.Concurrency,
	}, logger)
	if err != nil {
		logger.Fatal("embedder init failed", zap.Error(err))
	}

	gen, err := generator.NewHuggingFace(generator.Config{
		BaseURL:      cfg.Generator.BaseURL,
		APIKeyEnv:    cfg.Generator.APIKeyEnv,
		Model:        cfg.Generator.Model,
		Timeout:      time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
		MaxNewTokens: cfg.Generator.MaxNewTokens,
		Temperature:  cfg.Generator.Temperature,
	}, logger)
	if err != nil {
		logger.Fatal("generator init failed", zap.Error(err))
	}

	prompts, err := prompt.NewBuilder(cfg.Prompt.Template)
	if err != nil {
		logger.Fatal("prompt template invalid", zap.Error(err))
	}

	ctx := context.Background()
	st := store.NewMemory(logger)
	ix := indexer.New(emb, logger)

	paths, err := ix.FromDirectory(docsDir, cfg.Indexer.Pattern, cfg.Indexer.Recursive)
	if err != nil {
		logger.Fatal("scanning documents directory failed", zap.Error(err))
	}
	if len(paths) == 0 {
		logger.Fatal("no documents to index", zap.String("dir", docsDir), zap.String("pattern", cfg.Indexer.Pattern))
	}
	if err := ix.Index(ctx, st, paths, cfg.Indexer.BatchSize); err != nil {
		logger.Fatal("indexing failed", zap.Error(err))
	}

	ret := retriever.New(st, cfg.Retriever.TopK, logger)
	svc := service.New(emb, ret, gen, prompts, logger)

	if ask != "" {
		ans, err := svc.Answer(ctx, ask, 0)
		if err != nil {
			logger.Fatal("answering failed", zap.Error(err))
		}
		fmt.Println(ans.Text)
		return
	}

	corpus := fmt.Sprintf("%d documents from %s", st.Count(), docsDir)
	m := tui.New(svc, corpus)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		logger.Fatal("tui failed", zap.Error(err))
	}
}

func newLogger(mode string) (*zap.Logger, error) {
	switch mode {
	case "development":
		return zap.NewDevelopment()
	case "production", "":
		return zap.NewProduction()
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}
}

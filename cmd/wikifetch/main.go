package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wikirag/internal/config"
	"wikirag/internal/wiki"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath  string
		category string
		outDir   string
		depth    int
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.StringVar(&category, "category", "", "Wikipedia category to download (overrides config)")
	flag.StringVar(&outDir, "out", "", "Directory to save article files (overrides config)")
	flag.IntVar(&depth, "depth", -1, "Maximum subcategory depth (overrides config)")
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

	if category == "" {
		category = cfg.Wiki.Category
	}
	if outDir == "" {
		outDir = cfg.Wiki.ArticlesDir
	}
	if depth < 0 {
		depth = cfg.Wiki.MaxDepth
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client := wiki.NewClient(wiki.ClientConfig{
		Language:  cfg.Wiki.Language,
		UserAgent: cfg.Wiki.UserAgent,
		Timeout:   30 * time.Second,
	}, logger)
	dl := wiki.NewDownloader(client, outDir, depth, logger)

	logger.Info("downloading category",
		zap.String("category", category), zap.Int("max_depth", depth), zap.String("out", outDir))
	saved, err := dl.Download(context.Background(), category)
	if err != nil {
		logger.Fatal("download failed", zap.Error(err))
	}
	logger.Info("download finished", zap.Int("articles", saved))
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

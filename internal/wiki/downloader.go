// Package wiki downloads Wikipedia category articles into a local corpus
// for indexing.
package wiki

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Downloader recursively collects the articles of a Wikipedia category up
// to a configured depth and saves them one file per article.
type Downloader struct {
	client         *Client
	articlesDir    string
	maxDepth       int
	seenPages      map[string]struct{}
	seenCategories map[string]struct{}
	logger         *zap.Logger
}

// NewDownloader creates a downloader writing article files into articlesDir.
func NewDownloader(client *Client, articlesDir string, maxDepth int, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		client:         client,
		articlesDir:    articlesDir,
		maxDepth:       maxDepth,
		seenPages:      make(map[string]struct{}),
		seenCategories: make(map[string]struct{}),
		logger:         logger,
	}
}

// Download fetches and saves every article reachable from the category
// within maxDepth levels of subcategories, skipping pages and categories
// already seen. Individual page failures are logged and skipped; the
// return value is the number of articles saved.
func (d *Downloader) Download(ctx context.Context, category string) (int, error) {
	if err := os.MkdirAll(d.articlesDir, 0o755); err != nil {
		return 0, err
	}

	titles, err := d.collect(ctx, category, 0)
	if err != nil {
		return 0, err
	}
	d.logger.Info("category traversal finished",
		zap.String("category", category), zap.Int("articles", len(titles)))

	saved := 0
	for _, title := range titles {
		page, err := d.client.FetchPage(ctx, title)
		if err != nil {
			if ctx.Err() != nil {
				return saved, ctx.Err()
			}
			d.logger.Warn("skipping article", zap.String("title", title), zap.Error(err))
			continue
		}
		if err := d.saveArticle(page); err != nil {
			d.logger.Warn("saving article failed", zap.String("title", title), zap.Error(err))
			continue
		}
		saved++
	}
	d.logger.Info("articles saved", zap.Int("saved", saved), zap.String("dir", d.articlesDir))
	return saved, nil
}

func (d *Downloader) collect(ctx context.Context, category string, level int) ([]string, error) {
	if level > d.maxDepth {
		return nil, nil
	}
	if _, ok := d.seenCategories[category]; ok {
		return nil, nil
	}
	d.seenCategories[category] = struct{}{}
	d.logger.Debug("processing category", zap.String("category", category), zap.Int("level", level))

	members, err := d.client.CategoryMembers(ctx, category)
	if err != nil {
		return nil, err
	}
	if level == 0 && len(members) == 0 {
		return nil, fmt.Errorf("category %q has no members or does not exist", category)
	}

	var titles []string
	for _, m := range members {
		if m.IsCategory() {
			sub, err := d.collect(ctx, strings.TrimPrefix(m.Title, "Category:"), level+1)
			if err != nil {
				return nil, err
			}
			titles = append(titles, sub...)
			continue
		}
		if _, ok := d.seenPages[m.Title]; ok {
			continue
		}
		d.seenPages[m.Title] = struct{}{}
		titles = append(titles, m.Title)
	}
	return titles, nil
}

func (d *Downloader) saveArticle(page Page) error {
	path := filepath.Join(d.articlesDir, SafeFilename(page.Title)+".txt")
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", page.Title)
	fmt.Fprintf(&sb, "URL: %s\n\n", page.URL)
	sb.WriteString("=== Summary ===\n")
	sb.WriteString(page.Summary)
	sb.WriteString("\n\n=== Full Text ===\n")
	sb.WriteString(page.Text)
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

var (
	unsafeRe    = regexp.MustCompile(`[^\w\s-]`)
	separatorRe = regexp.MustCompile(`[-\s]+`)
)

// SafeFilename turns an article title into a filesystem-safe name: unsafe
// characters removed, runs of spaces and dashes collapsed to underscores.
func SafeFilename(title string) string {
	name := unsafeRe.ReplaceAllString(title, "")
	name = separatorRe.ReplaceAllString(name, "_")
	return strings.Trim(name, "-_")
}

// leadSection returns the text before the first section heading, which is
// the article's summary in a plain-text extract.
func leadSection(extract string) string {
	if i := strings.Index(extract, "\n=="); i >= 0 {
		return strings.TrimSpace(extract[:i])
	}
	return strings.TrimSpace(extract)
}

package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const categoryNamespace = 14

// Member is one entry of a category listing.
type Member struct {
	PageID int64  `json:"pageid"`
	NS     int    `json:"ns"`
	Title  string `json:"title"`
}

// IsCategory reports whether the member is a subcategory page.
func (m Member) IsCategory() bool { return m.NS == categoryNamespace }

// Page is a fetched article: title, canonical URL, lead-section summary
// and full plain-text body.
type Page struct {
	Title   string
	URL     string
	Summary string
	Text    string
}

// ClientConfig configures the MediaWiki API client.
type ClientConfig struct {
	// BaseURL overrides the wikipedia endpoint, for tests.
	BaseURL   string
	Language  string
	UserAgent string
	Timeout   time.Duration
}

// Client talks to the MediaWiki action API.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

// NewClient creates a MediaWiki API client for the configured language.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", cfg.Language)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

// CategoryMembers lists every member of the category, following API
// continuation until the listing is exhausted. The category name is given
// without the "Category:" prefix.
func (c *Client) CategoryMembers(ctx context.Context, category string) ([]Member, error) {
	var members []Member
	cont := ""
	for {
		params := url.Values{
			"action":  {"query"},
			"format":  {"json"},
			"list":    {"categorymembers"},
			"cmtitle": {"Category:" + category},
			"cmlimit": {"500"},
		}
		if cont != "" {
			params.Set("cmcontinue", cont)
		}

		var out struct {
			Query struct {
				CategoryMembers []Member `json:"categorymembers"`
			} `json:"query"`
			Continue struct {
				CMContinue string `json:"cmcontinue"`
			} `json:"continue"`
		}
		if err := c.get(ctx, params, &out); err != nil {
			return nil, fmt.Errorf("list category %q: %w", category, err)
		}
		members = append(members, out.Query.CategoryMembers...)
		if out.Continue.CMContinue == "" {
			return members, nil
		}
		cont = out.Continue.CMContinue
	}
}

// FetchPage retrieves the plain-text extract and canonical URL of a page.
func (c *Client) FetchPage(ctx context.Context, title string) (Page, error) {
	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"titles":      {title},
		"prop":        {"extracts|info"},
		"explaintext": {"1"},
		"inprop":      {"url"},
		"redirects":   {"1"},
	}

	var out struct {
		Query struct {
			Pages map[string]struct {
				Title   string    `json:"title"`
				Missing *struct{} `json:"missing,omitempty"`
				FullURL string    `json:"fullurl"`
				Extract string    `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &out); err != nil {
		return Page{}, fmt.Errorf("fetch page %q: %w", title, err)
	}
	for id, p := range out.Query.Pages {
		if id == "-1" || p.Missing != nil {
			return Page{}, fmt.Errorf("page %q does not exist", title)
		}
		return Page{
			Title:   p.Title,
			URL:     p.FullURL,
			Summary: leadSection(p.Extract),
			Text:    p.Extract,
		}, nil
	}
	return Page{}, fmt.Errorf("page %q not in response", title)
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		c.logger.Debug("mediawiki request failed",
			zap.String("status", resp.Status), zap.String("action", params.Get("action")))
		return fmt.Errorf("mediawiki request failed: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/doctordoom101/go-scrape-amazon/config"
	"github.com/doctordoom101/go-scrape-amazon/fetcher"
	"github.com/doctordoom101/go-scrape-amazon/models"
	"github.com/doctordoom101/go-scrape-amazon/parser"
)

// PageFetcher fetches one search-results page and returns its raw HTML.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Scraper walks search-result pages sequentially, extracting and
// deduplicating product records. Pages are fetched one at a time in
// increasing order with a blocking politeness pause between requests; the
// seen-title set and the growing record slice live only inside one Run.
type Scraper struct {
	cfg       *config.Config
	fetcher   PageFetcher
	extractor *parser.Extractor
	Metrics   *Metrics
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config, f PageFetcher) (*Scraper, error) {
	if f == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	extractor, err := parser.NewExtractor(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	return &Scraper{
		cfg:       cfg,
		fetcher:   f,
		extractor: extractor,
		Metrics:   NewMetrics(),
	}, nil
}

// Run crawls up to params.MaxPages search pages for params.Keyword and
// returns the unique records collected, first occurrence of a title wins.
// A failed fetch ends the crawl and returns whatever accumulated so far;
// it is reported through the result counters, not as an error. The only
// error Run returns is invalid parameters.
func (s *Scraper) Run(ctx context.Context, params models.CrawlParameters) ([]*models.ProductRecord, *models.CrawlResult, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, fmt.Errorf("crawl parameters: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.CrawlResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
	records := make([]*models.ProductRecord, 0)
	seen := make(map[string]struct{})

	for page := 1; page <= params.MaxPages; page++ {
		if ctx.Err() != nil {
			break
		}

		pageURL := s.searchURL(params.Keyword, page)
		slog.Info("requesting page", slog.Int("page", page), slog.String("url", pageURL))

		result.RequestCount++
		s.Metrics.IncRequest("started")
		start := time.Now()
		body, err := s.fetcher.Fetch(ctx, pageURL)
		s.Metrics.ObserveDuration(time.Since(start))
		if err != nil {
			category := fetcher.ErrorTypeLabel(err)
			result.ErrorsByType[category]++
			result.FailedURL = pageURL
			s.Metrics.IncError(category)
			slog.Error("page fetch failed, stopping crawl",
				slog.String("url", pageURL),
				slog.String("category", category),
				slog.Any("error", err),
			)
			break
		}
		result.PageCount++
		s.Metrics.IncPages()

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			result.ErrorsByType["parse"]++
			s.Metrics.IncError("parse")
			slog.Error("page parse failed, stopping crawl",
				slog.String("url", pageURL),
				slog.Any("error", err),
			)
			break
		}

		blocks := parser.FindProductBlocks(doc)
		slog.Debug("located result blocks", slog.Int("page", page), slog.Int("blocks", len(blocks)))

		added := 0
		for _, block := range blocks {
			rec := s.extractor.Extract(block)
			if strings.TrimSpace(rec.Title) == "" {
				result.NoTitleCount++
				continue
			}
			if _, dup := seen[rec.Title]; dup {
				result.DuplicateCount++
				s.Metrics.IncDuplicates()
				continue
			}
			seen[rec.Title] = struct{}{}
			records = append(records, rec)
			s.Metrics.IncItems()
			added++
			if params.MaxItems > 0 && len(records) >= params.MaxItems {
				break
			}
		}
		slog.Info("page processed",
			slog.Int("page", page),
			slog.Int("new_items", added),
			slog.Int("total", len(records)),
		)

		// Politeness pause between requests, even after the last page.
		s.pause(ctx, params.Delay)

		if params.MaxItems > 0 && len(records) >= params.MaxItems {
			break
		}
		// A page yielding only duplicates or nothing marks the end of
		// results, unlike a fetch failure.
		if added == 0 {
			slog.Info("no new items on page, treating as end of results", slog.Int("page", page))
			break
		}
	}

	result.EndTime = time.Now()
	result.ItemCount = len(records)
	return records, result, nil
}

// searchURL builds the results URL for one keyword page. Runs of whitespace
// in the keyword collapse to "+".
func (s *Scraper) searchURL(keyword string, page int) string {
	query := url.QueryEscape(strings.Join(strings.Fields(keyword), " "))
	return fmt.Sprintf("%s/s?k=%s&page=%d", strings.TrimSuffix(s.cfg.BaseURL, "/"), query, page)
}

func (s *Scraper) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

package scraper

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/doctordoom101/go-scrape-amazon/config"
	"github.com/doctordoom101/go-scrape-amazon/fetcher"
	"github.com/doctordoom101/go-scrape-amazon/models"
)

// fakeFetcher serves canned pages keyed by exact URL, so tests also pin
// down the search-URL shape.
type fakeFetcher struct {
	t     *testing.T
	pages map[string][]byte
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		f.t.Fatalf("unexpected fetch: %s", url)
	}
	return body, nil
}

func searchPage(titles ...string) []byte {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i, title := range titles {
		fmt.Fprintf(&b, `<div data-component-type="s-search-result" data-asin="ASIN%d">`, i)
		if title != "" {
			fmt.Fprintf(&b, `<h2><a href="/dp/%s"><span>%s</span></a></h2>`, strings.ReplaceAll(title, " ", "-"), title)
		}
		fmt.Fprintf(&b, `<span class="a-price"><span class="a-offscreen">$%d.99</span></span>`, 10+i)
		fmt.Fprintf(&b, `<span class="a-icon-alt">4.%d out of 5 stars</span>`, i%10)
		b.WriteString("</div>")
	}
	b.WriteString("</body></html>")
	return []byte(b.String())
}

func newTestScraper(t *testing.T, f PageFetcher) *Scraper {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test"
	s, err := NewScraper(cfg, f)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	return s
}

func pageURL(keyword string, page int) string {
	return fmt.Sprintf("http://example.test/s?k=%s&page=%d", keyword, page)
}

func titlesOf(records []*models.ProductRecord) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Title)
	}
	return out
}

func TestRunDedupesTitlesAcrossPages(t *testing.T) {
	ff := &fakeFetcher{t: t, pages: map[string][]byte{
		pageURL("go+books", 1): searchPage("Alpha", "Beta", "Gamma"),
		pageURL("go+books", 2): searchPage("Beta", "Delta"),
	}}
	s := newTestScraper(t, ff)

	records, result, err := s.Run(context.Background(), models.CrawlParameters{
		Keyword:  "go books",
		MaxPages: 2,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"Alpha", "Beta", "Gamma", "Delta"}
	got := titlesOf(records)
	if len(got) != len(want) {
		t.Fatalf("records = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("records = %v, want %v", got, want)
		}
	}
	if len(ff.calls) != 2 {
		t.Errorf("fetch calls = %d, want 2", len(ff.calls))
	}
	if result.DuplicateCount != 1 {
		t.Errorf("duplicates = %d, want 1", result.DuplicateCount)
	}
	if result.PageCount != 2 || result.RequestCount != 2 {
		t.Errorf("pages = %d requests = %d, want 2 and 2", result.PageCount, result.RequestCount)
	}
	if result.ItemCount != 4 {
		t.Errorf("item count = %d, want 4", result.ItemCount)
	}
}

func TestRunStopsOnEmptyFirstPage(t *testing.T) {
	ff := &fakeFetcher{t: t, pages: map[string][]byte{
		pageURL("go+books", 1): []byte("<html><body><p>no results</p></body></html>"),
	}}
	s := newTestScraper(t, ff)

	records, _, err := s.Run(context.Background(), models.CrawlParameters{
		Keyword:  "go books",
		MaxPages: 5,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %d, want 0", len(records))
	}
	if len(ff.calls) != 1 {
		t.Fatalf("fetch calls = %d, want 1", len(ff.calls))
	}
}

func TestRunReturnsPartialResultsOnFetchError(t *testing.T) {
	ff := &fakeFetcher{
		t: t,
		pages: map[string][]byte{
			pageURL("go+books", 1): searchPage("Alpha", "Beta"),
		},
		errs: map[string]error{
			pageURL("go+books", 2): &fetcher.FetchError{URL: pageURL("go+books", 2), StatusCode: 503},
		},
	}
	s := newTestScraper(t, ff)

	records, result, err := s.Run(context.Background(), models.CrawlParameters{
		Keyword:  "go books",
		MaxPages: 3,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if len(ff.calls) != 2 {
		t.Fatalf("fetch calls = %d, want 2", len(ff.calls))
	}
	if result.FailedURL != pageURL("go+books", 2) {
		t.Errorf("failed url = %q", result.FailedURL)
	}
	if result.ErrorsByType["bad_status"] != 1 {
		t.Errorf("errors by type = %v, want one bad_status", result.ErrorsByType)
	}
	if result.PageCount != 1 {
		t.Errorf("page count = %d, want 1", result.PageCount)
	}
}

func TestRunTruncatesAtMaxItems(t *testing.T) {
	ff := &fakeFetcher{t: t, pages: map[string][]byte{
		pageURL("go+books", 1): searchPage("A", "B", "C"),
		pageURL("go+books", 2): searchPage("D", "E", "F"),
	}}
	s := newTestScraper(t, ff)

	records, _, err := s.Run(context.Background(), models.CrawlParameters{
		Keyword:  "go books",
		MaxPages: 5,
		MaxItems: 4,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("records = %d, want 4", len(records))
	}
	if len(ff.calls) != 2 {
		t.Fatalf("fetch calls = %d, want 2", len(ff.calls))
	}
	want := []string{"A", "B", "C", "D"}
	for i, title := range titlesOf(records) {
		if title != want[i] {
			t.Fatalf("records = %v, want %v", titlesOf(records), want)
		}
	}
}

func TestRunMaxItemsOnFirstPageStopsImmediately(t *testing.T) {
	ff := &fakeFetcher{t: t, pages: map[string][]byte{
		pageURL("go+books", 1): searchPage("A", "B", "C", "D", "E"),
	}}
	s := newTestScraper(t, ff)

	records, _, err := s.Run(context.Background(), models.CrawlParameters{
		Keyword:  "go books",
		MaxPages: 3,
		MaxItems: 2,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if len(ff.calls) != 1 {
		t.Fatalf("fetch calls = %d, want 1", len(ff.calls))
	}
}

func TestRunStopsAfterMaxPages(t *testing.T) {
	ff := &fakeFetcher{t: t, pages: map[string][]byte{
		pageURL("go+books", 1): searchPage("A", "B"),
		pageURL("go+books", 2): searchPage("C", "D"),
	}}
	s := newTestScraper(t, ff)

	records, _, err := s.Run(context.Background(), models.CrawlParameters{
		Keyword:  "go books",
		MaxPages: 2,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("records = %d, want 4", len(records))
	}
	if len(ff.calls) != 2 {
		t.Fatalf("fetch calls = %d, want 2", len(ff.calls))
	}
}

func TestRunSkipsBlocksWithoutTitle(t *testing.T) {
	ff := &fakeFetcher{t: t, pages: map[string][]byte{
		pageURL("go+books", 1): searchPage("Alpha", "", "Beta"),
	}}
	s := newTestScraper(t, ff)

	records, result, err := s.Run(context.Background(), models.CrawlParameters{
		Keyword:  "go books",
		MaxPages: 1,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if result.NoTitleCount != 1 {
		t.Errorf("no-title count = %d, want 1", result.NoTitleCount)
	}
}

func TestRunNeverRepeatsTitles(t *testing.T) {
	ff := &fakeFetcher{t: t, pages: map[string][]byte{
		pageURL("go+books", 1): searchPage("A", "A", "B", "B", "C"),
	}}
	s := newTestScraper(t, ff)

	records, _, err := s.Run(context.Background(), models.CrawlParameters{
		Keyword:  "go books",
		MaxPages: 1,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	seen := make(map[string]struct{})
	for _, rec := range records {
		if _, dup := seen[rec.Title]; dup {
			t.Fatalf("duplicate title in results: %q", rec.Title)
		}
		seen[rec.Title] = struct{}{}
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
}

func TestRunRejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		params models.CrawlParameters
	}{
		{name: "empty keyword", params: models.CrawlParameters{Keyword: " ", MaxPages: 1}},
		{name: "zero max pages", params: models.CrawlParameters{Keyword: "go", MaxPages: 0}},
		{name: "negative delay", params: models.CrawlParameters{Keyword: "go", MaxPages: 1, Delay: -time.Second}},
		{name: "negative max items", params: models.CrawlParameters{Keyword: "go", MaxPages: 1, MaxItems: -1}},
	}

	s := newTestScraper(t, &fakeFetcher{t: t})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := s.Run(context.Background(), tt.params); err == nil {
				t.Fatalf("expected parameter error")
			}
		})
	}
}

func TestSearchURL(t *testing.T) {
	s := newTestScraper(t, &fakeFetcher{t: t})

	tests := []struct {
		keyword  string
		page     int
		expected string
	}{
		{keyword: "go books", page: 1, expected: "http://example.test/s?k=go+books&page=1"},
		{keyword: "  data   science\tbooks ", page: 2, expected: "http://example.test/s?k=data+science+books&page=2"},
		{keyword: "golang", page: 3, expected: "http://example.test/s?k=golang&page=3"},
	}

	for _, tt := range tests {
		if got := s.searchURL(tt.keyword, tt.page); got != tt.expected {
			t.Errorf("searchURL(%q, %d) = %q, want %q", tt.keyword, tt.page, got, tt.expected)
		}
	}
}

func TestRunCanceledContextStopsBeforeFetching(t *testing.T) {
	ff := &fakeFetcher{t: t, pages: map[string][]byte{}}
	s := newTestScraper(t, ff)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, _, err := s.Run(ctx, models.CrawlParameters{Keyword: "go books", MaxPages: 3})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 0 || len(ff.calls) != 0 {
		t.Fatalf("records = %d calls = %d, want 0 and 0", len(records), len(ff.calls))
	}
}

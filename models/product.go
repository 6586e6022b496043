// Package models defines data structures for the scraper.
package models

import (
	"fmt"
	"strings"
	"time"
)

// ProductRecord represents one product extracted from a search-results
// page. Every field besides Title is best-effort: selectors that find
// nothing leave the string fields empty, and Price/Rating stay nil when
// the raw text could not be normalized. The raw text is always kept so
// failed normalizations can be inspected downstream.
type ProductRecord struct {
	Title     string    `csv:"title" json:"title"`
	Author    string    `csv:"author" json:"author,omitempty"`
	PriceRaw  string    `csv:"price_raw" json:"price_raw,omitempty"`
	Price     *float64  `csv:"price" json:"price,omitempty"`
	RatingRaw string    `csv:"rating_raw" json:"rating_raw,omitempty"`
	Rating    *float64  `csv:"rating" json:"rating,omitempty"`
	Link      string    `csv:"link" json:"link,omitempty"`
	ScrapedAt time.Time `csv:"scraped_at" json:"scraped_at"`
}

// CrawlParameters is the immutable per-run configuration of one crawl.
type CrawlParameters struct {
	Keyword  string
	MaxPages int
	Delay    time.Duration
	MaxItems int // 0 means unlimited
}

// Validate ensures the parameters describe a runnable crawl.
func (p CrawlParameters) Validate() error {
	if strings.TrimSpace(p.Keyword) == "" {
		return fmt.Errorf("keyword cannot be empty")
	}
	if p.MaxPages < 1 {
		return fmt.Errorf("max pages must be at least 1")
	}
	if p.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if p.MaxItems < 0 {
		return fmt.Errorf("max items cannot be negative")
	}
	return nil
}

// CrawlResult holds the overall counters of one crawl run.
type CrawlResult struct {
	StartTime      time.Time
	EndTime        time.Time
	RequestCount   int
	PageCount      int
	ItemCount      int
	DuplicateCount int
	NoTitleCount   int
	ErrorsByType   map[string]int
	FailedURL      string
}

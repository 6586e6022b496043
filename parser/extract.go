package parser

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/doctordoom101/go-scrape-amazon/models"
)

// Extractor pulls product fields out of individual result blocks, resolving
// links against the site origin it was built with.
type Extractor struct {
	base *url.URL
}

// NewExtractor builds an extractor for pages served from origin.
func NewExtractor(origin string) (*Extractor, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("origin must include a host")
	}
	return &Extractor{base: base}, nil
}

// Extract reads one result block into a ProductRecord. It never fails:
// every field has a chain of selectors tried in order, and a chain that
// matches nothing simply leaves the field empty.
func (e *Extractor) Extract(block *goquery.Selection) *models.ProductRecord {
	rec := &models.ProductRecord{ScrapedAt: time.Now()}

	rec.Title = titleText(block)
	rec.Link = e.linkURL(block)
	rec.Author = authorText(block)

	rec.PriceRaw = priceText(block)
	if value, ok := ParsePrice(rec.PriceRaw); ok {
		rec.Price = &value
	}

	rec.RatingRaw = ratingText(block)
	if value, ok := ParseRating(rec.RatingRaw); ok {
		rec.Rating = &value
	}

	return rec
}

// titleText prefers the heading's inner span, then the heading itself, then
// a link-styled anchor.
func titleText(block *goquery.Selection) string {
	if heading := block.Find("h2").First(); heading.Length() > 0 {
		if text := cleanText(heading.Find("span").First().Text()); text != "" {
			return text
		}
		if text := cleanText(heading.Text()); text != "" {
			return text
		}
	}
	return cleanText(block.Find("a.a-link-normal.a-text-normal").First().Text())
}

// linkURL resolves the first anchor's href against the site origin.
func (e *Extractor) linkURL(block *goquery.Selection) string {
	href, ok := block.Find("a[href]").First().Attr("href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(ref).String()
}

// priceText prefers the price container's visually-hidden full text over
// the generic secondary price span.
func priceText(block *goquery.Selection) string {
	offscreen := block.Find("span.a-price").First().Find("span.a-offscreen").First()
	if text := cleanText(offscreen.Text()); text != "" {
		return text
	}
	return cleanText(block.Find("span.a-color-base").First().Text())
}

// ratingText prefers the rating icon's alt text, falling back to any
// element whose accessible label mentions the star scale.
func ratingText(block *goquery.Selection) string {
	if text := cleanText(block.Find("span.a-icon-alt").First().Text()); text != "" {
		return text
	}

	var label string
	block.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		value := s.AttrOr("aria-label", "")
		if strings.Contains(value, "out of 5 stars") {
			label = cleanText(value)
			return false
		}
		return true
	})
	return label
}

// authorText tries the byline row first, then falls back to any span
// containing "by ". The fallback is a deliberately loose heuristic and can
// misfire on unrelated text; it mirrors how the bylines actually appear.
func authorText(block *goquery.Selection) string {
	if row := block.Find("div.a-row.a-size-base.a-color-secondary").First(); row.Length() > 0 {
		if text := cleanText(row.Find("a").First().Text()); text != "" {
			return text
		}
		if text := cleanText(row.Text()); text != "" {
			return text
		}
	}

	var byline string
	block.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(s.Text()), "by ") {
			byline = cleanText(s.Text())
			return false
		}
		return true
	})
	return byline
}

// Package insights derives summary statistics from scraped product records.
package insights

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/doctordoom101/go-scrape-amazon/models"
)

// priceBucketCount bounds the width-based price histogram.
const priceBucketCount = 8

// Bucket is one histogram bar.
type Bucket struct {
	Label string
	Count int
}

// AuthorCount is one row of the author frequency table.
type AuthorCount struct {
	Author string
	Count  int
}

// Report summarizes one crawl's dataset. Records whose price or rating
// failed normalization are excluded from the numeric aggregates, never
// counted as zero.
type Report struct {
	TotalItems   int
	WithPrice    int
	WithRating   int
	AveragePrice float64
	MinPrice     float64
	MaxPrice     float64
	PriceBuckets []Bucket
	RatingCounts []Bucket
	TopAuthors   []AuthorCount
}

// Generate computes the report for records. topAuthors caps the frequency
// table; values below 1 fall back to 10.
func Generate(records []*models.ProductRecord, topAuthors int) *Report {
	if topAuthors < 1 {
		topAuthors = 10
	}

	report := &Report{TotalItems: len(records)}
	if len(records) == 0 {
		return report
	}

	var prices, ratings []float64
	authors := make(map[string]int)
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if rec.Price != nil {
			prices = append(prices, *rec.Price)
		}
		if rec.Rating != nil {
			ratings = append(ratings, *rec.Rating)
		}
		if rec.Author != "" {
			authors[rec.Author]++
		}
	}

	report.WithPrice = len(prices)
	report.WithRating = len(ratings)

	if len(prices) > 0 {
		min, max, sum := prices[0], prices[0], 0.0
		for _, p := range prices {
			sum += p
			if p < min {
				min = p
			}
			if p > max {
				max = p
			}
		}
		report.MinPrice = round2(min)
		report.MaxPrice = round2(max)
		report.AveragePrice = round2(sum / float64(len(prices)))
		report.PriceBuckets = bucketPrices(prices, min, max)
	}

	report.RatingCounts = countRatings(ratings)
	report.TopAuthors = rankAuthors(authors, topAuthors)
	return report
}

// bucketPrices splits [min, max] into equal-width buckets. A degenerate
// range collapses to a single bucket.
func bucketPrices(prices []float64, min, max float64) []Bucket {
	if max <= min {
		return []Bucket{{
			Label: fmt.Sprintf("%.2f", min),
			Count: len(prices),
		}}
	}

	n := priceBucketCount
	if len(prices) < n {
		n = len(prices)
	}
	width := (max - min) / float64(n)

	buckets := make([]Bucket, n)
	for i := range buckets {
		lo := min + float64(i)*width
		buckets[i].Label = fmt.Sprintf("%.2f to %.2f", lo, lo+width)
	}
	for _, p := range prices {
		idx := int((p - min) / width)
		if idx >= n {
			idx = n - 1
		}
		buckets[idx].Count++
	}
	return buckets
}

// countRatings tallies ratings by displayed value, ascending.
func countRatings(ratings []float64) []Bucket {
	if len(ratings) == 0 {
		return nil
	}

	counts := make(map[float64]int)
	for _, r := range ratings {
		counts[r]++
	}
	values := make([]float64, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Float64s(values)

	buckets := make([]Bucket, 0, len(values))
	for _, v := range values {
		buckets = append(buckets, Bucket{
			Label: fmt.Sprintf("%.1f", v),
			Count: counts[v],
		})
	}
	return buckets
}

// rankAuthors sorts by count descending, ties by name, and keeps the top n.
func rankAuthors(authors map[string]int, n int) []AuthorCount {
	ranked := make([]AuthorCount, 0, len(authors))
	for author, count := range authors {
		ranked = append(ranked, AuthorCount{Author: author, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Author < ranked[j].Author
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Print writes a plain-text rendering of the report.
func (r *Report) Print(w io.Writer) {
	thin := strings.Repeat("-", 50)

	fmt.Fprintf(w, "%s\n", thin)
	fmt.Fprintf(w, "Dataset summary\n")
	fmt.Fprintf(w, "  Total items:        %d\n", r.TotalItems)
	fmt.Fprintf(w, "  With parsed price:  %d (%.1f%%)\n", r.WithPrice, r.share(r.WithPrice))
	fmt.Fprintf(w, "  With parsed rating: %d (%.1f%%)\n", r.WithRating, r.share(r.WithRating))
	if r.WithPrice > 0 {
		fmt.Fprintf(w, "  Average price:      %.2f\n", r.AveragePrice)
		fmt.Fprintf(w, "  Price range:        %.2f to %.2f\n", r.MinPrice, r.MaxPrice)
	}

	if len(r.PriceBuckets) > 0 {
		fmt.Fprintf(w, "\nPrice distribution\n")
		printBuckets(w, r.PriceBuckets)
	}
	if len(r.RatingCounts) > 0 {
		fmt.Fprintf(w, "\nRating distribution\n")
		printBuckets(w, r.RatingCounts)
	}
	if len(r.TopAuthors) > 0 {
		fmt.Fprintf(w, "\nTop authors\n")
		for i, ac := range r.TopAuthors {
			fmt.Fprintf(w, "  %2d. %-40s %d\n", i+1, ac.Author, ac.Count)
		}
	}
	fmt.Fprintf(w, "%s\n", thin)
}

func printBuckets(w io.Writer, buckets []Bucket) {
	for _, b := range buckets {
		bar := strings.Repeat("#", b.Count)
		fmt.Fprintf(w, "  %-20s %s (%d)\n", b.Label, bar, b.Count)
	}
}

func (r *Report) share(count int) float64 {
	if r.TotalItems == 0 {
		return 0
	}
	return float64(count) / float64(r.TotalItems) * 100
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

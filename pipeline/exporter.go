package pipeline

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/doctordoom101/go-scrape-amazon/models"
)

// defaultBatchSize keeps writer calls reasonably sized without buffering
// the whole dataset twice.
const defaultBatchSize = 64

// Exporter feeds finished records into an OutputWriter. It re-checks title
// presence and guards against duplicate links with a size-capped LRU set,
// counting everything it drops.
type Exporter struct {
	writer    OutputWriter
	seenLinks *lru.Cache[string, struct{}]
	batchSize int
	dropped   map[string]int
}

// NewExporter builds an exporter writing through writer. dedupeMaxSize caps
// the memory of the duplicate-link guard.
func NewExporter(writer OutputWriter, dedupeMaxSize int) (*Exporter, error) {
	if writer == nil {
		return nil, fmt.Errorf("output writer is required")
	}
	if dedupeMaxSize <= 0 {
		dedupeMaxSize = 10000
	}
	seen, err := lru.New[string, struct{}](dedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}

	return &Exporter{
		writer:    writer,
		seenLinks: seen,
		batchSize: defaultBatchSize,
		dropped:   make(map[string]int),
	}, nil
}

// Export validates and writes records in batches, in input order.
func (e *Exporter) Export(records []*models.ProductRecord) error {
	batch := make([]*models.ProductRecord, 0, e.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := e.writer.Write(batch); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for _, rec := range records {
		if rec == nil || strings.TrimSpace(rec.Title) == "" {
			e.dropped["missing_title"]++
			continue
		}
		if rec.Link != "" {
			if _, dup := e.seenLinks.Get(rec.Link); dup {
				e.dropped["duplicate_link"]++
				continue
			}
			e.seenLinks.Add(rec.Link, struct{}{})
		}

		batch = append(batch, rec)
		if len(batch) >= e.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

// Dropped returns a snapshot of drop counters by reason.
func (e *Exporter) Dropped() map[string]int {
	out := make(map[string]int, len(e.dropped))
	for k, v := range e.dropped {
		out[k] = v
	}
	return out
}

package parser

import "github.com/PuerkitoBio/goquery"

// Block locator strategies, most reliable first. The result-page markup is
// unstable and undocumented, so the locator degrades through known layouts
// instead of failing outright when the primary one is absent.
const (
	searchResultRoleSelector = `div[data-component-type='s-search-result']`
	secondaryLayoutSelector  = `div.a-section.a-spacing-medium`
	productIDSelector        = `div[data-asin]`
)

// FindProductBlocks returns the ordered result blocks of one parsed search
// page. Strategies are tried in order of reliability and the first one that
// matches anything wins; an empty slice means the page has no recognizable
// results.
func FindProductBlocks(doc *goquery.Document) []*goquery.Selection {
	if blocks := collectBlocks(doc, searchResultRoleSelector); len(blocks) > 0 {
		return blocks
	}
	if blocks := collectBlocks(doc, secondaryLayoutSelector); len(blocks) > 0 {
		return blocks
	}

	// Last resort: anything carrying a product identifier. Placeholder
	// blocks with an empty identifier are skipped.
	var blocks []*goquery.Selection
	doc.Find(productIDSelector).Each(func(_ int, s *goquery.Selection) {
		if s.AttrOr("data-asin", "") != "" {
			blocks = append(blocks, s)
		}
	})
	return blocks
}

func collectBlocks(doc *goquery.Document, selector string) []*goquery.Selection {
	var blocks []*goquery.Selection
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, s)
	})
	return blocks
}

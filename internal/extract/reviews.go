package extract

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gabrzb/reviewradar/internal/scrape"
)

// reviewCandidateSelectors are the alternative queries used to locate review
// blocks. A page variant may satisfy only one of them, so all matches are
// concatenated before deduplication.
var reviewCandidateSelectors = []string{
	"[data-hook='review']",
	".a-section.review",
	"[data-component-type='review']",
	".customer_review",
	"#cm-cr-dp-review-list .a-section",
}

// Per-field strategy tables for review candidates.
var (
	reviewTitleStrategies = []Strategy{
		Text("[data-hook='review-title']"),
		Text(".review-title"),
		Text(".a-text-bold span"),
	}
	reviewRatingStrategies = []Strategy{
		Text("i[data-hook='review-star-rating']"),
		Attr("i[data-hook='review-star-rating']", "aria-label"),
		Text("i[data-hook='cmps-review-star-rating']"),
		Attr(".a-icon-star", "aria-label"),
		Text(".a-icon-star .a-icon-alt"),
		Text(".review-rating"),
	}
	reviewTextStrategies = []Strategy{
		Text("[data-hook='review-body']"),
		Text(".review-text"),
		Text(".review-text-content"),
	}
	reviewAuthorStrategies = []Strategy{
		Text("[data-hook='review-author']"),
		Text(".a-profile-name"),
		Text(".author"),
	}
	reviewDateStrategies = []Strategy{
		Text("[data-hook='review-date']"),
		Text(".review-date"),
	}
	verifiedBadgeSelectors = []string{
		"[data-hook='avp-badge']",
		".a-size-mini.a-color-state",
	}
)

// CollectReviewCandidates gathers review elements with every candidate
// selector, dedupes them by underlying DOM node, and caps the set at
// scrape.MaxReviews to bound worst-case extraction latency.
func CollectReviewCandidates(doc *goquery.Document) []*goquery.Selection {
	if doc == nil {
		return nil
	}
	seen := make(map[*html.Node]struct{})
	var candidates []*goquery.Selection
	for _, selector := range reviewCandidateSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			node := s.Get(0)
			if node == nil {
				return
			}
			if _, dup := seen[node]; dup {
				return
			}
			seen[node] = struct{}{}
			candidates = append(candidates, s)
		})
	}
	if len(candidates) > scrape.MaxReviews {
		candidates = candidates[:scrape.MaxReviews]
	}
	return candidates
}

// ExtractReview resolves every review field for one candidate element. A
// failing strategy just leaves its field unavailable; it never aborts the
// candidate.
func ExtractReview(sel *goquery.Selection) scrape.ReviewRecord {
	record := scrape.ReviewRecord{
		Title:    resolve(sel, reviewTitleStrategies, scrape.MaxTitleLen),
		Rating:   scrape.Unavailable,
		Text:     resolve(sel, reviewTextStrategies, scrape.MaxReviewTextLen),
		Author:   resolve(sel, reviewAuthorStrategies, scrape.MaxAuthorLen),
		Date:     resolve(sel, reviewDateStrategies, scrape.MaxDateLen),
		Verified: scrape.VerifiedUnknown,
	}
	if raw := resolveRaw(sel, reviewRatingStrategies); raw != scrape.Unavailable {
		record.Rating = firstDecimal(raw)
	}
	record.Verified = verifiedFlag(sel)
	return record
}

// verifiedFlag keys on badge presence alone; the badge element only renders
// on verified purchases, whatever localized text it carries.
func verifiedFlag(sel *goquery.Selection) scrape.VerifiedFlag {
	if sel == nil {
		return scrape.VerifiedUnknown
	}
	for _, selector := range verifiedBadgeSelectors {
		if sel.Find(selector).Length() > 0 {
			return scrape.VerifiedYes
		}
	}
	return scrape.VerifiedNo
}

// ExtractReviews runs the full review algorithm against a rendered document:
// candidate collection, per-field fallback extraction, the title-or-text
// acceptance predicate, and (title, text) content deduplication.
func ExtractReviews(doc *goquery.Document) []scrape.ReviewRecord {
	candidates := CollectReviewCandidates(doc)
	seen := make(map[string]struct{}, len(candidates))
	records := make([]scrape.ReviewRecord, 0, len(candidates))
	for _, sel := range candidates {
		record := ExtractReview(sel)
		if !record.Informative() {
			continue
		}
		key := record.Title + "\x1f" + record.Text
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		records = append(records, record)
	}
	return records
}

package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/gabrzb/reviewradar/internal/scrape"
)

// Product field strategy tables. Amazon serves several page variants; the
// order reflects how often each selector is observed to hit.
var (
	productNameStrategies = []Strategy{
		Text("#productTitle"),
		Text("#title span"),
	}
	productPriceStrategies = []Strategy{
		Text(".a-price .a-offscreen"),
		Text(".a-price-whole"),
		Text("#priceblock_ourprice"),
		Text("#priceblock_dealprice"),
		Text(".a-price-range"),
	}
	productRatingStrategies = []Strategy{
		Text("span[data-hook='rating-out-of-text']"),
		Text("#acrPopover .a-icon-alt"),
	}
	productReviewsCountStrategies = []Strategy{
		Text("#acrCustomerReviewText"),
		Text("span[data-hook='total-review-count']"),
	}
	productDescriptionStrategies = []Strategy{
		Text("#productDescription"),
		Text("#feature-bullets"),
	}
	productImageStrategies = []Strategy{
		Attr("#landingImage", "src"),
		Attr("#imgBlkFront", "src"),
	}
)

// ExtractProduct builds a ProductRecord from a rendered document. It always
// returns a record; fields no strategy could resolve stay unavailable. The
// ASIN comes from the URL path, not the markup.
func ExtractProduct(doc *goquery.Document, productURL string) scrape.ProductRecord {
	record := scrape.NewProductRecord()
	if doc == nil {
		return record
	}
	root := doc.Selection
	record.Name = resolve(root, productNameStrategies, scrape.MaxProductNameLen)
	record.Price = resolve(root, productPriceStrategies, 0)
	record.Rating = resolve(root, productRatingStrategies, 10)
	record.ReviewsCount = resolve(root, productReviewsCountStrategies, 20)
	record.Description = resolve(root, productDescriptionStrategies, scrape.MaxProductNameLen)
	record.ImageURL = resolveRaw(root, productImageStrategies)
	record.ASIN = scrape.ParseASIN(productURL)
	return record
}

// resolveRaw is resolve without length bounding or cleaning, for URL-valued
// fields where stripping characters would corrupt the value.
func resolveRaw(sel *goquery.Selection, strategies []Strategy) string {
	for _, st := range strategies {
		if text := st.Fn(sel); text != "" {
			return text
		}
	}
	return scrape.Unavailable
}

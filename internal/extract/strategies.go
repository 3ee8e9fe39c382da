// Package extract implements the worker-side extraction pipeline: page
// rendering, ordered selector-fallback field extraction, and the CSV sink.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gabrzb/reviewradar/internal/scrape"
)

// Strategy is one attempt at locating the text for a field. Strategies are
// evaluated in order; the first one yielding non-empty text wins. Target
// markup varies across page variants, so a field is a table of strategies,
// never a single selector.
type Strategy struct {
	Name string
	Fn   func(*goquery.Selection) string
}

// Text locates the trimmed text of the first element matching selector.
func Text(selector string) Strategy {
	return Strategy{
		Name: selector,
		Fn: func(s *goquery.Selection) string {
			return strings.TrimSpace(s.Find(selector).First().Text())
		},
	}
}

// Attr locates an attribute value of the first element matching selector.
func Attr(selector, attr string) Strategy {
	return Strategy{
		Name: selector + "@" + attr,
		Fn: func(s *goquery.Selection) string {
			val, _ := s.Find(selector).First().Attr(attr)
			return strings.TrimSpace(val)
		},
	}
}

// resolve runs the strategy table against sel and returns the first non-empty
// result bounded to maxLen, or the unavailable sentinel when every strategy
// comes up empty.
func resolve(sel *goquery.Selection, strategies []Strategy, maxLen int) string {
	if sel == nil {
		return scrape.Unavailable
	}
	for _, st := range strategies {
		if text := st.Fn(sel); text != "" {
			return truncate(text, maxLen)
		}
	}
	return scrape.Unavailable
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

var decimalRe = regexp.MustCompile(`(\d+[.,]?\d*)`)

// firstDecimal pulls the leading decimal number out of a star-rating blob
// such as "4,7 de 5 estrelas".
func firstDecimal(text string) string {
	m := decimalRe.FindStringSubmatch(text)
	if m == nil {
		return scrape.Unavailable
	}
	return strings.ReplaceAll(m[1], ",", ".")
}

// cleanRe keeps ASCII plus the accented letters that appear in pt-BR review
// text, so the CSV artifacts stay readable in spreadsheet tools.
var cleanRe = regexp.MustCompile(`[^\x00-\x7FáéíóúàèìòùâêîôûãõçÁÉÍÓÚÀÈÌÒÙÂÊÎÔÛÃÕÇ\s]`)

// CleanText strips problematic characters from extracted values. The
// unavailable sentinel passes through untouched.
func CleanText(text string) string {
	if text == scrape.Unavailable {
		return text
	}
	return strings.TrimSpace(cleanRe.ReplaceAllString(text, ""))
}

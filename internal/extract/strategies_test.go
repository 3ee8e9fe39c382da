package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/gabrzb/reviewradar/internal/scrape"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestResolveFirstNonEmptyWins(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<div><span class="b">segundo</span><span class="c">terceiro</span></div>`)
	strategies := []Strategy{
		Text(".a"),
		Text(".b"),
		Text(".c"),
	}
	if got := resolve(doc.Selection, strategies, 0); got != "segundo" {
		t.Fatalf("resolve() = %q, want %q", got, "segundo")
	}
}

func TestResolveAllMissYieldsUnavailable(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<div></div>`)
	strategies := []Strategy{Text(".a"), Attr(".b", "href")}
	if got := resolve(doc.Selection, strategies, 10); got != scrape.Unavailable {
		t.Fatalf("resolve() = %q, want %q", got, scrape.Unavailable)
	}
}

func TestResolveTruncatesRuneSafe(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<p class="t">ção de teste</p>`)
	got := resolve(doc.Selection, []Strategy{Text(".t")}, 3)
	if got != "ção" {
		t.Fatalf("resolve() = %q, want %q", got, "ção")
	}
}

func TestAttrStrategy(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<img id="landingImage" src="https://m.media-amazon.com/images/I/example.jpg">`)
	got := Attr("#landingImage", "src").Fn(doc.Selection)
	if got != "https://m.media-amazon.com/images/I/example.jpg" {
		t.Fatalf("Attr() = %q", got)
	}
}

func TestFirstDecimal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"4,7 de 5 estrelas", "4.7"},
		{"4.0 out of 5 stars", "4.0"},
		{"5", "5"},
		{"sem nota", scrape.Unavailable},
	}
	for _, tt := range tests {
		if got := firstDecimal(tt.in); got != tt.want {
			t.Errorf("firstDecimal(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Ótimo produto, não me arrependo", "Ótimo produto, não me arrependo"},
		{"produto ❤️ excelente", "produto  excelente"},
		{scrape.Unavailable, scrape.Unavailable},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

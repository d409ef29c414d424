package discovery

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/agentx56431/cei6/extract"
	"github.com/agentx56431/cei6/records"
	"github.com/agentx56431/cei6/scraper"
)

// cardScope selects the nearest card-like ancestor of a listing link.
const cardScope = "article, li, div"

// ParseListing turns one listing page into items, in document order. URLs
// are deduplicated within the page (first occurrence wins) and the result is
// capped at the category's first-page size. pageURL is the URL the page was
// served from and is the base for relative links.
func ParseListing(doc *goquery.Document, cat scraper.Category, pageURL *url.URL) []records.ListingItem {
	l := &listing{
		cat:  cat,
		base: pageURL,
		seen: make(map[string]bool),
	}
	if cat.CardSelector != "" {
		l.cards(doc.Selection)
	} else {
		l.anchors(doc.Selection)
	}
	return l.items
}

type listing struct {
	cat   scraper.Category
	base  *url.URL
	seen  map[string]bool
	items []records.ListingItem
}

func (l *listing) full() bool {
	return l.cat.Cap > 0 && len(l.items) >= l.cat.Cap
}

func (l *listing) add(link, title string, scope *goquery.Selection) {
	if l.seen[link] {
		return
	}
	l.seen[link] = true
	l.items = append(l.items, records.NewListingItem(
		l.cat.Type,
		title,
		link,
		extract.Date(scope),
		extract.Issue(scope),
		extract.Authors(scope),
	))
}

// anchors reads every link into the category, scoping field extraction to
// the link's closest card-like container.
func (l *listing) anchors(doc *goquery.Selection) {
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		link, ok := l.cat.ArticleURL(l.base, extract.Attr(a, "href"))
		if !ok || l.seen[link] {
			return true
		}

		scope := a.Closest(cardScope)
		if scope.Length() == 0 {
			scope = a.Parent()
		}
		l.add(link, extract.AnchorTitle(a, scope), scope)
		return !l.full()
	})
}

// cards reads one item per card container.
func (l *listing) cards(doc *goquery.Selection) {
	doc.Find(l.cat.CardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		tl := extract.CardTitle(card, l.cat, l.base)
		link, ok := l.cat.ArticleURL(l.base, tl.Href)
		if !ok {
			return true
		}
		l.add(link, tl.Title, card)
		return !l.full()
	})
}

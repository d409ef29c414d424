package extract

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/agentx56431/cei6/records"
)

const (
	authorLinks = `a[rel="author"], a.author-link, .author a, .byline a, .by-line a, .by-author a`
	peopleLinks = `a[href*="/experts/"], a[href*="/people/"], a[href*="/author/"], a[href*="/staff/"]`
	bylineText  = ".author, .byline, .by-line, .posted-by"
)

// Authors returns the normalized author list for scope. Structured author
// links win; otherwise the plain byline text is split into names.
func Authors(scope *goquery.Selection) []string {
	names, ok := First[[]string](scope,
		linkTexts(authorLinks),
		linkTexts(peopleLinks),
		bylineTexts,
	)
	if !ok {
		return []string{}
	}
	return names
}

func linkTexts(selector string) Strategy[[]string] {
	return func(scope *goquery.Selection) ([]string, bool) {
		var raw []string
		scope.Find(selector).Each(func(_ int, a *goquery.Selection) {
			raw = append(raw, Text(a))
		})
		names := records.NormalizeAuthors(raw)
		return names, len(names) > 0
	}
}

func bylineTexts(scope *goquery.Selection) ([]string, bool) {
	var raw []string
	scope.Find(bylineText).Each(func(_ int, el *goquery.Selection) {
		raw = append(raw, Text(el))
	})
	names := records.NormalizeAuthors(raw)
	return names, len(names) > 0
}

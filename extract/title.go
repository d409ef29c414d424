package extract

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/agentx56431/cei6/scraper"
)

// TitleLink is a title paired with the href it links to.
type TitleLink struct {
	Title string
	Href  string
}

const cardTitleLinks = "h2 a[href], h3 a[href], .card-title a[href], .entry-title a[href]"

// CardTitle finds the title and link of a listing card: first a heading or
// title-class link, then the first link into the category, preferring one
// with text. Href is left as found on the page.
func CardTitle(card *goquery.Selection, cat scraper.Category, base *url.URL) TitleLink {
	tl, _ := First[TitleLink](card,
		func(s *goquery.Selection) (TitleLink, bool) {
			a := s.Find(cardTitleLinks).First()
			if a.Length() == 0 {
				return TitleLink{}, false
			}
			return TitleLink{Title: Text(a), Href: Attr(a, "href")}, true
		},
		func(s *goquery.Selection) (TitleLink, bool) {
			var tl TitleLink
			found := false
			s.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
				href := Attr(a, "href")
				if _, ok := cat.ArticleURL(base, href); !ok {
					return true
				}
				// image links often come first; keep looking for text
				if t := Text(a); !found || t != "" {
					tl = TitleLink{Title: t, Href: href}
					found = true
				}
				return tl.Title == ""
			})
			return tl, found
		},
	)
	return tl
}

// AnchorTitle picks a title for a bare listing link: the link text, then a
// heading in the surrounding container, then the link's title attribute.
func AnchorTitle(a, container *goquery.Selection) string {
	if t := Text(a); t != "" {
		return t
	}
	t, _ := First[string](container,
		textOf("h2, h3, .entry-title, .c-card__title"),
		func(*goquery.Selection) (string, bool) {
			t := Attr(a, "title")
			return t, t != ""
		},
	)
	return t
}

// PageTitle finds an article page's headline.
func PageTitle(doc *goquery.Selection) string {
	t, _ := First[string](doc,
		textOf("h1.entry-title, h2.entry-title"),
		textOf("h1"),
		attrOf(`meta[property="og:title"]`, "content"),
		textOf("title"),
	)
	return t
}

package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// IssuePath marks links into the site's topic taxonomy.
const IssuePath = "/issues/"

// Issue returns the topical tag for scope: the text of the first link into
// the issues taxonomy, then the card's issue pill, then category chips.
func Issue(scope *goquery.Selection) string {
	s, _ := First[string](scope,
		issueLink,
		textOf("p.card-issue"),
		textOf(".cat-links a, .entry-categories a, a[rel~='category']"),
	)
	return s
}

func issueLink(scope *goquery.Selection) (string, bool) {
	var out string
	scope.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.Contains(Attr(a, "href"), IssuePath) {
			out = Text(a)
		}
		return out == ""
	})
	return out, out != ""
}

package extract

import (
	"net/url"
	"regexp"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/agentx56431/cei6/records"
)

// contentContainers are tried in order; the generic article tag is the last
// resort before falling back to the page body.
var contentContainers = []string{
	".entry-content",
	".post-content",
	".article-body",
	".article__body",
	".c-article-body",
	".single-content",
	`[itemprop="articleBody"]`,
	"article",
}

var pdfHref = regexp.MustCompile(`(?i)\.pdf(\?[^#]*)?(#.*)?$`)

// ContentContainer returns the element holding the article body.
func ContentContainer(doc *goquery.Selection) *goquery.Selection {
	for _, sel := range contentContainers {
		if c := doc.Find(sel).First(); c.Length() > 0 {
			return c
		}
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc
}

// Paragraphs returns the non-empty paragraph texts of container in document
// order. When the container has no paragraphs, list items are accepted too.
func Paragraphs(container *goquery.Selection) []string {
	ps, ok := First[[]string](container,
		textsOf("p"),
		broaderTexts,
	)
	if !ok {
		return []string{}
	}
	return ps
}

// BodyParagraphs extracts the article body from a full page. When the
// selector-based container yields nothing, the page is handed to a
// readability pass as a last resort.
func BodyParagraphs(doc *goquery.Selection, pageURL *url.URL) []string {
	if ps := Paragraphs(ContentContainer(doc)); len(ps) > 0 {
		return ps
	}
	return readableParagraphs(doc, pageURL)
}

func textsOf(selector string) Strategy[[]string] {
	return func(scope *goquery.Selection) ([]string, bool) {
		var out []string
		scope.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if t := Text(s); t != "" {
				out = append(out, t)
			}
		})
		return out, len(out) > 0
	}
}

// broaderTexts accepts paragraphs and list items. A list item wrapping its
// own paragraphs is skipped so its text is not collected twice.
func broaderTexts(scope *goquery.Selection) ([]string, bool) {
	var out []string
	scope.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "li" && s.Find("p").Length() > 0 {
			return
		}
		if t := Text(s); t != "" {
			out = append(out, t)
		}
	})
	return out, len(out) > 0
}

func readableParagraphs(doc *goquery.Selection, pageURL *url.URL) []string {
	html, err := doc.Html()
	if err != nil || strings.TrimSpace(html) == "" {
		return []string{}
	}

	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return []string{}
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return []string{}
	}

	out := []string{}
	for line := range strings.SplitSeq(buf.String(), "\n") {
		if t := records.CleanText(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// PDFLinks collects links to PDF documents inside container, resolved
// against base, deduplicated in first-seen order. Fragments are dropped, so
// links to pages of one document count once.
func PDFLinks(container *goquery.Selection, base *url.URL) []string {
	out := []string{}
	seen := make(map[string]struct{})

	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := Attr(a, "href")
		if !pdfHref.MatchString(href) {
			return
		}
		abs := resolveDocument(base, href)
		if abs == "" {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	})

	return out
}

var outletPhrases = []string{
	"read the full article",
	"read the full op-ed",
	"originally appeared",
	"originally published",
	"read more at",
}

// Outlet finds the third-party publication an op-ed appeared in. Either
// value may be empty.
func Outlet(doc *goquery.Selection, base *url.URL) (name, link string) {
	tl, ok := First[TitleLink](doc,
		func(s *goquery.Selection) (TitleLink, bool) {
			a := s.Find(".outlet a[href], .op-ed-outlet a[href], .oped-outlet a[href], .publication a[href]").First()
			if a.Length() == 0 {
				return TitleLink{}, false
			}
			return TitleLink{Title: Text(a), Href: resolve(base, Attr(a, "href"))}, true
		},
		func(s *goquery.Selection) (TitleLink, bool) {
			t := firstText(s, ".outlet, .op-ed-outlet, .oped-outlet, .publication")
			return TitleLink{Title: t}, t != ""
		},
		func(s *goquery.Selection) (TitleLink, bool) {
			var tl TitleLink
			s.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
				text := strings.ToLower(Text(a))
				for _, phrase := range outletPhrases {
					if strings.Contains(text, phrase) {
						link := resolve(base, Attr(a, "href"))
						tl = TitleLink{Title: hostName(link), Href: link}
						return false
					}
				}
				return true
			})
			return tl, tl.Href != ""
		},
	)
	if !ok {
		return "", ""
	}
	return tl.Title, tl.Href
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// resolveDocument resolves href like resolve and drops its fragment.
func resolveDocument(base *url.URL, href string) string {
	abs := resolve(base, href)
	u, err := url.Parse(abs)
	if err != nil || abs == "" {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

func hostName(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

package discovery

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/agentx56431/cei6/extract"
	"github.com/agentx56431/cei6/records"
	"github.com/agentx56431/cei6/scraper"
)

// ParseDetail builds the detail record for item from its article page.
//
// Title and date prefer the page and fall back to the listing. Authors and
// issue prefer the listing and fall back to the page. Links are resolved
// against the item's URL.
func ParseDetail(doc *goquery.Document, item records.ListingItem, cat scraper.Category) records.DetailRecord {
	page := doc.Selection
	base, err := url.Parse(item.URL)
	if err != nil {
		base = nil
	}

	f := records.DetailFields{
		Title:         extract.PageTitle(page),
		DatePublished: extract.Date(page),
		Issue:         item.IssueText(),
		Authors:       item.Authors,
		PDFLinks:      extract.PDFLinks(extract.ContentContainer(page), base),
		Paragraphs:    extract.BodyParagraphs(page, base),
	}

	if f.Title == "" {
		f.Title = item.Title
	}
	if f.DatePublished == nil {
		f.DatePublished = item.DatePublished
	}
	if f.Issue == "" {
		f.Issue = extract.Issue(page)
	}
	if len(f.Authors) == 0 {
		f.Authors = extract.Authors(page)
	}
	if cat.HasOutlet {
		f.Outlet, f.OutletURL = extract.Outlet(page, base)
	}

	return records.NewDetailRecord(item.ContentType, item.URL, f)
}

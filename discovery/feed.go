package discovery

import (
	"net/url"

	"github.com/agentx56431/cei6/records"
	"github.com/agentx56431/cei6/scraper"
	"github.com/mmcdole/gofeed"
)

// ParseFeed turns a category's RSS feed into listing items. Links pass the
// same category filter as the HTML listing, are deduplicated, and are
// capped.
func ParseFeed(feed *gofeed.Feed, cat scraper.Category, feedURL *url.URL) []records.ListingItem {
	seen := make(map[string]bool)
	var items []records.ListingItem

	for _, it := range feed.Items {
		if cat.Cap > 0 && len(items) >= cat.Cap {
			break
		}

		link, ok := cat.ArticleURL(feedURL, it.Link)
		if !ok || seen[link] {
			continue
		}
		seen[link] = true

		items = append(items, records.NewListingItem(
			cat.Type,
			it.Title,
			link,
			feedDate(it),
			feedIssue(it),
			feedAuthors(it),
		))
	}

	return items
}

func feedDate(it *gofeed.Item) *records.Date {
	switch {
	case it.PublishedParsed != nil:
		return records.NewDate(*it.PublishedParsed)
	case it.Published != "":
		return records.ParseDate(it.Published)
	case it.UpdatedParsed != nil:
		return records.NewDate(*it.UpdatedParsed)
	default:
		return nil
	}
}

func feedIssue(it *gofeed.Item) string {
	if len(it.Categories) == 0 {
		return ""
	}
	return records.CleanText(it.Categories[0])
}

func feedAuthors(it *gofeed.Item) []string {
	var names []string
	for _, p := range it.Authors {
		if p != nil && p.Name != "" {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 && it.DublinCoreExt != nil {
		names = append(names, it.DublinCoreExt.Creator...)
	}
	return names
}

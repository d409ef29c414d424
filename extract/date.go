package extract

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/agentx56431/cei6/records"
)

var dateStrategies = []Strategy[string]{
	attrOf("time[datetime]", "datetime"),
	attrOf(`meta[property="article:published_time"]`, "content"),
	attrOf(`meta[name="pubdate"]`, "content"),
	attrOf(`meta[name="date"]`, "content"),
	attrOf(`meta[itemprop="datePublished"]`, "content"),
	textOf("time"),
	textOf(".posted-on, .entry-date"),
}

// RawDate returns the best date signal in scope: a machine-readable time
// attribute, then metadata tags, then the visible text of a time marker.
func RawDate(scope *goquery.Selection) string {
	s, _ := First[string](scope, dateStrategies...)
	return s
}

// Date extracts and normalizes the publication date in scope. Unparseable
// text is kept as a raw date; nil means no signal was found.
func Date(scope *goquery.Selection) *records.Date {
	return records.ParseDate(RawDate(scope))
}

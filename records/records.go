// Package records defines the listing and detail records produced by the
// parsers and persisted by the append store.
package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownContentType is returned when a content type is not one of the
// four published categories.
var ErrUnknownContentType = errors.New("unknown content type")

// ContentType identifies one of the publisher's content categories.
type ContentType string

const (
	Blog        ContentType = "blog"
	NewsRelease ContentType = "news_release"
	OpEd        ContentType = "op_ed"
	Study       ContentType = "study"
)

// AllContentTypes lists every category in the order runs visit them.
var AllContentTypes = []ContentType{Blog, NewsRelease, OpEd, Study}

// contentTypeAliases maps accepted spellings, including the plural names used
// by earlier output files, to their canonical content type.
var contentTypeAliases = map[string]ContentType{
	"blog":          Blog,
	"blogs":         Blog,
	"news_release":  NewsRelease,
	"news_releases": NewsRelease,
	"news-release":  NewsRelease,
	"news-releases": NewsRelease,
	"op_ed":         OpEd,
	"op_eds":        OpEd,
	"op-ed":         OpEd,
	"op-eds":        OpEd,
	"oped":          OpEd,
	"opeds":         OpEd,
	"study":         Study,
	"studies":       Study,
}

// ParseContentType resolves a user supplied category name.
func ParseContentType(s string) (ContentType, error) {
	ct, ok := contentTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownContentType, s)
	}
	return ct, nil
}

// Valid reports whether ct is one of the known categories.
func (ct ContentType) Valid() bool {
	switch ct {
	case Blog, NewsRelease, OpEd, Study:
		return true
	}
	return false
}

func (ct ContentType) String() string {
	return string(ct)
}

// ListingItem is a single entry discovered on a category listing page.
type ListingItem struct {
	ContentType   ContentType `json:"content_type"`
	Title         string      `json:"title"`
	URL           string      `json:"url"`
	DatePublished *Date       `json:"date_published"`
	Issue         *string     `json:"issue"`
	Authors       []string    `json:"authors"`
}

// NewListingItem builds a listing item. Authors are always normalized, even
// when the caller already cleaned them, and an empty title falls back to the
// URL.
func NewListingItem(
	ct ContentType,
	title, url string,
	date *Date,
	issue string,
	authors []string,
) ListingItem {
	title = CleanText(title)
	if title == "" {
		title = url
	}

	return ListingItem{
		ContentType:   ct,
		Title:         title,
		URL:           url,
		DatePublished: date,
		Issue:         optional(issue),
		Authors:       NormalizeAuthors(authors),
	}
}

// RecordURL returns the identity key used by the store.
func (it ListingItem) RecordURL() string {
	return it.URL
}

// RecordType returns the item's category.
func (it ListingItem) RecordType() ContentType {
	return it.ContentType
}

// IssueText returns the issue tag or an empty string.
func (it ListingItem) IssueText() string {
	if it.Issue == nil {
		return ""
	}
	return *it.Issue
}

// MarshalJSON keeps authors as an array even for zero-value items.
func (it ListingItem) MarshalJSON() ([]byte, error) {
	type plain ListingItem
	p := plain(it)
	if p.Authors == nil {
		p.Authors = []string{}
	}
	return marshalUnescaped(p)
}

// DetailRecord is the enriched record built from an article page.
type DetailRecord struct {
	ContentType   ContentType `json:"content_type"`
	URL           string      `json:"url"`
	Title         string      `json:"title"`
	DatePublished *Date       `json:"date_published"`
	Issue         *string     `json:"issue"`
	Authors       []string    `json:"authors"`
	Outlet        *string     `json:"outlet"`
	OutletURL     *string     `json:"outlet_url"`
	PDFLinks      []string    `json:"pdf_links"`
	Paragraphs    []string    `json:"paragraphs"`
}

// DetailFields carries the values gathered for a detail record before
// construction.
type DetailFields struct {
	Title         string
	DatePublished *Date
	Issue         string
	Authors       []string
	Outlet        string
	OutletURL     string
	PDFLinks      []string
	Paragraphs    []string
}

// NewDetailRecord builds a detail record. Slices are copied so the record
// does not share backing arrays with the parser.
func NewDetailRecord(ct ContentType, url string, f DetailFields) DetailRecord {
	return DetailRecord{
		ContentType:   ct,
		URL:           url,
		Title:         CleanText(f.Title),
		DatePublished: f.DatePublished,
		Issue:         optional(f.Issue),
		Authors:       NormalizeAuthors(f.Authors),
		Outlet:        optional(f.Outlet),
		OutletURL:     optional(f.OutletURL),
		PDFLinks:      nonEmpty(f.PDFLinks),
		Paragraphs:    nonEmpty(f.Paragraphs),
	}
}

// RecordURL returns the identity key used by the store.
func (d DetailRecord) RecordURL() string {
	return d.URL
}

// RecordType returns the record's category.
func (d DetailRecord) RecordType() ContentType {
	return d.ContentType
}

// MarshalJSON writes every list field as an array, never null.
func (d DetailRecord) MarshalJSON() ([]byte, error) {
	type plain DetailRecord
	p := plain(d)
	if p.Authors == nil {
		p.Authors = []string{}
	}
	if p.PDFLinks == nil {
		p.PDFLinks = []string{}
	}
	if p.Paragraphs == nil {
		p.Paragraphs = []string{}
	}
	return marshalUnescaped(p)
}

// CleanText collapses runs of whitespace into single spaces and trims the
// result.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// marshalUnescaped encodes v without escaping <, > and & so titles and
// paragraphs stay readable in the output files.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func optional(s string) *string {
	s = CleanText(s)
	if s == "" {
		return nil
	}
	return &s
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

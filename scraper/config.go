package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/agentx56431/cei6/records"
)

// BaseURL is the publisher's site root.
const BaseURL = "https://cei.org"

// Category describes how one content category is discovered on the site.
type Category struct {
	Type records.ContentType `yaml:"-"`

	// ListingURL is the first listing page for the category.
	ListingURL string `yaml:"listing_url"`

	// FeedURL is the category's RSS feed.
	FeedURL string `yaml:"feed_url"`

	// PathPrefix is the URL path every article in the category starts with.
	PathPrefix string `yaml:"path_prefix"`

	// Cap is the number of entries the site shows on a first listing page.
	// It is an observed constant, not derived from the markup.
	Cap int `yaml:"cap"`

	// CardSelector selects listing cards. When empty the listing is read in
	// anchor mode: every link matching PathPrefix is a candidate and its
	// nearest card-like ancestor scopes extraction.
	CardSelector string `yaml:"card_selector"`

	// HasOutlet marks categories whose articles are republished by a
	// third-party outlet.
	HasOutlet bool `yaml:"has_outlet"`
}

// Default first-page caps observed on the live site.
const (
	DefaultCap = 30
	OpEdCap    = 6
)

// DefaultCategories returns the built-in category registry.
func DefaultCategories() map[records.ContentType]Category {
	return map[records.ContentType]Category{
		records.Blog: {
			Type:       records.Blog,
			ListingURL: BaseURL + "/blog/",
			FeedURL:    BaseURL + "/blog/feed/",
			PathPrefix: "/blog/",
			Cap:        DefaultCap,
		},
		records.NewsRelease: {
			Type:       records.NewsRelease,
			ListingURL: BaseURL + "/news_releases/",
			FeedURL:    BaseURL + "/news_releases/feed/",
			PathPrefix: "/news_releases/",
			Cap:        DefaultCap,
		},
		records.OpEd: {
			Type:       records.OpEd,
			ListingURL: BaseURL + "/opeds_articles/",
			FeedURL:    BaseURL + "/opeds_articles/feed/",
			PathPrefix: "/opeds_articles/",
			Cap:        OpEdCap,
			HasOutlet:  true,
		},
		records.Study: {
			Type:         records.Study,
			ListingURL:   BaseURL + "/studies/",
			FeedURL:      BaseURL + "/studies/feed/",
			PathPrefix:   "/studies/",
			Cap:          DefaultCap,
			CardSelector: "article.default-card",
		},
	}
}

// Override replaces the non-empty fields of c with those in o.
func (c Category) Override(o Category) Category {
	if o.ListingURL != "" {
		c.ListingURL = o.ListingURL
	}
	if o.FeedURL != "" {
		c.FeedURL = o.FeedURL
	}
	if o.PathPrefix != "" {
		c.PathPrefix = o.PathPrefix
	}
	if o.Cap > 0 {
		c.Cap = o.Cap
	}
	if o.CardSelector != "" {
		c.CardSelector = o.CardSelector
	}
	return c
}

// excludedSegments are path segments that mark pagination or feeds rather
// than articles.
var excludedSegments = map[string]bool{
	"page": true,
	"feed": true,
}

// ArticleURL resolves href against base and reports whether the result
// looks like an article in this category: same host as the listing page,
// a path below PathPrefix with at least one slug segment, no pagination or
// feed segment, and no query string. The fragment is dropped.
func (c Category) ArticleURL(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""

	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(abs.Host, base.Host) {
		return "", false
	}
	if abs.RawQuery != "" {
		return "", false
	}

	rest, ok := strings.CutPrefix(abs.Path, c.PathPrefix)
	if !ok {
		return "", false
	}
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", false
	}
	for seg := range strings.SplitSeq(rest, "/") {
		if excludedSegments[seg] {
			return "", false
		}
	}

	return abs.String(), true
}

// Registry resolves categories by content type.
type Registry struct {
	categories map[records.ContentType]Category
}

// NewRegistry builds a registry from the defaults with overrides applied.
func NewRegistry(overrides map[records.ContentType]Category) *Registry {
	cats := DefaultCategories()
	for ct, o := range overrides {
		if base, ok := cats[ct]; ok {
			cats[ct] = base.Override(o)
		}
	}
	return &Registry{categories: cats}
}

// Lookup returns the category for ct.
func (r *Registry) Lookup(ct records.ContentType) (Category, error) {
	c, ok := r.categories[ct]
	if !ok {
		return Category{}, fmt.Errorf("%w: %q", records.ErrUnknownContentType, ct)
	}
	return c, nil
}

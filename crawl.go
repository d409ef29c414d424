package cei6

import (
	"context"
	"fmt"

	"github.com/agentx56431/cei6/records"
	"go.uber.org/zap"
)

// Via selects how a category's listing is read.
type Via string

const (
	ViaHTML Via = "html"
	ViaFeed Via = "feed"
)

// ParseVia validates a listing mode name.
func ParseVia(s string) (Via, error) {
	switch v := Via(s); v {
	case ViaHTML, ViaFeed:
		return v, nil
	case "":
		return ViaHTML, nil
	default:
		return "", fmt.Errorf("unknown listing mode %q (want html or feed)", s)
	}
}

// CrawlOptions controls one pass over a set of categories.
type CrawlOptions struct {
	Types      []records.ContentType
	Via        Via
	Save       bool
	Details    bool
	MaxDetails int
}

// CategoryResult is the outcome of crawling one category. Err is set when
// the listing could not be fetched or a store write failed; other
// categories are unaffected.
type CategoryResult struct {
	Type           records.ContentType
	Items          []records.ListingItem
	Details        []records.DetailRecord
	ListingWritten int
	DetailsWritten int
	// DetailsSkipped counts article pages that failed and were skipped.
	DetailsSkipped int
	Err            error
}

// Crawl processes each category in order. report, when non-nil, is called
// after each category.
func (e *Engine) Crawl(ctx context.Context, opts CrawlOptions, report func(CategoryResult)) []CategoryResult {
	types := opts.Types
	if len(types) == 0 {
		types = records.AllContentTypes
	}

	results := make([]CategoryResult, 0, len(types))
	for _, ct := range types {
		if ctx.Err() != nil {
			break
		}

		res := e.crawlCategory(ctx, ct, opts)
		if res.Err != nil {
			e.logger.Warn("category failed",
				zap.String("category", string(ct)),
				zap.Error(res.Err),
			)
		}
		if report != nil {
			report(res)
		}
		results = append(results, res)
	}

	return results
}

func (e *Engine) crawlCategory(ctx context.Context, ct records.ContentType, opts CrawlOptions) CategoryResult {
	res := CategoryResult{Type: ct}

	var err error
	if opts.Via == ViaFeed {
		res.Items, err = e.FetchListingFeed(ctx, ct)
	} else {
		res.Items, err = e.FetchListing(ctx, ct)
	}
	if err != nil {
		res.Err = err
		return res
	}

	if opts.Save {
		if res.ListingWritten, err = e.AppendListing(ct, res.Items); err != nil {
			res.Err = err
			return res
		}
	}

	if !opts.Details {
		return res
	}

	res.Details, res.DetailsSkipped = e.FetchDetails(ctx, res.Items, opts.MaxDetails)
	if opts.Save {
		if res.DetailsWritten, err = e.AppendDetails(ct, res.Details); err != nil {
			res.Err = err
		}
	}

	return res
}

// Package cei6 crawls the publisher's category listings and article pages
// and keeps the results in append-only, URL-deduplicated record files.
package cei6

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/agentx56431/cei6/discovery"
	"github.com/agentx56431/cei6/records"
	"github.com/agentx56431/cei6/scraper"
	"github.com/agentx56431/cei6/sources"
	"github.com/agentx56431/cei6/store"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// slowFetch is the duration above which a listing fetch is logged as slow.
const slowFetch = 30 * time.Second

// Options wires an Engine to its collaborators. Fetcher, Listings and
// Details are required.
type Options struct {
	Fetcher  discovery.Fetcher
	Registry *scraper.Registry
	Listings *store.Store
	Details  *store.Store

	// Sources records crawl state per category when set.
	Sources *sources.SourceStore

	Logger *zap.Logger
}

// Engine exposes the crawl operations: fetching listings and details and
// appending them to the stores. It runs strictly sequentially.
type Engine struct {
	fetcher  discovery.Fetcher
	registry *scraper.Registry
	listings *store.Store
	details  *store.Store
	sources  *sources.SourceStore
	feeds    *gofeed.Parser
	logger   *zap.Logger
	runID    uuid.UUID
}

// NewEngine creates an engine for one run.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if opts.Listings == nil || opts.Details == nil {
		return nil, errors.New("listing and detail stores are required")
	}
	if opts.Registry == nil {
		opts.Registry = scraper.NewRegistry(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	runID := uuid.New()
	return &Engine{
		fetcher:  opts.Fetcher,
		registry: opts.Registry,
		listings: opts.Listings,
		details:  opts.Details,
		sources:  opts.Sources,
		feeds:    gofeed.NewParser(),
		logger:   opts.Logger.With(zap.String("run_id", runID.String())),
		runID:    runID,
	}, nil
}

// RunID identifies this engine's run in logs and crawl state.
func (e *Engine) RunID() uuid.UUID {
	return e.runID
}

// Category returns the configuration of ct.
func (e *Engine) Category(ct records.ContentType) (scraper.Category, error) {
	return e.registry.Lookup(ct)
}

// FetchListing fetches the first listing page of ct and parses it into
// items. A failure affects only this category.
func (e *Engine) FetchListing(ctx context.Context, ct records.ContentType) ([]records.ListingItem, error) {
	cat, err := e.registry.Lookup(ct)
	if err != nil {
		return nil, err
	}

	return e.fetchListing(ctx, cat, cat.ListingURL, func(body string, base *url.URL) ([]records.ListingItem, error) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to parse html: %w", err)
		}
		return discovery.ParseListing(doc, cat, base), nil
	})
}

// FetchListingFeed reads ct's RSS feed instead of its HTML listing. Items
// pass the same URL filter, deduplication and cap.
func (e *Engine) FetchListingFeed(ctx context.Context, ct records.ContentType) ([]records.ListingItem, error) {
	cat, err := e.registry.Lookup(ct)
	if err != nil {
		return nil, err
	}
	if cat.FeedURL == "" {
		return nil, fmt.Errorf("category %s has no feed", ct)
	}

	return e.fetchListing(ctx, cat, cat.FeedURL, func(body string, base *url.URL) ([]records.ListingItem, error) {
		feed, err := e.feeds.ParseString(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse feed: %w", err)
		}
		return discovery.ParseFeed(feed, cat, base), nil
	})
}

type listingParser func(body string, base *url.URL) ([]records.ListingItem, error)

func (e *Engine) fetchListing(
	ctx context.Context,
	cat scraper.Category,
	pageURL string,
	parse listingParser,
) ([]records.ListingItem, error) {
	start := time.Now()
	e.ensureSource(cat)

	items, err := func() ([]records.ListingItem, error) {
		body, finalURL, err := e.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		base, err := url.Parse(finalURL)
		if err != nil {
			return nil, fmt.Errorf("invalid final url %q: %w", finalURL, err)
		}
		return parse(body, base)
	}()
	if err != nil {
		e.handleFetchError(cat, pageURL, err)
		return nil, fmt.Errorf("listing %s: %w", cat.Type, err)
	}

	e.handleFetchSuccess(cat, len(items))

	duration := time.Since(start)
	fields := []zap.Field{
		zap.String("category", string(cat.Type)),
		zap.String("url", pageURL),
		zap.Int("items", len(items)),
		zap.Duration("duration", duration),
	}
	if duration > slowFetch {
		e.logger.Warn("slow listing fetch", fields...)
	} else {
		e.logger.Info("fetched listing", fields...)
	}

	return items, nil
}

// FetchDetail fetches and parses the article page of item. Callers decide
// whether a failure is fatal; FetchDetails skips it.
func (e *Engine) FetchDetail(ctx context.Context, item records.ListingItem) (records.DetailRecord, error) {
	cat, err := e.registry.Lookup(item.ContentType)
	if err != nil {
		return records.DetailRecord{}, err
	}

	body, _, err := e.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		return records.DetailRecord{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return records.DetailRecord{}, fmt.Errorf("failed to parse html: %w", err)
	}

	return discovery.ParseDetail(doc, item, cat), nil
}

// FetchDetails fetches the detail page of each item in order, up to limit
// items when limit is positive. An item that fails is logged, skipped and
// counted in skipped; the batch only stops early when ctx is done, and items
// never tried are not counted.
func (e *Engine) FetchDetails(ctx context.Context, items []records.ListingItem, limit int) (recs []records.DetailRecord, skipped int) {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	recs = make([]records.DetailRecord, 0, len(items))
	for _, item := range items {
		if ctx.Err() != nil {
			e.logger.Warn("detail batch cancelled",
				zap.Int("fetched", len(recs)),
				zap.Int("skipped", skipped),
				zap.Error(ctx.Err()),
			)
			break
		}

		rec, err := e.FetchDetail(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			e.logger.Warn("skipping detail",
				zap.String("url", item.URL),
				zap.Error(err),
			)
			skipped++
			continue
		}
		recs = append(recs, rec)
	}

	return recs, skipped
}

// Store writes, replaced in tests to simulate failing disks.
var (
	appendListings = store.Append[records.ListingItem]
	appendDetails  = store.Append[records.DetailRecord]
)

// AppendListing appends items to ct's listing file and returns the number
// of lines written. Lines written before a write error are still counted
// in the crawl state and returned with the error.
func (e *Engine) AppendListing(ct records.ContentType, items []records.ListingItem) (int, error) {
	n, err := appendListings(e.listings, ct, items)
	e.addWritten(ct, n, 0)
	return n, err
}

// AppendDetails appends recs to ct's detail file and returns the number of
// lines written, including those written before a write error.
func (e *Engine) AppendDetails(ct records.ContentType, recs []records.DetailRecord) (int, error) {
	n, err := appendDetails(e.details, ct, recs)
	e.addWritten(ct, 0, n)
	return n, err
}

// ensureSource registers the category in the crawl state.
func (e *Engine) ensureSource(cat scraper.Category) {
	if e.sources == nil {
		return
	}
	if _, err := e.sources.EnsureSource(cat.Type, cat.ListingURL); err != nil {
		e.logger.Error("failed to register source",
			zap.String("category", string(cat.Type)),
			zap.Error(err),
		)
	}
}

// handleFetchSuccess updates crawl state after a successful listing fetch.
func (e *Engine) handleFetchSuccess(cat scraper.Category, items int) {
	if e.sources == nil {
		return
	}
	if err := e.sources.RecordSuccess(cat.Type, e.runID, time.Now(), items); err != nil {
		e.logger.Error("failed to update source state",
			zap.String("category", string(cat.Type)),
			zap.Error(err),
		)
	}
}

// handleFetchError updates crawl state after a failed listing fetch.
func (e *Engine) handleFetchError(cat scraper.Category, pageURL string, fetchErr error) {
	e.logger.Warn("listing fetch failed",
		zap.String("category", string(cat.Type)),
		zap.String("url", pageURL),
		zap.Error(fetchErr),
	)
	if e.sources == nil {
		return
	}
	if err := e.sources.RecordFailure(cat.Type, e.runID, fetchErr); err != nil {
		e.logger.Error("failed to update source state",
			zap.String("category", string(cat.Type)),
			zap.Error(err),
		)
	}
}

func (e *Engine) addWritten(ct records.ContentType, listingLines, detailLines int) {
	if e.sources == nil || listingLines+detailLines == 0 {
		return
	}
	err := e.sources.AddWritten(ct, listingLines, detailLines)
	if errors.Is(err, sources.ErrSourceNotFound) {
		cat, lookupErr := e.registry.Lookup(ct)
		if lookupErr != nil {
			return
		}
		e.ensureSource(cat)
		err = e.sources.AddWritten(ct, listingLines, detailLines)
	}
	if err != nil {
		e.logger.Error("failed to update written counts",
			zap.String("category", string(ct)),
			zap.Error(err),
		)
	}
}

// Package sources keeps per-category crawl state in SQLite: when each
// category was last fetched, by which run, how it went, and how many lines
// have been written for it.
package sources

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentx56431/cei6/records"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Custom errors for source operations
var (
	ErrSourceNotFound = errors.New("source not found")
)

// SourceStore manages crawl state using SQLite.
type SourceStore struct {
	db *sql.DB
}

// Source is the crawl state of one category.
type Source struct {
	ContentType     records.ContentType `json:"content_type"`
	ListingURL      string              `json:"listing_url"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	LastFetchedAt   *time.Time          `json:"last_fetched_at,omitempty"`
	LastRunID       *uuid.UUID          `json:"last_run_id,omitempty"`
	FetchErrorCount int                 `json:"fetch_error_count"`
	LastError       *string             `json:"last_error,omitempty"`
	LastItemCount   int                 `json:"last_item_count"`
	ListingLines    int                 `json:"listing_lines"`
	DetailLines     int                 `json:"detail_lines"`
}

// Healthy reports whether the last fetch of the category succeeded.
func (s *Source) Healthy() bool {
	return s.FetchErrorCount == 0
}

// SourceUpdate represents fields that can be updated on a source.
type SourceUpdate struct {
	ListingURL      *string
	LastFetchedAt   *time.Time
	LastRunID       *uuid.UUID
	FetchErrorCount *int
	LastError       *string
	ClearLastError  bool // Set to true to set last_error to NULL
	LastItemCount   *int
}

// NewSourceStore creates a new source store with the given database path.
func NewSourceStore(dbPath string) (*SourceStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SourceStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the sources table if it doesn't exist.
func (s *SourceStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		content_type TEXT PRIMARY KEY,
		listing_url TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		last_fetched_at TEXT,
		last_run_id TEXT,
		fetch_error_count INTEGER DEFAULT 0,
		last_error TEXT,
		last_item_count INTEGER DEFAULT 0,
		listing_lines INTEGER DEFAULT 0,
		detail_lines INTEGER DEFAULT 0
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SourceStore) Close() error {
	return s.db.Close()
}

// EnsureSource registers a category if it is not yet tracked and keeps its
// listing URL current.
func (s *SourceStore) EnsureSource(ct records.ContentType, listingURL string) (*Source, error) {
	if !ct.Valid() {
		return nil, fmt.Errorf("%w: %q", records.ErrUnknownContentType, ct)
	}

	now := time.Now()
	query := `
		INSERT INTO sources (content_type, listing_url, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(content_type) DO UPDATE SET listing_url = excluded.listing_url
	`
	if _, err := s.db.Exec(query, string(ct), listingURL, formatTime(&now), formatTime(&now)); err != nil {
		return nil, fmt.Errorf("failed to register source: %w", err)
	}

	return s.GetSource(ct)
}

const selectColumns = `
	SELECT content_type, listing_url, created_at, updated_at,
	       last_fetched_at, last_run_id, fetch_error_count, last_error,
	       last_item_count, listing_lines, detail_lines
	FROM sources
`

type rowScanner interface {
	Scan(dest ...any) error
}

// GetSource retrieves the state of one category.
func (s *SourceStore) GetSource(ct records.ContentType) (*Source, error) {
	source, err := scanSource(s.db.QueryRow(selectColumns+" WHERE content_type = ?", string(ct)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source: %w", err)
	}
	return source, nil
}

// ListSources lists every tracked category in name order.
func (s *SourceStore) ListSources() ([]Source, error) {
	rows, err := s.db.Query(selectColumns + " ORDER BY content_type")
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, *source)
	}

	return sources, rows.Err()
}

// UpdateSource updates a source with the provided fields.
func (s *SourceStore) UpdateSource(ct records.ContentType, update SourceUpdate) error {
	// Build dynamic UPDATE query based on provided fields
	setClauses := []string{"updated_at = ?"}
	now := time.Now()
	args := []any{formatTime(&now)}

	if update.ListingURL != nil {
		setClauses = append(setClauses, "listing_url = ?")
		args = append(args, *update.ListingURL)
	}
	if update.LastFetchedAt != nil {
		setClauses = append(setClauses, "last_fetched_at = ?")
		args = append(args, formatTime(update.LastFetchedAt))
	}
	if update.LastRunID != nil {
		setClauses = append(setClauses, "last_run_id = ?")
		args = append(args, update.LastRunID.String())
	}
	if update.FetchErrorCount != nil {
		setClauses = append(setClauses, "fetch_error_count = ?")
		args = append(args, *update.FetchErrorCount)
	}
	if update.ClearLastError {
		setClauses = append(setClauses, "last_error = ?")
		args = append(args, nil)
	} else if update.LastError != nil {
		setClauses = append(setClauses, "last_error = ?")
		args = append(args, *update.LastError)
	}
	if update.LastItemCount != nil {
		setClauses = append(setClauses, "last_item_count = ?")
		args = append(args, *update.LastItemCount)
	}

	args = append(args, string(ct))
	query := fmt.Sprintf("UPDATE sources SET %s WHERE content_type = ?",
		strings.Join(setClauses, ", "))

	return s.exec(query, args...)
}

// RecordSuccess marks a successful listing fetch and resets the error
// count.
func (s *SourceStore) RecordSuccess(ct records.ContentType, runID uuid.UUID, fetchedAt time.Time, items int) error {
	zero := 0
	return s.UpdateSource(ct, SourceUpdate{
		LastFetchedAt:   &fetchedAt,
		LastRunID:       &runID,
		FetchErrorCount: &zero,
		ClearLastError:  true,
		LastItemCount:   &items,
	})
}

// RecordFailure increments the consecutive error count and keeps the
// error message.
func (s *SourceStore) RecordFailure(ct records.ContentType, runID uuid.UUID, fetchErr error) error {
	now := time.Now()
	query := `
		UPDATE sources
		SET updated_at = ?, last_run_id = ?, last_error = ?,
		    fetch_error_count = fetch_error_count + 1
		WHERE content_type = ?
	`
	return s.exec(query, formatTime(&now), runID.String(), fetchErr.Error(), string(ct))
}

// AddWritten adds to the cumulative line counts of a category.
func (s *SourceStore) AddWritten(ct records.ContentType, listingLines, detailLines int) error {
	now := time.Now()
	query := `
		UPDATE sources
		SET updated_at = ?, listing_lines = listing_lines + ?,
		    detail_lines = detail_lines + ?
		WHERE content_type = ?
	`
	return s.exec(query, formatTime(&now), listingLines, detailLines, string(ct))
}

func (s *SourceStore) exec(query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSourceNotFound
	}

	return nil
}

// scanSource parses one row into a Source. It serves both GetSource and
// ListSources.
func scanSource(row rowScanner) (*Source, error) {
	var contentType, listingURL, createdAtStr, updatedAtStr string
	var lastFetchedAtStr, lastRunIDStr, lastError sql.NullString
	var fetchErrorCount, lastItemCount, listingLines, detailLines int

	err := row.Scan(
		&contentType, &listingURL, &createdAtStr, &updatedAtStr,
		&lastFetchedAtStr, &lastRunIDStr, &fetchErrorCount, &lastError,
		&lastItemCount, &listingLines, &detailLines,
	)
	if err != nil {
		return nil, err
	}

	source := &Source{
		ContentType:     records.ContentType(contentType),
		ListingURL:      listingURL,
		CreatedAt:       parseTime(createdAtStr),
		UpdatedAt:       parseTime(updatedAtStr),
		FetchErrorCount: fetchErrorCount,
		LastItemCount:   lastItemCount,
		ListingLines:    listingLines,
		DetailLines:     detailLines,
	}

	if lastFetchedAtStr.Valid {
		t := parseTime(lastFetchedAtStr.String)
		source.LastFetchedAt = &t
	}
	if lastRunIDStr.Valid {
		id, err := uuid.Parse(lastRunIDStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse run ID: %w", err)
		}
		source.LastRunID = &id
	}
	if lastError.Valid {
		source.LastError = &lastError.String
	}

	return source, nil
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}

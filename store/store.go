// Package store persists records as append-only newline-delimited JSON, one
// file per category. A record is written only if no line in the file
// already carries its URL.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentx56431/cei6/records"
	"go.uber.org/zap"
)

var (
	// ErrMissingURL is returned when a record has no URL to key on.
	ErrMissingURL = errors.New("record has no url")

	// ErrCategoryMismatch is returned when a record belongs to a different
	// category than the file it is being appended to.
	ErrCategoryMismatch = errors.New("record category does not match target")
)

// Record is anything the store can persist.
type Record interface {
	RecordURL() string
	RecordType() records.ContentType
}

// Store maps each category to a file under one directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// LineError describes a line that could not be parsed.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ScanResult is what a pass over an existing file found.
type ScanResult struct {
	URLs   map[string]struct{}
	Lines  int
	Errors []LineError

	// MissingNewline is set when the file's last byte is not a newline.
	MissingNewline bool
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, logger *zap.Logger) (*Store, error) {
	// 0700: owner-only access
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file backing ct.
func (s *Store) Path(ct records.ContentType) string {
	return filepath.Join(s.dir, string(ct)+".jsonl")
}

// Scan reads the file for ct and collects the URLs already stored. A missing
// file scans as empty. Lines that fail to parse are reported in Errors and
// otherwise ignored.
func (s *Store) Scan(ct records.ContentType) (*ScanResult, error) {
	if !ct.Valid() {
		return nil, fmt.Errorf("%w: %q", records.ErrUnknownContentType, ct)
	}

	result := &ScanResult{URLs: make(map[string]struct{})}

	f, err := os.Open(s.Path(ct))
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", ct, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	lineNo := 0
	for {
		line, readErr := r.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			result.MissingNewline = line[len(line)-1] != '\n'
			s.scanLine(result, lineNo, line)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ct, readErr)
		}
	}

	return result, nil
}

func (s *Store) scanLine(result *ScanResult, lineNo int, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	result.Lines++

	var key struct {
		URL any `json:"url"`
	}
	if err := json.Unmarshal(line, &key); err != nil {
		result.Errors = append(result.Errors, LineError{Line: lineNo, Err: err})
		return
	}
	if u, ok := key.URL.(string); ok && u != "" {
		result.URLs[u] = struct{}{}
	}
}

// Append writes the records of recs whose URL is not yet in the file for ct
// and returns how many lines were written. URLs are checked against the
// file and against records earlier in recs, so the first occurrence wins.
//
// Every record is validated before anything is written: an unknown
// category, a record without a URL, or a record of another category fails
// the whole call.
func Append[R Record](s *Store, ct records.ContentType, recs []R) (int, error) {
	if !ct.Valid() {
		return 0, fmt.Errorf("%w: %q", records.ErrUnknownContentType, ct)
	}
	for i, rec := range recs {
		if rec.RecordURL() == "" {
			return 0, fmt.Errorf("record %d: %w", i, ErrMissingURL)
		}
		if rec.RecordType() != ct {
			return 0, fmt.Errorf("record %d (%s): %w: got %q, want %q",
				i, rec.RecordURL(), ErrCategoryMismatch, rec.RecordType(), ct)
		}
	}

	scan, err := s.Scan(ct)
	if err != nil {
		return 0, err
	}
	for _, le := range scan.Errors {
		s.logger.Warn("skipping malformed line",
			zap.String("file", s.Path(ct)),
			zap.Int("line", le.Line),
			zap.Error(le.Err),
		)
	}

	var (
		buf   bytes.Buffer
		lines [][]byte
	)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, rec := range recs {
		u := rec.RecordURL()
		if _, ok := scan.URLs[u]; ok {
			continue
		}
		if err := enc.Encode(rec); err != nil {
			return 0, fmt.Errorf("failed to marshal %s: %w", u, err)
		}
		scan.URLs[u] = struct{}{}
		lines = append(lines, bytes.Clone(buf.Bytes()))
		buf.Reset()
	}

	if len(lines) == 0 {
		return 0, nil
	}

	// 0600: owner-only read/write
	f, err := os.OpenFile(s.Path(ct), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s for append: %w", ct, err)
	}
	defer f.Close()

	if scan.MissingNewline {
		if _, err := f.Write([]byte{'\n'}); err != nil {
			return 0, fmt.Errorf("failed to terminate last line: %w", err)
		}
	}

	written := 0
	for _, line := range lines {
		if _, err := f.Write(line); err != nil {
			return written, fmt.Errorf("failed to append to %s: %w", ct, err)
		}
		written++
	}

	s.logger.Debug("appended records",
		zap.String("file", s.Path(ct)),
		zap.Int("written", written),
		zap.Int("skipped", len(recs)-written),
	)
	return written, nil
}

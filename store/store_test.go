package store

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentx56431/cei6/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "index"), nil)
	require.NoError(t, err)
	return s
}

func item(url, title string) records.ListingItem {
	return records.NewListingItem(records.Blog, title, url, nil, "", nil)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

// TestNew_CreatesDirectory verifies the store directory is created
func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	s, err := New(dir, nil)

	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(dir, "blog.jsonl"), s.Path(records.Blog))
}

// TestAppend_Idempotent verifies a second append of the same items writes
// nothing
func TestAppend_Idempotent(t *testing.T) {
	s := newTestStore(t)
	items := []records.ListingItem{
		item("https://cei.org/blog/a/", "A"),
		item("https://cei.org/blog/b/", "B"),
		item("https://cei.org/blog/c/", "C"),
	}

	n, err := Append(s, records.Blog, items)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = Append(s, records.Blog, items)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Len(t, readLines(t, s.Path(records.Blog)), 3)
}

// TestAppend_FirstSeenWinsWithinCall verifies in-call deduplication
func TestAppend_FirstSeenWinsWithinCall(t *testing.T) {
	s := newTestStore(t)

	n, err := Append(s, records.Blog, []records.ListingItem{
		item("A", "T1"),
		item("A", "T2"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, n)

	lines := readLines(t, s.Path(records.Blog))
	require.Len(t, lines, 1)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "T1", got["title"])
}

// TestAppend_UnionAcrossCalls verifies overlapping batches grow the file
// monotonically
func TestAppend_UnionAcrossCalls(t *testing.T) {
	s := newTestStore(t)

	_, err := Append(s, records.Blog, []records.ListingItem{item("A", "1"), item("B", "1")})
	require.NoError(t, err)
	before := readLines(t, s.Path(records.Blog))

	n, err := Append(s, records.Blog, []records.ListingItem{item("B", "2"), item("C", "2")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	after := readLines(t, s.Path(records.Blog))
	require.Len(t, after, 3)
	assert.Equal(t, before, after[:2])
	assert.Contains(t, after[2], `"url":"C"`)
}

// TestAppend_ToleratesMalformedLines verifies a corrupt line neither fails
// the append nor hides the valid lines
func TestAppend_ToleratesMalformedLines(t *testing.T) {
	s := newTestStore(t)
	path := s.Path(records.Blog)
	content := `{"content_type":"blog","title":"A","url":"https://cei.org/blog/a/","date_published":null,"issue":null,"authors":[]}
{"content_type":"blog","title":"trunc`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	n, err := Append(s, records.Blog, []records.ListingItem{
		item("https://cei.org/blog/a/", "A again"),
		item("https://cei.org/blog/b/", "B"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, n)

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, `{"content_type":"blog","title":"trunc`, lines[1])
	assert.Contains(t, lines[2], `"url":"https://cei.org/blog/b/"`)
}

// TestScan_ReportsMalformedLines verifies line numbers of bad lines
func TestScan_ReportsMalformedLines(t *testing.T) {
	s := newTestStore(t)
	content := "{\"url\":\"A\"}\n\nnot json\n{\"url\":42}\n{\"title\":\"no url\"}\n"
	require.NoError(t, os.WriteFile(s.Path(records.Blog), []byte(content), 0o600))

	scan, err := s.Scan(records.Blog)

	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"A": {}}, scan.URLs)
	assert.Equal(t, 4, scan.Lines)
	require.Len(t, scan.Errors, 1)
	assert.Equal(t, 3, scan.Errors[0].Line)
	assert.False(t, scan.MissingNewline)
}

// TestScan_MissingFile verifies a category with no file scans as empty
func TestScan_MissingFile(t *testing.T) {
	s := newTestStore(t)

	scan, err := s.Scan(records.Study)

	require.NoError(t, err)
	assert.Empty(t, scan.URLs)
	assert.Zero(t, scan.Lines)
}

// TestAppend_TerminatesUnfinishedLastLine verifies new lines never join an
// existing one
func TestAppend_TerminatesUnfinishedLastLine(t *testing.T) {
	s := newTestStore(t)
	path := s.Path(records.Blog)
	require.NoError(t, os.WriteFile(path, []byte(`{"url":"A"}`), 0o600))

	n, err := Append(s, records.Blog, []records.ListingItem{item("B", "B")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, `{"url":"A"}`, lines[0])

	scan, err := s.Scan(records.Blog)
	require.NoError(t, err)
	assert.Empty(t, scan.Errors)
	assert.Len(t, scan.URLs, 2)
}

// TestAppend_RejectsMisuse verifies invalid input fails before writing
func TestAppend_RejectsMisuse(t *testing.T) {
	s := newTestStore(t)

	_, err := Append(s, records.ContentType("podcast"), []records.ListingItem{item("A", "A")})
	assert.ErrorIs(t, err, records.ErrUnknownContentType)

	_, err = Append(s, records.Blog, []records.ListingItem{item("A", "A"), item("", "")})
	assert.ErrorIs(t, err, ErrMissingURL)

	oped := records.NewListingItem(records.OpEd, "O", "https://cei.org/opeds_articles/o/", nil, "", nil)
	_, err = Append(s, records.Blog, []records.ListingItem{item("B", "B"), oped})
	assert.ErrorIs(t, err, ErrCategoryMismatch)

	_, err = os.Stat(s.Path(records.Blog))
	assert.True(t, os.IsNotExist(err), "nothing should be written")
}

// TestAppend_DetailRecords verifies detail records use the same contract
func TestAppend_DetailRecords(t *testing.T) {
	s := newTestStore(t)
	rec := records.NewDetailRecord(records.Study, "https://cei.org/studies/s/", records.DetailFields{
		Title:      "Study <S>",
		Paragraphs: []string{"One & two."},
	})

	n, err := Append(s, records.Study, []records.DetailRecord{rec, rec})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := os.Open(s.Path(records.Study))
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	line := sc.Text()
	assert.Contains(t, line, `"title":"Study <S>"`)
	assert.Contains(t, line, `"paragraphs":["One & two."]`)
	assert.Contains(t, line, `"outlet":null`)
	assert.Contains(t, line, `"pdf_links":[]`)
	assert.False(t, sc.Scan())
}

// TestAppend_Empty verifies an empty batch creates no file
func TestAppend_Empty(t *testing.T) {
	s := newTestStore(t)

	n, err := Append(s, records.Blog, []records.ListingItem{})

	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = os.Stat(s.Path(records.Blog))
	assert.True(t, os.IsNotExist(err))
}

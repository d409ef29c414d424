package records

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseContentType_Aliases verifies singular and plural spellings
func TestParseContentType_Aliases(t *testing.T) {
	cases := map[string]ContentType{
		"blog":          Blog,
		"blogs":         Blog,
		"news_releases": NewsRelease,
		"op_eds":        OpEd,
		"OP-ED":         OpEd,
		" studies ":     Study,
	}

	for input, want := range cases {
		got, err := ParseContentType(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

// TestParseContentType_Unknown verifies unknown categories are rejected
func TestParseContentType_Unknown(t *testing.T) {
	_, err := ParseContentType("podcasts")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownContentType)
}

// TestNewListingItem_NilAuthors verifies authors are never nil
func TestNewListingItem_NilAuthors(t *testing.T) {
	item := NewListingItem(Blog, "Title", "https://cei.org/blog/a/", nil, "", nil)

	assert.NotNil(t, item.Authors)
	assert.Empty(t, item.Authors)
	assert.Nil(t, item.Issue)
	assert.Nil(t, item.DatePublished)
}

// TestNewListingItem_TitleFallsBackToURL verifies the URL is used as title
func TestNewListingItem_TitleFallsBackToURL(t *testing.T) {
	item := NewListingItem(Blog, "   ", "https://cei.org/blog/a/", nil, "", nil)

	assert.Equal(t, "https://cei.org/blog/a/", item.Title)
}

// TestNewListingItem_NormalizesAuthors verifies pre-cleaned authors are
// normalized again
func TestNewListingItem_NormalizesAuthors(t *testing.T) {
	item := NewListingItem(Blog, "T", "u", nil, "Energy", []string{"By Jane Doe, ", "Jane Doe", "John Roe and Ann Poe"})

	assert.Equal(t, []string{"Jane Doe", "John Roe", "Ann Poe"}, item.Authors)
	require.NotNil(t, item.Issue)
	assert.Equal(t, "Energy", *item.Issue)
}

// TestListingItem_JSONShape verifies optional fields are written as null
func TestListingItem_JSONShape(t *testing.T) {
	item := ListingItem{ContentType: Study, Title: "T", URL: "https://cei.org/studies/x/"}

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Contains(t, obj, "date_published")
	assert.Nil(t, obj["date_published"])
	assert.Contains(t, obj, "issue")
	assert.Nil(t, obj["issue"])
	assert.Equal(t, []any{}, obj["authors"])
	assert.Equal(t, "study", obj["content_type"])
}

// TestListingItem_JSONDoesNotEscapeHTML verifies titles stay readable
func TestListingItem_JSONDoesNotEscapeHTML(t *testing.T) {
	item := NewListingItem(Blog, "Tariffs <and> you & me", "https://cei.org/blog/t/", nil, "", nil)

	data, err := item.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "Tariffs <and> you & me")
}

// TestDetailRecord_JSONShape verifies every field is present
func TestDetailRecord_JSONShape(t *testing.T) {
	rec := NewDetailRecord(Blog, "https://cei.org/blog/a/", DetailFields{
		Title:      "A",
		Paragraphs: []string{"one", "", "two"},
	})

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	for _, key := range []string{"content_type", "url", "title", "date_published", "issue", "authors", "outlet", "outlet_url", "pdf_links", "paragraphs"} {
		assert.Contains(t, obj, key)
	}
	assert.Nil(t, obj["outlet"])
	assert.Nil(t, obj["outlet_url"])
	assert.Equal(t, []any{}, obj["pdf_links"])
	assert.Equal(t, []any{"one", "two"}, obj["paragraphs"])
}

// TestNewDetailRecord_CopiesSlices verifies the record does not alias input
func TestNewDetailRecord_CopiesSlices(t *testing.T) {
	links := []string{"https://x/a.pdf"}
	rec := NewDetailRecord(Study, "u", DetailFields{PDFLinks: links})

	links[0] = "changed"
	assert.Equal(t, "https://x/a.pdf", rec.PDFLinks[0])
}

// TestParseDate_ISOWithOffset verifies the instant and offset are preserved
func TestParseDate_ISOWithOffset(t *testing.T) {
	d := ParseDate("2025-08-18T16:52:53-04:00")
	require.NotNil(t, d)

	tm, ok := d.Time()
	require.True(t, ok)
	want := time.Date(2025, 8, 18, 20, 52, 53, 0, time.UTC)
	assert.True(t, tm.Equal(want))
	assert.Equal(t, "2025-08-18T16:52:53-04:00", d.String())
}

// TestParseDate_MonthName verifies the visible-text layout
func TestParseDate_MonthName(t *testing.T) {
	d := ParseDate("August 18, 2025")
	require.NotNil(t, d)

	tm, ok := d.Time()
	require.True(t, ok)
	assert.Equal(t, 2025, tm.Year())
	assert.Equal(t, time.August, tm.Month())
	assert.Equal(t, 18, tm.Day())
	assert.Equal(t, "2025-08-18", d.String())
}

// TestParseDate_Layouts verifies the supported formats
func TestParseDate_Layouts(t *testing.T) {
	cases := map[string]string{
		"2025-08-18":                "2025-08-18",
		"2025-08-18T16:52:53":       "2025-08-18T16:52:53",
		"2025-08-18 16:52:53":       "2025-08-18T16:52:53",
		"2025-08-18T16:52:53Z":      "2025-08-18T16:52:53Z",
		"2025-08-18T16:52:53-0400":  "2025-08-18T16:52:53-04:00",
		"08/18/2025":                "2025-08-18",
		"8/5/2025":                  "2025-08-05",
		"Aug 18, 2025":              "2025-08-18",
		"August 18, 2025 4:52 PM":   "2025-08-18T16:52:00",
		"  August   18,  2025 ":     "2025-08-18",
	}

	for input, want := range cases {
		d := ParseDate(input)
		require.NotNil(t, d, input)
		assert.True(t, d.Parsed(), input)
		assert.Equal(t, want, d.String(), input)
	}
}

// TestParseDate_RawFallback verifies unparseable text is kept as-is
func TestParseDate_RawFallback(t *testing.T) {
	d := ParseDate("  Sometime last week ")
	require.NotNil(t, d)

	assert.False(t, d.Parsed())
	assert.Equal(t, "Sometime last week", d.String())
	_, ok := d.Time()
	assert.False(t, ok)
}

// TestParseDate_Blank verifies blank input yields no date
func TestParseDate_Blank(t *testing.T) {
	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("   "))
}

// TestDate_JSONRoundTrip verifies stored dates load back to the same value
func TestDate_JSONRoundTrip(t *testing.T) {
	for _, input := range []string{"2025-08-18T16:52:53-04:00", "August 18, 2025", "last Tuesday"} {
		d := ParseDate(input)

		data, err := json.Marshal(d)
		require.NoError(t, err)

		var back Date
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, d.Equal(back), input)
	}
}

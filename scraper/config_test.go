package scraper

import (
	"net/url"
	"testing"

	"github.com/agentx56431/cei6/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

// TestDefaultCategories verifies every content type has a category
func TestDefaultCategories(t *testing.T) {
	cats := DefaultCategories()

	for _, ct := range records.AllContentTypes {
		c, ok := cats[ct]
		require.True(t, ok, ct)
		assert.Equal(t, ct, c.Type)
		assert.NotEmpty(t, c.ListingURL)
		assert.NotEmpty(t, c.PathPrefix)
		assert.Positive(t, c.Cap)
	}
	assert.Equal(t, OpEdCap, cats[records.OpEd].Cap)
	assert.True(t, cats[records.OpEd].HasOutlet)
	assert.Equal(t, "article.default-card", cats[records.Study].CardSelector)
}

// TestArticleURL_AcceptsArticles verifies relative and absolute article links
func TestArticleURL_AcceptsArticles(t *testing.T) {
	c := DefaultCategories()[records.Blog]
	base := mustURL(t, "https://cei.org/blog/")

	got, ok := c.ArticleURL(base, "/blog/some-post/")
	require.True(t, ok)
	assert.Equal(t, "https://cei.org/blog/some-post/", got)

	got, ok = c.ArticleURL(base, "https://cei.org/blog/other-post/#comments")
	require.True(t, ok)
	assert.Equal(t, "https://cei.org/blog/other-post/", got)
}

// TestArticleURL_RejectsNoise verifies pagination, queries and foreign links
func TestArticleURL_RejectsNoise(t *testing.T) {
	c := DefaultCategories()[records.Blog]
	base := mustURL(t, "https://cei.org/blog/")

	for _, href := range []string{
		"",
		"#top",
		"/blog/",
		"/blog/page/2/",
		"/blog/feed/",
		"/blog/?posts_per_page=30",
		"/blog/a-post/?share=twitter",
		"/studies/a-study/",
		"https://example.com/blog/a-post/",
		"mailto:info@cei.org",
	} {
		_, ok := c.ArticleURL(base, href)
		assert.False(t, ok, href)
	}
}

// TestRegistry_Override verifies config overrides replace only set fields
func TestRegistry_Override(t *testing.T) {
	r := NewRegistry(map[records.ContentType]Category{
		records.OpEd: {Cap: 12},
	})

	c, err := r.Lookup(records.OpEd)
	require.NoError(t, err)
	assert.Equal(t, 12, c.Cap)
	assert.Equal(t, BaseURL+"/opeds_articles/", c.ListingURL)
}

// TestRegistry_Unknown verifies unknown categories are reported
func TestRegistry_Unknown(t *testing.T) {
	_, err := NewRegistry(nil).Lookup(records.ContentType("podcast"))
	assert.ErrorIs(t, err, records.ErrUnknownContentType)
}

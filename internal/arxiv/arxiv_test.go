package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <title> Attention Is Not All You Need </title>
    <summary>
      A study of transformer limitations.
    </summary>
    <published>2023-01-17T14:00:00Z</published>
    <author><name>Alice Researcher</name></author>
    <author><name>Bob Scientist</name></author>
    <link href="http://arxiv.org/abs/2301.07041v1" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/2301.07041v1" rel="related" type="application/pdf" title="pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2105.00001v2</id>
    <title>Second Paper</title>
    <summary>Another abstract.</summary>
    <published>2021-05-01T00:00:00Z</published>
    <author><name>Carol Author</name></author>
  </entry>
</feed>`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "all:quantum+seo", q.Get("search_query"))
		assert.Equal(t, "2", q.Get("max_results"))
		assert.Equal(t, "relevance", q.Get("sortBy"))
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	client := New(WithBaseURL(srv.URL))
	papers, err := client.Search(context.Background(), "quantum seo", 2)
	require.NoError(t, err)
	require.Len(t, papers, 2)

	first := papers[0]
	assert.Equal(t, "2301.07041v1", first.ID)
	assert.Equal(t, "Attention Is Not All You Need", first.Title)
	assert.Equal(t, []string{"Alice Researcher", "Bob Scientist"}, first.Authors)
	assert.Equal(t, "A study of transformer limitations.", first.Summary)
	assert.Equal(t, "http://arxiv.org/pdf/2301.07041v1", first.PDFURL)
	assert.Equal(t, "2023-01-17", first.Published)

	// No explicit pdf link: the abstract URL is rewritten.
	second := papers[1]
	assert.Equal(t, "2105.00001v2", second.ID)
	assert.Equal(t, "http://arxiv.org/pdf/2105.00001v2", second.PDFURL)
}

func TestSearchEmptyTopic(t *testing.T) {
	client := New()
	_, err := client.Search(context.Background(), "   ", 5)
	require.Error(t, err)
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), "seo", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "2301.07041v1", shortID("http://arxiv.org/abs/2301.07041v1"))
	assert.Equal(t, "", shortID("http://arxiv.org/pdf/2301.07041v1"))
}

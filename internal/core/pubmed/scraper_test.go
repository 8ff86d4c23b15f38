package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<article class="full-docsum">
  <a class="docsum-title" href="/38000001/" data-ga-action="1">
    Vitamin <b>D</b> deficiency and
    bone density
  </a>
</article>
<article class="full-docsum">
  <a class="docsum-title" href="/38000002/">Statins in elderly patients</a>
</article>
<a class="other-link" href="/help/">Help</a>
<article class="full-docsum">
  <a class="docsum-title" href="/38000003/">Third result</a>
</article>
</body></html>`

func TestSearch_ParsesResults(t *testing.T) {
	var gotTerm string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTerm = r.URL.Query().Get("term")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	s, err := NewScraper(srv.URL, srv.Client(), 2)
	require.NoError(t, err)

	articles, err := s.Search(context.Background(), "  vitamin d  ")
	require.NoError(t, err)

	assert.Equal(t, "vitamin d", gotTerm)
	assert.Equal(t, []Article{
		{Title: "Vitamin D deficiency and bone density", URL: srv.URL + "/38000001/"},
		{Title: "Statins in elderly patients", URL: srv.URL + "/38000002/"},
	}, articles)
}

func TestSearch_EmptyQuery(t *testing.T) {
	s, err := NewScraper("http://127.0.0.1:0", nil, 0)
	require.NoError(t, err)

	articles, err := s.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestSearch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, err := NewScraper(srv.URL, srv.Client(), 5)
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "asthma")
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>No results were found.</p></body></html>`))
	}))
	defer srv.Close()

	s, err := NewScraper(srv.URL, srv.Client(), 5)
	require.NoError(t, err)

	articles, err := s.Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Empty(t, articles)
}

package pubmed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultBaseURL is the public PubMed search site.
const DefaultBaseURL = "https://pubmed.ncbi.nlm.nih.gov"

var ErrSearchFailed = errors.New("pubmed search failed")

// Article is one search hit.
type Article struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Scraper reads article links from the PubMed search results page.
type Scraper struct {
	base        *url.URL
	client      *http.Client
	maxArticles int
}

func NewScraper(baseURL string, client *http.Client, maxArticles int) (*Scraper, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse pubmed url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if maxArticles <= 0 {
		maxArticles = 10
	}
	return &Scraper{base: base, client: client, maxArticles: maxArticles}, nil
}

// Search returns up to maxArticles results for query, in page order.
func (s *Scraper) Search(ctx context.Context, query string) ([]Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	searchURL := s.base.ResolveReference(&url.URL{Path: "/", RawQuery: url.Values{"term": {query}}.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSearchFailed, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse results: %w", ErrSearchFailed, err)
	}

	var articles []Article
	doc.Find("a.docsum-title").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		articles = append(articles, Article{
			Title: strings.Join(strings.Fields(sel.Text()), " "),
			URL:   s.base.ResolveReference(ref).String(),
		})
		return len(articles) < s.maxArticles
	})

	return articles, nil
}

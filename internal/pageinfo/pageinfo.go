// Package pageinfo reads display metadata from video pages.
package pageinfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxBody bounds how much HTML is parsed per page
const maxBody = 2 << 20

// ErrNoTitle is returned when the page has neither og:title nor <title>
var ErrNoTitle = errors.New("page has no title")

// Fetcher downloads pages and extracts their titles
type Fetcher struct {
	client  *http.Client
	headers map[string]string
}

// NewFetcher creates a Fetcher that sends the given headers with every request
func NewFetcher(client *http.Client, headers map[string]string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, headers: headers}
}

// Title returns the page title, preferring the Open Graph title
func (f *Fetcher) Title(ctx context.Context, pageURL string) (string, error) {
	doc, err := f.fetchDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return titleOf(doc)
}

// fetchDocument fetches a URL and parses it into a goquery Document.
func (f *Fetcher) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	return doc, nil
}

func titleOf(doc *goquery.Document) (string, error) {
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return og, nil
		}
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}
	return "", ErrNoTitle
}

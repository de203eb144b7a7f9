// Package sourcepage fetches an event's source URL and reduces it to
// markdown for use as prompt context.
package sourcepage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "DuendeFinder/1.0 (+https://duendefinder.com)"
)

var (
	contentSelectors = []string{"article", "main", "[role=main]", "body"}
	noiseSelectors   = "script, style, nav, noscript, iframe, form, header, footer, aside, svg"
	blankLines       = regexp.MustCompile(`\n{3,}`)
)

// HTTPError reports a non-200 response from the source site.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

// Fetcher downloads and converts source pages.
type Fetcher struct {
	client    *http.Client
	converter *md.Converter
	maxChars  int
}

// New returns a fetcher that truncates output to maxChars runes.
func New(client *http.Client, maxChars int) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Fetcher{
		client:    client,
		converter: md.NewConverter("", true, nil),
		maxChars:  maxChars,
	}
}

// Fetch returns the main content of pageURL as markdown.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return "", errors.New("source url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, URL: pageURL}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	return f.Extract(doc)
}

// Extract converts the most specific content container in doc to markdown.
func (f *Fetcher) Extract(doc *goquery.Document) (string, error) {
	doc.Find(noiseSelectors).Remove()

	var selection *goquery.Selection
	for _, selector := range contentSelectors {
		if found := doc.Find(selector).First(); found.Length() > 0 && strings.TrimSpace(found.Text()) != "" {
			selection = found
			break
		}
	}
	if selection == nil {
		return "", errors.New("page has no readable content")
	}

	html, err := selection.Html()
	if err != nil {
		return "", fmt.Errorf("render selection: %w", err)
	}
	markdown, err := f.converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	markdown = strings.TrimSpace(blankLines.ReplaceAllString(markdown, "\n\n"))
	return Truncate(markdown, f.maxChars), nil
}

// Truncate cuts s to at most limit runes on a whitespace boundary when one
// is near.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)[:limit]
	cut := string(runes)
	if idx := strings.LastIndexAny(cut, " \n"); idx > len(cut)*4/5 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}

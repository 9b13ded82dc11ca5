package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const (
	// maxSeedLength bounds the extracted premise; seeds are short by
	// nature and anything longer gets word-capped again at generation.
	maxSeedLength = 500
	// minArticleLength rejects login walls, cookie walls, and empty pages.
	minArticleLength = 100
	maxBodySize      = 5 * 1024 * 1024
)

// SeedSuggestion is a generation premise pulled from a web page.
type SeedSuggestion struct {
	Title string `json:"title"`
	Seed  string `json:"seed"`
	URL   string `json:"url"`
}

// SeedExtractor turns a URL into a song premise by pulling the page's
// readable content and condensing it to a seed line.
type SeedExtractor struct {
	client *http.Client
}

// NewSeedExtractor creates an HTTP-backed seed extractor. A zero timeout
// selects the 30s default.
func NewSeedExtractor(timeout time.Duration) *SeedExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SeedExtractor{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Extract fetches the URL and condenses its readable content into a seed.
func (e *SeedExtractor) Extract(ctx context.Context, url string) (*SeedSuggestion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Use a realistic browser User-Agent to avoid being blocked by sites.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parsedURL, _ := nurl.Parse(url)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	text := normalizeText(article.TextContent)
	if utf8.RuneCountInString(text) < minArticleLength {
		return nil, fmt.Errorf("extracted content too short (%d chars), possibly blocked or empty page", utf8.RuneCountInString(text))
	}

	return &SeedSuggestion{
		Title: strings.TrimSpace(article.Title),
		Seed:  condenseSeed(article.Title, text),
		URL:   url,
	}, nil
}

var multiSpace = regexp.MustCompile(`[ \t]+`)
var multiNewline = regexp.MustCompile(`\n{3,}`)

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}

// condenseSeed builds "title: opening sentences" and trims it to the seed
// budget on a word boundary.
func condenseSeed(title, text string) string {
	seed := strings.TrimSpace(title)
	opening := firstParagraph(text)
	if seed == "" {
		seed = opening
	} else if opening != "" {
		seed = seed + ": " + opening
	}

	if utf8.RuneCountInString(seed) <= maxSeedLength {
		return seed
	}
	runes := []rune(seed)
	cut := string(runes[:maxSeedLength])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

func firstParagraph(text string) string {
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			return p
		}
	}
	return ""
}

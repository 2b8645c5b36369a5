package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Scraper pulls the public preview pages of Telegram channels and returns
// their text. The extractor treats the result exactly like fetched HTTP
// source text, so no parsing happens here beyond stripping markup.
type Scraper struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	brPattern     = regexp.MustCompile(`(?i)<br\s*/?>`)
	entityDecoder = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'")
)

func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1), // be polite to t.me
		baseURL: "https://t.me",
	}
}

// Channel fetches https://t.me/s/<channel> and returns the page text with
// tags stripped, one block per line.
func (s *Scraper) Channel(ctx context.Context, channel string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	channel = strings.TrimPrefix(strings.TrimSpace(channel), "@")
	url := fmt.Sprintf("%s/s/%s", s.baseURL, channel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scrape %s: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("scrape %s: %s", channel, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}

	text := brPattern.ReplaceAllString(string(body), "\n")
	text = tagPattern.ReplaceAllString(text, "\n")
	return entityDecoder.Replace(text), nil
}

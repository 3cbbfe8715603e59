package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Translator renders text in a display language. Implementations never
// fail: on any error the input text is returned unchanged.
type Translator interface {
	Translate(ctx context.Context, text, lang string) string
}

// Noop returns text unchanged.
type Noop struct{}

// Translate implements Translator.
func (Noop) Translate(_ context.Context, text, _ string) string { return text }

// GoogleClient calls the public Google Translate "gtx" endpoint.
type GoogleClient struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// NewGoogleClient creates a new translate client.
func NewGoogleClient(baseURL string, log *slog.Logger) *GoogleClient {
	if log == nil {
		log = slog.Default()
	}
	return &GoogleClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Translate implements Translator.
func (c *GoogleClient) Translate(ctx context.Context, text, lang string) string {
	if strings.TrimSpace(text) == "" || text == "N/A" {
		return text
	}
	out, err := c.translate(ctx, text, lang)
	if err != nil {
		c.log.WarnContext(ctx, "translation failed, keeping original text",
			"lang", lang, "error", err)
		return text
	}
	return out
}

func (c *GoogleClient) translate(ctx context.Context, text, lang string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", lang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/translate_a/single?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translate returned status %d: %s", resp.StatusCode, string(body))
	}

	// The payload is a nested array; the first element holds
	// [translated, source, ...] sentence fragments.
	var payload []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty response")
	}
	var sentences [][]any
	if err := json.Unmarshal(payload[0], &sentences); err != nil {
		return "", fmt.Errorf("decode sentences: %w", err)
	}

	var b strings.Builder
	for _, s := range sentences {
		if len(s) == 0 {
			continue
		}
		if part, ok := s[0].(string); ok {
			b.WriteString(part)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no translated text")
	}
	return b.String(), nil
}

// All translates each element on its own so the result always has the
// same length as items.
func All(ctx context.Context, t Translator, items []string, lang string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = t.Translate(ctx, item, lang)
	}
	return out
}

package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Event is one human-readable notification. Transient: built per cycle,
// delivered, never persisted.
type Event struct {
	Title       string
	URL         string
	PageName    string
	Date        string
	DiffPreview string
	IsInitial   bool
}

// DeliveryResult is the outcome of one webhook message.
type DeliveryResult struct {
	StatusCode int
}

// WebhookClient delivers events to a Discord webhook, one message per event.
type WebhookClient struct {
	url  string
	http *http.Client
}

func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		url: webhookURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type webhookPayload struct {
	Content         string          `json:"content"`
	AllowedMentions allowedMentions `json:"allowed_mentions"`
}

type allowedMentions struct {
	Parse []string `json:"parse"`
}

// SendEvents posts the events in order as separate messages. The header, when
// non-empty, is prepended to the first message only. Any failed post aborts
// the batch with an error; messages already posted stay posted.
func (c *WebhookClient) SendEvents(ctx context.Context, events []Event, header string) ([]DeliveryResult, error) {
	if len(events) == 0 {
		return nil, nil
	}

	results := make([]DeliveryResult, 0, len(events))
	for i, event := range events {
		var parts []string
		if header != "" && i == 0 {
			parts = append(parts, header)
		}

		parts = append(parts, fmt.Sprintf("**%s**", event.Title))

		if event.Date != "" && !event.IsInitial {
			parts = append(parts, "🕐 "+FormatDate(event.Date))
		}

		// Angle brackets suppress Discord's link preview expansion.
		parts = append(parts, fmt.Sprintf("🔗 <%s>", event.URL))

		if event.DiffPreview != "" && !event.IsInitial {
			parts = append(parts, fmt.Sprintf("📝 %s ...\n", event.DiffPreview))
		}

		parts = append(parts, strings.Repeat("━", 40))

		status, err := c.post(ctx, strings.Join(parts, "\n"))
		if err != nil {
			return results, fmt.Errorf("failed to deliver event %d/%d for %q: %w",
				i+1, len(events), event.PageName, err)
		}
		results = append(results, DeliveryResult{StatusCode: status})
	}

	return results, nil
}

func (c *WebhookClient) post(ctx context.Context, content string) (int, error) {
	payload, err := json.Marshal(webhookPayload{
		Content:         content,
		AllowedMentions: allowedMentions{Parse: []string{}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	return resp.StatusCode, nil
}

// FormatDate renders an ISO-style timestamp in the Japanese form used in
// notification messages. Unparseable input is passed through unchanged.
func FormatDate(date string) string {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, date); err == nil {
			return fmt.Sprintf("%d年%d月%d日 %02d時%02d分",
				t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
		}
	}
	return date
}

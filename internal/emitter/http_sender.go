package emitter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"netsentry/internal/model"
)

// HTTPSender posts events to the hub's ingest endpoint, one request per
// event, under a short client timeout. A returned error means the event was
// dropped; the sender never retries.
type HTTPSender struct {
	client *http.Client
	url    string
}

// NewHTTPSender creates a sender targeting the hub at baseURL.
func NewHTTPSender(baseURL string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimRight(baseURL, "/") + "/api/v1/events",
	}
}

// Send posts one event.
func (s *HTTPSender) Send(e model.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("hub rejected event: %s", resp.Status)
	}
	return nil
}

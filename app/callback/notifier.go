package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/feed-inspector/app/metrics"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	DefaultType    = "feed_generation"
	defaultTimeout = 30 * time.Second
)

type Result struct {
	DestinationS3Path string `json:"destination_s3_path"`
}

type Payload struct {
	JobID  int64  `json:"job_id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Result Result `json:"result"`
	Err    string `json:"err"`
}

// Notifier posts job outcomes to caller-supplied URLs.
type Notifier struct {
	client *http.Client
}

func NewNotifier(client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Notifier{client: client}
}

// Send posts the payload. An empty URL is skipped with a warning.
func (n *Notifier) Send(ctx context.Context, url string, payload Payload) error {
	if url == "" {
		slog.Warn("No callback URL configured, skipping callback", "job_id", payload.JobID)
		return nil
	}
	if payload.Type == "" {
		payload.Type = DefaultType
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode callback: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		metrics.CallbackSent(StatusFailed)
		return fmt.Errorf("failed to send callback: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.CallbackSent(StatusFailed)
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}

	metrics.CallbackSent(StatusSuccess)
	slog.Info("Callback sent", "url", url, "job_id", payload.JobID, "status", payload.Status)
	return nil
}

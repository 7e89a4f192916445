package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/illmade-knight/share-receiver/app"
	"github.com/illmade-knight/share-receiver/pkg/activity"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
)

// IntentClient delivers intents and lifecycle events to the host server.
type IntentClient struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewIntentClient creates a new client for the host's intent endpoints.
func NewIntentClient(baseURL string, logger zerolog.Logger) *IntentClient {
	return &IntentClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.With().Str("client", "intents").Logger(),
	}
}

func (c *IntentClient) post(ctx context.Context, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// DeliverToPrimary sends intent to the primary screen.
func (c *IntentClient) DeliverToPrimary(ctx context.Context, intent sharing.Intent) (app.PrimaryStatus, error) {
	var status app.PrimaryStatus
	if err := c.post(ctx, "/intents/primary", intent, &status); err != nil {
		return app.PrimaryStatus{}, fmt.Errorf("failed to deliver intent to primary: %w", err)
	}
	c.logger.Info().Str("action", intent.Action).Bool("content_processed", status.ContentProcessed).Msg("Delivered intent to primary")
	return status, nil
}

// Capture runs a capture screen on the host.
func (c *IntentClient) Capture(ctx context.Context, variant activity.Variant, intent sharing.Intent) (app.CaptureResult, error) {
	path := "/intents/capture"
	if variant != "" {
		path += "?variant=" + url.QueryEscape(string(variant))
	}
	var result app.CaptureResult
	if err := c.post(ctx, path, intent, &result); err != nil {
		return app.CaptureResult{}, fmt.Errorf("failed to capture share: %w", err)
	}
	c.logger.Info().Str("variant", string(result.Variant)).Str("kind", result.Kind).Msg("Captured share")
	return result, nil
}

// Resume resumes the host's primary screen.
func (c *IntentClient) Resume(ctx context.Context) (app.PrimaryStatus, error) {
	var status app.PrimaryStatus
	if err := c.post(ctx, "/lifecycle/resume", nil, &status); err != nil {
		return app.PrimaryStatus{}, fmt.Errorf("failed to resume primary: %w", err)
	}
	return status, nil
}

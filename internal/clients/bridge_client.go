// Package clients provides HTTP clients for driving a running share receiver host.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/illmade-knight/share-receiver/pkg/activity"
	"github.com/rs/zerolog"
)

var (
	// ErrNotImplemented mirrors a bridge call the host does not implement.
	ErrNotImplemented = errors.New("method not implemented by host")
	// ErrNoPrimary mirrors a host whose primary screen is not running.
	ErrNoPrimary = errors.New("host primary screen is not running")
)

// BridgeClient calls bridge methods on one channel of the host server.
type BridgeClient struct {
	baseURL    string
	channel    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewBridgeClient creates a client for channel. An empty channel selects the share channel.
func NewBridgeClient(baseURL, channel string, logger zerolog.Logger) *BridgeClient {
	if channel == "" {
		channel = activity.ShareChannel
	}
	return &BridgeClient{
		baseURL: baseURL,
		channel: channel,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("client", "bridge").Str("channel", channel).Logger(),
	}
}

type methodResult struct {
	Result json.RawMessage `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Invoke calls method with optional JSON-encodable args and returns the raw result.
// A null result is returned as nil.
func (c *BridgeClient) Invoke(ctx context.Context, method string, args any) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/channels/%s/methods/%s", c.baseURL, c.channel, method)

	var body io.Reader
	if args != nil {
		payload, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal arguments: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s request: %w", method, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	var result methodResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	c.logger.Debug().Str("method", method).Msg("Bridge call completed")
	if len(result.Result) == 0 || string(result.Result) == "null" {
		return nil, nil
	}
	return result.Result, nil
}

// checkStatus maps host error statuses back onto client errors.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	var e errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&e)

	switch resp.StatusCode {
	case http.StatusNotImplemented:
		return fmt.Errorf("%w: %s", ErrNotImplemented, e.Error)
	case http.StatusConflict:
		return ErrNoPrimary
	default:
		return fmt.Errorf("host returned unexpected status code %d: %s", resp.StatusCode, e.Error)
	}
}

func (c *BridgeClient) invokeInto(ctx context.Context, method string, out any) (bool, error) {
	raw, err := c.Invoke(ctx, method, nil)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return true, nil
}

// GetSharedText takes the shared text, or nil when there is none.
func (c *BridgeClient) GetSharedText(ctx context.Context) (*string, error) {
	var text string
	ok, err := c.invokeInto(ctx, activity.MethodGetSharedText, &text)
	if !ok {
		return nil, err
	}
	return &text, nil
}

// GetSharedImageURIs takes the shared image URIs, or nil when there are none.
func (c *BridgeClient) GetSharedImageURIs(ctx context.Context) ([]string, error) {
	var uris []string
	_, err := c.invokeInto(ctx, activity.MethodGetSharedImageURIs, &uris)
	return uris, err
}

// GetInitialSharedContent reads the start-up snapshot without clearing it.
func (c *BridgeClient) GetInitialSharedContent(ctx context.Context) (activity.InitialContent, error) {
	var content activity.InitialContent
	_, err := c.invokeInto(ctx, activity.MethodGetInitialSharedContent, &content)
	return content, err
}

func (c *BridgeClient) invokeBool(ctx context.Context, method string) (bool, error) {
	var b bool
	_, err := c.invokeInto(ctx, method, &b)
	return b, err
}

// HasSharedContent drains the host's store and reports whether content is held.
func (c *BridgeClient) HasSharedContent(ctx context.Context) (bool, error) {
	return c.invokeBool(ctx, activity.MethodHasSharedContent)
}

// CheckForNewContent drains the host's store and reports whether it had content.
func (c *BridgeClient) CheckForNewContent(ctx context.Context) (bool, error) {
	return c.invokeBool(ctx, activity.MethodCheckForNewContent)
}

// CancelReturn keeps the host's primary screen open.
func (c *BridgeClient) CancelReturn(ctx context.Context) (bool, error) {
	return c.invokeBool(ctx, activity.MethodCancelReturn)
}

// AcknowledgeSave reports the outcome of saving the shared content.
func (c *BridgeClient) AcknowledgeSave(ctx context.Context, success bool) error {
	method := activity.MethodSaveContentFailure
	if success {
		method = activity.MethodSaveContentSuccess
	}
	_, err := c.Invoke(ctx, method, nil)
	return err
}

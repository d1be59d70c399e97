package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goliatone/go-scoreform/pkg/prediction"
)

// DefaultTimeout bounds the prediction call so a stalled upstream never
// leaves the form disabled indefinitely.
const DefaultTimeout = 15 * time.Second

const maxResponseBody = 1 << 20

// UpstreamError carries a success:false payload from the prediction
// endpoint. Its message is shown to the user verbatim.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// HTTPOption customises the HTTP classifier client.
type HTTPOption func(*HTTPClient)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// HTTPClient implements Classifier against a remote prediction endpoint.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient points a classifier client at the endpoint URL.
func NewHTTPClient(endpoint string, options ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// Classify posts the request as JSON and interprets the response envelope.
func (c *HTTPClient) Classify(ctx context.Context, req prediction.Request) (*prediction.Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("submit: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("submit: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submit: call prediction endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("submit: read response: %w", err)
	}

	var envelope prediction.Response
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("submit: decode response (status %d): %w", resp.StatusCode, err)
	}

	if !envelope.Success {
		message := envelope.Error
		if message == "" {
			message = fmt.Sprintf("prediction endpoint returned status %d", resp.StatusCode)
		}
		return nil, &UpstreamError{Message: message}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("submit: prediction endpoint returned status %d", resp.StatusCode)
	}
	if err := envelope.Result.Validate(); err != nil {
		return nil, fmt.Errorf("submit: malformed result: %w", err)
	}
	return envelope.Result, nil
}

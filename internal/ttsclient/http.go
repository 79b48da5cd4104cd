package ttsclient

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

// API endpoints.
const (
	pathSynthesize      = "/v1/synthesize"
	pathSynthesizeBatch = "/v1/synthesize/batch"
	pathCredits         = "/v1/credits"
	pathHealth          = "/health"
)

const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerAPIKey      = "X-API-Key"
	contentTypeJSON   = "application/json"
)

// HTTPClient talks to the TTS service over JSON/HTTP.
type HTTPClient struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	batchTimeout time.Duration
}

// NewHTTPClient builds a client for baseURL. timeout bounds single requests;
// batchTimeout bounds batch requests.
func NewHTTPClient(baseURL, apiKey string, timeout, batchTimeout time.Duration) *HTTPClient {
	if batchTimeout < timeout {
		batchTimeout = timeout
	}
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		client:       &http.Client{Timeout: timeout},
		batchTimeout: batchTimeout,
	}
}

// Synthesize renders a single line.
func (c *HTTPClient) Synthesize(ctx context.Context, req SynthesizeRequest) (SynthesizeResult, error) {
	if err := validateSingle(req); err != nil {
		return SynthesizeResult{}, err
	}
	var result SynthesizeResult
	if err := c.do(ctx, c.client, http.MethodPost, pathSynthesize, req, &result); err != nil {
		return SynthesizeResult{}, err
	}
	if result.OutputPath == "" {
		result.OutputPath = req.OutputPath
	}
	return result, nil
}

// SynthesizeBatch submits all items as one request.
func (c *HTTPClient) SynthesizeBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if err := validateBatch(req); err != nil {
		return BatchResult{}, err
	}
	batchClient := &http.Client{Timeout: c.batchTimeout, Transport: c.client.Transport}
	var result BatchResult
	if err := c.do(ctx, batchClient, http.MethodPost, pathSynthesizeBatch, req, &result); err != nil {
		return BatchResult{}, err
	}
	return result, nil
}

// CreditBalance returns the remaining credits across the service's keys.
func (c *HTTPClient) CreditBalance(ctx context.Context) (int, error) {
	var payload struct {
		Total int `json:"total"`
	}
	if err := c.do(ctx, c.client, http.MethodGet, pathCredits, nil, &payload); err != nil {
		return 0, err
	}
	return payload.Total, nil
}

// Subscribe is a no-op; the HTTP transport has no event channel.
func (c *HTTPClient) Subscribe(context.Context, func(Event)) error {
	return nil
}

// Ping checks the service health endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, c.client, http.MethodGet, pathHealth, nil, nil)
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) do(ctx context.Context, client *http.Client, method, path string, body any, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}
	req.Header.Set(headerAccept, contentTypeJSON)
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request to tts service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseErrorResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseErrorResponse decodes the service's JSON error body, falling back to
// the raw body text.
func parseErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	svcErr := &ServiceError{Status: resp.Status}
	if err := json.Unmarshal(raw, svcErr); err == nil && svcErr.Detail != "" {
		return svcErr
	}
	svcErr.Detail = strings.TrimSpace(string(raw))
	if svcErr.Detail == "" {
		svcErr.Detail = http.StatusText(resp.StatusCode)
	}
	return svcErr
}

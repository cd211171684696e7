package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/middleware"

	"github.com/sirupsen/logrus"
)

// APIClient is the single configured HTTP client every component talks to
// the backend through.
type APIClient struct {
	baseURL string
	client  *http.Client
	log     *logrus.Logger
}

// AuthHooks connects the client to the session state. Either field may be nil.
type AuthHooks struct {
	Tokens       middleware.TokenSource
	Unauthorized middleware.UnauthorizedHandler
}

func NewAPIClient(baseURL string, timeout time.Duration, hooks AuthHooks, logger *logrus.Logger) (*APIClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		logger.Errorf("APIClient: Invalid base URL '%s': %v", baseURL, err)
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}

	transport := &middleware.RequestLogger{
		Next: &middleware.BearerTransport{
			Next:         http.DefaultTransport,
			Tokens:       hooks.Tokens,
			Unauthorized: hooks.Unauthorized,
			Log:          logger,
		},
		Log: logger,
	}

	logger.Infof("APIClient: Initialized for %s (timeout %s)", baseURL, timeout)
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		log: logger,
	}, nil
}

// Do sends body as JSON (when non-nil) and decodes a successful response
// into out (when non-nil). Failures are always *APIError.
func (c *APIClient) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			c.log.Errorf("APIClient: Failed to marshal %s %s body: %v", method, path, err)
			return fmt.Errorf("failed to prepare request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		c.log.Errorf("APIClient: Failed to create %s %s request: %v", method, path, err)
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warnf("APIClient: %s %s got no response: %v", method, path, err)
		return &APIError{Kind: NetworkFailure, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warnf("APIClient: Failed to read %s %s response: %v", method, path, err)
		return &APIError{Kind: NetworkFailure, Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{
			Kind:       kindForStatus(resp.StatusCode),
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
		}
		parseErrorPayload(apiErr, respBody)
		c.log.Warnf("APIClient: %s %s failed with status %d: %s", method, path, resp.StatusCode, apiErr.Message())
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], respBody...)
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		c.log.Errorf("APIClient: Failed to decode %s %s response: %v", method, path, err)
		return &APIError{Kind: ServerFailure, Method: method, Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// getList fetches path and normalizes a bare list or a paginated envelope.
func getList[T any](ctx context.Context, c *APIClient, path string, query url.Values) ([]T, int, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, query, nil, &raw); err != nil {
		return nil, 0, err
	}
	items, count, err := DecodeList[T](raw)
	if err != nil {
		c.log.Errorf("APIClient: GET %s returned an unusable list: %v", path, err)
		return nil, 0, &APIError{Kind: ServerFailure, Method: http.MethodGet, Path: path, StatusCode: http.StatusOK, Err: err}
	}
	return items, count, nil
}

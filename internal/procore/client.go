package procore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrUnauthorized signals a 401 from the platform. The client never
// refreshes tokens itself; recovery is the token coordinator's job.
var ErrUnauthorized = errors.New("procore: unauthorized")

const transientRetries = 2

// Client is a thin, stateless client for the platform's vendor, project
// and compliance endpoints. The bearer token is supplied per call.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) ListVendors(ctx context.Context, accessToken string, page, perPage int, activeOnly bool) (*VendorPage, error) {
	query := pageQuery(page, perPage)
	if activeOnly {
		query.Set("active", "true")
	}

	var result VendorPage
	if err := c.do(ctx, http.MethodGet, "/vendors", accessToken, query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListProjectVendors(ctx context.Context, accessToken string, projectID int64, page, perPage int) (*VendorPage, error) {
	path := fmt.Sprintf("/projects/%d/vendors", projectID)

	var result VendorPage
	if err := c.do(ctx, http.MethodGet, path, accessToken, pageQuery(page, perPage), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListProjects(ctx context.Context, accessToken string, page, perPage int) (*ProjectPage, error) {
	var result ProjectPage
	if err := c.do(ctx, http.MethodGet, "/projects", accessToken, pageQuery(page, perPage), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) PushComplianceStatus(ctx context.Context, accessToken string, externalVendorID int64, status string, details map[string]interface{}) (*PushOutcome, error) {
	path := fmt.Sprintf("/vendors/%d/compliance", externalVendorID)
	body := map[string]interface{}{
		"status":  status,
		"details": details,
	}

	var result PushOutcome
	if err := c.do(ctx, http.MethodPost, path, accessToken, nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, query url.Values, body, result interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	resp, err := c.send(ctx, method, target, accessToken, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("procore: API error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("procore: failed to parse response: %w", err)
	}

	return nil
}

// send retries transport-level failures a fixed small number of times.
// HTTP-level errors are never retried here.
func (c *Client) send(ctx context.Context, method, target, accessToken string, payload []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= transientRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}

	return nil, fmt.Errorf("procore: request failed after retries: %w", lastErr)
}

func pageQuery(page, perPage int) url.Values {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	return query
}

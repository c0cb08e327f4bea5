package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxContentSize bounds a single content download
const MaxContentSize = 32 << 20

// NetworkError is a transport failure or a non-2xx response
type NetworkError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Permanent reports whether retrying can never succeed (400 and 404)
func (e *NetworkError) Permanent() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusNotFound
}

// IsPermanent reports whether err wraps a permanent NetworkError
func IsPermanent(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr) && netErr.Permanent()
}

// Content is a downloaded piece of content
type Content struct {
	Data        []byte
	ContentType string
}

// ContentClient downloads content by identifier from an explorer-style endpoint
type ContentClient struct {
	http    *HTTPClient
	baseURL string
	logger  Logger
}

// NewContentClient creates a client for <baseURL>/content/<id>
func NewContentClient(httpClient *HTTPClient, baseURL string, logger Logger) *ContentClient {
	return &ContentClient{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ContentURL returns the URL content id is served from
func (c *ContentClient) ContentURL(id string) string {
	return c.baseURL + "/content/" + id
}

// BaseURL returns the endpoint root
func (c *ContentClient) BaseURL() string {
	return c.baseURL
}

// Fetch downloads content id. Failures are returned as *NetworkError.
func (c *ContentClient) Fetch(ctx context.Context, id string) (*Content, error) {
	url := c.ContentURL(id)

	resp, err := c.http.Get(ctx, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.logger.Debug("content fetch returned error status", "content_id", id, "status", resp.StatusCode)
		return nil, &NetworkError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxContentSize+1))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if len(data) > MaxContentSize {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("content exceeds %d bytes", MaxContentSize)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Content{Data: data, ContentType: contentType}, nil
}

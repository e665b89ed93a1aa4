// Package iptk is a small client for the IPTK dataset API: the dataset change
// log, dataset files and per-dataset metadata sets.
package iptk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 1024

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client talks to one IPTK API endpoint.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient returns a client for baseURL whose transport is traced with
// otelhttp.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTPClient(baseURL, &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewClientWithHTTPClient returns a client that sends requests with hc.
func NewClientWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

func (c *Client) datasetURL(datasetID string, segments ...string) string {
	parts := []string{c.BaseURL, "v3", "datasets", url.PathEscape(datasetID)}
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return strings.Join(parts, "/")
}

// DatasetChanges fetches one page of the change log starting at cursor.
func (c *Client) DatasetChanges(ctx context.Context, cursor, perPage int) (*ChangePage, error) {
	q := url.Values{}
	q.Set("start", strconv.Itoa(cursor))
	q.Set("per_page", strconv.Itoa(perPage))
	targetURL := c.BaseURL + "/v3/logs/dataset_changes?" + q.Encode()

	var page ChangePage
	if err := c.getJSON(ctx, targetURL, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DatasetMeta lists the metadata sets already attached to a dataset.
func (c *Client) DatasetMeta(ctx context.Context, datasetID string) (*DatasetMeta, error) {
	var meta DatasetMeta
	if err := c.getJSON(ctx, c.datasetURL(datasetID, "meta"), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// DatasetFiles lists the file names of a dataset in API order.
func (c *Client) DatasetFiles(ctx context.Context, datasetID string) (*DatasetFiles, error) {
	var files DatasetFiles
	if err := c.getJSON(ctx, c.datasetURL(datasetID, "data"), &files); err != nil {
		return nil, err
	}
	return &files, nil
}

// DatasetFile downloads the raw content of one file. Slashes in name are
// kept as path separators; every segment is escaped.
func (c *Client) DatasetFile(ctx context.Context, datasetID, name string) ([]byte, error) {
	segments := append([]string{"data"}, strings.Split(name, "/")...)
	targetURL := c.datasetURL(datasetID, segments...)
	resp, err := c.do(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", targetURL, err)
	}
	slog.DebugContext(ctx, "Downloaded dataset file", "url", targetURL, "bytes", len(data))
	return data, nil
}

// PublishMeta stores a metadata document for schemaID on a dataset.
func (c *Client) PublishMeta(ctx context.Context, datasetID, schemaID string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode metadata for %s: %w", datasetID, err)
	}
	resp, err := c.do(ctx, http.MethodPost, c.datasetURL(datasetID, "meta", schemaID), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) getJSON(ctx context.Context, targetURL string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response from %s: %w", targetURL, err)
	}
	return nil
}

// do sends a request and turns non-2xx responses into *StatusError. On
// success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, method, targetURL string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, targetURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request %s %s: %w", method, targetURL, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, targetURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.DebugContext(ctx, "IPTK API returned non-2xx status", "method", method, "url", targetURL, "statusCode", resp.StatusCode)
		return nil, &StatusError{
			Method:     method,
			URL:        targetURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(bodyBytes)),
		}
	}
	return resp, nil
}

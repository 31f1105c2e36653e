package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medtravel/directory/pkg/config"
	"github.com/medtravel/directory/pkg/retry"
)

const (
	queryPath  = "/wix-data/v2/items/query"
	insertPath = "/wix-data/v2/items"
)

// Item is one data item returned by the CMS
type Item struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// PagingMetadata describes the page a query returned
type PagingMetadata struct {
	Count   int  `json:"count"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasNext bool `json:"hasNext"`
}

// QueryResult is the response to a query
type QueryResult struct {
	Items          []Item          `json:"dataItems"`
	PagingMetadata *PagingMetadata `json:"pagingMetadata,omitempty"`
}

// Sort orders query results by one field
type Sort struct {
	FieldName string `json:"fieldName"`
	Order     string `json:"order"`
}

// Query selects items from one collection
type Query struct {
	Collection string
	Filter     Filter
	Sort       []Sort
	Limit      int
	Offset     int
}

type paging struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type queryBody struct {
	Filter Filter `json:"filter,omitempty"`
	Sort   []Sort `json:"sort,omitempty"`
	Paging paging `json:"paging"`
}

type queryRequest struct {
	DataCollectionID string    `json:"dataCollectionId"`
	Query            queryBody `json:"query"`
	ReturnTotalCount bool      `json:"returnTotalCount"`
}

type insertRequest struct {
	DataCollectionID string `json:"dataCollectionId"`
	DataItem         struct {
		Data map[string]any `json:"data"`
	} `json:"dataItem"`
}

type insertResponse struct {
	DataItem Item `json:"dataItem"`
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cms returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if repeated
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the CMS data REST API
type Client interface {
	Query(ctx context.Context, q Query) (*QueryResult, error)
	Insert(ctx context.Context, collection string, data map[string]any) (*Item, error)
}

// HTTPClient is the REST implementation of Client
type HTTPClient struct {
	baseURL    string
	apiKey     string
	siteID     string
	httpClient *http.Client
	retry      retry.Config
}

// NewClient creates a CMS client from configuration
func NewClient(cfg *config.CMSConfig) *HTTPClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		siteID:  cfg.SiteID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry: retry.RequestConfig(),
	}
}

// WithRetry overrides the per-request retry policy
func (c *HTTPClient) WithRetry(cfg retry.Config) *HTTPClient {
	c.retry = cfg
	return c
}

// Query runs one page of a collection query
func (c *HTTPClient) Query(ctx context.Context, q Query) (*QueryResult, error) {
	if strings.TrimSpace(q.Collection) == "" {
		return nil, fmt.Errorf("collection is required")
	}
	req := queryRequest{
		DataCollectionID: q.Collection,
		Query: queryBody{
			Filter: q.Filter,
			Sort:   q.Sort,
			Paging: paging{Limit: q.Limit, Offset: q.Offset},
		},
		ReturnTotalCount: true,
	}

	out := &QueryResult{}
	if err := c.doJSON(ctx, c.retry, http.MethodPost, queryPath, "query "+q.Collection, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert creates one item. Inserts are not idempotent and are attempted once.
func (c *HTTPClient) Insert(ctx context.Context, collection string, data map[string]any) (*Item, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, fmt.Errorf("collection is required")
	}
	req := insertRequest{DataCollectionID: collection}
	req.DataItem.Data = data

	out := &insertResponse{}
	if err := c.doJSON(ctx, retry.Config{MaxAttempts: 1}, http.MethodPost, insertPath, "insert "+collection, req, out); err != nil {
		return nil, err
	}
	return &out.DataItem, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, policy retry.Config, method, path, op string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	return retry.Do(ctx, policy, "cms "+op, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", c.apiKey)
		}
		if c.siteID != "" {
			httpReq.Header.Set("wix-site-id", c.siteID)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
			if !statusErr.Retryable() {
				return retry.Permanent(statusErr)
			}
			return statusErr
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Permanent(fmt.Errorf("failed to decode %s response: %w", op, err))
		}
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("CMS request failed, retrying")
	})
}

// Package directoryclient consumes the directory API the way the site does:
// a fast first page for the initial render, then the rest in the background.
package directoryclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/medtravel/directory/internal/catalog"
	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/pkg/retry"
)

const (
	cmsPath = "/api/cms"

	defaultPageSize    = 50
	defaultConcurrency = 4
)

// Snapshot is the client-side view of the directory. Doctors are flattened
// locally from the loaded hospitals. Complete is false for the partial
// snapshot handed to the onPartial callback.
type Snapshot struct {
	Hospitals       []entities.Hospital
	Treatments      []entities.ExtendedTreatment
	Doctors         []entities.ExtendedDoctor
	TotalHospitals  int
	TotalTreatments int
	LastUpdated     time.Time
	Complete        bool
}

type pageResponse struct {
	Hospitals       []entities.Hospital          `json:"hospitals"`
	Treatments      []entities.ExtendedTreatment `json:"treatments"`
	TotalHospitals  int                          `json:"totalHospitals"`
	TotalTreatments int                          `json:"totalTreatments"`
	Page            int                          `json:"page"`
	PageSize        int                          `json:"pageSize"`
	HasMore         bool                         `json:"hasMore"`
	LastUpdated     time.Time                    `json:"lastUpdated"`
}

// StatusError is returned when the API answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("directory api returned status %d: %s", e.StatusCode, e.Message)
}

// Client reads the aggregated directory from the HTTP API
type Client struct {
	baseURL     string
	httpClient  *http.Client
	pageSize    int
	concurrency int
	retry       retry.Config
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPageSize sets how many hospitals each page request asks for
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithConcurrency bounds the background page fetches
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithRetry overrides the per-page retry policy
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		pageSize:    defaultPageSize,
		concurrency: defaultConcurrency,
		retry:       retry.RequestConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadProgressive fetches page 0 and hands it to onPartial before loading
// the remaining pages concurrently. The returned snapshot holds every
// hospital exactly once, in page order. onPartial may be nil.
func (c *Client) LoadProgressive(ctx context.Context, onPartial func(*Snapshot)) (*Snapshot, error) {
	first, err := c.fetchPage(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load first page: %w", err)
	}

	if onPartial != nil {
		partial := snapshotFrom(first, [][]entities.Hospital{first.Hospitals})
		partial.Complete = !first.HasMore
		onPartial(partial)
	}

	if !first.HasMore {
		full := snapshotFrom(first, [][]entities.Hospital{first.Hospitals})
		full.Complete = true
		return full, nil
	}

	pageSize := first.PageSize
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	pages := (first.TotalHospitals + pageSize - 1) / pageSize

	results := make([][]entities.Hospital, pages)
	results[0] = first.Hospitals

	var mu sync.Mutex
	changed := false

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for page := 1; page < pages; page++ {
		g.Go(func() error {
			resp, err := c.fetchPage(gctx, page)
			if err != nil {
				return fmt.Errorf("failed to load page %d: %w", page, err)
			}
			mu.Lock()
			results[page] = resp.Hospitals
			if !resp.LastUpdated.Equal(first.LastUpdated) {
				changed = true
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if changed {
		log.Debug().Time("first_page", first.LastUpdated).Msg("Snapshot rebuilt during progressive load, merging by id")
	}

	full := snapshotFrom(first, results)
	full.Complete = true
	return full, nil
}

// snapshotFrom merges hospital pages by id. A snapshot rebuilt between page
// requests can shift hospitals across page boundaries, so the first
// occurrence wins.
func snapshotFrom(first *pageResponse, pages [][]entities.Hospital) *Snapshot {
	seen := make(map[string]bool)
	hospitals := make([]entities.Hospital, 0, first.TotalHospitals)
	for _, page := range pages {
		for _, h := range page {
			if seen[h.ID] {
				continue
			}
			seen[h.ID] = true
			hospitals = append(hospitals, h)
		}
	}

	treatments := first.Treatments
	if treatments == nil {
		treatments = []entities.ExtendedTreatment{}
	}

	return &Snapshot{
		Hospitals:       hospitals,
		Treatments:      treatments,
		Doctors:         catalog.ExtendedDoctors(hospitals),
		TotalHospitals:  first.TotalHospitals,
		TotalTreatments: first.TotalTreatments,
		LastUpdated:     first.LastUpdated,
	}
}

func (c *Client) fetchPage(ctx context.Context, page int) (*pageResponse, error) {
	q := url.Values{}
	q.Set("action", "all")
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	endpoint := c.baseURL + cmsPath + "?" + q.Encode()

	out := &pageResponse{}
	err := retry.Do(ctx, c.retry, "directory page "+strconv.Itoa(page), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			statusErr := &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return statusErr
			}
			return retry.Permanent(statusErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Permanent(fmt.Errorf("failed to decode page: %w", err))
		}
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

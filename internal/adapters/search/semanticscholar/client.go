// Package semanticscholar searches the Semantic Scholar Graph API for papers.
package semanticscholar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/observability"
	"github.com/bnema/smartani/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://api.semanticscholar.org"
	DefaultLimit      = 3
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
	DefaultTimeout    = 10 * time.Second

	searchPath       = "/graph/v1/paper/search"
	searchFields     = "title,authors,year,abstract,citationCount,venue,url"
	paperURLPrefix   = "https://www.semanticscholar.org/paper/"
	maxResponseBytes = 4 << 20
)

var errRateLimited = errors.New("rate limited")

type Config struct {
	BaseURL        string
	APIKey         string
	Limit          int
	MaxRetries     int
	RetryDelay     time.Duration
	Timeout        time.Duration
	RequestsPerSec float64
}

type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	sleep      ports.Sleeper
	logger     *zap.Logger
}

var _ ports.ScholarSearch = (*Client)(nil)

func NewClient(config Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if config.RequestsPerSec > 0 {
		limit = rate.Limit(config.RequestsPerSec)
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		sleep:      ports.Sleep,
		logger:     logger,
	}
}

type searchResponse struct {
	Total int           `json:"total"`
	Data  []paperRecord `json:"data"`
}

type paperRecord struct {
	PaperID       string         `json:"paperId"`
	Title         string         `json:"title"`
	Authors       []authorRecord `json:"authors"`
	Year          *int           `json:"year"`
	Abstract      *string        `json:"abstract"`
	CitationCount int            `json:"citationCount"`
	Venue         *string        `json:"venue"`
	URL           string         `json:"url"`
}

type authorRecord struct {
	Name string `json:"name"`
}

// Search returns up to Limit papers for query. Rate-limited requests are
// retried with a delay growing linearly per attempt. Every failure wraps
// domain.ErrNoExternalData.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search papers: empty query: %w", domain.ErrNoExternalData)
	}

	endpoint, err := c.endpoint(query)
	if err != nil {
		return nil, fmt.Errorf("search papers: %w: %w", domain.ErrNoExternalData, err)
	}

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		papers, err := c.searchOnce(ctx, endpoint)
		if err == nil {
			observability.RecordSearchRequest("ok")
			if len(papers) == 0 {
				return nil, fmt.Errorf("search papers %q: no results: %w", query, domain.ErrNoExternalData)
			}
			return papers, nil
		}

		if !errors.Is(err, errRateLimited) {
			observability.RecordSearchRequest("error")
			return nil, fmt.Errorf("search papers %q: %w: %w", query, domain.ErrNoExternalData, err)
		}

		observability.RecordSearchRequest("rate_limited")
		if attempt == c.config.MaxRetries {
			break
		}

		delay := c.config.RetryDelay * time.Duration(attempt)
		c.logger.Warn("search rate limited, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("search papers %q: %w: %w", query, domain.ErrNoExternalData, err)
		}
	}

	return nil, fmt.Errorf("search papers %q: %w after %d attempts: %w", query, errRateLimited, c.config.MaxRetries, domain.ErrNoExternalData)
}

func (c *Client) searchOnce(ctx context.Context, endpoint string) ([]domain.Paper, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("x-api-key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("request search: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	papers := make([]domain.Paper, 0, len(payload.Data))
	for _, record := range payload.Data {
		papers = append(papers, record.toPaper())
	}
	return papers, nil
}

func (c *Client) endpoint(query string) (string, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse search base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", errors.New("search base url must use http or https")
	}

	endpoint := base.JoinPath(searchPath)
	values := url.Values{}
	values.Set("query", query)
	values.Set("limit", strconv.Itoa(c.config.Limit))
	values.Set("fields", searchFields)
	endpoint.RawQuery = values.Encode()
	return endpoint.String(), nil
}

func (r paperRecord) toPaper() domain.Paper {
	authors := make([]string, 0, len(r.Authors))
	for _, author := range r.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			authors = append(authors, name)
		}
	}

	paperURL := r.URL
	if paperURL == "" && r.PaperID != "" {
		paperURL = paperURLPrefix + r.PaperID
	}

	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = "Untitled"
	}

	return domain.Paper{
		Title:         title,
		Authors:       authors,
		Year:          r.Year,
		Abstract:      nonEmpty(r.Abstract),
		CitationCount: r.CitationCount,
		Venue:         nonEmpty(r.Venue),
		URL:           paperURL,
	}
}

func nonEmpty(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return value
}

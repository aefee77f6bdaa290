package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/m-mizutani/breakwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/breakwatch/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultBaseURL is the public catalog API endpoint
const DefaultBaseURL = "https://api.breakingchanges.dev/v1"

// maxErrorBody bounds how much of an error response is kept for diagnostics
const maxErrorBody = 1024

type client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the catalog client
type Option func(*client)

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(c *client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a catalog client for baseURL
func NewClient(baseURL string, opts ...Option) interfaces.CatalogClient {
	c := &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Diff calls GET /diff?package=&from=&to=
func (c *client) Diff(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error) {
	query := url.Values{}
	query.Set("package", packageID)
	query.Set("from", from)
	query.Set("to", to)

	var diff model.CatalogDiff
	if err := c.get(ctx, "/diff", query, &diff); err != nil {
		return nil, err
	}
	return &diff, nil
}

// Releases calls GET /releases?source=&limit=
func (c *client) Releases(ctx context.Context, packageID string, limit int) ([]model.CatalogRelease, error) {
	query := url.Values{}
	query.Set("source", packageID)
	query.Set("limit", strconv.Itoa(limit))

	var releases []model.CatalogRelease
	if err := c.get(ctx, "/releases", query, &releases); err != nil {
		return nil, err
	}
	return releases, nil
}

func (c *client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to create catalog request", goerr.V("url", endpoint))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", types.ServiceName+"/"+types.Version)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to call catalog", goerr.V("url", endpoint))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return goerr.New("unexpected catalog response status",
			goerr.V("url", endpoint),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "failed to decode catalog response", goerr.V("url", endpoint))
	}

	return nil
}

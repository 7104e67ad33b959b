package pricefeed

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tendermint/tendermint/libs/log"
)

const (
	DefaultJSONPath = "autonolas.usd"
	DefaultTimeout  = 10 * time.Second

	apiKeyHeader = "x-cg-demo-api-key"
)

// Client reads one price from a JSON HTTP endpoint.
type Client struct {
	url      string
	apiKey   string
	jsonPath []string

	httpClient *http.Client
	logger     log.Logger
}

type Option func(*Client)

// WithJSONPath sets the dotted path of the price in the response body.
func WithJSONPath(path string) Option {
	return func(c *Client) {
		c.jsonPath = strings.Split(path, ".")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(url, apiKey string, logger log.Logger, options ...Option) *Client {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	c := &Client{
		url:        url,
		apiKey:     apiKey,
		jsonPath:   strings.Split(DefaultJSONPath, "."),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) SetLogger(logger log.Logger) {
	c.logger = logger
}

// GetPrice returns nil when the price cannot be read. Failures are logged,
// never returned.
func (c *Client) GetPrice(ctx context.Context) *float64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		c.logger.Error("bad price request", "url", c.url, "err", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed to fetch the price", "err", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read the price response", "err", err)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("error in fetching the price", "status_code", resp.StatusCode)
		return nil
	}

	path := make([]interface{}, len(c.jsonPath))
	for i, p := range c.jsonPath {
		path[i] = p
	}
	value := jsoniter.Get(body, path...)
	if value.LastError() != nil || value.ValueType() != jsoniter.NumberValue {
		c.logger.Error("could not parse the price", "path", strings.Join(c.jsonPath, "."), "body", string(body))
		return nil
	}
	price := value.ToFloat64()
	c.logger.Info("fetched the price", "price", price)
	return &price
}

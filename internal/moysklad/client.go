package moysklad

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
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the connection settings for the МойСклад JSON API. Either
// Token (preferred) or Login+Password must be set.
type Config struct {
	BaseURL  string `json:"base_url"`
	Token    string `json:"token"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

// HasCredentials reports whether any usable auth is configured.
func (c Config) HasCredentials() bool {
	return c.Token != "" || (c.Login != "" && c.Password != "")
}

var ErrNoCredentials = errors.New("moysklad: no credentials configured (set token or login/password)")

// APIError is returned for transport failures and non-2xx responses. Callers
// must not retry; whether a run is retried is the operator's call.
type APIError struct {
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("moysklad api: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("moysklad api: %v", e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Kind names a remote collection the sync understands.
type Kind string

const (
	KindProduct      Kind = "product"
	KindOrder        Kind = "customerorder"
	KindCategory     Kind = "productfolder"
	KindCounterparty Kind = "counterparty"
	KindStock        Kind = "stock"
)

func (k Kind) endpoint() string {
	if k == KindStock {
		return "report/stock/all"
	}
	return "entity/" + string(k)
}

type Meta struct {
	Href   string `json:"href"`
	Size   int    `json:"size"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// ListResponse is one page of a remote collection.
type ListResponse struct {
	Meta Meta     `json:"meta"`
	Rows []Record `json:"rows"`
}

type Client struct {
	log  zerolog.Logger
	cfg  Config
	http *http.Client
}

func New(log zerolog.Logger, cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("moysklad: base_url is empty")
	}
	if !cfg.HasCredentials() {
		return nil, ErrNoCredentials
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		log:  log,
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// request performs exactly one HTTP call. No retries here.
func (c *Client) request(ctx context.Context, method, endpoint string, query url.Values, body any) ([]byte, error) {
	u := c.cfg.BaseURL + "/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("moysklad: encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, &APIError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Token takes precedence over basic auth when both are configured.
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	} else {
		req.SetBasicAuth(c.cfg.Login, c.cfg.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("endpoint", endpoint).Msg("moysklad request failed")
		return nil, &APIError{Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("moysklad request failed")
		return nil, &APIError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(raw)),
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return raw, nil
}

// List fetches one page of a collection.
func (c *Client) List(ctx context.Context, kind Kind, limit, offset int) (*ListResponse, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	raw, err := c.request(ctx, http.MethodGet, kind.endpoint(), query, nil)
	if err != nil {
		return nil, err
	}
	var out ListResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("moysklad: decode %s page: %w", kind, err)
	}
	return &out, nil
}

func (c *Client) Products(ctx context.Context, limit, offset int) (*ListResponse, error) {
	return c.List(ctx, KindProduct, limit, offset)
}

func (c *Client) Stock(ctx context.Context, limit, offset int) (*ListResponse, error) {
	return c.List(ctx, KindStock, limit, offset)
}

func (c *Client) Orders(ctx context.Context, limit, offset int) (*ListResponse, error) {
	return c.List(ctx, KindOrder, limit, offset)
}

func (c *Client) Categories(ctx context.Context, limit, offset int) (*ListResponse, error) {
	return c.List(ctx, KindCategory, limit, offset)
}

func (c *Client) Counterparties(ctx context.Context, limit, offset int) (*ListResponse, error) {
	return c.List(ctx, KindCounterparty, limit, offset)
}

// Product fetches a single product by its remote id.
func (c *Client) Product(ctx context.Context, id string) (Record, error) {
	raw, err := c.request(ctx, http.MethodGet, "entity/product/"+id, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

func (c *Client) CreateProduct(ctx context.Context, data Record) (Record, error) {
	raw, err := c.request(ctx, http.MethodPost, "entity/product", nil, data)
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

func (c *Client) UpdateProduct(ctx context.Context, id string, data Record) (Record, error) {
	raw, err := c.request(ctx, http.MethodPut, "entity/product/"+id, nil, data)
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

func (c *Client) CreateOrder(ctx context.Context, data Record) (Record, error) {
	raw, err := c.request(ctx, http.MethodPost, "entity/customerorder", nil, data)
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

func decodeRecord(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("moysklad: decode record: %w", err)
	}
	return rec, nil
}

package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is the per-key view of the upstream service. A Client value is bound
// to one API key and is cheap to construct per request.
type Client interface {
	CreateStore(ctx context.Context, displayName string) (*Store, error)
	ListStores(ctx context.Context, pageSize int, pageToken string) (*StorePage, error)
	DeleteStore(ctx context.Context, name string) error

	UploadDocument(ctx context.Context, storeName string, req *UploadRequest) (*Operation, error)
	GetOperation(ctx context.Context, name string) (*Operation, error)

	ListDocuments(ctx context.Context, storeName string, pageSize int, pageToken string) (*DocumentPage, error)
	DeleteDocument(ctx context.Context, name string) error

	GenerateContent(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// Package-level singleton service
var serviceInstance *Service

// Init initializes the upstream service singleton with config.
func Init(cfg Config) error {
	svc, err := NewService(cfg)
	if err != nil {
		return err
	}
	serviceInstance = svc
	return nil
}

// New returns a Client bound to the given API key, backed by the singleton
// service. Init must have been called first.
func New(apiKey string) Client {
	return serviceInstance.WithKey(apiKey)
}

// Service holds the shared HTTP transport and base URL. Per-key Clients are
// derived from it.
type Service struct {
	base   string
	client *http.Client
}

// NewService creates an upstream service from config
func NewService(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// The default transport's 10s TLS handshake timeout is too tight for
	// large uploads over weak links; dial keep-alive stays at 30s.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = 30 * time.Second

	return &Service{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout(),
		},
	}, nil
}

// WithKey returns a Client bound to the given API key
func (s *Service) WithKey(apiKey string) Client {
	return &restClient{svc: s, apiKey: apiKey}
}

// restClient implements Client over the upstream REST API
type restClient struct {
	svc    *Service
	apiKey string
}

var _ Client = (*restClient)(nil)

// CreateStore creates a new store with the given display name
func (c *restClient) CreateStore(ctx context.Context, displayName string) (*Store, error) {
	var store Store
	body := map[string]string{"displayName": displayName}
	if err := c.do(ctx, http.MethodPost, "/v1/stores", nil, body, &store); err != nil {
		return nil, err
	}
	return &store, nil
}

// ListStores fetches one page of the store listing
func (c *restClient) ListStores(ctx context.Context, pageSize int, pageToken string) (*StorePage, error) {
	query := url.Values{}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	var page StorePage
	if err := c.do(ctx, http.MethodGet, "/v1/stores", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DeleteStore force-deletes a store by resource name
func (c *restClient) DeleteStore(ctx context.Context, name string) error {
	query := url.Values{"force": {"true"}}
	return c.do(ctx, http.MethodDelete, "/v1/"+name, query, nil, nil)
}

// UploadDocument starts an upload-and-index job and returns its operation handle
func (c *restClient) UploadDocument(ctx context.Context, storeName string, req *UploadRequest) (*Operation, error) {
	var op Operation
	if err := c.do(ctx, http.MethodPost, "/v1/"+storeName+"/documents:upload", nil, req, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// GetOperation fetches the current status of an async operation
func (c *restClient) GetOperation(ctx context.Context, name string) (*Operation, error) {
	var op Operation
	if err := c.do(ctx, http.MethodGet, "/v1/"+name, nil, nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// ListDocuments fetches one page of a store's document listing
func (c *restClient) ListDocuments(ctx context.Context, storeName string, pageSize int, pageToken string) (*DocumentPage, error) {
	query := url.Values{}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	var page DocumentPage
	if err := c.do(ctx, http.MethodGet, "/v1/"+storeName+"/documents", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DeleteDocument force-deletes a document by resource name
func (c *restClient) DeleteDocument(ctx context.Context, name string) error {
	query := url.Values{"force": {"true"}}
	return c.do(ctx, http.MethodDelete, "/v1/"+name, query, nil, nil)
}

// GenerateContent executes a grounded generation call
func (c *restClient) GenerateContent(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	var resp GenerateResponse
	path := "/v1/models/" + req.Model + ":generateContent"
	if err := c.do(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// errorEnvelope is the upstream's JSON error body
type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// do executes one JSON request against the upstream
func (c *restClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint := c.svc.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.svc.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// decodeError turns a non-2xx response into an APIError carrying the status code
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var envelope errorEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != nil {
		apiErr := *envelope.Error
		if apiErr.StatusCode == 0 {
			apiErr.StatusCode = resp.StatusCode
		}
		return &apiErr
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(data)),
	}
}

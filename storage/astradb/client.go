package astradb

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

	"github.com/wothmag07/cssm/storage"
)

// maxErrorBody caps how much of a failed response is kept in an APIError.
const maxErrorBody = 4096

// Document is a stored Data API document.
type Document struct {
	ID         string         `json:"_id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Vector     []float32      `json:"$vector,omitempty"`
	Similarity float32        `json:"$similarity,omitempty"`
}

// response is the envelope shared by every Data API command.
type response struct {
	Status json.RawMessage `json:"status,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []ErrorDetail   `json:"errors,omitempty"`
}

// Client issues Data API commands against one keyspace.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	keyspace   string
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client. Its timeout is left as given.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the keyspace named in cfg.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.APIEndpoint,
		token:      cfg.Token,
		keyspace:   cfg.Keyspace,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "astradb-client", "keyspace", c.keyspace)
	return c, nil
}

// CreateCollection creates a cosine vector collection. Creating a collection
// that already exists with the same settings succeeds.
func (c *Client) CreateCollection(ctx context.Context, name string, dimension int) error {
	payload := map[string]any{
		"createCollection": map[string]any{
			"name": name,
			"options": map[string]any{
				"vector": map[string]any{
					"dimension": dimension,
					"metric":    "cosine",
				},
			},
		},
	}

	u, err := url.JoinPath(c.endpoint, "api/json/v1", c.keyspace)
	if err != nil {
		return storage.Permanent(fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	if _, err := c.command(ctx, "createCollection", u, payload); err != nil {
		return err
	}
	c.logger.Debug("collection ready", "collection", name, "dimension", dimension)
	return nil
}

// InsertMany writes docs in one unordered request and returns their ids in
// input order. Documents whose id is already stored count as written.
func (c *Client) InsertMany(ctx context.Context, collection string, docs []Document) ([]string, error) {
	payload := map[string]any{
		"insertMany": map[string]any{
			"documents": docs,
			"options":   map[string]any{"ordered": false},
		},
	}

	u, err := c.collectionURL(collection)
	if err != nil {
		return nil, err
	}
	resp, err := c.command(ctx, "insertMany", u, payload)
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !onlyAlreadyExists(apiErr.Details) {
			return nil, err
		}
		c.logger.Debug("documents already stored", "count", len(apiErr.Details))
	}

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	if resp != nil {
		var status struct {
			InsertedIDs []string `json:"insertedIds"`
		}
		if len(resp.Status) > 0 {
			if err := json.Unmarshal(resp.Status, &status); err != nil {
				return nil, storage.Permanent(fmt.Errorf("failed to decode insertMany status: %w", err))
			}
		}
		c.logger.Debug("inserted documents", "collection", collection, "inserted", len(status.InsertedIDs), "sent", len(docs))
	}
	return ids, nil
}

// Find returns up to limit documents of collection nearest to vector,
// restricted by filter, with their similarity.
func (c *Client) Find(ctx context.Context, collection string, vector []float32, filter map[string]any, limit int) ([]Document, error) {
	find := map[string]any{
		"sort": map[string]any{"$vector": vector},
		"options": map[string]any{
			"limit":             limit,
			"includeSimilarity": true,
		},
	}
	if len(filter) > 0 {
		find["filter"] = filter
	}

	u, err := c.collectionURL(collection)
	if err != nil {
		return nil, err
	}
	resp, err := c.command(ctx, "find", u, map[string]any{"find": find})
	if err != nil {
		return nil, err
	}

	var data struct {
		Documents []Document `json:"documents"`
	}
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, storage.Permanent(fmt.Errorf("failed to decode find results: %w", err))
		}
	}
	return data.Documents, nil
}

func (c *Client) collectionURL(collection string) (string, error) {
	u, err := url.JoinPath(c.endpoint, "api/json/v1", c.keyspace, collection)
	if err != nil {
		return "", storage.Permanent(fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	return u, nil
}

// command posts one Data API command. The decoded envelope is returned
// alongside an *APIError when the body carries an errors array.
func (c *Client) command(ctx context.Context, name, u string, payload any) (*response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, storage.Permanent(fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, storage.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Token", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, storage.Transient(fmt.Errorf("%w: %s: %w", ErrRequestFailed, name, err))
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, storage.Transient(fmt.Errorf("%w: reading %s response: %w", ErrRequestFailed, name, err))
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		apiErr := &APIError{Command: name, StatusCode: httpResp.StatusCode}
		var resp response
		if json.Unmarshal(raw, &resp) == nil && len(resp.Errors) > 0 {
			apiErr.Details = resp.Errors
		} else {
			apiErr.Body = truncate(string(raw), maxErrorBody)
		}
		c.logger.Warn("command rejected", "command", name, "status", httpResp.StatusCode, "retryable", apiErr.Retryable())
		return nil, apiErr
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, storage.Permanent(fmt.Errorf("failed to decode %s response: %w", name, err))
	}
	if len(resp.Errors) > 0 {
		return &resp, &APIError{Command: name, StatusCode: httpResp.StatusCode, Details: resp.Errors}
	}
	return &resp, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func onlyAlreadyExists(details []ErrorDetail) bool {
	if len(details) == 0 {
		return false
	}
	for _, d := range details {
		if d.ErrorCode != errorCodeAlreadyExists {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package api is the authenticated client for the remote conversation
// service: paginated conversation listing and per-conversation detail
// fetches. Completed exchanges are reported to an optional observer, which
// is how the passive capture path sees traffic.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hrygo/chatporter/credential"
	"github.com/hrygo/chatporter/store"
)

// defaultTimeout bounds each request. Default to 30 seconds.
const defaultTimeout = 30 * time.Second

// Observer receives every completed exchange, success or not. Used for the
// passive capture path and the raw-capture log.
type Observer interface {
	Observe(Exchange)
}

// Exchange is one observed request/response pair, the unit of the
// raw-capture artifact.
type Exchange struct {
	URL        string          `json:"url"`
	Status     int             `json:"status"`
	Timestamp  time.Time       `json:"timestamp"`
	ByteLength int             `json:"byteLength"`
	Data       json.RawMessage `json:"data"`
}

// Client issues authenticated reads against the conversation service.
type Client struct {
	baseURL    string
	cred       *credential.Credential
	pageSize   int
	httpClient *http.Client
	observer   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithObserver attaches an exchange observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithPageSize sets the list page size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// New creates a client bound to one resolved credential.
func New(baseURL string, cred *credential.Credential, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		cred:     cred,
		pageSize: 50,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListConversations fetches one page of the conversation list. An empty
// cursor requests the first page.
func (c *Client) ListConversations(ctx context.Context, cursor string) (*ListPage, error) {
	endpoint := c.baseURL + "/conversations"
	query := url.Values{}
	query.Set("pageSize", strconv.Itoa(c.pageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	body, err := c.get(ctx, endpoint+"?"+query.Encode(), endpoint)
	if err != nil {
		return nil, err
	}
	page, err := ParseListBody(body)
	if err != nil {
		return nil, &ParseError{Endpoint: endpoint, Err: err}
	}
	return page, nil
}

// GetConversation fetches one conversation with its messages. Returns nil
// for a JSON null body (conversation known but gone).
func (c *Client) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	endpoint := fmt.Sprintf("%s/conversations/%s", c.baseURL, url.PathEscape(id))

	body, err := c.get(ctx, endpoint, endpoint)
	if err != nil {
		return nil, err
	}
	record, err := ParseConversationBody(body)
	if err != nil {
		return nil, &ParseError{Endpoint: endpoint, Err: err}
	}
	return record, nil
}

// get performs one authenticated GET, notifies the observer and returns the
// body. Non-2xx responses become *Error.
func (c *Client) get(ctx context.Context, fullURL, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to construct request to %s", endpoint)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cred.Token)
	req.Header.Set("X-Account-Id", c.cred.AccountID)
	req.Header.Set("X-Tenant-Id", c.cred.TenantID)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request to %s failed", endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response from %s", endpoint)
	}

	c.notify(fullURL, resp.StatusCode, body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Endpoint: endpoint}
	}
	return body, nil
}

func (c *Client) notify(fullURL string, status int, body []byte) {
	if c.observer == nil {
		return
	}
	ex := Exchange{
		URL:        fullURL,
		Status:     status,
		Timestamp:  time.Now().UTC(),
		ByteLength: len(body),
	}
	if json.Valid(body) {
		ex.Data = append(json.RawMessage(nil), body...)
	}
	c.observer.Observe(ex)
}

// Package gateway is the typed HTTP client for the SMS gateway server.
// The server is the system of record; this client only fetches and
// submits, it never caches.
package gateway

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
)

// DefaultTimeout bounds each individual request.
const DefaultTimeout = 15 * time.Second

// Client talks to the gateway's HTTP API.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAuthToken sets the bearer token sent on every request.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client entirely, e.g. to
// install a TLS configuration resolved by the caller.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListContacts returns every contact the server knows, most recent first.
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	var out []Contact
	if err := c.do(ctx, http.MethodGet, "/contacts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMessages fetches one page of a contact's history. cursor is the
// oldest message id already loaded ("" for the newest page); the server
// returns up to limit messages strictly older than it, newest first.
func (c *Client) ListMessages(ctx context.Context, phone, cursor string, limit int) (*MessagePage, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if cursor != "" {
		q.Set("before", cursor)
	}
	var page MessagePage
	if err := c.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(phone), q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SendPart submits one transport part of an outgoing message.
func (c *Client) SendPart(ctx context.Context, phone string, part Part) (*SendAck, error) {
	var ack SendAck
	if err := c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(phone), nil, part, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// FetchDeliveryReport returns the delivery report for a message, or nil
// when the server has not received one yet.
func (c *Client) FetchDeliveryReport(ctx context.Context, messageID string) (*DeliveryReport, error) {
	var report DeliveryReport
	err := c.do(ctx, http.MethodGet, "/delivery-reports/"+url.PathEscape(messageID), nil, nil, &report)
	if err != nil {
		var gwErr *Error
		// 404 means "no report yet", not failure.
		if errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// DeviceInfo returns the state of the device backing the gateway.
func (c *Client) DeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	var info DeviceInfo
	if err := c.do(ctx, http.MethodGet, "/device", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UpdateContactName sets a contact's friendly name on the server.
func (c *Client) UpdateContactName(ctx context.Context, phone, name string) (*Contact, error) {
	body := map[string]string{"friendly_name": name}
	var out Contact
	if err := c.do(ctx, http.MethodPut, "/contacts/"+url.PathEscape(phone), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return &Error{Kind: KindRejected, Op: path, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransient, Op: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Kind: classifyStatus(resp.StatusCode), Op: path, StatusCode: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindTransient, Op: path, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

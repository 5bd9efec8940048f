package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goOIDC/identity"
)

const (
	authPath      = "/api/oidc/auth"
	authQueryPath = "/api/oidc/auth-query"

	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes int64 = 1 << 20
)

// Client talks to the identity provider's OIDC endpoints. HTTP status codes
// are not interpreted: the body alone decides the outcome.
type Client struct {
	base    string
	http    *http.Client
	maxBody int64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMaxBodyBytes caps the number of bytes read from each response.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// NewClient returns a Client rooted at base (for example "https://api.example.com").
// A non-positive timeout falls back to DefaultTimeout.
func NewClient(base string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: timeout},
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API origin the client sends requests to.
func (c *Client) BaseURL() string {
	return c.base
}

type authRequest struct {
	Op   string `json:"op"`
	ID   string `json:"id"`
	UUID string `json:"uuid"`
}

// RequestAuth starts an authorization attempt:
// POST {base}/api/oidc/auth with {op, id, uuid}.
func (c *Client) RequestAuth(ctx context.Context, op, id, uuid string) (Response[identity.AuthorizationHandle], error) {
	payload, err := json.Marshal(authRequest{Op: op, ID: id, UUID: uuid})
	if err != nil {
		return Response[identity.AuthorizationHandle]{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+authPath, bytes.NewReader(payload))
	if err != nil {
		return Response[identity.AuthorizationHandle]{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return Response[identity.AuthorizationHandle]{}, err
	}
	return Decode[identity.AuthorizationHandle](body)
}

// QueryAuth polls a pending attempt:
// GET {base}/api/oidc/auth-query?code=..&id=..&uuid=..
func (c *Client) QueryAuth(ctx context.Context, code, id, uuid string) (Response[identity.AuthBody], error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("id", id)
	q.Set("uuid", uuid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+authQueryPath+"?"+q.Encode(), nil)
	if err != nil {
		return Response[identity.AuthBody]{}, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return Response[identity.AuthBody]{}, err
	}
	return Decode[identity.AuthBody](body)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.URL.Path, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedBody, c.maxBody)
	}
	return body, nil
}

package rainmaker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/richd0tcom/yaku/internal/domain"
)

const (
	DefaultBaseURL    = "https://api.rainmaker.espressif.com"
	DefaultParamGroup = "Temperature Sensor"

	loginPath  = "/v1/login"
	paramsPath = "/v1/user/nodes/params"
	nodesPath  = "/v1/user/nodes"

	// a reused token must outlive the next request by at least this much
	tokenExpiryMargin = 2 * time.Minute
)

// Client is a minimal ESP RainMaker REST client bound to one user and one node.
type Client struct {
	baseURL     string
	credentials domain.Credentials
	nodeID      string
	paramGroup  string
	reuseToken  bool
	timeout     time.Duration
	client      *http.Client
	now         func() time.Time

	mu     sync.Mutex
	cached string
}

type Option func(*Client)

// WithHTTPClient replaces the default http client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the request timeout on whichever http client ends up in use.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithParamGroup selects which parameter group of the node is returned by NodeParams.
func WithParamGroup(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.paramGroup = name
		}
	}
}

// WithTokenReuse keeps a JWT access token across calls to Login until it nears expiry.
func WithTokenReuse(enabled bool) Option {
	return func(c *Client) {
		c.reuseToken = enabled
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient constructs a RainMaker client.
func NewClient(baseURL string, creds domain.Credentials, nodeID string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}
	if nodeID == "" {
		return nil, ErrEmptyNodeID
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		credentials: creds,
		nodeID:      nodeID,
		paramGroup:  DefaultParamGroup,
		client:      &http.Client{Timeout: 10 * time.Second},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		c.client.Timeout = c.timeout
	}
	return c, nil
}

func (c *Client) NodeID() string {
	return c.nodeID
}

func (c *Client) ParamGroup() string {
	return c.paramGroup
}

type loginResponse struct {
	AccessToken string `json:"accesstoken"`
}

// Login posts the stored credentials and returns the access token.
func (c *Client) Login(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}

	var resp loginResponse
	if err := c.doJSON(ctx, http.MethodPost, loginPath, "", c.credentials, &resp); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		return "", ErrMissingToken
	}

	if c.reuseToken {
		c.mu.Lock()
		c.cached = resp.AccessToken
		c.mu.Unlock()
	}
	return resp.AccessToken, nil
}

func (c *Client) cachedToken() (string, bool) {
	if !c.reuseToken {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == "" {
		return "", false
	}
	exp, ok := TokenExpiry(c.cached)
	if !ok || !c.now().Add(tokenExpiryMargin).Before(exp) {
		c.cached = ""
		return "", false
	}
	return c.cached, true
}

// forgetRejected drops the cached token when the API refused it, so the next
// Login asks for a new one instead of waiting for exp.
func (c *Client) forgetRejected(token string, err error) {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusUnauthorized {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == token {
		c.cached = ""
	}
}

// NodeParams fetches the node's parameters and returns the configured group unchanged.
func (c *Client) NodeParams(ctx context.Context, token string) (map[string]any, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	path := paramsPath + "?node_id=" + url.QueryEscape(c.nodeID)

	var resp map[string]json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		c.forgetRejected(token, err)
		return nil, fmt.Errorf("node params %s: %w", c.nodeID, err)
	}

	raw, ok := resp[c.paramGroup]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingParamGroup, c.paramGroup)
	}
	group, err := domain.DecodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an object", ErrMissingParamGroup, c.paramGroup)
	}
	return group, nil
}

type nodesResponse struct {
	Nodes []string `json:"nodes"`
}

// ListNodes returns the ids of the nodes associated with the logged in user.
func (c *Client) ListNodes(ctx context.Context, token string) ([]string, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	var resp nodesResponse
	if err := c.doJSON(ctx, http.MethodGet, nodesPath, token, nil, &resp); err != nil {
		c.forgetRejected(token, err)
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return resp.Nodes, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body any, out any) error {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

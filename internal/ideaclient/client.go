// Package ideaclient is the typed HTTP client for the idea service.
package ideaclient

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
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ideacards/internal/apperr"
	"github.com/starford/ideacards/internal/idea"
)

// Operation names, also used as the RequestFailed.Op value.
const (
	OpRandom  = "random"
	OpGet     = "get"
	OpSearch  = "search"
	OpSuggest = "suggest"
	OpCreate  = "create"
	OpUpdate  = "update"
	OpStatus  = "status"
)

// reasons are the user-facing failure messages per operation.
var reasons = map[string]string{
	OpRandom:  "No ideas found",
	OpGet:     "Idea not found",
	OpSearch:  "Search failed",
	OpSuggest: "Suggest failed",
	OpCreate:  "Create failed",
	OpUpdate:  "Update failed",
	OpStatus:  "Status update failed",
}

const maxErrorBody = 4 << 10

// SearchParams filters a search. Empty fields are not sent.
type SearchParams struct {
	Keyword string
	Tags    string // comma-separated
	Status  idea.Status
}

// Client issues idea operations against a remote service. It never retries
// and never caches.
type Client struct {
	base   *url.URL
	http   *http.Client
	token  string
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a Client for the service at baseURL (e.g. http://localhost:8000).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("ideaclient: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ideaclient: base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchRandom returns a random idea with status. A RequestFailed that
// unwraps to apperr.ErrNotFound means no idea matched.
func (c *Client) FetchRandom(ctx context.Context, status idea.Status) (*idea.Idea, error) {
	if status == "" {
		status = idea.StatusActive
	}
	q := url.Values{"status": {string(status)}}
	var out idea.Idea
	if err := c.do(ctx, OpRandom, http.MethodGet, "/api/ideas/random", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchByID returns the idea with id.
func (c *Client) FetchByID(ctx context.Context, id int64) (*idea.Idea, error) {
	var out idea.Idea
	if err := c.do(ctx, OpGet, http.MethodGet, ideaPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search returns every idea matching p. Zero matches is an empty slice.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]idea.Idea, error) {
	q := url.Values{}
	setIf(q, "keyword", p.Keyword)
	setIf(q, "tags", p.Tags)
	setIf(q, "status", string(p.Status))

	var out []idea.Idea
	if err := c.do(ctx, OpSearch, http.MethodGet, "/api/ideas/search", q, nil, &out); err != nil {
		return nil, err
	}
	return idea.NonNil(out), nil
}

// Suggest returns link candidates matching keyword and comma-separated tags.
func (c *Client) Suggest(ctx context.Context, keyword, tags string) ([]idea.Idea, error) {
	q := url.Values{}
	setIf(q, "keyword", keyword)
	setIf(q, "tags", tags)

	var out []idea.Idea
	if err := c.do(ctx, OpSuggest, http.MethodGet, "/api/ideas/suggest", q, nil, &out); err != nil {
		return nil, err
	}
	return idea.NonNil(out), nil
}

// Create stores a new idea and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, p idea.Payload) (*idea.Idea, error) {
	var out idea.Idea
	if err := c.do(ctx, OpCreate, http.MethodPost, "/api/ideas", nil, wirePayload(p), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces body, tags, blockers, and born-with ids of id.
func (c *Client) Update(ctx context.Context, id int64, p idea.Payload) (*idea.Idea, error) {
	var out idea.Idea
	if err := c.do(ctx, OpUpdate, http.MethodPut, ideaPath(id), nil, wirePayload(p), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus changes only the status of id.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status idea.Status) (*idea.Idea, error) {
	q := url.Values{"status": {string(status)}}
	var out idea.Idea
	if err := c.do(ctx, OpStatus, http.MethodPost, ideaPath(id)+"/status", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return c.fail(op, 0, fmt.Errorf("encode request: %w", err))
		}
		rd = bytes.NewReader(buf)
	}

	u := c.base.JoinPath(path)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return c.fail(op, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(op, resp.StatusCode, statusError(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.fail(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) fail(op string, status int, err error) error {
	c.logger.Warn("idea request failed",
		slog.String("op", op),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	return &apperr.RequestFailed{Op: op, Status: status, Reason: reasons[op], Err: err}
}

// statusError reads the {"error": ...} body of a failed response. A 404
// wraps apperr.ErrNotFound.
func statusError(resp *http.Response) error {
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(raw, &body)
	msg := body.Error
	if msg == "" {
		msg = body.Detail
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, msg)
	}
	return errors.New(strconv.Itoa(resp.StatusCode) + " " + msg)
}

// wirePayload guarantees arrays (never null) on the wire.
func wirePayload(p idea.Payload) idea.Payload {
	return idea.Payload{
		Body:        p.Body,
		Tags:        idea.NonNil(p.Tags),
		Blockers:    idea.NonNil(p.Blockers),
		BornWithIDs: idea.NonNil(p.BornWithIDs),
	}
}

func ideaPath(id int64) string {
	return "/api/ideas/" + strconv.FormatInt(id, 10)
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

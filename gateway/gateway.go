package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

type Method string

const (
	GET  Method = "GET"
	POST Method = "POST"
)

// DefaultTimeout bounds every call unless WithTimeout says otherwise.
const DefaultTimeout = 20 * time.Second

// Request is one backend call. Params go on the query string, Body is sent
// as a single JSON text blob on POST.
type Request struct {
	Resource string
	Action   string
	Method   Method
	Params   map[string]string
	Body     map[string]any
}

// Caller is what the session, cache and mutation layers depend on.
type Caller interface {
	Call(ctx context.Context, req Request) (Reply, error)
}

// Client turns a Request into exactly one HTTP call. It never retries.
type Client struct {
	http    *resty.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  zerolog.Logger
}

var _ Caller = (*Client)(nil)

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the backend endpoint at baseURL.
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		timeout: DefaultTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.http = resty.New().
		SetTimeout(c.timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return c
}

func (c *Client) Call(ctx context.Context, req Request) (Reply, error) {
	if req.Resource == "" {
		return nil, fmt.Errorf("%w: resource is required", apperr.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logger := c.logger.With().Str("resource", req.Resource).Str("action", req.Action).Logger()
	r := c.http.R().SetContext(ctx).SetQueryParams(c.query(req))

	var (
		resp *resty.Response
		err  error
	)
	switch req.Method {
	case POST:
		body := make(map[string]any, len(req.Body)+1)
		for k, v := range req.Body {
			body[k] = v
		}
		if _, ok := body["action"]; !ok && req.Action != "" {
			body["action"] = req.Action
		}
		encoded, mErr := json.Marshal(body)
		if mErr != nil {
			return nil, fmt.Errorf("%w: encode body: %w", apperr.ErrInvalidInput, mErr)
		}
		// text/plain is a "simple" content type and never triggers a preflight
		resp, err = r.SetHeader("Content-Type", "text/plain;charset=utf-8").
			SetBody(string(encoded)).
			Post(c.baseURL)
	case GET, "":
		resp, err = r.Get(c.baseURL)
	default:
		return nil, fmt.Errorf("%w: unsupported method %q", apperr.ErrInvalidInput, req.Method)
	}

	if err != nil {
		if isTimeout(ctx, err) {
			logger.Warn().Dur("timeout", c.timeout).Msg("gateway call timed out")
			return nil, &apperr.TimeoutError{After: c.timeout}
		}
		logger.Warn().Err(err).Msg("gateway transport failure")
		return nil, fmt.Errorf("%w: %w", apperr.ErrNetwork, err)
	}

	reply, err := decode(resp.StatusCode(), resp.Body())
	if err != nil {
		logger.Warn().Err(err).Int("status", resp.StatusCode()).Msg("gateway call failed")
		return nil, err
	}
	logger.Debug().Int("status", resp.StatusCode()).Msg("gateway call ok")
	return reply, nil
}

// query drops empty values so optional params never reach the backend.
func (c *Client) query(req Request) map[string]string {
	q := make(map[string]string, len(req.Params)+3)
	for k, v := range req.Params {
		if strings.TrimSpace(v) != "" {
			q[k] = v
		}
	}
	if c.apiKey != "" {
		q["key"] = c.apiKey
	}
	q["resource"] = req.Resource
	if req.Action != "" {
		q["action"] = req.Action
	}
	return q
}

func decode(status int, body []byte) (Reply, error) {
	var reply Reply
	parseErr := json.Unmarshal(body, &reply)
	if parseErr != nil || reply == nil {
		reply = nil
	}

	if status < 200 || status > 299 {
		if reply != nil {
			if msg := reply.String("error"); msg != "" {
				return nil, &apperr.RemoteError{Message: msg}
			}
		}
		return nil, fmt.Errorf("%w: HTTP %d", apperr.ErrNetwork, status)
	}
	if reply == nil {
		return nil, apperr.NewProtocolError(status, string(body))
	}
	if ok, present := reply["ok"]; present && !truthy(ok) {
		msg := reply.String("error")
		if msg == "" {
			msg = "request failed"
		}
		return nil, &apperr.RemoteError{Message: msg}
	}
	return reply, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

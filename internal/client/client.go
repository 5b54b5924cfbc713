// Package client is a Go client for the auth API. It keeps the access token in
// a TokenStore, the refresh cookie in a cookie jar, and transparently renews
// an expired access token once per failed call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// ErrSessionExpired is returned when a call was rejected and the session
// could not be renewed. The caller must log in again.
var ErrSessionExpired = errors.New("client: session expired, please log in again")

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %d %s", e.StatusCode, e.Message)
}

// refreshTimeout bounds a shared refresh, which outlives the caller that
// started it.
const refreshTimeout = 10 * time.Second

// Paths that never trigger a refresh: they either issue credentials or are
// the refresh call itself.
var unprotectedSuffixes = []string{
	"/auth/login",
	"/auth/register",
	"/auth/refresh-token",
}

type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenStore
	onExpired func()
	log       zerolog.Logger

	refreshGroup singleflight.Group
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// when it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

// WithSessionExpired registers a hook run once per failed refresh, after the
// cached token has been discarded.
func WithSessionExpired(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a client for the API mounted at baseURL, e.g.
// "https://auth.example.com/api/v1".
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  &MemoryTokenStore{},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client: cookie jar: %w", err)
		}
		hc := *c.http
		hc.Jar = jar
		c.http = &hc
	}
	return c, nil
}

// AccessToken returns the cached access token, if any.
func (c *Client) AccessToken() string { return c.tokens.Get() }

// Do sends req with the cached bearer token. When a protected call comes back
// 401 the client renews the access token once and reissues the request once;
// the second response is returned whatever its status. If the server rejects
// the renewal the cached token is dropped and ErrSessionExpired is returned.
// The caller's request is never modified.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.Clone(ctx)
	if err := ensureReplayable(req); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		sent := c.authorize(req)
		res, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusUnauthorized || !isProtected(req.URL.Path) || attempt > 0 {
			return res, nil
		}
		drain(res)

		if err := c.renew(ctx, sent); err != nil {
			c.log.Debug().Err(err).Str("path", req.URL.Path).Msg("session renewal failed")
			return nil, err
		}

		if req, err = rewind(req); err != nil {
			return nil, err
		}
	}
}

// Refresh exchanges the refresh cookie for a new access token and caches it.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh-token", nil)
	if err != nil {
		return "", err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}

	var data struct {
		AccessToken string `json:"accessToken"`
	}
	if err := decode(res, &data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", errors.New("client: refresh response carried no access token")
	}
	c.tokens.Set(data.AccessToken)
	return data.AccessToken, nil
}

func (c *Client) Register(ctx context.Context, email, password string, name *string) (*domain.UserResponse, error) {
	body := map[string]any{"email": email, "password": password}
	if name != nil {
		body["name"] = *name
	}
	return c.authenticate(ctx, "/auth/register", body)
}

func (c *Client) Login(ctx context.Context, email, password string) (*domain.UserResponse, error) {
	return c.authenticate(ctx, "/auth/login", map[string]any{"email": email, "password": password})
}

// Logout ends the server session. The cached token is dropped even when the
// call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.tokens.Clear()
	return c.call(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) Profile(ctx context.Context) (*domain.UserResponse, error) {
	var data struct {
		User *domain.UserResponse `json:"user"`
	}
	if err := c.call(ctx, http.MethodGet, "/auth/profile", nil, &data); err != nil {
		return nil, err
	}
	return data.User, nil
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*domain.UserResponse, error) {
	var data struct {
		User        *domain.UserResponse `json:"user"`
		AccessToken string               `json:"accessToken"`
	}
	if err := c.call(ctx, http.MethodPost, path, body, &data); err != nil {
		return nil, err
	}
	c.tokens.Set(data.AccessToken)
	return data.User, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return decode(res, out)
}

// renew refreshes the access token, coalescing concurrent callers into one
// request. sent is the token the rejected call carried; if the cache already
// holds a different one another caller has renewed it and no request is made.
//
// The shared refresh runs detached from ctx so one caller giving up does not
// fail it for the others. Only a response from the refresh endpoint ends the
// session; transport and context errors leave the cached token alone.
func (c *Client) renew(ctx context.Context, sent string) error {
	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		if cur := c.tokens.Get(); cur != "" && cur != sent {
			return cur, nil
		}

		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		token, err := c.Refresh(refreshCtx)
		if err != nil {
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				return nil, fmt.Errorf("client: renew session: %w", err)
			}
			c.tokens.Clear()
			if c.onExpired != nil {
				c.onExpired()
			}
			return nil, ErrSessionExpired
		}
		return token, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (c *Client) authorize(req *http.Request) string {
	token := c.tokens.Get()
	if token == "" {
		req.Header.Del("Authorization")
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return token
}

func isProtected(path string) bool {
	for _, suffix := range unprotectedSuffixes {
		if strings.HasSuffix(path, suffix) {
			return false
		}
	}
	return true
}

// ensureReplayable buffers a body that cannot be re-read so the request can
// be sent twice.
func ensureReplayable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	buf, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return fmt.Errorf("client: buffer request body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(buf))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	return nil
}

func rewind(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("client: rewind request body: %w", err)
		}
		retry.Body = body
	}
	return retry, nil
}

func decode(res *http.Response, out any) error {
	defer res.Body.Close()

	var env struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("client: invalid response format: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return &APIError{StatusCode: res.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("client: decode data: %w", err)
		}
	}
	return nil
}

func drain(res *http.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}

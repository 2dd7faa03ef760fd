// Package kiteconnect is a minimal client for the Zerodha Kite Connect v3
// HTTP API: login redirect, session exchange, quotes, historical candles and
// the instrument dump. It covers the read-only surface a market dashboard
// needs; order placement is deliberately absent.
package kiteconnect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultRoot  = "https://api.kite.trade"
	defaultLogin = "https://kite.trade/connect/login"

	kiteHeaderVersion = "3"
)

var routes = map[string]string{
	"session.token":  "/session/token",
	"session.delete": "/session/token",
	"user.profile":   "/user/profile",
	"market.quote":   "/quote",
	"market.ohlc":    "/quote/ohlc",
	"market.ltp":     "/quote/ltp",
	"market.hist":    "/instruments/historical/%d/%s",
	"instruments":    "/instruments/%s",
}

// Config controls client construction. Zero values get sensible defaults.
type Config struct {
	APIKey    string
	APISecret string

	RootURL  string
	LoginURL string
	Timeout  time.Duration // per-request; default 7s
}

// Client talks to the Kite Connect REST API. Safe for concurrent use once
// the access token is set.
type Client struct {
	apiKey      string
	apiSecret   string
	rootURL     string
	loginURL    string
	accessToken string

	httpClient *http.Client

	// SessionExpiryHook fires when the API reports a TokenException,
	// meaning the access token is dead and a fresh login is needed.
	SessionExpiryHook func()
}

// New builds a client from cfg.
func New(cfg Config) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = defaultLogin
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 7 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		rootURL:    strings.TrimRight(cfg.RootURL, "/"),
		loginURL:   cfg.LoginURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// LoginURL is the browser redirect that starts the OAuth-style login flow.
// Kite calls back with a request_token once the user authenticates.
func (c *Client) LoginURL() string {
	return fmt.Sprintf("%s?api_key=%s&v=%s", c.loginURL, url.QueryEscape(c.apiKey), kiteHeaderVersion)
}

// SetAccessToken installs a token obtained from GenerateSession or restored
// from persisted session state.
func (c *Client) SetAccessToken(token string) { c.accessToken = token }

// AccessToken returns the current token, empty when logged out.
func (c *Client) AccessToken() string { return c.accessToken }

// Error is a structured API failure.
type Error struct {
	Code      int
	ErrorType string
	Message   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("kiteconnect: %s (%s, http %d)", e.Message, e.ErrorType, e.Code)
}

// IsTokenException reports whether err is an expired/invalid session error.
func IsTokenException(err error) bool {
	var ke *Error
	if !errors.As(err, &ke) {
		return false
	}
	return ke.ErrorType == "TokenException"
}

type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("X-Kite-Version", kiteHeaderVersion)
	if c.accessToken != "" {
		h.Set("Authorization", "token "+c.apiKey+":"+c.accessToken)
	}
	return h
}

// doJSON performs the request and unwraps the standard Kite envelope into out.
func (c *Client) doJSON(ctx context.Context, method, path string, form url.Values, query url.Values, out any) error {
	reqURL := c.rootURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return err
	}
	req.Header = c.headers()
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kiteconnect: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("kiteconnect: unparseable response (http %d): %w", resp.StatusCode, err)
	}
	if env.Status == "error" || env.ErrorType != "" {
		if env.ErrorType == "TokenException" && c.SessionExpiryHook != nil {
			c.SessionExpiryHook()
		}
		return &Error{Code: resp.StatusCode, ErrorType: env.ErrorType, Message: env.Message}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("kiteconnect: decode data: %w", err)
		}
	}
	return nil
}

// UserSession is the payload returned by the token exchange.
type UserSession struct {
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	PublicToken  string `json:"public_token"`
	LoginTime    string `json:"login_time"`
}

// GenerateSession exchanges the request token from the login callback for an
// access token and installs it on the client. The checksum is
// SHA-256(api_key + request_token + api_secret) per the API contract.
func (c *Client) GenerateSession(ctx context.Context, requestToken string) (UserSession, error) {
	sum := sha256.Sum256([]byte(c.apiKey + requestToken + c.apiSecret))

	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("request_token", requestToken)
	form.Set("checksum", hex.EncodeToString(sum[:]))

	var sess UserSession
	if err := c.doJSON(ctx, http.MethodPost, routes["session.token"], form, nil, &sess); err != nil {
		return UserSession{}, err
	}
	c.SetAccessToken(sess.AccessToken)
	return sess, nil
}

// InvalidateSession logs the access token out server-side and clears it
// locally regardless of the API outcome.
func (c *Client) InvalidateSession(ctx context.Context) error {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("access_token", c.accessToken)
	err := c.doJSON(ctx, http.MethodDelete, routes["session.delete"], nil, q, nil)
	c.accessToken = ""
	return err
}

// Profile is the authenticated user's account info.
type Profile struct {
	UserID    string   `json:"user_id"`
	UserName  string   `json:"user_name"`
	Email     string   `json:"email"`
	Broker    string   `json:"broker"`
	Exchanges []string `json:"exchanges"`
}

// GetProfile fetches the logged-in user's profile. Doubles as a cheap
// token-validity probe after restoring a persisted session.
func (c *Client) GetProfile(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.doJSON(ctx, http.MethodGet, routes["user.profile"], nil, nil, &p)
	return p, err
}

package tradovate

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
	"time"
)

const (
	EnvDemo = "demo"
	EnvLive = "live"

	demoBaseURL = "https://demo.tradovateapi.com"
	liveBaseURL = "https://live.tradovateapi.com"
)

var ErrCredentialsMissing = errors.New("tradovate api credentials not configured")

// ValidEnvironment reports whether env names a supported OAuth environment.
func ValidEnvironment(env string) bool {
	return env == EnvDemo || env == EnvLive
}

type Credentials struct {
	ClientID     string
	ClientSecret string
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type Account struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Balance json.Number `json:"balance"`
	Active  bool        `json:"active"`
}

type Fill struct {
	OrderID      int64       `json:"orderId"`
	ContractName string      `json:"contractName"`
	Action       string      `json:"action"`
	Price        json.Number `json:"price"`
	Qty          json.Number `json:"qty"`
	Commission   json.Number `json:"commission"`
	Fees         json.Number `json:"fees"`
	Timestamp    time.Time   `json:"timestamp"`
}

// Client wraps the Tradovate REST API for both OAuth environments.
// Credentials are injected at construction; nothing is read from the
// environment here.
type Client struct {
	HTTP *http.Client
	Demo Credentials
	Live Credentials
}

func NewClient(httpClient *http.Client, demo, live Credentials) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{HTTP: httpClient, Demo: demo, Live: live}
}

func (c *Client) credentials(env string) Credentials {
	if env == EnvLive {
		return c.Live
	}
	return c.Demo
}

func BaseURL(env string) string {
	if env == EnvLive {
		return liveBaseURL
	}
	return demoBaseURL
}

// AuthorizeURL builds the OAuth authorize redirect for the environment.
func (c *Client) AuthorizeURL(env, redirectURI, state string) (string, error) {
	creds := c.credentials(env)
	if creds.ClientID == "" {
		return "", ErrCredentialsMissing
	}
	q := url.Values{}
	q.Set("client_id", creds.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)
	return BaseURL(env) + "/auth/oauthauthorize?" + q.Encode(), nil
}

// ExchangeCode swaps an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, env, code, redirectURI string) (TokenResponse, error) {
	creds := c.credentials(env)
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return TokenResponse{}, ErrCredentialsMissing
	}

	body, err := json.Marshal(map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
		"code":          code,
		"redirect_uri":  redirectURI,
	})
	if err != nil {
		return TokenResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, BaseURL(env)+"/auth/oauthtoken", bytes.NewReader(body))
	if err != nil {
		return TokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return TokenResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return TokenResponse{}, fmt.Errorf("token exchange failed: status %d: %s", resp.StatusCode, string(raw))
	}

	var out TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return TokenResponse{}, err
	}
	return out, nil
}

// ListAccounts fetches the broker accounts visible to the access token.
func (c *Client) ListAccounts(ctx context.Context, env, accessToken string) ([]Account, error) {
	var out []Account
	if err := c.getJSON(ctx, env, accessToken, "/v1/account/list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFills fetches the fills of one broker account.
func (c *Client) ListFills(ctx context.Context, env, accessToken string, accountID int64) ([]Fill, error) {
	q := url.Values{}
	q.Set("accountId", strconv.FormatInt(accountID, 10))
	var out []Fill
	if err := c.getJSON(ctx, env, accessToken, "/v1/fill/list", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, env, accessToken, path string, query url.Values, out any) error {
	u := BaseURL(env) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("tradovate %s failed: status %d: %s", path, resp.StatusCode, string(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

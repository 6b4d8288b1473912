// Package lineworks wraps the LINE WORKS collaborator surface the bot
// needs: token acquisition, outbound message push, recipient resolution,
// and inbound webhook signature verification.
package lineworks

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/moritahq/clinic-reserve-bot/pkg/logging"
)

const (
	defaultTokenURL = "https://auth.worksmobile.com/oauth2/v2.0/token"
	defaultBaseURL  = "https://www.worksapis.com/v1.0"
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// Tokens are refreshed this long before their reported expiry.
	tokenExpirySkew = 60 * time.Second
)

// ErrRecipientNotFound indicates the user id resolved to no account.
var ErrRecipientNotFound = errors.New("lineworks: recipient not found")

// Config controls how the client authenticates and where it talks.
type Config struct {
	BotID          string
	ClientID       string
	ClientSecret   string
	ServiceAccount string
	// PrivateKey is the RS256 signing key in PEM form; escaped "\n"
	// sequences from env files are restored.
	PrivateKey string
	TokenURL   string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Client calls the LINE WORKS REST API with a cached JWT-grant token.
type Client struct {
	botID          string
	clientID       string
	clientSecret   string
	serviceAccount string
	privateKey     *rsa.PrivateKey
	tokenURL       string
	baseURL        string
	httpClient     *http.Client
	logger         *logging.Logger
	now            func() time.Time

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

// New creates a configured client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BotID) == "" {
		return nil, errors.New("lineworks: bot id required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("lineworks: client credentials required")
	}
	pem := strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("lineworks: parse private key: %w", err)
	}

	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		botID:          cfg.BotID,
		clientID:       cfg.ClientID,
		clientSecret:   cfg.ClientSecret,
		serviceAccount: cfg.ServiceAccount,
		privateKey:     key,
		tokenURL:       tokenURL,
		baseURL:        baseURL,
		httpClient:     httpClient,
		logger:         logger,
		now:            time.Now,
	}, nil
}

// Token returns a cached access token, fetching a fresh one via the JWT
// bearer grant when the cache is empty or close to expiry.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachedToken != "" && c.now().Before(c.tokenExpiry.Add(-tokenExpirySkew)) {
		return c.cachedToken, nil
	}

	assertion, err := c.signAssertion()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("lineworks: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lineworks: token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("lineworks: token request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// expires_in arrives as a JSON string from some token endpoints and a
	// number from others.
	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   any    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("lineworks: decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("lineworks: token response missing access_token")
	}
	var expiresIn int64
	switch v := payload.ExpiresIn.(type) {
	case float64:
		expiresIn = int64(v)
	case string:
		if n, convErr := strconv.Atoi(v); convErr == nil {
			expiresIn = int64(n)
		}
	}
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	c.cachedToken = payload.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(expiresIn) * time.Second)
	c.logger.Debug("access token refreshed", "expires_in", expiresIn)
	return c.cachedToken, nil
}

func (c *Client) signAssertion() (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"iss": c.clientID,
		"sub": c.serviceAccount,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
		"aud": c.tokenURL,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("lineworks: sign assertion: %w", err)
	}
	return signed, nil
}

// SendText pushes a text message to a user through the bot.
func (c *Client) SendText(ctx context.Context, userID, text string) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"content": map[string]string{
			"type": "text",
			"text": text,
		},
	})
	if err != nil {
		return fmt.Errorf("lineworks: marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bots/%s/users/%s/messages", c.baseURL, c.botID, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("lineworks: build message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lineworks: send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("lineworks: send message returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// ResolveRecipient looks up the messaging account id for a chat user id.
// A missing user is ErrRecipientNotFound; transport failures are not.
func (c *Client) ResolveRecipient(ctx context.Context, userID string) (string, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("lineworks: build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lineworks: fetch user: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrRecipientNotFound, userID)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lineworks: fetch user returned %d", resp.StatusCode)
	}

	var payload struct {
		AccountID string `json:"accountId"`
		Email     string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("lineworks: decode user response: %w", err)
	}
	if payload.AccountID != "" {
		return payload.AccountID, nil
	}
	if payload.Email != "" {
		return payload.Email, nil
	}
	return "", fmt.Errorf("%w: %s has no account id", ErrRecipientNotFound, userID)
}

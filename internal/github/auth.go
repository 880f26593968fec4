package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultAPIBaseURL = "https://api.github.com"

// AppAuth mints installation tokens for a GitHub App. It is the fallback
// credential source when no personal access token is configured.
type AppAuth struct {
	AppID      string
	PrivateKey string

	// HTTPClient is used for API calls. When nil a short-timeout default is
	// used, so callers should pass a privacy-guarded client.
	HTTPClient *http.Client

	baseURL string
}

// InstallationToken is a short-lived access token scoped to one installation.
type InstallationToken struct {
	Token     string
	ExpiresAt time.Time
}

// GenerateJWT signs a 10-minute App JWT with the configured private key.
func (a *AppAuth) GenerateJWT() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(a.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}

	appID, err := strconv.ParseInt(a.AppID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid app ID: %w", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    strconv.FormatInt(appID, 10),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign JWT: %w", err)
	}
	return signed, nil
}

// InstallationTokenFor resolves the App installation covering a repository in
// "owner/repo" form and mints an access token for it.
func (a *AppAuth) InstallationTokenFor(ctx context.Context, repo string) (*InstallationToken, error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid repo format: %s (expected owner/repo)", repo)
	}

	appJWT, err := a.GenerateJWT()
	if err != nil {
		return nil, err
	}

	var installation struct {
		ID int64 `json:"id"`
	}
	url := fmt.Sprintf("%s/repos/%s/%s/installation", a.apiBase(), parts[0], parts[1])
	if err := a.apiCall(ctx, http.MethodGet, url, appJWT, http.StatusOK, &installation); err != nil {
		return nil, fmt.Errorf("resolve installation for %s: %w", repo, err)
	}

	var minted struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	url = fmt.Sprintf("%s/app/installations/%d/access_tokens", a.apiBase(), installation.ID)
	if err := a.apiCall(ctx, http.MethodPost, url, appJWT, http.StatusCreated, &minted); err != nil {
		return nil, fmt.Errorf("mint installation token: %w", err)
	}

	return &InstallationToken{Token: minted.Token, ExpiresAt: minted.ExpiresAt}, nil
}

// apiCall performs one authenticated GitHub API request and decodes the
// JSON response into out.
func (a *AppAuth) apiCall(ctx context.Context, method, url, bearer string, wantStatus int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := a.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub API error: %d - %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *AppAuth) client() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (a *AppAuth) apiBase() string {
	if a.baseURL != "" {
		return a.baseURL
	}
	return defaultAPIBaseURL
}

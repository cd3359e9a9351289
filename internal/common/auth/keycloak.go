// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"affiliate-portal/internal/common/errors"
	httpclient "affiliate-portal/internal/common/http"
)

// KeycloakClient talks to the OpenID Connect endpoints of one Keycloak realm.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *httpclient.Client
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
}

// TokenInfo holds the information returned by the token introspection endpoint.
type TokenInfo struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"` // seconds since epoch
	Iat       int64  `json:"iat,omitempty"`
	Sub       string `json:"sub,omitempty"` // user ID
	Iss       string `json:"iss,omitempty"`
}

// Principal returns the address the token was issued for. Keycloak puts it in
// email when the scope is granted and otherwise in username.
func (t *TokenInfo) Principal() string {
	if t.Email != "" {
		return t.Email
	}
	return t.Username
}

// NewKeycloakClient creates a new instance of KeycloakClient.
func NewKeycloakClient(baseURL, realm, clientID, clientSecret string, timeout time.Duration) *KeycloakClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpclient.NewClient(timeout),
	}
}

func (k *KeycloakClient) endpoint(path string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/%s", k.baseURL, k.realm, path)
}

func (k *KeycloakClient) postForm(ctx context.Context, path string, data url.Values) (*http.Response, error) {
	data.Set("client_id", k.clientID)
	if k.clientSecret != "" {
		data.Set("client_secret", k.clientSecret)
	}

	resp, err := k.httpClient.PostForm(ctx, k.endpoint(path), data)
	if err != nil {
		return nil, errors.NewUpstreamError("keycloak", err)
	}
	return resp, nil
}

// Login exchanges an email and password for tokens using the password grant.
func (k *KeycloakClient) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "password")
	data.Set("username", username)
	data.Set("password", password)
	data.Set("scope", "openid email")

	resp, err := k.postForm(ctx, "token", data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewInvalidCredentialsError(fmt.Errorf("keycloak rejected login: %s", string(body)))
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, k.upstreamError(resp.StatusCode, body)
	}

	var tokens TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, errors.NewUpstreamError("keycloak", fmt.Errorf("failed to decode token response: %w", err))
	}
	return &tokens, nil
}

// Logout revokes a user's refresh token.
func (k *KeycloakClient) Logout(ctx context.Context, refreshToken string) error {
	data := url.Values{}
	data.Set("refresh_token", refreshToken)

	resp, err := k.postForm(ctx, "logout", data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Keycloak returns 204 No Content on successful logout
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return k.upstreamError(resp.StatusCode, body)
	}
	return nil
}

// ValidateToken checks if an access token is valid and active.
func (k *KeycloakClient) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	data := url.Values{}
	data.Set("token", token)
	data.Set("token_type_hint", "access_token")

	resp, err := k.postForm(ctx, "token/introspect", data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, k.upstreamError(resp.StatusCode, body)
	}

	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.NewUpstreamError("keycloak", fmt.Errorf("failed to decode introspection response: %w", err))
	}

	if !info.Active {
		return nil, errors.NewUnauthenticatedError("token is expired, revoked or malformed")
	}
	return &info, nil
}

func (k *KeycloakClient) upstreamError(status int, body []byte) *errors.StandardError {
	stdErr := errors.NewUpstreamError("keycloak", fmt.Errorf("status %d: %s", status, string(body)))
	stdErr.Retryable = isTransientHTTPError(status)
	return stdErr
}

// isTransientHTTPError returns true if the HTTP status code indicates a potentially transient error.
func isTransientHTTPError(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"badgeauth/internal/utils"
)

// HTTPIdentityProvider talks to the external Identity Provider's admin API.
// Every call carries a freshly signed service token.
type HTTPIdentityProvider struct {
	BaseURL    string
	Signer     utils.ServiceTokenSigner
	HTTPClient *http.Client
}

func NewHTTPIdentityProvider(baseURL string, secret []byte, issuer string) *HTTPIdentityProvider {
	return &HTTPIdentityProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Signer: utils.ServiceTokenSigner{
			Secret: secret,
			Issuer: issuer,
			Role:   "service_role",
			TTL:    time.Minute,
		},
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type accountResponse struct {
	ID string `json:"id"`
}

type exchangeTokenResponse struct {
	Token string `json:"token"`
}

// EnsureAccount creates-or-returns the account for a synthetic key. The
// admin API treats the key as an upsert target, so retries are harmless.
func (p *HTTPIdentityProvider) EnsureAccount(ctx context.Context, accountKey string, displayName string) (string, error) {
	payload := map[string]any{
		"account_key":  accountKey,
		"display_name": displayName,
	}
	var response accountResponse
	if err := p.post(ctx, "/admin/accounts", payload, &response); err != nil {
		return "", err
	}
	if response.ID == "" {
		return "", fmt.Errorf("identity provider returned empty account id")
	}
	return response.ID, nil
}

// IssueExchangeToken requests a single-use artifact the client redeems for a
// live session.
func (p *HTTPIdentityProvider) IssueExchangeToken(ctx context.Context, identityID string) (string, error) {
	path := fmt.Sprintf("/admin/accounts/%s/exchange-token", url.PathEscape(identityID))
	var response exchangeTokenResponse
	if err := p.post(ctx, path, map[string]any{}, &response); err != nil {
		return "", err
	}
	if response.Token == "" {
		return "", fmt.Errorf("identity provider returned empty exchange token")
	}
	return response.Token, nil
}

func (p *HTTPIdentityProvider) post(ctx context.Context, path string, payload any, target any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	token, err := p.Signer.Sign()
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Content-Type", "application/json")

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode >= 300 {
		return fmt.Errorf("identity provider call %s failed with status %d", path, response.StatusCode)
	}
	return json.NewDecoder(response.Body).Decode(target)
}

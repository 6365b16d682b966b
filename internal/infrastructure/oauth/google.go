package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/notes-service/internal/application/auth"
	"github.com/baechuer/notes-service/internal/domain"
)

const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleVerifier validates Google ID tokens through the tokeninfo endpoint.
type GoogleVerifier struct {
	clientID   string
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
}

// NewGoogleVerifier creates a verifier bound to one OAuth client id (audience).
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		endpoint: DefaultTokenInfoURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// WithEndpoint points the verifier at another tokeninfo URL (tests, proxies).
func (v *GoogleVerifier) WithEndpoint(endpoint string) *GoogleVerifier {
	if endpoint != "" {
		v.endpoint = endpoint
	}
	return v
}

func (v *GoogleVerifier) WithHTTPClient(c *http.Client) *GoogleVerifier {
	if c != nil {
		v.httpClient = c
	}
	return v
}

// IsConfigured returns true if a client id is set
func (v *GoogleVerifier) IsConfigured() bool {
	return v.clientID != ""
}

// tokenInfo is the tokeninfo payload; Google encodes every value as a string.
type tokenInfo struct {
	Aud           string `json:"aud"`
	Iss           string `json:"iss"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Exp           string `json:"exp"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (auth.FederatedIdentity, error) {
	if !v.IsConfigured() {
		return auth.FederatedIdentity{}, domain.ErrInvalidGoogleToken(fmt.Errorf("google client id not configured"))
	}

	u := v.endpoint + "?" + url.Values{"id_token": {idToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return auth.FederatedIdentity{}, domain.ErrInvalidGoogleToken(err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return auth.FederatedIdentity{}, domain.ErrInvalidGoogleToken(fmt.Errorf("tokeninfo request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return auth.FederatedIdentity{}, domain.ErrInvalidGoogleToken(fmt.Errorf("failed to read tokeninfo response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return auth.FederatedIdentity{}, domain.ErrInvalidGoogleToken(fmt.Errorf("tokeninfo rejected token: status %d", resp.StatusCode))
	}

	var info tokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return auth.FederatedIdentity{}, domain.ErrInvalidGoogleToken(fmt.Errorf("failed to parse tokeninfo response: %w", err))
	}

	if err := v.checkClaims(info); err != nil {
		return auth.FederatedIdentity{}, domain.ErrInvalidGoogleToken(err)
	}

	return auth.FederatedIdentity{
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified == "true",
		Name:          strings.TrimSpace(info.Name),
	}, nil
}

func (v *GoogleVerifier) checkClaims(info tokenInfo) error {
	if info.Aud != v.clientID {
		return fmt.Errorf("audience mismatch")
	}
	if !googleIssuers[info.Iss] {
		return fmt.Errorf("unexpected issuer %q", info.Iss)
	}
	exp, err := strconv.ParseInt(info.Exp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid exp: %w", err)
	}
	if !v.now().Before(time.Unix(exp, 0)) {
		return fmt.Errorf("token expired")
	}
	return nil
}

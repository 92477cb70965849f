package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// serviceAccountKey is the subset of a Google service-account JSON key this exchange needs.
type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// ServiceAccountTokenSource mints FCM access tokens via the Google OAuth2 JWT-bearer grant
// (RFC 7523): a self-signed assertion exchanged for a bearer token. No OAuth2 client library
// exists in the example corpus, so the assertion is signed with golang-jwt/jwt — the same token
// library the teacher's auth middleware depends on — rather than a fabricated google.golang.org/api
// dependency.
type ServiceAccountTokenSource struct {
	key        serviceAccountKey
	httpClient *http.Client

	mu        sync.Mutex
	cached    string
	expiresAt time.Time
}

// NewServiceAccountTokenSource loads a service-account key file from credentialsPath.
func NewServiceAccountTokenSource(credentialsPath string) (*ServiceAccountTokenSource, error) {
	raw, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read fcm service account file: %w", err)
	}
	var key serviceAccountKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, fmt.Errorf("parse fcm service account file: %w", err)
	}
	if key.TokenURI == "" {
		key.TokenURI = "https://oauth2.googleapis.com/token"
	}
	return &ServiceAccountTokenSource{
		key:        key,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Token implements TokenSource, refreshing 60s before expiry and reusing the cached token
// otherwise.
func (s *ServiceAccountTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != "" && time.Now().Before(s.expiresAt.Add(-60*time.Second)) {
		return s.cached, nil
	}

	assertion, err := s.signAssertion()
	if err != nil {
		return "", fmt.Errorf("sign fcm jwt assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.key.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange fcm jwt assertion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fcm token exchange returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode fcm token response: %w", err)
	}

	s.cached = body.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return s.cached, nil
}

func (s *ServiceAccountTokenSource) signAssertion() (string, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(s.key.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parse service account private key: %w", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.key.ClientEmail,
		Subject:   s.key.ClientEmail,
		Audience:  jwt.ClaimStrings{s.key.TokenURI},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	assertionClaims := struct {
		jwt.RegisteredClaims
		Scope string `json:"scope"`
	}{RegisteredClaims: claims, Scope: fcmScope}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, assertionClaims)
	return token.SignedString(privateKey)
}

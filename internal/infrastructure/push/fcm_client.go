// Package push implements the outbound.PushSender port (§4.5) against Firebase Cloud Messaging's
// HTTP v1 send endpoint.
//
// No push-notification or OAuth2 client library exists anywhere in the example corpus this
// module was grounded on, so this client is a plain net/http caller in the same minimal style the
// teacher's own internal/infrastructure/ai clients use for their upstream HTTP calls — see
// DESIGN.md for the justification.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alchemorsel/nutricore/internal/infrastructure/config"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"go.uber.org/zap"
)

// TokenSource supplies a bearer access token for FCM's HTTP v1 API; kept as an interface so the
// client is agnostic to how the token is minted (service-account JWT exchange, metadata server,
// or a test double).
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client implements outbound.PushSender against FCM's HTTP v1 per-token send endpoint.
type Client struct {
	projectID string
	tokens    TokenSource
	http      *http.Client
	logger    *zap.Logger
}

// NewClient creates the FCM push-notification adapter.
func NewClient(cfg config.PushConfig, tokens TokenSource, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		projectID: cfg.FCMProjectID,
		tokens:    tokens,
		http:      &http.Client{Timeout: timeout},
		logger:    logger.Named("fcm-client"),
	}
}

type fcmMessage struct {
	Message struct {
		Token        string            `json:"token"`
		Notification fcmNotification   `json:"notification"`
	} `json:"message"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmErrorResponse struct {
	Error struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SendMulticast implements outbound.PushSender: FCM's HTTP v1 API has no native multicast send,
// so one request is issued per token and results are collected, matching the port's batch shape.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, title, body string) ([]outbound.PushResult, error) {
	accessToken, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("mint fcm access token: %w", err)
	}

	endpoint := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", c.projectID)
	results := make([]outbound.PushResult, 0, len(tokens))

	for _, token := range tokens {
		results = append(results, c.sendOne(ctx, endpoint, accessToken, token, title, body))
	}
	return results, nil
}

func (c *Client) sendOne(ctx context.Context, endpoint, accessToken, token, title, body string) outbound.PushResult {
	var payload fcmMessage
	payload.Message.Token = token
	payload.Message.Notification = fcmNotification{Title: title, Body: body}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return outbound.PushResult{Token: token, Success: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return outbound.PushResult{Token: token, Success: false}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("fcm send failed", zap.String("token", token), zap.Error(err))
		return outbound.PushResult{Token: token, Success: false}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return outbound.PushResult{Token: token, Success: true}
	}

	var errResp fcmErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	unregistered := errResp.Error.Status == "NOT_FOUND" || errResp.Error.Status == "INVALID_ARGUMENT"
	if unregistered {
		return outbound.PushResult{Token: token, Success: false, Unregistered: true}
	}

	c.logger.Warn("fcm send rejected", zap.String("token", token), zap.Int("status", resp.StatusCode), zap.String("fcm_status", errResp.Error.Status))
	return outbound.PushResult{Token: token, Success: false}
}

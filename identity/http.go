package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/picshed/picshed"
)

// HTTPVerifier checks tokens against a remote identity provider. The
// provider's verify endpoint receives a JSON body {"token": "..."} and
// answers 200 with {"owner_id": "..."} for a valid token; any 4xx is
// treated as a rejection.
type HTTPVerifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPVerifier creates an HTTPVerifier for the given verify endpoint.
// timeout bounds each verification round trip; zero means 10 seconds.
func NewHTTPVerifier(endpoint string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPVerifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	OwnerID string `json:"owner_id"`
}

// Verify posts the token to the provider and returns the resolved owner id.
// Rejections map to picshed.ErrUnauthorized; transport and server failures
// surface as ordinary errors so callers can tell an outage from a bad token.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("verify token: %w: empty token", picshed.ErrUnauthorized)
	}

	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return "", fmt.Errorf("verify token: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", fmt.Errorf("verify token: provider rejected token: %w", picshed.ErrUnauthorized)
	default:
		return "", fmt.Errorf("verify token: provider returned status %d", resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return "", fmt.Errorf("verify token: decode response: %w", err)
	}

	if vr.OwnerID == "" {
		return "", fmt.Errorf("verify token: provider returned empty owner id: %w", picshed.ErrUnauthorized)
	}

	return vr.OwnerID, nil
}

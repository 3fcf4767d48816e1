package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Verifier confirms that a presented payment token corresponds to a
// successful charge. A declined payment is (false, nil); an error means the
// gateway could not be reached and is never a decision.
type Verifier interface {
	Verify(ctx context.Context, userID, gameID, token string) (bool, error)
}

// reuse one client
var httpClient = &http.Client{
	Timeout: 10 * time.Second,
}

// StripeVerifier checks the charge against the payment gateway's webhook
// confirmation endpoint.
type StripeVerifier struct {
	client     *http.Client
	confirmURL string
	mock       bool
}

type confirmResponse struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason"`
}

func NewStripeVerifier(confirmURL string, mock bool) *StripeVerifier {
	return &StripeVerifier{
		client:     httpClient,
		confirmURL: confirmURL,
		mock:       mock,
	}
}

func (v *StripeVerifier) Verify(ctx context.Context, userID, gameID, token string) (bool, error) {
	if v.mock {
		log.Warn("payment verification running in mock mode, confirming charge")
		return true, nil
	}

	form := url.Values{}
	form.Set("user_id", userID)
	form.Set("game_id", gameID)
	form.Set("payment_token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.confirmURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build confirm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("payment gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var confirm confirmResponse
	if err := json.NewDecoder(resp.Body).Decode(&confirm); err != nil {
		return false, fmt.Errorf("failed to decode confirm response: %w", err)
	}

	if !confirm.Verified {
		log.Infof("charge declined for user %s game %s: %s", userID, gameID, confirm.Reason)
	}

	return confirm.Verified, nil
}

// MethodFromToken derives the recorded payment method tag from the token
// prefix. Unrecognized tokens fall back to card, matching how charges are
// submitted today.
func MethodFromToken(token string) string {
	switch {
	case strings.HasPrefix(token, "tok_"), strings.HasPrefix(token, "card_"):
		return "card"
	case strings.HasPrefix(token, "src_"):
		return "source"
	default:
		return "card"
	}
}

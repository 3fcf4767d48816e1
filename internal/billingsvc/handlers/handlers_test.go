package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/avvvet/gamegate-services/internal/billingsvc/models"
	"github.com/avvvet/gamegate-services/internal/billingsvc/service"
)

type fakeBiller struct {
	checkResult   *models.AccessResult
	checkErr      error
	processResult *models.AccessResult
	processErr    error
	library       []models.PurchasedGame
	listErr       error

	gotUser  string
	gotGame  string
	gotToken string
}

func (f *fakeBiller) CheckAccess(ctx context.Context, userID, gameID string) (*models.AccessResult, error) {
	f.gotUser, f.gotGame = userID, gameID
	return f.checkResult, f.checkErr
}

func (f *fakeBiller) ProcessPayment(ctx context.Context, userID, gameID, paymentToken string) (*models.AccessResult, error) {
	f.gotUser, f.gotGame, f.gotToken = userID, gameID, paymentToken
	return f.processResult, f.processErr
}

func (f *fakeBiller) ListPurchasedGames(ctx context.Context, userID string) ([]models.PurchasedGame, error) {
	f.gotUser = userID
	return f.library, f.listErr
}

func newAccessRequest(userID, gameID string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/access/"+gameID, nil)
	if userID != "" {
		r.Header.Set("X-User-ID", userID)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("gameID", gameID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAccessHandlerGranted(t *testing.T) {
	biller := &fakeBiller{checkResult: &models.AccessResult{Status: models.AccessGranted, DeployedURL: "https://g1"}}
	h := NewHandler(biller)

	w := httptest.NewRecorder()
	h.AccessHandler(w, newAccessRequest("u1", "g1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var result models.AccessResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if result.Status != models.AccessGranted || result.DeployedURL != "https://g1" {
		t.Errorf("result = %+v", result)
	}
	if biller.gotUser != "u1" || biller.gotGame != "g1" {
		t.Errorf("biller called with user %q game %q", biller.gotUser, biller.gotGame)
	}
}

func TestAccessHandlerRequiresUserHeader(t *testing.T) {
	h := NewHandler(&fakeBiller{})

	w := httptest.NewRecorder()
	h.AccessHandler(w, newAccessRequest("", "g1"))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAccessHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid input", service.ErrInvalidInput, http.StatusBadRequest},
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"not ready", service.ErrGameNotReady, http.StatusConflict},
		{"payment system", service.ErrPaymentSystem, http.StatusBadGateway},
		{"storage", service.ErrStorage, http.StatusInternalServerError},
		{"inconsistent", service.ErrInconsistent, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&fakeBiller{checkErr: tc.err})

			w := httptest.NewRecorder()
			h.AccessHandler(w, newAccessRequest("u1", "g1"))

			if w.Code != tc.code {
				t.Errorf("status = %d, want %d", w.Code, tc.code)
			}
			if strings.Contains(w.Body.String(), tc.err.Error()) {
				t.Errorf("response leaks internal error text: %s", w.Body.String())
			}
		})
	}
}

func TestChargeHandler(t *testing.T) {
	biller := &fakeBiller{processResult: &models.AccessResult{Status: models.AccessGranted, DeployedURL: "https://g1"}}
	h := NewHandler(biller)

	form := url.Values{}
	form.Set("user_id", "u1")
	form.Set("game_id", "g1")
	form.Set("payment_token", "tok-valid")

	r := httptest.NewRequest(http.MethodPost, "/charge", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ChargeHandler(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if biller.gotUser != "u1" || biller.gotGame != "g1" || biller.gotToken != "tok-valid" {
		t.Errorf("biller called with user %q game %q token %q", biller.gotUser, biller.gotGame, biller.gotToken)
	}

	var result models.AccessResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if result.Status != models.AccessGranted {
		t.Errorf("status = %q, want %q", result.Status, models.AccessGranted)
	}
}

func TestChargeHandlerMissingFields(t *testing.T) {
	h := NewHandler(&fakeBiller{processErr: service.ErrInvalidInput})

	r := httptest.NewRequest(http.MethodPost, "/charge", strings.NewReader(""))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ChargeHandler(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPurchasedGamesHandler(t *testing.T) {
	biller := &fakeBiller{library: []models.PurchasedGame{
		{GameID: "g1", DeployedURL: "https://g1"},
		{GameID: "g2", DeployedURL: "https://g2"},
	}}
	h := NewHandler(biller)

	r := httptest.NewRequest(http.MethodGet, "/purchased-games", nil)
	r.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()
	h.PurchasedGamesHandler(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var library []models.PurchasedGame
	if err := json.Unmarshal(w.Body.Bytes(), &library); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(library) != 2 {
		t.Errorf("library size = %d, want 2", len(library))
	}
}

func TestPurchasedGamesHandlerEmptyLibrary(t *testing.T) {
	h := NewHandler(&fakeBiller{library: []models.PurchasedGame{}})

	r := httptest.NewRequest(http.MethodGet, "/purchased-games", nil)
	r.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()
	h.PurchasedGamesHandler(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

func TestHealthHandler(t *testing.T) {
	h := NewHandler(&fakeBiller{})

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.HealthHandler(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var rsp Response
	if err := json.Unmarshal(w.Body.Bytes(), &rsp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if rsp.Message == "" {
		t.Error("health message is empty")
	}
}

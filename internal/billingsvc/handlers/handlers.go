package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/gamegate-services/internal/billingsvc/models"
	"github.com/avvvet/gamegate-services/internal/billingsvc/service"
)

// Biller is the entitlement engine consumed by the HTTP boundary.
type Biller interface {
	CheckAccess(ctx context.Context, userID, gameID string) (*models.AccessResult, error)
	ProcessPayment(ctx context.Context, userID, gameID, paymentToken string) (*models.AccessResult, error)
	ListPurchasedGames(ctx context.Context, userID string) ([]models.PurchasedGame, error)
}

type Handler struct {
	billing   Biller
	tokenAuth *jwtauth.JWTAuth
}

func NewHandler(billing Biller) *Handler {
	return &Handler{billing: billing}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the service taxonomy to HTTP codes without leaking
// internal detail to the client. The full error goes to the service log.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var code int
	var msg string

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		code, msg = http.StatusBadRequest, "missing user or game identifier"
	case errors.Is(err, service.ErrNotFound):
		code, msg = http.StatusNotFound, "game not found"
	case errors.Is(err, service.ErrGameNotReady):
		code, msg = http.StatusConflict, "game is not deployed yet"
	case errors.Is(err, service.ErrPaymentSystem):
		code, msg = http.StatusBadGateway, "payment service unavailable, try again later"
	default:
		code, msg = http.StatusInternalServerError, "could not process request due to a server error"
	}

	log.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
	h.writeJSON(w, code, map[string]string{"error": msg})
}

// userID comes from the X-User-ID header placed by the auth boundary.
func (h *Handler) userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "billing gateway is online",
		Code:    200,
		Data:    nil,
	}
	h.CreateResponse(w, rsp)
}

// AccessHandler answers whether the user may open the game and with which
// deployed URL.
func (h *Handler) AccessHandler(w http.ResponseWriter, r *http.Request) {
	userID := h.userID(r)
	if userID == "" {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user authentication required (X-User-ID)"})
		return
	}

	gameID := chi.URLParam(r, "gameID")

	result, err := h.billing.CheckAccess(r.Context(), userID, gameID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// PurchasedGamesHandler lists the user's library.
func (h *Handler) PurchasedGamesHandler(w http.ResponseWriter, r *http.Request) {
	userID := h.userID(r)
	if userID == "" {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user authentication required (X-User-ID)"})
		return
	}

	games, err := h.billing.ListPurchasedGames(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, games)
}

// ChargeHandler processes the client-initiated payment and grants access
// upon success.
func (h *Handler) ChargeHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form payload"})
		return
	}

	userID := r.PostFormValue("user_id")
	gameID := r.PostFormValue("game_id")
	token := r.PostFormValue("payment_token")

	result, err := h.billing.ProcessPayment(r.Context(), userID, gameID, token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

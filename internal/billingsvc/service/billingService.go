package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/backoff/v2"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/gamegate-services/internal/billingsvc/audit"
	"github.com/avvvet/gamegate-services/internal/billingsvc/models"
	"github.com/avvvet/gamegate-services/internal/billingsvc/payment"
	"github.com/avvvet/gamegate-services/internal/billingsvc/store"

	"github.com/shopspring/decimal"
)

// GameStore is the catalog read path.
type GameStore interface {
	GetGame(ctx context.Context, gameID string) (*models.Game, error)
}

// PurchaseStore is the payment ledger, the source of truth for entitlement.
type PurchaseStore interface {
	HasPaid(ctx context.Context, userID, gameID string) (bool, error)
	RecordPurchase(ctx context.Context, userID, gameID, method string, amount decimal.Decimal) error
	ListPurchasedGames(ctx context.Context, userID string) ([]models.PurchasedGame, error)
}

// EventPublisher reports decisions and ledger mutations downstream,
// best effort.
type EventPublisher interface {
	PublishPaymentEvent(eventType, userID, gameID, status, method, amount, description string)
}

// Reconciler alerts operators when a verified payment could not be recorded.
type Reconciler interface {
	NotifyReconciliation(userID, gameID string)
}

type BillingService struct {
	games     GameStore
	purchases PurchaseStore
	verifier  payment.Verifier
	events    EventPublisher
	trail     *audit.Trail
	ops       Reconciler
	locks     *pairLocks

	verifyTimeout time.Duration
	storeTimeout  time.Duration
	retryMin      time.Duration
	retryMax      time.Duration
	maxRetries    int
}

func NewBillingService(games GameStore, purchases PurchaseStore, verifier payment.Verifier,
	events EventPublisher, trail *audit.Trail, ops Reconciler) *BillingService {
	return &BillingService{
		games:     games,
		purchases: purchases,
		verifier:  verifier,
		events:    events,
		trail:     trail,
		ops:       ops,
		locks:     newPairLocks(),

		verifyTimeout: 5 * time.Second,
		storeTimeout:  3 * time.Second,
		retryMin:      500 * time.Millisecond,
		retryMax:      2 * time.Second,
		maxRetries:    2,
	}
}

// CheckAccess decides entitlement for the pair from the ledger alone.
// Entitlement is never cached: a PAID row means granted with the game's
// deployed URL, anything else means denied with an empty URL.
func (s *BillingService) CheckAccess(ctx context.Context, userID, gameID string) (*models.AccessResult, error) {
	if userID == "" || gameID == "" {
		return nil, ErrInvalidInput
	}

	paid, err := s.hasPaid(ctx, userID, gameID)
	if err != nil {
		return nil, fmt.Errorf("%w: check for user %s game %s: %v", ErrStorage, userID, gameID, err)
	}

	if !paid {
		s.publish("access_check", userID, gameID, models.AccessDenied, "", "", "no paid record")
		return &models.AccessResult{Status: models.AccessDenied, DeployedURL: ""}, nil
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	game, err := s.games.GetGame(sctx, gameID)
	if err != nil {
		if errors.Is(err, store.ErrGameNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, gameID)
		}
		return nil, fmt.Errorf("%w: load game %s: %v", ErrStorage, gameID, err)
	}

	if !game.Deployed() {
		s.trail.Record(audit.LevelWarning, "billing.check_access",
			"paid game has no deployed url", userID, gameID)
		return nil, fmt.Errorf("%w: %s", ErrGameNotReady, gameID)
	}

	s.publish("access_check", userID, gameID, models.AccessGranted, "", "", "")
	return &models.AccessResult{Status: models.AccessGranted, DeployedURL: game.DeployedURL}, nil
}

// ProcessPayment runs the verify, record, re-decide sequence for a presented
// token. At most one sequence is in flight per (user, game) pair, and the
// sequence runs to a durable outcome even if the caller disconnects.
func (s *BillingService) ProcessPayment(ctx context.Context, userID, gameID, paymentToken string) (*models.AccessResult, error) {
	if userID == "" || gameID == "" || paymentToken == "" {
		return nil, ErrInvalidInput
	}

	// a client timeout must not abandon a payment mid-flight
	ctx = context.WithoutCancel(ctx)

	unlock := s.locks.lock(userID + "\x00" + gameID)
	defer unlock()

	confirmed, err := s.verify(ctx, userID, gameID, paymentToken)
	if err != nil {
		s.trail.Record(audit.LevelError, "billing.process_payment",
			"payment verification unavailable: "+err.Error(), userID, gameID)
		return nil, fmt.Errorf("%w: %v", ErrPaymentSystem, err)
	}

	if !confirmed {
		s.trail.Record(audit.LevelInfo, "billing.process_payment", "charge declined", userID, gameID)
		s.publish("charge", userID, gameID, models.AccessDenied, "", "", "declined by verifier")
		return &models.AccessResult{Status: models.AccessDenied, DeployedURL: ""}, nil
	}

	if err := s.record(ctx, userID, gameID, paymentToken); err != nil {
		return nil, err
	}

	// Re-derive the response from the ledger; the verifier result never
	// backs a GRANTED answer on its own.
	result, err := s.CheckAccess(ctx, userID, gameID)
	if err != nil {
		return nil, err
	}

	s.publish("charge", userID, gameID, result.Status,
		payment.MethodFromToken(paymentToken), models.UnlockPrice.String(), "")
	return result, nil
}

// ListPurchasedGames returns the user's full library. Zero purchases is an
// empty list, not an error.
func (s *BillingService) ListPurchasedGames(ctx context.Context, userID string) ([]models.PurchasedGame, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	games, err := s.purchases.ListPurchasedGames(sctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list for user %s: %v", ErrStorage, userID, err)
	}

	return games, nil
}

// verify calls the payment gateway with a bounded timeout and retries
// transport failures with backoff. A timeout is a system error, never a
// declined charge.
func (s *BillingService) verify(ctx context.Context, userID, gameID, token string) (bool, error) {
	p := backoff.Exponential(
		backoff.WithMinInterval(s.retryMin),
		backoff.WithMaxInterval(s.retryMax),
		backoff.WithMaxRetries(s.maxRetries),
	)

	var lastErr error
	b := p.Start(ctx)
	for backoff.Continue(b) {
		vctx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
		confirmed, err := s.verifier.Verify(vctx, userID, gameID, token)
		cancel()
		if err == nil {
			return confirmed, nil
		}
		lastErr = err
		log.Warnf("payment verify attempt failed for user %s game %s: %v", userID, gameID, err)
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return false, lastErr
}

// record writes the PAID row after a confirmed charge. The pre-check skips a
// pointless insert for an already settled pair; the unique constraint turns
// any race the pre-check misses into ErrAlreadySettled. Exhausted write
// retries leave a verified-but-unrecorded payment, which is escalated for
// reconciliation and surfaced as a system error.
func (s *BillingService) record(ctx context.Context, userID, gameID, token string) error {
	paid, err := s.hasPaid(ctx, userID, gameID)
	if err != nil {
		// the insert below is still safe, the constraint dedups
		log.Warnf("idempotency pre-check failed for user %s game %s: %v", userID, gameID, err)
	}
	if paid {
		s.trail.Record(audit.LevelInfo, "ledger.record_purchase",
			"pair already settled, skipping insert", userID, gameID)
		return nil
	}

	method := payment.MethodFromToken(token)

	p := backoff.Exponential(
		backoff.WithMinInterval(s.retryMin),
		backoff.WithMaxInterval(s.retryMax),
		backoff.WithMaxRetries(s.maxRetries),
	)

	var lastErr error
	b := p.Start(ctx)
	for backoff.Continue(b) {
		sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		err := s.purchases.RecordPurchase(sctx, userID, gameID, method, models.UnlockPrice)
		cancel()

		if err == nil {
			s.trail.Record(audit.LevelInfo, "ledger.record_purchase", "purchase recorded", userID, gameID)
			s.publish("purchase_recorded", userID, gameID, models.PurchaseStatusPaid,
				method, models.UnlockPrice.String(), "")
			return nil
		}
		if errors.Is(err, store.ErrAlreadySettled) {
			s.trail.Record(audit.LevelInfo, "ledger.record_purchase",
				"concurrent insert lost, pair settled", userID, gameID)
			return nil
		}
		lastErr = err
		log.Warnf("purchase write attempt failed for user %s game %s: %v", userID, gameID, err)
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	s.trail.Record(audit.LevelCritical, "ledger.record_purchase",
		fmt.Sprintf("RECONCILIATION REQUIRED: verified payment not recorded: %v", lastErr), userID, gameID)
	if s.ops != nil {
		s.ops.NotifyReconciliation(userID, gameID)
	}
	return fmt.Errorf("%w: user %s game %s: %v", ErrInconsistent, userID, gameID, lastErr)
}

// hasPaid reads the ledger with bounded retries, failing closed only after
// the error is surfaced to the caller.
func (s *BillingService) hasPaid(ctx context.Context, userID, gameID string) (bool, error) {
	p := backoff.Constant(
		backoff.WithInterval(s.retryMin),
		backoff.WithMaxRetries(s.maxRetries),
	)

	var lastErr error
	b := p.Start(ctx)
	for backoff.Continue(b) {
		sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		paid, err := s.purchases.HasPaid(sctx, userID, gameID)
		cancel()
		if err == nil {
			return paid, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return false, lastErr
}

func (s *BillingService) publish(eventType, userID, gameID, status, method, amount, description string) {
	if s.events == nil {
		return
	}
	s.events.PublishPaymentEvent(eventType, userID, gameID, status, method, amount, description)
}

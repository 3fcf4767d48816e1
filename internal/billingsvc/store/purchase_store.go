package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avvvet/gamegate-services/internal/billingsvc/models"
)

const uniqueViolation = "23505"

type PurchaseStore struct {
	db *pgxpool.Pool
}

func NewPurchaseStore(db *pgxpool.Pool) *PurchaseStore {
	return &PurchaseStore{db: db}
}

// HasPaid reports whether a PAID purchase exists for the pair.
func (s *PurchaseStore) HasPaid(ctx context.Context, userID, gameID string) (bool, error) {
	var count int
	err := s.db.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM purchases
        WHERE user_id = $1 AND game_id = $2 AND status = $3
    `, userID, gameID, models.PurchaseStatusPaid).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check payment status: %w", err)
	}

	return count > 0, nil
}

// RecordPurchase inserts the PAID row for a verified payment. The insert is a
// single statement, so it either fully commits or has no effect. A duplicate
// for the same (user, game) pair hits the unique constraint and comes back
// as ErrAlreadySettled.
func (s *PurchaseStore) RecordPurchase(ctx context.Context, userID, gameID, method string, amount decimal.Decimal) error {
	id := uuid.NewString()

	_, err := s.db.Exec(ctx, `
        INSERT INTO purchases (id, user_id, game_id, payment_method, amount, status)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, id, userID, gameID, method, amount, models.PurchaseStatusPaid)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadySettled
		}
		return fmt.Errorf("failed to record purchase: %w", err)
	}

	return nil
}

// ListPurchasedGames joins the ledger against the catalog for a user's
// library view. A user with no purchases gets an empty slice.
func (s *PurchaseStore) ListPurchasedGames(ctx context.Context, userID string) ([]models.PurchasedGame, error) {
	rows, err := s.db.Query(ctx, `
        SELECT p.game_id, g.deployed_url
        FROM purchases p
        INNER JOIN games g ON p.game_id = g.id
        WHERE p.user_id = $1 AND p.status = $2
        ORDER BY p.created_at
    `, userID, models.PurchaseStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchased games: %w", err)
	}
	defer rows.Close()

	games := []models.PurchasedGame{}
	for rows.Next() {
		var g models.PurchasedGame
		if err := rows.Scan(&g.GameID, &g.DeployedURL); err != nil {
			return nil, fmt.Errorf("failed to scan purchased game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read purchased games: %w", err)
	}

	return games, nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avvvet/gamegate-services/internal/billingsvc/models"
)

type GameStore struct {
	db *pgxpool.Pool
}

func NewGameStore(db *pgxpool.Pool) *GameStore {
	return &GameStore{db: db}
}

// GetGame fetches a catalog entry. Games are written by the generation
// pipeline; this service only reads them.
func (s *GameStore) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	query := `
		SELECT id, title, description, deployed_url, created_at
		FROM games
		WHERE id = $1
	`

	game := &models.Game{}
	err := s.db.QueryRow(ctx, query, gameID).Scan(
		&game.ID,
		&game.Title,
		&game.Description,
		&game.DeployedURL,
		&game.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %s: %w", gameID, err)
	}

	return game, nil
}

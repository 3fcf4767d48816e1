package models

import "time"

type Game struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DeployedURL string    `json:"deployed_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Deployed reports whether the generation pipeline has published the asset.
func (g *Game) Deployed() bool {
	return g.DeployedURL != ""
}

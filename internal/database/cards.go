// internal/database/cards.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/taboo/internal/catalog"
	"github.com/jason-s-yu/taboo/internal/models"
)

// LoadCatalog reads every row of the cards table into a catalog.
func LoadCatalog(ctx context.Context, pool *pgxpool.Pool) (*catalog.Catalog, error) {
	rows, err := pool.Query(ctx, `SELECT id, target, taboos FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	cards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Card, error) {
		var c models.Card
		err := row.Scan(&c.ID, &c.Target, &c.Taboos)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan cards: %w", err)
	}
	return catalog.New(cards)
}

// SeedCards upserts cards, e.g. from the bundled word file.
func SeedCards(ctx context.Context, pool *pgxpool.Pool, cards []models.Card) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range cards {
			batch.Queue(`
				INSERT INTO cards (id, target, taboos)
				VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE SET target = $2, taboos = $3
			`, c.ID, c.Target, c.Taboos)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("seed cards: %w", err)
		}
		return nil
	})
}

// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/taboo/internal/models"
)

// ActionStore persists room action records.
type ActionStore struct {
	pool *pgxpool.Pool
}

// NewActionStore wraps pool.
func NewActionStore(pool *pgxpool.Pool) *ActionStore {
	return &ActionStore{pool: pool}
}

// InsertActions writes recs in a single transaction. Replayed records are
// ignored.
func (s *ActionStore) InsertActions(ctx context.Context, recs []models.ActionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return fmt.Errorf("marshal payload of %s#%d: %w", rec.RoomCode, rec.ActionIndex, err)
			}
			var actor *string
			if rec.ActorID != "" {
				a := rec.ActorID.String()
				actor = &a
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO room_actions (
					room_code, action_index, actor_id, action_type, action_payload, occurred_at
				) VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT DO NOTHING
			`, rec.RoomCode, rec.ActionIndex, actor, rec.ActionType, payload, time.UnixMilli(rec.Timestamp))
			if err != nil {
				return fmt.Errorf("insert action %s#%d: %w", rec.RoomCode, rec.ActionIndex, err)
			}
		}
		return nil
	})
}

// ActionsForRoom returns a room's recorded actions in order.
func (s *ActionStore) ActionsForRoom(ctx context.Context, roomCode string) ([]models.ActionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT room_code, action_index, COALESCE(actor_id, ''), action_type, action_payload, occurred_at
		FROM room_actions
		WHERE room_code = $1
		ORDER BY occurred_at, action_index
	`, roomCode)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ActionRecord, error) {
		var (
			rec   models.ActionRecord
			actor string
			at    time.Time
		)
		if err := row.Scan(&rec.RoomCode, &rec.ActionIndex, &actor, &rec.ActionType, &rec.ActionPayload, &at); err != nil {
			return rec, err
		}
		rec.ActorID = models.ConnID(actor)
		rec.Timestamp = at.UnixMilli()
		return rec, nil
	})
}

package persistence

import (
	"context"
	"database/sql"
	"encoding/json"

	"social-gateway/domain/model"
)

// StreamCacheRepository persists normalized events for daemon-populated feeds.
// Events are stored as JSONB blobs keyed by (guid, item_id).
type StreamCacheRepository struct{ db *sql.DB }

func NewStreamCacheRepository(db *sql.DB) *StreamCacheRepository {
	return &StreamCacheRepository{db: db}
}

func (r *StreamCacheRepository) RetrieveStreamCache(ctx context.Context, guid string, start, end int64, limit int, forward bool) ([]model.StreamCacheRow, error) {
	order := "DESC"
	if forward {
		order = "ASC"
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT guid, item_id, ts, event FROM stream_cache
		 WHERE guid=$1 AND ts >= $2 AND ts <= $3 ORDER BY ts `+order+` LIMIT $4`,
		guid, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.StreamCacheRow
	for rows.Next() {
		var row model.StreamCacheRow
		var raw []byte
		if err := rows.Scan(&row.GUID, &row.ItemID, &row.Timestamp, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &row.Event); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *StreamCacheRepository) UpdateStreamCache(ctx context.Context, entries []model.StreamCacheRow) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, e := range entries {
		var raw []byte
		raw, err = json.Marshal(e.Event)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO stream_cache (guid, item_id, ts, event) VALUES ($1,$2,$3,$4)
			 ON CONFLICT (guid, item_id) DO UPDATE SET ts=EXCLUDED.ts, event=EXCLUDED.event`,
			e.GUID, e.ItemID, e.Timestamp, raw)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

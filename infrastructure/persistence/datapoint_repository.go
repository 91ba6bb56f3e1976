package persistence

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"social-gateway/domain/model"
)

// DatapointRepository persists the per-(guid, method) time series plus the
// expiration markers interval reads splice in.
type DatapointRepository struct{ db *sql.DB }

func NewDatapointRepository(db *sql.DB) *DatapointRepository {
	return &DatapointRepository{db: db}
}

func (r *DatapointRepository) WriteValue(ctx context.Context, guid, method string, timestamp int64, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO datapoints (guid, method, ts, value) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (guid, method, ts) DO UPDATE SET value=EXCLUDED.value`,
		guid, method, timestamp, value)
	return err
}

func (r *DatapointRepository) GetValue(ctx context.Context, guid, method string) (*model.Datapoint, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT guid, method, ts, value FROM datapoints WHERE guid=$1 AND method=$2 ORDER BY ts DESC LIMIT 1`,
		guid, method)
	return scanDatapoint(row)
}

func (r *DatapointRepository) GetValueBefore(ctx context.Context, guid, method string, ts int64) (*model.Datapoint, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT guid, method, ts, value FROM datapoints WHERE guid=$1 AND method=$2 AND ts < $3 ORDER BY ts DESC LIMIT 1`,
		guid, method, ts)
	return scanDatapoint(row)
}

func scanDatapoint(row *sql.Row) (*model.Datapoint, error) {
	d := &model.Datapoint{}
	err := row.Scan(&d.GUID, &d.Method, &d.Timestamp, &d.Value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DatapointRepository) GetValueRange(ctx context.Context, guid, method string, start, end int64) ([]model.Datapoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT guid, method, ts, value FROM datapoints WHERE guid=$1 AND method=$2 AND ts >= $3 AND ts <= $4 ORDER BY ts ASC`,
		guid, method, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Datapoint
	for rows.Next() {
		var d model.Datapoint
		if err := rows.Scan(&d.GUID, &d.Method, &d.Timestamp, &d.Value); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DatapointRepository) WriteExpirationMarker(ctx context.Context, guid string, expiredOn int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expiration_markers (guid, expired_on) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		guid, expiredOn)
	return err
}

func (r *DatapointRepository) GetExpirationMarkers(ctx context.Context, guid string, since int64) ([]model.ExpirationMarker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT guid, expired_on FROM expiration_markers WHERE guid=$1 AND expired_on >= $2 ORDER BY expired_on ASC`,
		guid, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ExpirationMarker
	for rows.Next() {
		var m model.ExpirationMarker
		if err := rows.Scan(&m.GUID, &m.ExpiredOn); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *DatapointRepository) LatestExpirationMarker(ctx context.Context, guid string) (*model.ExpirationMarker, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT guid, expired_on FROM expiration_markers WHERE guid=$1 ORDER BY expired_on DESC LIMIT 1`, guid)
	m := &model.ExpirationMarker{}
	err := row.Scan(&m.GUID, &m.ExpiredOn)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GranularRepository deduplicates per-item observations across polling cycles.
type GranularRepository struct{ db *sql.DB }

func NewGranularRepository(db *sql.DB) *GranularRepository {
	return &GranularRepository{db: db}
}

func (r *GranularRepository) WriteGranularDatum(ctx context.Context, datum model.GranularDatum) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO granular_data (guid, method, item_id, actor_id, ts) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (guid, method, item_id) DO NOTHING`,
		datum.GUID, datum.Method, datum.ItemID, datum.ActorID, datum.Timestamp)
	return err
}

func (r *GranularRepository) FindUnwrittenGranularData(ctx context.Context, guid, method string, itemIDs []string) ([]string, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT item_id FROM granular_data WHERE guid=$1 AND method=$2 AND item_id = ANY($3)`,
		guid, method, pq.Array(itemIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var unwritten []string
	for _, id := range itemIDs {
		if _, ok := seen[id]; !ok {
			unwritten = append(unwritten, id)
		}
	}
	return unwritten, nil
}

func (r *GranularRepository) RetrieveGranularData(ctx context.Context, guid, method string, start, end int64) ([]model.GranularDatum, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT guid, method, item_id, actor_id, ts FROM granular_data
		 WHERE guid=$1 AND method=$2 AND ts >= $3 AND ts <= $4 ORDER BY ts ASC`,
		guid, method, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GranularDatum
	for rows.Next() {
		var d model.GranularDatum
		if err := rows.Scan(&d.GUID, &d.Method, &d.ItemID, &d.ActorID, &d.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *GranularRepository) GetLastGranularTimestamp(ctx context.Context, guid, method string) (int64, error) {
	var ts sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM granular_data WHERE guid=$1 AND method=$2`, guid, method).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"social-gateway/domain/model"
)

// ViewRepository stores view plans; definitions serialize as JSON arrays.
type ViewRepository struct{ db *sql.DB }

func NewViewRepository(db *sql.DB) *ViewRepository { return &ViewRepository{db: db} }

func (r *ViewRepository) GetViews(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM views ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *ViewRepository) GetView(ctx context.Context, name string) (*model.View, error) {
	row := r.db.QueryRowContext(ctx, `SELECT name, definition, created_at FROM views WHERE name=$1`, name)
	v := &model.View{}
	var raw []byte
	err := row.Scan(&v.Name, &raw, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &v.Definition); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *ViewRepository) SetView(ctx context.Context, view *model.View) error {
	raw, err := json.Marshal(view.Definition)
	if err != nil {
		return err
	}
	if view.CreatedAt.IsZero() {
		view.CreatedAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO views (name, definition, created_at) VALUES ($1,$2,$3)
		 ON CONFLICT (name) DO UPDATE SET definition=EXCLUDED.definition`,
		view.Name, raw, view.CreatedAt)
	return err
}

func (r *ViewRepository) DeleteView(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM views WHERE name=$1`, name)
	return err
}

func (r *ViewRepository) ViewExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM views WHERE name=$1`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

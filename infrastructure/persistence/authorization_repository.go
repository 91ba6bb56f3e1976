package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"social-gateway/domain/model"
)

const authzColumns = `guid, client_name, service_name, user_id, token, secret, refresh_token, redirect_uri, account_created_timestamp, expired_on, created_at, updated_at`

// AuthorizationRepository persists authorizations and inflight handshake
// records in PostgreSQL.
type AuthorizationRepository struct{ db *sql.DB }

func NewAuthorizationRepository(db *sql.DB) *AuthorizationRepository {
	return &AuthorizationRepository{db: db}
}

func scanAuthorization(row *sql.Row) (*model.Authorization, error) {
	a := &model.Authorization{}
	var accountCreated, expiredOn sql.NullTime
	err := row.Scan(&a.GUID, &a.ClientName, &a.ServiceName, &a.UserID, &a.Token, &a.Secret,
		&a.RefreshToken, &a.RedirectURI, &accountCreated, &expiredOn, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if accountCreated.Valid {
		a.AccountCreatedTimestamp = &accountCreated.Time
	}
	if expiredOn.Valid {
		a.ExpiredOn = &expiredOn.Time
	}
	return a, nil
}

func (r *AuthorizationRepository) GetToken(ctx context.Context, guid string) (*model.Authorization, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+authzColumns+` FROM authorizations WHERE guid=$1`, guid)
	return scanAuthorization(row)
}

func (r *AuthorizationRepository) GetTokenByTriple(ctx context.Context, clientName, serviceName, userID string) (*model.Authorization, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+authzColumns+` FROM authorizations WHERE client_name=$1 AND service_name=$2 AND user_id=$3`,
		clientName, serviceName, userID)
	return scanAuthorization(row)
}

func (r *AuthorizationRepository) GetTokenForService(ctx context.Context, guid, serviceName string) (*model.Authorization, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+authzColumns+` FROM authorizations WHERE guid=$1 AND service_name=$2`, guid, serviceName)
	return scanAuthorization(row)
}

func (r *AuthorizationRepository) GetTokens(ctx context.Context, guids []string) ([]*model.Authorization, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+authzColumns+` FROM authorizations WHERE guid = ANY($1)`, pq.Array(guids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Authorization
	for rows.Next() {
		a := &model.Authorization{}
		var accountCreated, expiredOn sql.NullTime
		if err := rows.Scan(&a.GUID, &a.ClientName, &a.ServiceName, &a.UserID, &a.Token, &a.Secret,
			&a.RefreshToken, &a.RedirectURI, &accountCreated, &expiredOn, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if accountCreated.Valid {
			a.AccountCreatedTimestamp = &accountCreated.Time
		}
		if expiredOn.Valid {
			a.ExpiredOn = &expiredOn.Time
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AuthorizationRepository) ListActiveTokens(ctx context.Context) ([]*model.Authorization, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+authzColumns+` FROM authorizations WHERE expired_on IS NULL OR expired_on > NOW()`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Authorization
	for rows.Next() {
		a := &model.Authorization{}
		var accountCreated, expiredOn sql.NullTime
		if err := rows.Scan(&a.GUID, &a.ClientName, &a.ServiceName, &a.UserID, &a.Token, &a.Secret,
			&a.RefreshToken, &a.RedirectURI, &accountCreated, &expiredOn, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if accountCreated.Valid {
			a.AccountCreatedTimestamp = &accountCreated.Time
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetToken upserts by (client_name, service_name, user_id). A fresh guid is
// minted only when the triple is new; repeated completion of the same
// authorization reuses the stored guid.
func (r *AuthorizationRepository) SetToken(ctx context.Context, authz *model.Authorization) (string, bool, error) {
	now := time.Now().UTC()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT guid FROM authorizations WHERE client_name=$1 AND service_name=$2 AND user_id=$3`,
		authz.ClientName, authz.ServiceName, authz.UserID).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return "", false, err
	}

	if err == sql.ErrNoRows {
		err = nil
		guid := uuid.NewString()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO authorizations (`+authzColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`,
			guid, authz.ClientName, authz.ServiceName, authz.UserID, authz.Token, authz.Secret,
			authz.RefreshToken, authz.RedirectURI, authz.AccountCreatedTimestamp, authz.ExpiredOn, now)
		if err != nil {
			return "", false, err
		}
		if err = tx.Commit(); err != nil {
			return "", false, err
		}
		return guid, true, nil
	}

	// Refresh token is kept when the provider did not return a new one.
	_, err = tx.ExecContext(ctx,
		`UPDATE authorizations SET token=$1, secret=$2,
			refresh_token = CASE WHEN $3 <> '' THEN $3 ELSE refresh_token END,
			redirect_uri=$4, expired_on=$5, updated_at=$6
		 WHERE guid=$7`,
		authz.Token, authz.Secret, authz.RefreshToken, authz.RedirectURI, authz.ExpiredOn, now, existing)
	if err != nil {
		return "", false, err
	}
	if err = tx.Commit(); err != nil {
		return "", false, err
	}
	return existing, false, nil
}

func (r *AuthorizationRepository) UpdateAccessToken(ctx context.Context, guid, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE authorizations SET token=$1, expired_on=NULL, updated_at=$2 WHERE guid=$3`,
		token, time.Now().UTC(), guid)
	return err
}

func (r *AuthorizationRepository) DeleteToken(ctx context.Context, guid string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM authorizations WHERE guid=$1`, guid)
	return err
}

func (r *AuthorizationRepository) ExpireToken(ctx context.Context, guid string, expiredOn time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE authorizations SET expired_on=$1, updated_at=$2 WHERE guid=$3`,
		expiredOn.UTC(), time.Now().UTC(), guid)
	return err
}

// DeleteUserData removes everything collected under a guid; the guid scopes a
// single (client, service, user) authorization, so nothing else is touched.
func (r *AuthorizationRepository) DeleteUserData(ctx context.Context, guid string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, q := range []string{
		`DELETE FROM datapoints WHERE guid=$1`,
		`DELETE FROM expiration_markers WHERE guid=$1`,
		`DELETE FROM granular_data WHERE guid=$1`,
		`DELETE FROM stream_cache WHERE guid=$1`,
	} {
		if _, err = tx.ExecContext(ctx, q, guid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *AuthorizationRepository) StoreInflightAuthz(ctx context.Context, inflight *model.InflightAuthz) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO inflight_authz (service_name, token, secret, created_at) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (service_name, token) DO UPDATE SET secret=EXCLUDED.secret, created_at=EXCLUDED.created_at`,
		inflight.ServiceName, inflight.Token, inflight.Secret, now)
	return err
}

// RetrieveInflightAuthz consumes the record; the handshake's finish leg is the
// only reader.
func (r *AuthorizationRepository) RetrieveInflightAuthz(ctx context.Context, serviceName, token string) (*model.InflightAuthz, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM inflight_authz WHERE service_name=$1 AND token=$2
		 RETURNING service_name, token, secret, created_at`, serviceName, token)
	in := &model.InflightAuthz{}
	err := row.Scan(&in.ServiceName, &in.Token, &in.Secret, &in.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return in, nil
}

package persistence

import (
	"database/sql"
	"fmt"

	"social-gateway/infrastructure/logger"
)

// EnsureGatewaySchema creates the gateway tables when missing. Safe to call at
// startup.
func EnsureGatewaySchema(db *sql.DB) error {
	ddls := []string{
		`CREATE TABLE IF NOT EXISTS authorizations (
			guid TEXT PRIMARY KEY,
			client_name TEXT NOT NULL,
			service_name TEXT NOT NULL,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL DEFAULT '',
			secret TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			redirect_uri TEXT NOT NULL DEFAULT '',
			account_created_timestamp TIMESTAMPTZ,
			expired_on TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (client_name, service_name, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS inflight_authz (
			service_name TEXT NOT NULL,
			token TEXT NOT NULL,
			secret TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (service_name, token)
		)`,
		`CREATE TABLE IF NOT EXISTS datapoints (
			guid TEXT NOT NULL,
			method TEXT NOT NULL,
			ts BIGINT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (guid, method, ts)
		)`,
		`CREATE TABLE IF NOT EXISTS expiration_markers (
			guid TEXT NOT NULL,
			expired_on BIGINT NOT NULL,
			PRIMARY KEY (guid, expired_on)
		)`,
		`CREATE TABLE IF NOT EXISTS granular_data (
			guid TEXT NOT NULL,
			method TEXT NOT NULL,
			item_id TEXT NOT NULL,
			actor_id TEXT NOT NULL DEFAULT '',
			ts BIGINT NOT NULL,
			PRIMARY KEY (guid, method, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS views (
			name TEXT PRIMARY KEY,
			definition JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stream_cache (
			guid TEXT NOT NULL,
			item_id TEXT NOT NULL,
			ts BIGINT NOT NULL,
			event JSONB NOT NULL,
			PRIMARY KEY (guid, item_id)
		)`,
	}
	for _, ddl := range ddls {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("ensure gateway schema: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_datapoints_guid_method_ts ON datapoints (guid, method, ts DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_stream_cache_guid_ts ON stream_cache (guid, ts DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_granular_guid_method_ts ON granular_data (guid, method, ts)`,
	}
	for _, ddl := range indexes {
		if _, err := db.Exec(ddl); err != nil {
			logger.GetLogger().WithField("error", err).Warn("failed creating gateway index")
		}
	}
	return nil
}

package repository

import (
	"context"
	"time"

	"social-gateway/domain/model"
)

// IAuthorization is the persistence contract for authorizations and the
// short-lived inflight records of in-progress OAuth handshakes.
// Lookup methods return (nil, nil) when no row matches.
type IAuthorization interface {
	GetToken(ctx context.Context, guid string) (*model.Authorization, error)
	GetTokenByTriple(ctx context.Context, clientName, serviceName, userID string) (*model.Authorization, error)
	GetTokenForService(ctx context.Context, guid, serviceName string) (*model.Authorization, error)
	GetTokens(ctx context.Context, guids []string) ([]*model.Authorization, error)

	// ListActiveTokens returns every authorization without an expiration
	// marker, across all clients. The scheduler seeds collection from it.
	ListActiveTokens(ctx context.Context) ([]*model.Authorization, error)

	// SetToken upserts by (client_name, service_name, user_id). A new guid is
	// minted only when no matching triple exists; otherwise the existing guid
	// is reused and the token fields are updated.
	SetToken(ctx context.Context, authz *model.Authorization) (guid string, isNew bool, err error)

	// UpdateAccessToken swaps the access token in place after a refresh.
	UpdateAccessToken(ctx context.Context, guid, token string) error

	DeleteToken(ctx context.Context, guid string) error
	ExpireToken(ctx context.Context, guid string, expiredOn time.Time) error
	DeleteUserData(ctx context.Context, guid string) error

	StoreInflightAuthz(ctx context.Context, inflight *model.InflightAuthz) error
	RetrieveInflightAuthz(ctx context.Context, serviceName, token string) (*model.InflightAuthz, error)
}

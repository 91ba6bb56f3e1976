package provider

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"social-gateway/domain/apperror"
	"social-gateway/domain/model"
	"social-gateway/domain/repository"
	"social-gateway/infrastructure/configuration"
	"social-gateway/infrastructure/request"
)

// CallContext carries everything a provider method needs to run.
type CallContext struct {
	Engine     *request.Engine
	Authz      *model.Authorization
	ClientName string
	Args       url.Values

	// Refresh obtains and persists a fresh access token for Authz. Wired by
	// the dispatcher for providers that implement Refresher; nil otherwise.
	Refresh func(context.Context) (string, error)

	// Collection methods that persist per-item observations or pre-populate
	// feeds receive the relevant stores; nil otherwise.
	Granular    repository.IGranular
	StreamCache repository.IStreamCache
}

// AuthContext carries the state of an authorization handshake leg.
type AuthContext struct {
	Engine      *request.Engine
	ClientName  string
	Environment string
	Params      url.Values // callback / query parameters from the client
	Inflight    InflightStore
}

// InflightStore is the slice of the datastore the handshake legs touch.
type InflightStore interface {
	StoreInflightAuthz(ctx context.Context, inflight *model.InflightAuthz) error
	RetrieveInflightAuthz(ctx context.Context, serviceName, token string) (*model.InflightAuthz, error)
}

// MethodFunc is a provider method body. The result must be JSON-marshallable:
// a scalar for datapoint-shaped methods, a map for object-shaped ones.
type MethodFunc func(ctx context.Context, call *CallContext) (interface{}, error)

// MethodDescriptor registers one exposed method. Dispatch is table-driven:
// lookup goes through the provider's descriptor list, never reflection.
type MethodDescriptor struct {
	Name         string
	Verb         string // GET or POST
	Doc          string
	Recurring    bool          // collected by the background scheduler
	EnqueueDelta time.Duration // re-enqueue spacing; 0 uses the default
	Fn           MethodFunc
}

// Provider is the capability contract every plugin implements.
type Provider interface {
	Name() string
	OAuthVersion() model.OAuthVersion
	AuthURL() string
	AccessTokenURL() string
	EndpointURL() string

	// AppInfo returns the provider app credentials for an environment.
	AppInfo(env string) configuration.ProviderApp

	// Permissions returns the tenant's scope override; empty means the
	// provider default.
	Permissions(clientName string) string

	// StatusErrors overlays the default status classification. Kept verbatim
	// per provider: 403 is a rate limit on some providers and a permission
	// failure on others.
	StatusErrors() map[int]apperror.Kind

	ParseError(status int, url string, header http.Header, body []byte) error

	StartAuthorization(ctx context.Context, auth *AuthContext) (redirectURL string, err error)

	// FinishAuthorization returns the unpersisted authorization; the flow
	// controller commits it through the datastore.
	FinishAuthorization(ctx context.Context, auth *AuthContext) (*model.Authorization, error)

	// RevokeAuthorization is best-effort; providers without remote revocation
	// return nil.
	RevokeAuthorization(ctx context.Context, call *CallContext) error

	Methods() []MethodDescriptor
}

// ActorResolver fetches the profile of an arbitrary provider-side actor, used
// when granular reads enrich rows with their actors.
type ActorResolver interface {
	FetchActorProfile(ctx context.Context, call *CallContext, actorID string) (map[string]interface{}, error)
}

// Refresher is implemented by OAuth2 providers whose tokens can be renewed.
type Refresher interface {
	RefreshAccessToken(ctx context.Context, engine *request.Engine, authz *model.Authorization, app configuration.ProviderApp) (newToken string, err error)
}

// FeedContext carries feed retrieval parameters into the parse hooks.
type FeedContext struct {
	Authz     *model.Authorization
	Timestamp int64
	Forward   bool
}

// FeedProvider is implemented by providers with a normalized activity feed.
type FeedProvider interface {
	GetFeedURL(authz *model.Authorization) (base string, path string)
	GetFeedArgs(authz *model.Authorization) url.Values
	GetFeedLimit(n int) url.Values
	GetFeedTimestamp(ts int64, forward bool) url.Values
	FeedPaging() request.Paging
	ParsePost(raw map[string]interface{}, fctx *FeedContext) (*model.StreamEvent, error)
}

// FeedSigner is implemented by providers whose feed endpoint needs request
// signing beyond what GetFeedArgs can carry in the query.
type FeedSigner interface {
	FeedSign(authz *model.Authorization) request.SignFunc
}

// PostFilter optionally narrows a feed after parsing; providers whose
// endpoints return loose ranges implement it.
type PostFilter interface {
	ShouldIncludePost(ev *model.StreamEvent, fctx *FeedContext) bool
}

// StreamCached marks providers whose feeds are served from the daemon-side
// stream cache instead of live pagination.
type StreamCached interface {
	StreamCachedFeed() bool
}

// Method finds a descriptor by name in a provider's table.
func Method(p Provider, name string) (MethodDescriptor, bool) {
	for _, m := range p.Methods() {
		if m.Name == name {
			return m, true
		}
	}
	return MethodDescriptor{}, false
}

// ParseErrorWithOverlay is the shared ParseError body: classify by the
// provider's status map over the defaults and tag with the service name.
func ParseErrorWithOverlay(service string, overlay map[int]apperror.Kind, status int, url string, body []byte) error {
	kind := request.ClassifyStatus(status, overlay)
	msg := string(body)
	if len(msg) > 512 {
		msg = msg[:512]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return apperror.New(kind, msg).WithService(service)
}

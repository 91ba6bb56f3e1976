// Package loopback is a self-contained provider used for integration testing.
// It never leaves the process: authorization is granted locally and every
// method computes its result in memory, so the full request path, scheduler,
// and view machinery can be exercised without provider credentials.
package loopback

import (
	"context"
	"math/rand"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"social-gateway/domain/apperror"
	"social-gateway/domain/model"
	"social-gateway/infrastructure/configuration"
	"social-gateway/infrastructure/utils"
	"social-gateway/provider"
)

type Loopback struct {
	name string
}

// New builds a loopback provider under the given service name. Two instances
// are normally installed ("loopback", "loopback2") so multi-service views can
// be tested.
func New(name string) *Loopback {
	return &Loopback{name: name}
}

func (l *Loopback) Name() string { return l.name }

func (l *Loopback) OAuthVersion() model.OAuthVersion { return model.OAuth2 }

func (l *Loopback) AuthURL() string { return "loopback://authorize" }

func (l *Loopback) AccessTokenURL() string { return "loopback://token" }

func (l *Loopback) EndpointURL() string { return "loopback://api" }

func (l *Loopback) AppInfo(env string) configuration.ProviderApp {
	return configuration.ProviderApp{AppID: "loopback-app", AppSecret: "loopback-secret"}
}

func (l *Loopback) Permissions(clientName string) string { return "" }

func (l *Loopback) StatusErrors() map[int]apperror.Kind { return nil }

func (l *Loopback) ParseError(status int, url string, header http.Header, body []byte) error {
	return provider.ParseErrorWithOverlay(l.name, nil, status, url, body)
}

// StartAuthorization short-circuits the handshake: the redirect points
// straight back at the gateway's callback with a synthetic code.
func (l *Loopback) StartAuthorization(ctx context.Context, auth *provider.AuthContext) (string, error) {
	state := uuid.NewString()
	if err := auth.Inflight.StoreInflightAuthz(ctx, &model.InflightAuthz{
		ServiceName: l.name,
		Token:       state,
		CreatedAt:   utils.GetCurrentTime(),
	}); err != nil {
		return "", err
	}
	values := url.Values{}
	values.Set("code", "loopback-code")
	values.Set("state", state)
	values.Set("service", l.name)
	return "/auth?" + values.Encode(), nil
}

func (l *Loopback) FinishAuthorization(ctx context.Context, auth *provider.AuthContext) (*model.Authorization, error) {
	state := auth.Params.Get("state")
	inflight, err := auth.Inflight.RetrieveInflightAuthz(ctx, l.name, state)
	if err != nil {
		return nil, err
	}
	if inflight == nil {
		return nil, apperror.New(apperror.InvalidToken, "Auth error").WithService(l.name)
	}
	return &model.Authorization{
		ServiceName: l.name,
		UserID:      l.name + "-user",
		Token:       uuid.NewString(),
	}, nil
}

func (l *Loopback) RevokeAuthorization(ctx context.Context, call *provider.CallContext) error {
	return nil
}

func (l *Loopback) Methods() []provider.MethodDescriptor {
	return []provider.MethodDescriptor{
		{
			Name:      "time",
			Verb:      http.MethodGet,
			Doc:       "Current time, recorded as an epoch datapoint",
			Recurring: true,
			Fn: func(ctx context.Context, call *provider.CallContext) (interface{}, error) {
				return utils.Epoch(utils.GetCurrentTime()), nil
			},
		},
		{
			Name:      "random",
			Verb:      http.MethodGet,
			Doc:       "Random integer sample between 0 and 99",
			Recurring: true,
			Fn: func(ctx context.Context, call *provider.CallContext) (interface{}, error) {
				return rand.Intn(100), nil
			},
		},
		{
			Name: "profile",
			Verb: http.MethodGet,
			Doc:  "Profile of the authorized loopback account",
			Fn: func(ctx context.Context, call *provider.CallContext) (interface{}, error) {
				return map[string]interface{}{
					"id":   call.Authz.UserID,
					"name": "Loopback User",
				}, nil
			},
		},
		{
			Name: "echo",
			Verb: http.MethodPost,
			Doc:  "Echoes the submitted arguments",
			Fn: func(ctx context.Context, call *provider.CallContext) (interface{}, error) {
				out := map[string]interface{}{}
				for k := range call.Args {
					out[k] = call.Args.Get(k)
				}
				return out, nil
			},
		},
		{
			Name: "broken",
			Verb: http.MethodGet,
			Doc:  "Always fails; exercises partial view responses",
			Fn: func(ctx context.Context, call *provider.CallContext) (interface{}, error) {
				return nil, apperror.New(apperror.OverCapacity, l.name+" is down").WithService(l.name)
			},
		},
	}
}

var _ provider.Provider = (*Loopback)(nil)

// Package facebridge integrates the Facebridge social graph API, the
// gateway's OAuth2 provider. Calls are signed with a bearer access token and
// the provider supports long-lived token exchange, so a stale token triggers
// exactly one transparent refresh.
package facebridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"social-gateway/domain/apperror"
	"social-gateway/domain/model"
	"social-gateway/infrastructure/configuration"
	"social-gateway/infrastructure/request"
	"social-gateway/provider"
)

const (
	graphBase      = "https://graph.facebridge.example/v4.0"
	authorizeURL   = "https://www.facebridge.example/v4.0/dialog/oauth"
	accessTokenURL = "https://graph.facebridge.example/v4.0/oauth/access_token"
)

type Facebridge struct{}

func New() *Facebridge { return &Facebridge{} }

func (f *Facebridge) Name() string { return "facebridge" }

func (f *Facebridge) OAuthVersion() model.OAuthVersion { return model.OAuth2 }

func (f *Facebridge) AuthURL() string { return authorizeURL }

func (f *Facebridge) AccessTokenURL() string { return accessTokenURL }

func (f *Facebridge) EndpointURL() string { return graphBase }

func (f *Facebridge) AppInfo(env string) configuration.ProviderApp {
	return configuration.C.Providers["facebridge"][env]
}

func (f *Facebridge) Permissions(clientName string) string { return "" }

func (f *Facebridge) StatusErrors() map[int]apperror.Kind { return nil }

// ParseError digs the graph error envelope. The API reports almost everything
// as a 400, so classification keys off error.code rather than the status.
func (f *Facebridge) ParseError(status int, callURL string, header http.Header, body []byte) error {
	payload := parseErrorBody(body)
	switch payload.code {
	case 190:
		return apperror.New(apperror.RefreshToken, payload.message).WithService("facebridge")
	case 4, 17, 32, 613:
		return apperror.New(apperror.RateLimited, payload.message).WithService("facebridge")
	case 10, 200, 299:
		return apperror.New(apperror.InsufficientPermissions, payload.message).WithService("facebridge")
	}
	if payload.errType == "OAuthException" {
		return apperror.New(apperror.InvalidToken, payload.message).WithService("facebridge")
	}
	return provider.ParseErrorWithOverlay("facebridge", nil, status, callURL, body)
}

type graphError struct {
	message string
	errType string
	code    int
}

func parseErrorBody(body []byte) graphError {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	out := graphError{message: string(body)}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		out.message = envelope.Error.Message
		out.errType = envelope.Error.Type
		out.code = envelope.Error.Code
	}
	return out
}

func (f *Facebridge) StartAuthorization(ctx context.Context, auth *provider.AuthContext) (string, error) {
	return provider.StartOAuth2(ctx, f, auth)
}

func (f *Facebridge) FinishAuthorization(ctx context.Context, auth *provider.AuthContext) (*model.Authorization, error) {
	return provider.FinishOAuth2(ctx, f, auth)
}

// FetchIdentity resolves the graph user id for a freshly issued token.
func (f *Facebridge) FetchIdentity(ctx context.Context, engine *request.Engine, accessToken string) (string, error) {
	resp, err := engine.Request(ctx, &request.Args{
		Service:    "facebridge",
		Verb:       http.MethodGet,
		BaseURL:    graphBase,
		Path:       "/me",
		Query:      url.Values{"fields": {"id"}, "access_token": {accessToken}},
		ParseError: f.ParseError,
	})
	if err != nil {
		return "", err
	}
	id := request.DigPath(resp.Data, "id")
	if id == nil {
		return "", apperror.New(apperror.UnknownResponse, "identity response missing id").WithService("facebridge")
	}
	return fmt.Sprintf("%v", id), nil
}

// RefreshAccessToken exchanges the current token for a fresh long-lived one.
func (f *Facebridge) RefreshAccessToken(ctx context.Context, engine *request.Engine, authz *model.Authorization, app configuration.ProviderApp) (string, error) {
	resp, err := engine.Request(ctx, &request.Args{
		Service: "facebridge",
		Verb:    http.MethodGet,
		FullURL: accessTokenURL,
		Query: url.Values{
			"grant_type":        {"fb_exchange_token"},
			"client_id":         {app.AppID},
			"client_secret":     {app.AppSecret},
			"fb_exchange_token": {authz.Token},
		},
		ParseError: f.ParseError,
	})
	if err != nil {
		return "", err
	}
	token := request.DigPath(resp.Data, "access_token")
	if token == nil {
		return "", apperror.New(apperror.UnknownResponse, "token exchange response missing access_token").WithService("facebridge")
	}
	return fmt.Sprintf("%v", token), nil
}

func (f *Facebridge) RevokeAuthorization(ctx context.Context, call *provider.CallContext) error {
	_, err := call.Engine.Request(ctx, &request.Args{
		Service:    "facebridge",
		Verb:       http.MethodDelete,
		BaseURL:    graphBase,
		Path:       "/me/permissions",
		Query:      f.tokenQuery(call.Authz),
		ParseError: f.ParseError,
		RateKey:    call.Authz.GUID,
	})
	return err
}

func (f *Facebridge) tokenQuery(authz *model.Authorization) url.Values {
	return url.Values{"access_token": {authz.Token}}
}

// get runs one graph GET with the account token, digging a field when asked.
func (f *Facebridge) get(ctx context.Context, call *provider.CallContext, path string, query url.Values, dig string) (interface{}, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", call.Authz.Token)
	resp, err := call.Engine.Request(ctx, &request.Args{
		Service:    "facebridge",
		Verb:       http.MethodGet,
		BaseURL:    graphBase,
		Path:       path,
		Query:      query,
		ParseError: f.ParseError,
		Refresh:    f.refreshFunc(ctx, call),
		RateKey:    call.Authz.GUID,
	})
	if err != nil {
		return nil, err
	}
	if dig == "" {
		return resp.Data, nil
	}
	value := request.DigPath(resp.Data, dig)
	if value == nil {
		return nil, apperror.Newf(apperror.UnknownResponse, "field %s missing from %s response", dig, path).WithService("facebridge")
	}
	return value, nil
}

// refreshFunc wires the token exchange into the engine's single-retry path.
// The refreshed token is only swapped in memory here; the caller persists it
// through the authorization store after a successful retry.
func (f *Facebridge) refreshFunc(ctx context.Context, call *provider.CallContext) request.RefreshFunc {
	if call.Refresh == nil {
		return nil
	}
	return func(ctx context.Context) (request.SignFunc, error) {
		newToken, err := call.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		call.Authz.Token = newToken
		return func(req *http.Request) error {
			q := req.URL.Query()
			q.Set("access_token", newToken)
			req.URL.RawQuery = q.Encode()
			return nil
		}, nil
	}
}

func (f *Facebridge) Methods() []provider.MethodDescriptor {
	return []provider.MethodDescriptor{
		{
			Name:      "num_friends",
			Verb:      http.MethodGet,
			Doc:       "Friend count of the authorized account",
			Recurring: true,
			Fn: func(ctx context.Context, call *provider.CallContext) (interface{}, error) {
				return f.get(ctx, call, "/me/friends",
					url.Values{"summary": {"total_count"}, "limit": {"0"}},
					"summary.total_count")
			},
		},
		{
			Name: "profile",
			Verb: http.MethodGet,
			Doc:  "Profile of the authorized account",
			Fn: func(ctx context.Context, call *provider.CallContext) (interface{}, error) {
				return f.get(ctx, call, "/me",
					url.Values{"fields": {"id,name,link,picture"}}, "")
			},
		},
		{
			Name: "post",
			Verb: http.MethodPost,
			Doc:  "Publishes a message to the authorized account's feed",
			Fn:   f.post,
		},
	}
}

func (f *Facebridge) post(ctx context.Context, call *provider.CallContext) (interface{}, error) {
	message := call.Args.Get("message")
	if message == "" {
		return nil, apperror.New(apperror.BadParameters, "missing argument message").WithService("facebridge")
	}
	form := url.Values{
		"message":      {message},
		"access_token": {call.Authz.Token},
	}
	resp, err := call.Engine.Request(ctx, &request.Args{
		Service:    "facebridge",
		Verb:       http.MethodPost,
		BaseURL:    graphBase,
		Path:       "/me/feed",
		Form:       form,
		ParseError: f.ParseError,
		Refresh:    f.refreshFunc(ctx, call),
		RateKey:    call.Authz.GUID,
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

var _ provider.Provider = (*Facebridge)(nil)
var _ provider.Refresher = (*Facebridge)(nil)
var _ provider.IdentityFetcher = (*Facebridge)(nil)

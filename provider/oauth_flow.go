package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"social-gateway/domain/apperror"
	"social-gateway/domain/model"
	"social-gateway/infrastructure/request"
	"social-gateway/infrastructure/utils"
)

// OAuth1Endpoints is implemented by OAuth1 providers alongside Provider.
type OAuth1Endpoints interface {
	RequestTokenURL() string
}

// StartOAuth1 runs the request-token leg: obtain a temporary credential,
// remember it in the inflight table, and hand back the user redirect.
func StartOAuth1(ctx context.Context, p Provider, auth *AuthContext) (string, error) {
	endpoints, ok := p.(OAuth1Endpoints)
	if !ok {
		return "", apperror.Newf(apperror.BadParameters, "%s does not support oauth1", p.Name())
	}
	app := p.AppInfo(auth.Environment)

	resp, err := auth.Engine.Request(ctx, &request.Args{
		Service: p.Name(),
		Verb:    http.MethodPost,
		FullURL: endpoints.RequestTokenURL(),
		RawBody: true,
		Sign: func(req *http.Request) error {
			return request.SignOAuth1(req, request.OAuth1Credentials{
				ConsumerKey:    app.AppID,
				ConsumerSecret: app.AppSecret,
				Callback:       app.RedirectURI,
			}, nil)
		},
		ParseError: p.ParseError,
	})
	if err != nil {
		return "", err
	}

	creds, err := url.ParseQuery(string(resp.Body))
	if err != nil {
		return "", apperror.Newf(apperror.UnknownResponse, "malformed request token response: %v", err).WithService(p.Name())
	}
	token := creds.Get("oauth_token")
	secret := creds.Get("oauth_token_secret")
	if token == "" {
		return "", apperror.New(apperror.UnknownResponse, "request token response missing oauth_token").WithService(p.Name())
	}

	if err := auth.Inflight.StoreInflightAuthz(ctx, &model.InflightAuthz{
		ServiceName: p.Name(),
		Token:       token,
		Secret:      secret,
		CreatedAt:   utils.GetCurrentTime(),
	}); err != nil {
		return "", err
	}

	return p.AuthURL() + "?oauth_token=" + url.QueryEscape(token), nil
}

// FinishOAuth1 runs the access-token leg. The inflight record must exist; an
// absent record means the handshake was never started or was already consumed.
func FinishOAuth1(ctx context.Context, p Provider, auth *AuthContext) (*model.Authorization, error) {
	token := auth.Params.Get("oauth_token")
	verifier := auth.Params.Get("oauth_verifier")
	if token == "" {
		return nil, apperror.New(apperror.BadParameters, "missing oauth_token").WithService(p.Name())
	}

	inflight, err := auth.Inflight.RetrieveInflightAuthz(ctx, p.Name(), token)
	if err != nil {
		return nil, err
	}
	if inflight == nil {
		return nil, apperror.New(apperror.InvalidToken, "Auth error").WithService(p.Name())
	}

	app := p.AppInfo(auth.Environment)
	resp, err := auth.Engine.Request(ctx, &request.Args{
		Service: p.Name(),
		Verb:    http.MethodPost,
		FullURL: p.AccessTokenURL(),
		RawBody: true,
		Sign: func(req *http.Request) error {
			return request.SignOAuth1(req, request.OAuth1Credentials{
				ConsumerKey:    app.AppID,
				ConsumerSecret: app.AppSecret,
				Token:          inflight.Token,
				TokenSecret:    inflight.Secret,
				Verifier:       verifier,
			}, nil)
		},
		ParseError: p.ParseError,
	})
	if err != nil {
		return nil, err
	}

	creds, err := url.ParseQuery(string(resp.Body))
	if err != nil {
		return nil, apperror.Newf(apperror.UnknownResponse, "malformed access token response: %v", err).WithService(p.Name())
	}
	if creds.Get("oauth_token") == "" {
		return nil, apperror.New(apperror.UnknownResponse, "access token response missing oauth_token").WithService(p.Name())
	}

	return &model.Authorization{
		ServiceName: p.Name(),
		UserID:      creds.Get("user_id"),
		Token:       creds.Get("oauth_token"),
		Secret:      creds.Get("oauth_token_secret"),
	}, nil
}

// StartOAuth2 builds the authorization redirect and records the CSRF state as
// an inflight token.
func StartOAuth2(ctx context.Context, p Provider, auth *AuthContext) (string, error) {
	app := p.AppInfo(auth.Environment)
	state := uuid.NewString()

	if err := auth.Inflight.StoreInflightAuthz(ctx, &model.InflightAuthz{
		ServiceName: p.Name(),
		Token:       state,
		CreatedAt:   utils.GetCurrentTime(),
	}); err != nil {
		return "", err
	}

	scope := p.Permissions(auth.ClientName)
	if scope == "" {
		scope = app.Scope
	}
	conf := oauth2.Config{
		ClientID:    app.AppID,
		RedirectURL: app.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL(),
			TokenURL: p.AccessTokenURL(),
		},
	}
	if scope != "" {
		conf.Scopes = strings.Split(scope, ",")
	}
	return conf.AuthCodeURL(state), nil
}

// IdentityFetcher resolves the provider-side user id once a token is issued.
type IdentityFetcher interface {
	FetchIdentity(ctx context.Context, engine *request.Engine, accessToken string) (userID string, err error)
}

// FinishOAuth2 exchanges the authorization code for tokens. The state must
// match a stored inflight record, which is consumed by the lookup.
func FinishOAuth2(ctx context.Context, p Provider, auth *AuthContext) (*model.Authorization, error) {
	code := auth.Params.Get("code")
	state := auth.Params.Get("state")
	if code == "" {
		return nil, apperror.New(apperror.BadParameters, "missing code").WithService(p.Name())
	}

	inflight, err := auth.Inflight.RetrieveInflightAuthz(ctx, p.Name(), state)
	if err != nil {
		return nil, err
	}
	if inflight == nil {
		return nil, apperror.New(apperror.InvalidToken, "Auth error").WithService(p.Name())
	}

	app := p.AppInfo(auth.Environment)
	form := url.Values{}
	form.Set("client_id", app.AppID)
	form.Set("client_secret", app.AppSecret)
	form.Set("redirect_uri", app.RedirectURI)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)

	resp, err := auth.Engine.Request(ctx, &request.Args{
		Service:    p.Name(),
		Verb:       http.MethodPost,
		FullURL:    p.AccessTokenURL(),
		Form:       form,
		RawBody:    true,
		ParseError: p.ParseError,
	})
	if err != nil {
		return nil, err
	}

	grant, err := parseTokenGrant(resp.Body)
	if err != nil {
		return nil, apperror.Newf(apperror.UnknownResponse, "malformed token response: %v", err).WithService(p.Name())
	}
	if grant.AccessToken == "" {
		return nil, apperror.New(apperror.UnknownResponse, "token response missing access_token").WithService(p.Name())
	}

	authz := &model.Authorization{
		ServiceName:  p.Name(),
		Token:        grant.AccessToken,
		RefreshToken: grant.RefreshToken,
	}
	if grant.ExpiresIn > 0 {
		expires := utils.GetCurrentTime().Add(time.Duration(grant.ExpiresIn) * time.Second)
		authz.ExpiredOn = &expires
	}

	if fetcher, ok := p.(IdentityFetcher); ok {
		userID, err := fetcher.FetchIdentity(ctx, auth.Engine, grant.AccessToken)
		if err != nil {
			return nil, err
		}
		authz.UserID = userID
	}
	return authz, nil
}

type tokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// parseTokenGrant accepts both JSON and the form-encoded shape some older
// endpoints still emit.
func parseTokenGrant(body []byte) (*tokenGrant, error) {
	var grant tokenGrant
	if err := json.Unmarshal(body, &grant); err == nil {
		return &grant, nil
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	grant.AccessToken = values.Get("access_token")
	grant.RefreshToken = values.Get("refresh_token")
	if raw := values.Get("expires_in"); raw != "" {
		grant.ExpiresIn, _ = strconv.ParseInt(raw, 10, 64)
	}
	return &grant, nil
}

// Package twister integrates the Twister microblogging API, the gateway's
// OAuth1 provider. Every outbound call is HMAC-SHA1 signed with the app's
// consumer credentials plus the account token.
package twister

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"social-gateway/domain/apperror"
	"social-gateway/domain/model"
	"social-gateway/infrastructure/configuration"
	"social-gateway/infrastructure/request"
	"social-gateway/infrastructure/utils"
	"social-gateway/provider"
)

const (
	apiBase         = "https://api.twister.example/1.1"
	requestTokenURL = "https://api.twister.example/oauth/request_token"
	authorizeURL    = "https://api.twister.example/oauth/authorize"
	accessTokenURL  = "https://api.twister.example/oauth/access_token"
)

type Twister struct{}

func New() *Twister { return &Twister{} }

func (t *Twister) Name() string { return "twister" }

func (t *Twister) OAuthVersion() model.OAuthVersion { return model.OAuth1 }

func (t *Twister) AuthURL() string { return authorizeURL }

func (t *Twister) AccessTokenURL() string { return accessTokenURL }

func (t *Twister) RequestTokenURL() string { return requestTokenURL }

func (t *Twister) EndpointURL() string { return apiBase }

func (t *Twister) AppInfo(env string) configuration.ProviderApp {
	return configuration.C.Providers["twister"][env]
}

func (t *Twister) Permissions(clientName string) string { return "" }

// 420 is Twister's legacy throttle status; it still appears on search
// endpoints.
func (t *Twister) StatusErrors() map[int]apperror.Kind {
	return map[int]apperror.Kind{
		420: apperror.RateLimited,
		429: apperror.RateLimited,
	}
}

func (t *Twister) ParseError(status int, url string, header http.Header, body []byte) error {
	return provider.ParseErrorWithOverlay("twister", t.StatusErrors(), status, url, body)
}

func (t *Twister) StartAuthorization(ctx context.Context, auth *provider.AuthContext) (string, error) {
	return provider.StartOAuth1(ctx, t, auth)
}

func (t *Twister) FinishAuthorization(ctx context.Context, auth *provider.AuthContext) (*model.Authorization, error) {
	return provider.FinishOAuth1(ctx, t, auth)
}

func (t *Twister) RevokeAuthorization(ctx context.Context, call *provider.CallContext) error {
	app := t.AppInfo(configuration.C.Gateway.Environment)
	_, err := call.Engine.Request(ctx, &request.Args{
		Service:    "twister",
		Verb:       http.MethodPost,
		FullURL:    "https://api.twister.example/oauth/invalidate_token",
		Sign:       t.signer(app, call.Authz, nil),
		ParseError: t.ParseError,
		RateKey:    call.Authz.GUID,
	})
	return err
}

func (t *Twister) signer(app configuration.ProviderApp, authz *model.Authorization, form url.Values) request.SignFunc {
	return func(req *http.Request) error {
		return request.SignOAuth1(req, request.OAuth1Credentials{
			ConsumerKey:    app.AppID,
			ConsumerSecret: app.AppSecret,
			Token:          authz.Token,
			TokenSecret:    authz.Secret,
		}, form)
	}
}

// get runs one signed GET against the API and digs a field out of the JSON.
func (t *Twister) get(ctx context.Context, call *provider.CallContext, path string, query url.Values, dig string) (interface{}, error) {
	app := t.AppInfo(configuration.C.Gateway.Environment)
	resp, err := call.Engine.Request(ctx, &request.Args{
		Service:    "twister",
		Verb:       http.MethodGet,
		BaseURL:    apiBase,
		Path:       path,
		Query:      query,
		Sign:       t.signer(app, call.Authz, nil),
		ParseError: t.ParseError,
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
		return nil, apperror.Newf(apperror.UnknownResponse, "field %s missing from %s response", dig, path).WithService("twister")
	}
	return value, nil
}

// FetchActorProfile resolves an arbitrary account, used to enrich granular
// rows such as mentions with the mentioning user.
func (t *Twister) FetchActorProfile(ctx context.Context, call *provider.CallContext, actorID string) (map[string]interface{}, error) {
	data, err := t.get(ctx, call, "/users/show.json", url.Values{"user_id": {actorID}}, "")
	if err != nil {
		return nil, err
	}
	profile, ok := data.(map[string]interface{})
	if !ok {
		return nil, apperror.New(apperror.UnknownResponse, "profile response is not an object").WithService("twister")
	}
	return profile, nil
}

func (t *Twister) userQuery(authz *model.Authorization) url.Values {
	return url.Values{"user_id": {authz.UserID}}
}

func (t *Twister) Methods() []provider.MethodDescriptor {
	return []provider.MethodDescriptor{
		{
			Name:      "num_followers",
			Verb:      http.MethodGet,
			Doc:       "Follower count of the authorized account",
			Recurring: true,
			Fn: func(ctx context.Context, call *provider.CallContext) (interface{}, error) {
				return t.get(ctx, call, "/users/show.json", t.userQuery(call.Authz), "followers_count")
			},
		},
		{
			Name:      "num_posts",
			Verb:      http.MethodGet,
			Doc:       "Total posts published by the authorized account",
			Recurring: true,
			Fn: func(ctx context.Context, call *provider.CallContext) (interface{}, error) {
				return t.get(ctx, call, "/users/show.json", t.userQuery(call.Authz), "statuses_count")
			},
		},
		{
			Name: "profile",
			Verb: http.MethodGet,
			Doc:  "Raw profile of the authorized account",
			Fn: func(ctx context.Context, call *provider.CallContext) (interface{}, error) {
				return t.get(ctx, call, "/users/show.json", t.userQuery(call.Authz), "")
			},
		},
		{
			Name: "post",
			Verb: http.MethodPost,
			Doc:  "Publishes a status update; requires a message argument",
			Fn:   t.post,
		},
		{
			Name:      "mentions",
			Verb:      http.MethodGet,
			Doc:       "Collects accounts mentioning the authorized user",
			Recurring: true,
			Fn:        t.collectMentions,
		},
	}
}

func (t *Twister) post(ctx context.Context, call *provider.CallContext) (interface{}, error) {
	message := call.Args.Get("message")
	if message == "" {
		return nil, apperror.New(apperror.BadParameters, "missing argument message").WithService("twister")
	}
	app := t.AppInfo(configuration.C.Gateway.Environment)
	form := url.Values{"status": {message}}
	resp, err := call.Engine.Request(ctx, &request.Args{
		Service:    "twister",
		Verb:       http.MethodPost,
		BaseURL:    apiBase,
		Path:       "/statuses/update.json",
		Form:       form,
		Sign:       t.signer(app, call.Authz, form),
		ParseError: t.ParseError,
		RateKey:    call.Authz.GUID,
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// collectMentions pages the mentions timeline backwards with a max_id cursor
// and records one granular row per mentioning account. The page loop stops
// once a whole page is already known.
func (t *Twister) collectMentions(ctx context.Context, call *provider.CallContext) (interface{}, error) {
	app := t.AppInfo(configuration.C.Gateway.Environment)
	collected := 0
	sawKnown := false

	args := &request.Args{
		Service:    "twister",
		Verb:       http.MethodGet,
		BaseURL:    apiBase,
		Path:       "/statuses/mentions_timeline.json",
		Query:      url.Values{"count": {"200"}},
		Sign:       t.signer(app, call.Authz, nil),
		ParseError: t.ParseError,
		RateKey:    call.Authz.GUID,
	}
	paging := request.Paging{
		MaxIDField:  "max_id",
		ItemIDField: "id",
		Stop:        func() bool { return sawKnown },
	}

	err := call.Engine.RequestWithPaging(ctx, args, paging, func(items []interface{}) error {
		ids := make([]string, 0, len(items))
		byID := map[string]map[string]interface{}{}
		for _, item := range items {
			tweet, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			id := fmt.Sprintf("%v", tweet["id_str"])
			ids = append(ids, id)
			byID[id] = tweet
		}

		unseen, err := call.Granular.FindUnwrittenGranularData(ctx, call.Authz.GUID, "mentions", ids)
		if err != nil {
			return err
		}
		if len(unseen) < len(ids) {
			sawKnown = true
		}
		for _, id := range unseen {
			tweet := byID[id]
			actor := ""
			if user, ok := tweet["user"].(map[string]interface{}); ok {
				actor = fmt.Sprintf("%v", user["id_str"])
			}
			ts := utils.Epoch(utils.GetCurrentTime())
			if created, ok := tweet["created_at"].(string); ok {
				if parsed, err := utils.ParseRubyTime(created); err == nil {
					ts = utils.Epoch(parsed)
				}
			}
			if err := call.Granular.WriteGranularDatum(ctx, model.GranularDatum{
				GUID:      call.Authz.GUID,
				Method:    "mentions",
				ItemID:    id,
				ActorID:   actor,
				Timestamp: ts,
			}); err != nil {
				return err
			}
			collected++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"num": collected}, nil
}

var _ provider.Provider = (*Twister)(nil)
var _ provider.OAuth1Endpoints = (*Twister)(nil)
var _ provider.ActorResolver = (*Twister)(nil)

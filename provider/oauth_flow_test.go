package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-gateway/domain/apperror"
	"social-gateway/domain/model"
	"social-gateway/infrastructure/configuration"
	"social-gateway/infrastructure/request"
)

type memoryInflightStore struct {
	mu      sync.Mutex
	records map[string]*model.InflightAuthz
}

func newMemoryInflightStore() *memoryInflightStore {
	return &memoryInflightStore{records: map[string]*model.InflightAuthz{}}
}

func (s *memoryInflightStore) StoreInflightAuthz(_ context.Context, inflight *model.InflightAuthz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[inflight.ServiceName+"/"+inflight.Token] = inflight
	return nil
}

func (s *memoryInflightStore) RetrieveInflightAuthz(_ context.Context, serviceName, token string) (*model.InflightAuthz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := serviceName + "/" + token
	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	delete(s.records, key)
	return record, nil
}

func TestStartOAuth2BuildsRedirectAndStoresState(t *testing.T) {
	p := &fakeProvider{
		name:    "widgets",
		version: model.OAuth2,
		authURL: "https://widgets.example/authorize",
		app: configuration.ProviderApp{
			AppID:       "app-1",
			RedirectURI: "https://gateway.example/auth",
			Scope:       "read_stream",
		},
	}
	store := newMemoryInflightStore()

	redirect, err := StartOAuth2(context.Background(), p, &AuthContext{
		Engine:   request.NewEngine(nil, nil, nil),
		Inflight: store,
	})
	require.NoError(t, err)

	parsed, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "widgets.example", parsed.Host)
	query := parsed.Query()
	assert.Equal(t, "app-1", query.Get("client_id"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "read_stream", query.Get("scope"))

	state := query.Get("state")
	require.NotEmpty(t, state)
	inflight, err := store.RetrieveInflightAuthz(context.Background(), "widgets", state)
	require.NoError(t, err)
	require.NotNil(t, inflight)
}

func TestFinishOAuth2ExchangesCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","refresh_token":"keeper","expires_in":3600}`))
	}))
	defer srv.Close()

	p := &fakeProvider{name: "widgets", version: model.OAuth2, accessTokenURL: srv.URL}
	store := newMemoryInflightStore()
	require.NoError(t, store.StoreInflightAuthz(context.Background(), &model.InflightAuthz{
		ServiceName: "widgets",
		Token:       "state-1",
	}))

	authz, err := FinishOAuth2(context.Background(), p, &AuthContext{
		Engine:   request.NewEngine(srv.Client(), nil, nil),
		Params:   url.Values{"code": {"the-code"}, "state": {"state-1"}},
		Inflight: store,
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", authz.Token)
	assert.Equal(t, "keeper", authz.RefreshToken)
	require.NotNil(t, authz.ExpiredOn)
}

func TestFinishOAuth2RejectsUnknownState(t *testing.T) {
	p := &fakeProvider{name: "widgets", version: model.OAuth2}
	_, err := FinishOAuth2(context.Background(), p, &AuthContext{
		Engine:   request.NewEngine(nil, nil, nil),
		Params:   url.Values{"code": {"the-code"}, "state": {"forged"}},
		Inflight: newMemoryInflightStore(),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.InvalidToken))
}

func TestOAuth1RoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/request_token", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), "oauth_callback=")
		_, _ = w.Write([]byte("oauth_token=req-token&oauth_token_secret=req-secret"))
	})
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_token="req-token"`)
		assert.Contains(t, r.Header.Get("Authorization"), "oauth_verifier=")
		_, _ = w.Write([]byte("oauth_token=acc-token&oauth_token_secret=acc-secret&user_id=77"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := &fakeProvider{
		name:            "widgets",
		version:         model.OAuth1,
		authURL:         srv.URL + "/oauth/authorize",
		requestTokenURL: srv.URL + "/oauth/request_token",
		accessTokenURL:  srv.URL + "/oauth/access_token",
		app: configuration.ProviderApp{
			AppID:       "ck",
			AppSecret:   "cs",
			RedirectURI: "https://gateway.example/auth",
		},
	}
	store := newMemoryInflightStore()
	engine := request.NewEngine(srv.Client(), nil, nil)

	redirect, err := StartOAuth1(context.Background(), p, &AuthContext{Engine: engine, Inflight: store})
	require.NoError(t, err)
	assert.Contains(t, redirect, "oauth_token=req-token")

	authz, err := FinishOAuth1(context.Background(), p, &AuthContext{
		Engine:   engine,
		Params:   url.Values{"oauth_token": {"req-token"}, "oauth_verifier": {"v-1"}},
		Inflight: store,
	})
	require.NoError(t, err)
	assert.Equal(t, "acc-token", authz.Token)
	assert.Equal(t, "acc-secret", authz.Secret)
	assert.Equal(t, "77", authz.UserID)
}

func TestFinishOAuth1ConsumedRecordFailsSecondTime(t *testing.T) {
	p := &fakeProvider{name: "widgets", version: model.OAuth1}
	store := newMemoryInflightStore()
	require.NoError(t, store.StoreInflightAuthz(context.Background(), &model.InflightAuthz{
		ServiceName: "widgets",
		Token:       "req-token",
	}))

	// Consume the record once, then the replayed callback must be rejected.
	_, err := store.RetrieveInflightAuthz(context.Background(), "widgets", "req-token")
	require.NoError(t, err)

	_, err = FinishOAuth1(context.Background(), p, &AuthContext{
		Engine:   request.NewEngine(nil, nil, nil),
		Params:   url.Values{"oauth_token": {"req-token"}, "oauth_verifier": {"v"}},
		Inflight: store,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.InvalidToken))
	assert.Contains(t, err.Error(), "Auth error")
}

package http_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"social-gateway/domain/model"
)

// In-memory datastore fakes so the full handler → usecase path runs without
// PostgreSQL.

type memAuthzRepo struct {
	mu       sync.Mutex
	byGUID   map[string]*model.Authorization
	inflight map[string]*model.InflightAuthz
}

func newMemAuthzRepo() *memAuthzRepo {
	return &memAuthzRepo{
		byGUID:   map[string]*model.Authorization{},
		inflight: map[string]*model.InflightAuthz{},
	}
}

func (r *memAuthzRepo) add(authz *model.Authorization) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byGUID[authz.GUID] = authz
}

func (r *memAuthzRepo) GetToken(ctx context.Context, guid string) (*model.Authorization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byGUID[guid], nil
}

func (r *memAuthzRepo) GetTokenByTriple(ctx context.Context, clientName, serviceName, userID string) (*model.Authorization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byGUID {
		if a.ClientName == clientName && a.ServiceName == serviceName && a.UserID == userID {
			return a, nil
		}
	}
	return nil, nil
}

func (r *memAuthzRepo) GetTokenForService(ctx context.Context, guid, serviceName string) (*model.Authorization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.byGUID[guid]; a != nil && a.ServiceName == serviceName {
		return a, nil
	}
	return nil, nil
}

func (r *memAuthzRepo) GetTokens(ctx context.Context, guids []string) ([]*model.Authorization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Authorization
	for _, g := range guids {
		if a := r.byGUID[g]; a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAuthzRepo) ListActiveTokens(ctx context.Context) ([]*model.Authorization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Authorization
	for _, a := range r.byGUID {
		if a.ExpiredOn == nil || a.ExpiredOn.After(time.Now()) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAuthzRepo) SetToken(ctx context.Context, authz *model.Authorization) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byGUID {
		if a.ClientName == authz.ClientName && a.ServiceName == authz.ServiceName && a.UserID == authz.UserID {
			a.Token = authz.Token
			a.Secret = authz.Secret
			return a.GUID, false, nil
		}
	}
	guid := "guid-" + authz.ServiceName + "-" + authz.UserID
	authz.GUID = guid
	r.byGUID[guid] = authz
	return guid, true, nil
}

func (r *memAuthzRepo) UpdateAccessToken(ctx context.Context, guid, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.byGUID[guid]; a != nil {
		a.Token = token
	}
	return nil
}

func (r *memAuthzRepo) DeleteToken(ctx context.Context, guid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byGUID, guid)
	return nil
}

func (r *memAuthzRepo) ExpireToken(ctx context.Context, guid string, expiredOn time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.byGUID[guid]; a != nil {
		a.ExpiredOn = &expiredOn
	}
	return nil
}

func (r *memAuthzRepo) DeleteUserData(ctx context.Context, guid string) error {
	return nil
}

func (r *memAuthzRepo) StoreInflightAuthz(ctx context.Context, inflight *model.InflightAuthz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight[inflight.ServiceName+"/"+inflight.Token] = inflight
	return nil
}

func (r *memAuthzRepo) RetrieveInflightAuthz(ctx context.Context, serviceName, token string) (*model.InflightAuthz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := serviceName + "/" + token
	in := r.inflight[key]
	delete(r.inflight, key)
	return in, nil
}

type memDatapointRepo struct {
	mu      sync.Mutex
	points  []model.Datapoint
	markers []model.ExpirationMarker
}

func newMemDatapointRepo() *memDatapointRepo { return &memDatapointRepo{} }

func (r *memDatapointRepo) WriteValue(ctx context.Context, guid, method string, timestamp int64, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = append(r.points, model.Datapoint{GUID: guid, Method: method, Timestamp: timestamp, Value: value})
	return nil
}

func (r *memDatapointRepo) GetValue(ctx context.Context, guid, method string) (*model.Datapoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.Datapoint
	for i := range r.points {
		p := &r.points[i]
		if p.GUID == guid && p.Method == method && (best == nil || p.Timestamp > best.Timestamp) {
			best = p
		}
	}
	return best, nil
}

func (r *memDatapointRepo) GetValueRange(ctx context.Context, guid, method string, start, end int64) ([]model.Datapoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Datapoint
	for _, p := range r.points {
		if p.GUID == guid && p.Method == method && p.Timestamp >= start && p.Timestamp <= end {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (r *memDatapointRepo) GetValueBefore(ctx context.Context, guid, method string, ts int64) (*model.Datapoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.Datapoint
	for i := range r.points {
		p := &r.points[i]
		if p.GUID == guid && p.Method == method && p.Timestamp < ts && (best == nil || p.Timestamp > best.Timestamp) {
			best = p
		}
	}
	return best, nil
}

func (r *memDatapointRepo) WriteExpirationMarker(ctx context.Context, guid string, expiredOn int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = append(r.markers, model.ExpirationMarker{GUID: guid, ExpiredOn: expiredOn})
	return nil
}

func (r *memDatapointRepo) GetExpirationMarkers(ctx context.Context, guid string, since int64) ([]model.ExpirationMarker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ExpirationMarker
	for _, m := range r.markers {
		if m.GUID == guid && m.ExpiredOn >= since {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiredOn < out[j].ExpiredOn })
	return out, nil
}

func (r *memDatapointRepo) LatestExpirationMarker(ctx context.Context, guid string) (*model.ExpirationMarker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.ExpirationMarker
	for i := range r.markers {
		m := &r.markers[i]
		if m.GUID == guid && (best == nil || m.ExpiredOn > best.ExpiredOn) {
			best = m
		}
	}
	return best, nil
}

type memGranularRepo struct{}

func (memGranularRepo) WriteGranularDatum(ctx context.Context, datum model.GranularDatum) error {
	return nil
}

func (memGranularRepo) FindUnwrittenGranularData(ctx context.Context, guid, method string, itemIDs []string) ([]string, error) {
	return itemIDs, nil
}

func (memGranularRepo) RetrieveGranularData(ctx context.Context, guid, method string, start, end int64) ([]model.GranularDatum, error) {
	return nil, nil
}

func (memGranularRepo) GetLastGranularTimestamp(ctx context.Context, guid, method string) (int64, error) {
	return 0, nil
}

type memViewRepo struct {
	mu    sync.Mutex
	views map[string]*model.View
}

func newMemViewRepo() *memViewRepo { return &memViewRepo{views: map[string]*model.View{}} }

func (r *memViewRepo) GetViews(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for name := range r.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *memViewRepo) GetView(ctx context.Context, name string) (*model.View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views[name], nil
}

func (r *memViewRepo) SetView(ctx context.Context, view *model.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[view.Name] = view
	return nil
}

func (r *memViewRepo) DeleteView(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.views, name)
	return nil
}

func (r *memViewRepo) ViewExists(ctx context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.views[name]
	return ok, nil
}

type memStreamCacheRepo struct{}

func (memStreamCacheRepo) RetrieveStreamCache(ctx context.Context, guid string, start, end int64, limit int, forward bool) ([]model.StreamCacheRow, error) {
	return nil, nil
}

func (memStreamCacheRepo) UpdateStreamCache(ctx context.Context, entries []model.StreamCacheRow) error {
	return nil
}

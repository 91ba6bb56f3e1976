package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"social-gateway/domain/apperror"
	"social-gateway/domain/dto"
	"social-gateway/domain/model"
	"social-gateway/domain/repository"
	"social-gateway/infrastructure/request"
	"social-gateway/infrastructure/utils"
	"social-gateway/provider"
)

const (
	intervalSuffix = "_interval"
	granularSuffix = "_granular"
)

// IMethodUsecase dispatches normalized method invocations: live provider
// calls, present/interval/granular datastore reads, and explicit datapoint
// writes.
type IMethodUsecase interface {
	ListServices(clientName string) []string
	ListMethods(clientName, serviceName string) (map[string][]dto.MethodInfo, error)
	Call(ctx context.Context, clientName, serviceName, method, verb string, args url.Values) (interface{}, error)
	WriteDatapoint(ctx context.Context, clientName, serviceName, method string, args url.Values) (interface{}, error)
}

type methodUsecase struct {
	registry      *provider.Registry
	authzRepo     repository.IAuthorization
	datapointRepo repository.IDatapoint
	granularRepo  repository.IGranular
	streamCache   repository.IStreamCache
	engine        *request.Engine
	authUsecase   IAuthUsecase
}

func NewMethodUsecase(
	registry *provider.Registry,
	authzRepo repository.IAuthorization,
	datapointRepo repository.IDatapoint,
	granularRepo repository.IGranular,
	streamCache repository.IStreamCache,
	engine *request.Engine,
	authUsecase IAuthUsecase,
) IMethodUsecase {
	return &methodUsecase{
		registry:      registry,
		authzRepo:     authzRepo,
		datapointRepo: datapointRepo,
		granularRepo:  granularRepo,
		streamCache:   streamCache,
		engine:        engine,
		authUsecase:   authUsecase,
	}
}

func (u *methodUsecase) ListServices(clientName string) []string {
	return u.registry.NamesFor(clientName)
}

func (u *methodUsecase) ListMethods(clientName, serviceName string) (map[string][]dto.MethodInfo, error) {
	p, err := u.registry.Resolve(clientName, serviceName)
	if err != nil {
		return nil, err
	}
	out := map[string][]dto.MethodInfo{
		http.MethodGet:  {},
		http.MethodPost: {},
	}
	for _, m := range p.Methods() {
		out[m.Verb] = append(out[m.Verb], dto.MethodInfo{Name: m.Name, Doc: m.Doc})
	}
	return out, nil
}

// resolveAuthz maps the guid argument to an authorization for the addressed
// provider. Both a missing and an unknown guid render as a 401.
func (u *methodUsecase) resolveAuthz(ctx context.Context, clientName string, p provider.Provider, args url.Values) (*model.Authorization, error) {
	guid := args.Get("guid")
	if guid == "" {
		return nil, apperror.New(apperror.InvalidToken, "User not authorized")
	}
	authz, err := u.authzRepo.GetTokenForService(ctx, guid, p.Name())
	if err != nil {
		return nil, err
	}
	if authz == nil || authz.ClientName != clientName {
		return nil, apperror.New(apperror.InvalidToken, "User not authorized")
	}
	return authz, nil
}

func (u *methodUsecase) callContext(authz *model.Authorization, clientName string, args url.Values, p provider.Provider) *provider.CallContext {
	call := &provider.CallContext{
		Engine:      u.engine,
		Authz:       authz,
		ClientName:  clientName,
		Args:        args,
		Granular:    u.granularRepo,
		StreamCache: u.streamCache,
	}
	if _, ok := p.(provider.Refresher); ok && authz.RefreshToken != "" {
		guid := authz.GUID
		call.Refresh = func(ctx context.Context) (string, error) {
			return u.authUsecase.Refresh(ctx, guid)
		}
	}
	return call
}

// Call routes one /api invocation. The _interval and _granular suffixes read
// the datastore; a non-recurring descriptor runs live; everything else is a
// present-value read, so collected series stay readable even for methods the
// provider no longer lists.
func (u *methodUsecase) Call(ctx context.Context, clientName, serviceName, method, verb string, args url.Values) (interface{}, error) {
	p, err := u.registry.Resolve(clientName, serviceName)
	if err != nil {
		return nil, err
	}
	authz, err := u.resolveAuthz(ctx, clientName, p, args)
	if err != nil {
		return nil, err
	}

	if verb == http.MethodPost {
		descriptor, ok := provider.Method(p, method)
		if !ok || descriptor.Verb != http.MethodPost {
			return nil, apperror.Newf(apperror.NotFound, "unknown method %s", method)
		}
		return descriptor.Fn(ctx, u.callContext(authz, clientName, args, p))
	}

	switch {
	case strings.HasSuffix(method, intervalSuffix):
		return u.intervalValue(ctx, authz, strings.TrimSuffix(method, intervalSuffix), args)
	case strings.HasSuffix(method, granularSuffix):
		return u.granularValue(ctx, authz, clientName, p, strings.TrimSuffix(method, granularSuffix), args)
	}

	if descriptor, ok := provider.Method(p, method); ok && !descriptor.Recurring && descriptor.Verb == http.MethodGet {
		return descriptor.Fn(ctx, u.callContext(authz, clientName, args, p))
	}
	return u.presentValue(ctx, authz, method)
}

func (u *methodUsecase) presentValue(ctx context.Context, authz *model.Authorization, method string) (interface{}, error) {
	dp, err := u.datapointRepo.GetValue(ctx, authz.GUID, method)
	if err != nil {
		return nil, err
	}
	if dp == nil {
		return map[string]interface{}{"data": nil}, nil
	}
	out := map[string]interface{}{"data": decodeValue(dp.Value)}
	marker, err := u.datapointRepo.LatestExpirationMarker(ctx, authz.GUID)
	if err != nil {
		return nil, err
	}
	if marker != nil && marker.ExpiredOn > dp.Timestamp {
		out["expired_on"] = marker.ExpiredOn
	}
	return out, nil
}

func (u *methodUsecase) intervalValue(ctx context.Context, authz *model.Authorization, method string, args url.Values) (interface{}, error) {
	start, end, err := parseWindow(args)
	if err != nil {
		return nil, err
	}
	if start > end {
		return map[string]interface{}{"data": []interface{}{}}, nil
	}

	points, err := u.datapointRepo.GetValueRange(ctx, authz.GUID, method, start, end)
	if err != nil {
		return nil, err
	}

	// Carry the last out-of-band point forward to the window start so the
	// series opens with a known value.
	if len(points) == 0 || points[0].Timestamp > start {
		before, err := u.datapointRepo.GetValueBefore(ctx, authz.GUID, method, start)
		if err != nil {
			return nil, err
		}
		if before != nil {
			synthetic := model.Datapoint{GUID: authz.GUID, Method: method, Timestamp: start, Value: before.Value}
			points = append([]model.Datapoint{synthetic}, points...)
		}
	}

	entries := make([]interface{}, 0, len(points))
	for _, point := range points {
		entries = append(entries, intervalEntry(point))
	}

	markers, err := u.datapointRepo.GetExpirationMarkers(ctx, authz.GUID, start)
	if err != nil {
		return nil, err
	}
	for _, marker := range markers {
		attachMarker(entries, points, marker)
	}
	return map[string]interface{}{"data": entries}, nil
}

// attachMarker pins an expiration onto the last point at or before it; a
// marker past the end of the series lands on the final point.
func attachMarker(entries []interface{}, points []model.Datapoint, marker model.ExpirationMarker) {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Timestamp <= marker.ExpiredOn {
			entries[i].(map[string]interface{})["expired_on"] = marker.ExpiredOn
			return
		}
	}
}

func (u *methodUsecase) granularValue(ctx context.Context, authz *model.Authorization, clientName string, p provider.Provider, method string, args url.Values) (interface{}, error) {
	start, end, err := parseWindow(args)
	if err != nil {
		return nil, err
	}
	if start > end {
		return map[string]interface{}{"data": []interface{}{}}, nil
	}

	rows, err := u.granularRepo.RetrieveGranularData(ctx, authz.GUID, method, start, end)
	if err != nil {
		return nil, err
	}

	resolver, canResolve := p.(provider.ActorResolver)
	profiles := map[string]interface{}{}
	entries := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		entry := map[string]interface{}{
			"item_id":   row.ItemID,
			"actor_id":  row.ActorID,
			"timestamp": row.Timestamp,
		}
		if canResolve && row.ActorID != "" {
			profile, ok := profiles[row.ActorID]
			if !ok {
				fetched, err := resolver.FetchActorProfile(ctx, u.callContext(authz, clientName, args, p), row.ActorID)
				if err != nil {
					return nil, err
				}
				profiles[row.ActorID] = fetched
				profile = fetched
			}
			entry["actor"] = profile
		}
		entries = append(entries, entry)
	}
	return map[string]interface{}{"data": entries}, nil
}

func (u *methodUsecase) WriteDatapoint(ctx context.Context, clientName, serviceName, method string, args url.Values) (interface{}, error) {
	p, err := u.registry.Resolve(clientName, serviceName)
	if err != nil {
		return nil, err
	}
	authz, err := u.resolveAuthz(ctx, clientName, p, args)
	if err != nil {
		return nil, err
	}

	value := args.Get("value")
	if value == "" {
		return nil, apperror.New(apperror.BadParameters, "missing argument value")
	}
	timestamp := utils.Epoch(utils.GetCurrentTime())
	if raw := args.Get("timestamp"); raw != "" {
		timestamp, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperror.Newf(apperror.BadParameters, "invalid timestamp %q", raw)
		}
	}

	if err := u.datapointRepo.WriteValue(ctx, authz.GUID, method, timestamp, value); err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true, "timestamp": timestamp}, nil
}

func parseWindow(args url.Values) (int64, int64, error) {
	start, err := requiredEpoch(args, "start")
	if err != nil {
		return 0, 0, err
	}
	end, err := requiredEpoch(args, "end")
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func requiredEpoch(args url.Values, key string) (int64, error) {
	raw := args.Get(key)
	if raw == "" {
		return 0, apperror.Newf(apperror.BadParameters, "missing argument %s", key)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.Newf(apperror.BadParameters, "invalid %s %q", key, raw)
	}
	return value, nil
}

// intervalEntry renders one datapoint: scalars surface under "num", objects
// under "data", timestamps as decimal strings.
func intervalEntry(point model.Datapoint) map[string]interface{} {
	entry := map[string]interface{}{
		"timestamp": strconv.FormatInt(point.Timestamp, 10),
	}
	value := decodeValue(point.Value)
	switch value.(type) {
	case map[string]interface{}, []interface{}:
		entry["data"] = value
	default:
		entry["num"] = value
	}
	return entry
}

// decodeValue parses a stored value: JSON when it parses, raw text otherwise.
func decodeValue(stored string) interface{} {
	var value interface{}
	if err := json.Unmarshal([]byte(stored), &value); err != nil {
		return stored
	}
	return value
}

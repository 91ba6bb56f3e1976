package usecase_test

import (
	"context"
	"net/url"
	"time"

	"github.com/stretchr/testify/mock"

	"social-gateway/domain/dto"
	"social-gateway/domain/model"
)

type MockAuthorizationRepo struct {
	mock.Mock
}

func (m *MockAuthorizationRepo) GetToken(ctx context.Context, guid string) (*model.Authorization, error) {
	args := m.Called(ctx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Authorization), args.Error(1)
}

func (m *MockAuthorizationRepo) GetTokenByTriple(ctx context.Context, clientName, serviceName, userID string) (*model.Authorization, error) {
	args := m.Called(ctx, clientName, serviceName, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Authorization), args.Error(1)
}

func (m *MockAuthorizationRepo) GetTokenForService(ctx context.Context, guid, serviceName string) (*model.Authorization, error) {
	args := m.Called(ctx, guid, serviceName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Authorization), args.Error(1)
}

func (m *MockAuthorizationRepo) GetTokens(ctx context.Context, guids []string) ([]*model.Authorization, error) {
	args := m.Called(ctx, guids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Authorization), args.Error(1)
}

func (m *MockAuthorizationRepo) ListActiveTokens(ctx context.Context) ([]*model.Authorization, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Authorization), args.Error(1)
}

func (m *MockAuthorizationRepo) SetToken(ctx context.Context, authz *model.Authorization) (string, bool, error) {
	args := m.Called(ctx, authz)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockAuthorizationRepo) UpdateAccessToken(ctx context.Context, guid, token string) error {
	args := m.Called(ctx, guid, token)
	return args.Error(0)
}

func (m *MockAuthorizationRepo) DeleteToken(ctx context.Context, guid string) error {
	args := m.Called(ctx, guid)
	return args.Error(0)
}

func (m *MockAuthorizationRepo) ExpireToken(ctx context.Context, guid string, expiredOn time.Time) error {
	args := m.Called(ctx, guid, expiredOn)
	return args.Error(0)
}

func (m *MockAuthorizationRepo) DeleteUserData(ctx context.Context, guid string) error {
	args := m.Called(ctx, guid)
	return args.Error(0)
}

func (m *MockAuthorizationRepo) StoreInflightAuthz(ctx context.Context, inflight *model.InflightAuthz) error {
	args := m.Called(ctx, inflight)
	return args.Error(0)
}

func (m *MockAuthorizationRepo) RetrieveInflightAuthz(ctx context.Context, serviceName, token string) (*model.InflightAuthz, error) {
	args := m.Called(ctx, serviceName, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InflightAuthz), args.Error(1)
}

type MockDatapointRepo struct {
	mock.Mock
}

func (m *MockDatapointRepo) WriteValue(ctx context.Context, guid, method string, timestamp int64, value string) error {
	args := m.Called(ctx, guid, method, timestamp, value)
	return args.Error(0)
}

func (m *MockDatapointRepo) GetValue(ctx context.Context, guid, method string) (*model.Datapoint, error) {
	args := m.Called(ctx, guid, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Datapoint), args.Error(1)
}

func (m *MockDatapointRepo) GetValueRange(ctx context.Context, guid, method string, start, end int64) ([]model.Datapoint, error) {
	args := m.Called(ctx, guid, method, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Datapoint), args.Error(1)
}

func (m *MockDatapointRepo) GetValueBefore(ctx context.Context, guid, method string, ts int64) (*model.Datapoint, error) {
	args := m.Called(ctx, guid, method, ts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Datapoint), args.Error(1)
}

func (m *MockDatapointRepo) WriteExpirationMarker(ctx context.Context, guid string, expiredOn int64) error {
	args := m.Called(ctx, guid, expiredOn)
	return args.Error(0)
}

func (m *MockDatapointRepo) GetExpirationMarkers(ctx context.Context, guid string, since int64) ([]model.ExpirationMarker, error) {
	args := m.Called(ctx, guid, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExpirationMarker), args.Error(1)
}

func (m *MockDatapointRepo) LatestExpirationMarker(ctx context.Context, guid string) (*model.ExpirationMarker, error) {
	args := m.Called(ctx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExpirationMarker), args.Error(1)
}

type MockGranularRepo struct {
	mock.Mock
}

func (m *MockGranularRepo) WriteGranularDatum(ctx context.Context, datum model.GranularDatum) error {
	args := m.Called(ctx, datum)
	return args.Error(0)
}

func (m *MockGranularRepo) FindUnwrittenGranularData(ctx context.Context, guid, method string, itemIDs []string) ([]string, error) {
	args := m.Called(ctx, guid, method, itemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockGranularRepo) RetrieveGranularData(ctx context.Context, guid, method string, start, end int64) ([]model.GranularDatum, error) {
	args := m.Called(ctx, guid, method, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.GranularDatum), args.Error(1)
}

func (m *MockGranularRepo) GetLastGranularTimestamp(ctx context.Context, guid, method string) (int64, error) {
	args := m.Called(ctx, guid, method)
	return args.Get(0).(int64), args.Error(1)
}

type MockViewRepo struct {
	mock.Mock
}

func (m *MockViewRepo) GetViews(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockViewRepo) GetView(ctx context.Context, name string) (*model.View, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.View), args.Error(1)
}

func (m *MockViewRepo) SetView(ctx context.Context, view *model.View) error {
	args := m.Called(ctx, view)
	return args.Error(0)
}

func (m *MockViewRepo) DeleteView(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockViewRepo) ViewExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

type MockStreamCacheRepo struct {
	mock.Mock
}

func (m *MockStreamCacheRepo) RetrieveStreamCache(ctx context.Context, guid string, start, end int64, limit int, forward bool) ([]model.StreamCacheRow, error) {
	args := m.Called(ctx, guid, start, end, limit, forward)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StreamCacheRow), args.Error(1)
}

func (m *MockStreamCacheRepo) UpdateStreamCache(ctx context.Context, entries []model.StreamCacheRow) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Push(ctx context.Context, job *model.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobQueue) PushDelayed(ctx context.Context, job *model.Job, at time.Time) error {
	args := m.Called(ctx, job, at)
	return args.Error(0)
}

func (m *MockJobQueue) Pop(ctx context.Context, timeout time.Duration) (*model.Job, error) {
	args := m.Called(ctx, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

func (m *MockJobQueue) PromoteDelayed(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type MockMethodUsecase struct {
	mock.Mock
}

func (m *MockMethodUsecase) ListServices(clientName string) []string {
	args := m.Called(clientName)
	return args.Get(0).([]string)
}

func (m *MockMethodUsecase) ListMethods(clientName, serviceName string) (map[string][]dto.MethodInfo, error) {
	args := m.Called(clientName, serviceName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]dto.MethodInfo), args.Error(1)
}

func (m *MockMethodUsecase) Call(ctx context.Context, clientName, serviceName, method, verb string, callArgs url.Values) (interface{}, error) {
	args := m.Called(ctx, clientName, serviceName, method, verb, callArgs)
	return args.Get(0), args.Error(1)
}

func (m *MockMethodUsecase) WriteDatapoint(ctx context.Context, clientName, serviceName, method string, callArgs url.Values) (interface{}, error) {
	args := m.Called(ctx, clientName, serviceName, method, callArgs)
	return args.Get(0), args.Error(1)
}

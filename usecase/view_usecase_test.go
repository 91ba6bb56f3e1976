package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-gateway/domain/apperror"
	"social-gateway/domain/model"
	"social-gateway/usecase"
)

func fooView() *model.View {
	return &model.View{
		Name: "foo",
		Definition: []model.ViewStep{
			{Service: "loopback", Method: "num_foo"},
			{Service: "loopback2", Method: "num_foo"},
		},
	}
}

func TestViewInvokePartialFailure(t *testing.T) {
	viewRepo := new(MockViewRepo)
	authzRepo := new(MockAuthorizationRepo)
	methods := new(MockMethodUsecase)
	u := usecase.NewViewUsecase(viewRepo, authzRepo, methods)

	viewRepo.On("GetView", mock.Anything, "foo").Return(fooView(), nil)
	authzRepo.On("GetTokens", mock.Anything, []string{"g-1"}).Return([]*model.Authorization{
		{GUID: "g-1", ClientName: "testing", ServiceName: "loopback"},
	}, nil)
	methods.On("Call", mock.Anything, "testing", "loopback", "num_foo", http.MethodGet, mock.Anything).
		Return(map[string]interface{}{"data": float64(30)}, nil)

	resp, status, err := u.Invoke(context.Background(), "testing", "foo", []string{"g-1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusPartialContent, status)

	require.Len(t, resp.Result, 1)
	assert.Equal(t, "loopback", resp.Result[0]["service"])
	assert.Equal(t, "num_foo", resp.Result[0]["method"])
	assert.Equal(t, float64(30), resp.Result[0]["num"])

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "loopback2", resp.Errors[0].Service)
	assert.Equal(t, "num_foo", resp.Errors[0].Method)
	assert.Equal(t, http.StatusNotFound, resp.Errors[0].Code)
}

func TestViewInvokeDuplicateGUIDs(t *testing.T) {
	viewRepo := new(MockViewRepo)
	authzRepo := new(MockAuthorizationRepo)
	u := usecase.NewViewUsecase(viewRepo, authzRepo, new(MockMethodUsecase))

	viewRepo.On("GetView", mock.Anything, "foo").Return(fooView(), nil)

	_, _, err := u.Invoke(context.Background(), "testing", "foo", []string{"g-1", "g-1"})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.BadParameters))
	assert.Contains(t, err.Error(), "Duplicate GUIDs 'g-1' provided")
}

func TestViewInvokeMultipleGUIDsSameService(t *testing.T) {
	viewRepo := new(MockViewRepo)
	authzRepo := new(MockAuthorizationRepo)
	u := usecase.NewViewUsecase(viewRepo, authzRepo, new(MockMethodUsecase))

	viewRepo.On("GetView", mock.Anything, "foo").Return(fooView(), nil)
	authzRepo.On("GetTokens", mock.Anything, []string{"g-1", "g-2"}).Return([]*model.Authorization{
		{GUID: "g-1", ClientName: "testing", ServiceName: "loopback"},
		{GUID: "g-2", ClientName: "testing", ServiceName: "loopback"},
	}, nil)

	_, _, err := u.Invoke(context.Background(), "testing", "foo", []string{"g-1", "g-2"})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.BadParameters))
	assert.Contains(t, err.Error(), "loopback")
	assert.Contains(t, err.Error(), "g-1")
	assert.Contains(t, err.Error(), "g-2")
}

func TestViewInvokeAllStepsFailReturnsFirstErrorCode(t *testing.T) {
	viewRepo := new(MockViewRepo)
	authzRepo := new(MockAuthorizationRepo)
	methods := new(MockMethodUsecase)
	u := usecase.NewViewUsecase(viewRepo, authzRepo, methods)

	viewRepo.On("GetView", mock.Anything, "foo").Return(fooView(), nil)
	authzRepo.On("GetTokens", mock.Anything, []string{"g-1"}).Return([]*model.Authorization{
		{GUID: "g-1", ClientName: "testing", ServiceName: "loopback"},
	}, nil)
	methods.On("Call", mock.Anything, "testing", "loopback", "num_foo", http.MethodGet, mock.Anything).
		Return(nil, apperror.New(apperror.OverCapacity, "loopback is down"))

	resp, status, err := u.Invoke(context.Background(), "testing", "foo", []string{"g-1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Empty(t, resp.Result)
	assert.Len(t, resp.Errors, 2)
}

func TestViewInvokeAllSucceed(t *testing.T) {
	viewRepo := new(MockViewRepo)
	authzRepo := new(MockAuthorizationRepo)
	methods := new(MockMethodUsecase)
	u := usecase.NewViewUsecase(viewRepo, authzRepo, methods)

	viewRepo.On("GetView", mock.Anything, "foo").Return(fooView(), nil)
	authzRepo.On("GetTokens", mock.Anything, []string{"g-1", "g-2"}).Return([]*model.Authorization{
		{GUID: "g-1", ClientName: "testing", ServiceName: "loopback"},
		{GUID: "g-2", ClientName: "testing", ServiceName: "loopback2"},
	}, nil)
	methods.On("Call", mock.Anything, "testing", "loopback", "num_foo", http.MethodGet, mock.Anything).
		Return(map[string]interface{}{"data": float64(30)}, nil)
	methods.On("Call", mock.Anything, "testing", "loopback2", "num_foo", http.MethodGet, mock.Anything).
		Return(map[string]interface{}{"data": float64(12)}, nil)

	resp, status, err := u.Invoke(context.Background(), "testing", "foo", []string{"g-1", "g-2"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Result, 2)
	assert.Empty(t, resp.Errors)
}

func TestViewCreateRejectsReservedName(t *testing.T) {
	u := usecase.NewViewUsecase(new(MockViewRepo), new(MockAuthorizationRepo), new(MockMethodUsecase))

	err := u.Create(context.Background(), "invalidate", []model.ViewStep{{Service: "loopback", Method: "time"}})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.BadParameters))
}

func TestViewCreateRejectsExisting(t *testing.T) {
	viewRepo := new(MockViewRepo)
	u := usecase.NewViewUsecase(viewRepo, new(MockAuthorizationRepo), new(MockMethodUsecase))

	viewRepo.On("ViewExists", mock.Anything, "foo").Return(true, nil)
	err := u.Create(context.Background(), "foo", []model.ViewStep{{Service: "loopback", Method: "time"}})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.BadParameters))
}

func TestViewGetUnknown(t *testing.T) {
	viewRepo := new(MockViewRepo)
	u := usecase.NewViewUsecase(viewRepo, new(MockAuthorizationRepo), new(MockMethodUsecase))

	viewRepo.On("GetView", mock.Anything, "nope").Return(nil, nil)
	_, err := u.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.NotFound))
}

package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-gateway/domain/model"
	"social-gateway/infrastructure/request"
	"social-gateway/provider"
	"social-gateway/provider/loopback"
	"social-gateway/usecase"
)

func newStatusFixture() (*MockAuthorizationRepo, usecase.IStatusUsecase) {
	registry := provider.NewRegistry()
	registry.Register(loopback.New("loopback"))
	authzRepo := new(MockAuthorizationRepo)
	return authzRepo, usecase.NewStatusUsecase(registry, authzRepo, request.NewEngine(nil, nil, nil))
}

func TestStatusUnknownGUID(t *testing.T) {
	authzRepo, u := newStatusFixture()
	authzRepo.On("GetToken", mock.Anything, "fake-guid").Return(nil, nil)

	entries := u.Check(context.Background(), "testing", []string{"fake-guid"})
	require.Len(t, entries, 1)
	assert.Equal(t, "fake-guid", entries[0].GUID)
	assert.Equal(t, http.StatusNotFound, entries[0].Code)
	assert.Equal(t, "GUID not found", entries[0].Message)
	assert.Nil(t, entries[0].ServiceName)
	assert.Nil(t, entries[0].IsRefreshable)
}

func TestStatusHealthyAuthorization(t *testing.T) {
	authzRepo, u := newStatusFixture()
	authzRepo.On("GetToken", mock.Anything, "g-1").Return(&model.Authorization{
		GUID:         "g-1",
		ClientName:   "testing",
		ServiceName:  "loopback",
		UserID:       "loopback-user",
		RefreshToken: "refresh-1",
	}, nil)

	entries := u.Check(context.Background(), "testing", []string{"g-1"})
	require.Len(t, entries, 1)
	assert.Equal(t, http.StatusOK, entries[0].Code)
	require.NotNil(t, entries[0].ServiceName)
	assert.Equal(t, "loopback", *entries[0].ServiceName)
	require.NotNil(t, entries[0].IsRefreshable)
	assert.True(t, *entries[0].IsRefreshable)
}

func TestStatusHidesOtherTenants(t *testing.T) {
	authzRepo, u := newStatusFixture()
	authzRepo.On("GetToken", mock.Anything, "g-1").Return(&model.Authorization{
		GUID:        "g-1",
		ClientName:  "acme",
		ServiceName: "loopback",
	}, nil)

	entries := u.Check(context.Background(), "testing", []string{"g-1"})
	require.Len(t, entries, 1)
	assert.Equal(t, http.StatusNotFound, entries[0].Code)
	assert.Equal(t, "GUID not found", entries[0].Message)
}

func TestStatusPreservesInputOrder(t *testing.T) {
	authzRepo, u := newStatusFixture()
	authzRepo.On("GetToken", mock.Anything, "g-ok").Return(&model.Authorization{
		GUID:        "g-ok",
		ClientName:  "testing",
		ServiceName: "loopback",
		UserID:      "loopback-user",
	}, nil)
	authzRepo.On("GetToken", mock.Anything, "g-missing").Return(nil, nil)

	entries := u.Check(context.Background(), "testing", []string{"g-missing", "g-ok"})
	require.Len(t, entries, 2)
	assert.Equal(t, "g-missing", entries[0].GUID)
	assert.Equal(t, http.StatusNotFound, entries[0].Code)
	assert.Equal(t, "g-ok", entries[1].GUID)
	assert.Equal(t, http.StatusOK, entries[1].Code)
}

package usecase

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"social-gateway/domain/apperror"
	"social-gateway/domain/dto"
	"social-gateway/domain/repository"
	"social-gateway/infrastructure/request"
	"social-gateway/provider"
)

// IStatusUsecase answers liveness questions about authorizations by calling
// each provider's profile method live.
type IStatusUsecase interface {
	Check(ctx context.Context, clientName string, guids []string) []dto.StatusEntry
}

type statusUsecase struct {
	registry  *provider.Registry
	authzRepo repository.IAuthorization
	engine    *request.Engine
}

func NewStatusUsecase(registry *provider.Registry, authzRepo repository.IAuthorization, engine *request.Engine) IStatusUsecase {
	return &statusUsecase{registry: registry, authzRepo: authzRepo, engine: engine}
}

// Check probes every guid in parallel. The result preserves input order and
// always has one entry per guid; probe failures become per-entry codes.
func (u *statusUsecase) Check(ctx context.Context, clientName string, guids []string) []dto.StatusEntry {
	entries := make([]dto.StatusEntry, len(guids))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for i, guid := range guids {
		i, guid := i, guid
		g.Go(func() error {
			entry := u.checkOne(gctx, clientName, guid)
			mu.Lock()
			entries[i] = entry
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return entries
}

func (u *statusUsecase) checkOne(ctx context.Context, clientName, guid string) dto.StatusEntry {
	entry := dto.StatusEntry{GUID: guid}

	authz, err := u.authzRepo.GetToken(ctx, guid)
	if err != nil {
		entry.Code = http.StatusInternalServerError
		entry.Message = "Datastore error"
		return entry
	}
	if authz == nil || authz.ClientName != clientName {
		entry.Code = http.StatusNotFound
		entry.Message = "GUID not found"
		return entry
	}

	serviceName := authz.ServiceName
	entry.ServiceName = &serviceName
	refreshable := authz.RefreshToken != ""
	entry.IsRefreshable = &refreshable

	p, err := u.registry.Resolve(clientName, serviceName)
	if err != nil {
		entry.Code = http.StatusNotFound
		entry.Message = "Unknown service"
		return entry
	}
	descriptor, ok := provider.Method(p, "profile")
	if !ok {
		entry.Code = http.StatusNotFound
		entry.Message = "Service has no profile method"
		return entry
	}

	_, err = descriptor.Fn(ctx, &provider.CallContext{
		Engine:     u.engine,
		Authz:      authz,
		ClientName: clientName,
	})
	if err != nil {
		entry.Code = http.StatusInternalServerError
		entry.Message = err.Error()
		if appErr, ok := apperror.As(err); ok {
			entry.Code = appErr.HTTPStatus()
			entry.Message = appErr.Message
		}
		return entry
	}
	entry.Code = http.StatusOK
	return entry
}

package usecase

import (
	"context"
	"net/url"

	"social-gateway/domain/apperror"
	"social-gateway/domain/model"
	"social-gateway/domain/repository"
	"social-gateway/infrastructure/configuration"
	"social-gateway/infrastructure/logger"
	"social-gateway/infrastructure/request"
	"social-gateway/provider"
)

// IAuthUsecase is the authorization lifecycle: handshake start/finish, token
// lookup, transparent refresh, and revocation.
type IAuthUsecase interface {
	Start(ctx context.Context, clientName, serviceName string) (redirectURL string, err error)
	Finish(ctx context.Context, clientName, serviceName string, params url.Values) (guid string, isNew bool, err error)
	Inspect(ctx context.Context, clientName, guid string) (*model.Authorization, error)
	Revoke(ctx context.Context, clientName, guid string) error

	// Refresh obtains a new access token for guid, persists it, and returns
	// it. Only OAuth2 providers implementing Refresher support this.
	Refresh(ctx context.Context, guid string) (string, error)
}

type authUsecase struct {
	registry  *provider.Registry
	authzRepo repository.IAuthorization
	engine    *request.Engine
}

func NewAuthUsecase(registry *provider.Registry, authzRepo repository.IAuthorization, engine *request.Engine) IAuthUsecase {
	return &authUsecase{registry: registry, authzRepo: authzRepo, engine: engine}
}

func (u *authUsecase) authContext(clientName string, params url.Values) *provider.AuthContext {
	return &provider.AuthContext{
		Engine:      u.engine,
		ClientName:  clientName,
		Environment: configuration.C.Gateway.Environment,
		Params:      params,
		Inflight:    u.authzRepo,
	}
}

func (u *authUsecase) Start(ctx context.Context, clientName, serviceName string) (string, error) {
	p, err := u.registry.Resolve(clientName, serviceName)
	if err != nil {
		return "", err
	}
	redirect, err := p.StartAuthorization(ctx, u.authContext(clientName, nil))
	if err != nil {
		return "", err
	}
	logger.GetLogger().
		WithField("client", clientName).
		WithField("service", p.Name()).
		Info("Authorization started")
	return redirect, nil
}

func (u *authUsecase) Finish(ctx context.Context, clientName, serviceName string, params url.Values) (string, bool, error) {
	p, err := u.registry.Resolve(clientName, serviceName)
	if err != nil {
		return "", false, err
	}
	authz, err := p.FinishAuthorization(ctx, u.authContext(clientName, params))
	if err != nil {
		return "", false, err
	}

	authz.ClientName = clientName
	if authz.RedirectURI == "" {
		authz.RedirectURI = p.AppInfo(configuration.C.Gateway.Environment).RedirectURI
	}
	guid, isNew, err := u.authzRepo.SetToken(ctx, authz)
	if err != nil {
		return "", false, err
	}
	logger.GetLogger().
		WithField("client", clientName).
		WithField("service", p.Name()).
		WithField("guid", guid).
		WithField("is_new", isNew).
		Info("Authorization completed")
	return guid, isNew, nil
}

func (u *authUsecase) Inspect(ctx context.Context, clientName, guid string) (*model.Authorization, error) {
	authz, err := u.authzRepo.GetToken(ctx, guid)
	if err != nil {
		return nil, err
	}
	if authz == nil || authz.ClientName != clientName {
		return nil, apperror.New(apperror.NotFound, "GUID not found")
	}
	return authz, nil
}

// Revoke deletes the token and the user's collected data, then tells the
// provider. The provider call is best-effort; local deletion already happened.
func (u *authUsecase) Revoke(ctx context.Context, clientName, guid string) error {
	authz, err := u.Inspect(ctx, clientName, guid)
	if err != nil {
		return err
	}
	p, err := u.registry.Resolve(clientName, authz.ServiceName)
	if err != nil {
		return err
	}

	if err := u.authzRepo.DeleteToken(ctx, guid); err != nil {
		return err
	}
	if err := u.authzRepo.DeleteUserData(ctx, guid); err != nil {
		return err
	}

	if err := p.RevokeAuthorization(ctx, &provider.CallContext{
		Engine:     u.engine,
		Authz:      authz,
		ClientName: clientName,
	}); err != nil {
		logger.GetLogger().
			WithField("guid", guid).
			WithField("service", authz.ServiceName).
			WithField("error", err).
			Warn("Provider-side revocation failed")
	}
	return nil
}

func (u *authUsecase) Refresh(ctx context.Context, guid string) (string, error) {
	authz, err := u.authzRepo.GetToken(ctx, guid)
	if err != nil {
		return "", err
	}
	if authz == nil {
		return "", apperror.New(apperror.NotFound, "GUID not found")
	}
	p, err := u.registry.Resolve(authz.ClientName, authz.ServiceName)
	if err != nil {
		return "", err
	}
	refresher, ok := p.(provider.Refresher)
	if !ok {
		return "", apperror.Newf(apperror.RefreshToken, "%s tokens cannot be refreshed", authz.ServiceName)
	}

	app := p.AppInfo(configuration.C.Gateway.Environment)
	newToken, err := refresher.RefreshAccessToken(ctx, u.engine, authz, app)
	if err != nil {
		return "", err
	}
	if err := u.authzRepo.UpdateAccessToken(ctx, guid, newToken); err != nil {
		return "", err
	}
	authz.Token = newToken
	logger.GetLogger().
		WithField("guid", guid).
		WithField("service", authz.ServiceName).
		Info("Access token refreshed")
	return newToken, nil
}

package usecase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"social-gateway/domain/apperror"
	"social-gateway/domain/dto"
	"social-gateway/domain/model"
	"social-gateway/domain/repository"
	"social-gateway/infrastructure/utils"
)

// reservedViewName collides with the cache-invalidation endpoint namespace.
const reservedViewName = "invalidate"

// IViewUsecase manages named view plans and executes them with
// partial-failure semantics.
type IViewUsecase interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (*model.View, error)
	Create(ctx context.Context, name string, definition []model.ViewStep) error
	Delete(ctx context.Context, name string) error

	// Invoke executes the view for the supplied guids and returns the
	// response body plus the HTTP status it selected.
	Invoke(ctx context.Context, clientName, name string, guids []string) (*dto.ViewInvokeResponse, int, error)
}

type viewUsecase struct {
	viewRepo      repository.IView
	authzRepo     repository.IAuthorization
	methodUsecase IMethodUsecase
}

func NewViewUsecase(viewRepo repository.IView, authzRepo repository.IAuthorization, methodUsecase IMethodUsecase) IViewUsecase {
	return &viewUsecase{viewRepo: viewRepo, authzRepo: authzRepo, methodUsecase: methodUsecase}
}

func (u *viewUsecase) List(ctx context.Context) ([]string, error) {
	return u.viewRepo.GetViews(ctx)
}

func (u *viewUsecase) Get(ctx context.Context, name string) (*model.View, error) {
	view, err := u.viewRepo.GetView(ctx, name)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, apperror.Newf(apperror.NotFound, "unknown view %s", name)
	}
	return view, nil
}

func (u *viewUsecase) Create(ctx context.Context, name string, definition []model.ViewStep) error {
	if name == "" {
		return apperror.New(apperror.BadParameters, "missing view name")
	}
	if name == reservedViewName {
		return apperror.Newf(apperror.BadParameters, "view name %q is reserved", reservedViewName)
	}
	if len(definition) == 0 {
		return apperror.New(apperror.BadParameters, "view definition is empty")
	}
	exists, err := u.viewRepo.ViewExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return apperror.Newf(apperror.BadParameters, "view %s already exists", name)
	}
	return u.viewRepo.SetView(ctx, &model.View{
		Name:       name,
		Definition: definition,
		CreatedAt:  utils.GetCurrentTime(),
	})
}

func (u *viewUsecase) Delete(ctx context.Context, name string) error {
	exists, err := u.viewRepo.ViewExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.Newf(apperror.NotFound, "unknown view %s", name)
	}
	return u.viewRepo.DeleteView(ctx, name)
}

func (u *viewUsecase) Invoke(ctx context.Context, clientName, name string, guids []string) (*dto.ViewInvokeResponse, int, error) {
	view, err := u.Get(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	byService, err := authorizationsByService(ctx, u.authzRepo, clientName, guids)
	if err != nil {
		return nil, 0, err
	}

	resp := &dto.ViewInvokeResponse{
		Result: []map[string]interface{}{},
		Errors: []dto.ViewStepError{},
	}
	for _, step := range view.Definition {
		authz, ok := byService[step.Service]
		if !ok {
			resp.Errors = append(resp.Errors, dto.ViewStepError{
				Service: step.Service,
				Method:  step.Method,
				Code:    http.StatusNotFound,
				Message: fmt.Sprintf("No authorization provided for service '%s'", step.Service),
			})
			continue
		}

		result, err := u.methodUsecase.Call(ctx, clientName, step.Service, step.Method,
			http.MethodGet, url.Values{"guid": {authz.GUID}})
		if err != nil {
			resp.Errors = append(resp.Errors, stepError(step, err))
			continue
		}

		entry, err := stepResult(result)
		if err != nil {
			resp.Errors = append(resp.Errors, stepError(step, err))
			continue
		}
		entry["service"] = step.Service
		entry["method"] = step.Method
		resp.Result = append(resp.Result, entry)
	}

	return resp, selectStatus(resp), nil
}

// authorizationsByService rejects duplicate guids and more than one guid per
// service, then indexes the authorizations by service name. Shared by view
// invocation and stream assembly.
func authorizationsByService(ctx context.Context, authzRepo repository.IAuthorization, clientName string, guids []string) (map[string]*model.Authorization, error) {
	seen := map[string]bool{}
	for _, guid := range guids {
		if seen[guid] {
			return nil, apperror.Newf(apperror.BadParameters, "Duplicate GUIDs '%s' provided", guid)
		}
		seen[guid] = true
	}

	authzs, err := authzRepo.GetTokens(ctx, guids)
	if err != nil {
		return nil, err
	}
	found := map[string]*model.Authorization{}
	for _, authz := range authzs {
		if authz.ClientName != clientName {
			continue
		}
		found[authz.GUID] = authz
	}

	byService := map[string]*model.Authorization{}
	for _, guid := range guids {
		authz, ok := found[guid]
		if !ok {
			return nil, apperror.New(apperror.InvalidToken, "User not authorized")
		}
		if prev, dup := byService[authz.ServiceName]; dup {
			return nil, apperror.Newf(apperror.BadParameters,
				"Multiple GUIDs '%s', '%s' provided for service '%s'", prev.GUID, authz.GUID, authz.ServiceName)
		}
		byService[authz.ServiceName] = authz
	}
	return byService, nil
}

// stepResult normalizes one method result to an object: present-value reads
// unwrap their data envelope, scalars surface under "num", and list results
// are rejected.
func stepResult(result interface{}) (map[string]interface{}, error) {
	if env, ok := result.(map[string]interface{}); ok {
		data, hasData := env["data"]
		if !hasData {
			out := make(map[string]interface{}, len(env)+2)
			for k, v := range env {
				out[k] = v
			}
			return out, nil
		}
		entry, err := stepResult(data)
		if err != nil {
			return nil, err
		}
		if expiredOn, ok := env["expired_on"]; ok {
			entry["expired_on"] = expiredOn
		}
		return entry, nil
	}
	if _, ok := result.([]interface{}); ok {
		return nil, apperror.New(apperror.UnknownResponse, "list results cannot be aggregated")
	}
	return map[string]interface{}{"num": result}, nil
}

func stepError(step model.ViewStep, err error) dto.ViewStepError {
	out := dto.ViewStepError{
		Service: step.Service,
		Method:  step.Method,
		Code:    http.StatusInternalServerError,
		Message: err.Error(),
	}
	if appErr, ok := apperror.As(err); ok {
		out.Code = appErr.HTTPStatus()
		out.Message = appErr.Message
		out.RetryAt = appErr.RetryAt
	}
	return out
}

// selectStatus implements the 200 / 206 / first-error-code rule.
func selectStatus(resp *dto.ViewInvokeResponse) int {
	switch {
	case len(resp.Errors) == 0:
		return http.StatusOK
	case len(resp.Result) > 0:
		return http.StatusPartialContent
	default:
		return resp.Errors[0].Code
	}
}

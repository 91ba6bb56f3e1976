package usecase

import (
	"context"
	"net/url"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"social-gateway/domain/apperror"
	"social-gateway/domain/dto"
	"social-gateway/domain/model"
	"social-gateway/domain/repository"
	"social-gateway/infrastructure/logger"
	"social-gateway/infrastructure/request"
	"social-gateway/infrastructure/utils"
	"social-gateway/provider"
)

const defaultStreamNum = 20

// StreamOptions are the normalized /stream query arguments.
type StreamOptions struct {
	Timestamp   int64  // window anchor; 0 means now
	Forward     bool   // true walks newer than Timestamp
	Num         int    // max events returned
	Echo        int    // events with is_echo greater than this are dropped
	ShowPrivate int    // events with is_private greater than this are dropped
	Type        string // optional activity type filter
}

// IStreamUsecase assembles the merged cross-provider activity feed.
type IStreamUsecase interface {
	Fetch(ctx context.Context, clientName string, guids []string, opts StreamOptions) (*dto.StreamResponse, error)
}

type streamUsecase struct {
	registry    *provider.Registry
	authzRepo   repository.IAuthorization
	streamCache repository.IStreamCache
	engine      *request.Engine
}

func NewStreamUsecase(registry *provider.Registry, authzRepo repository.IAuthorization, streamCache repository.IStreamCache, engine *request.Engine) IStreamUsecase {
	return &streamUsecase{registry: registry, authzRepo: authzRepo, streamCache: streamCache, engine: engine}
}

// Fetch retrieves every authorization's feed in parallel, merges the events,
// sorts newest first, and truncates. A failing feed contributes an errors
// entry instead of failing the response.
func (u *streamUsecase) Fetch(ctx context.Context, clientName string, guids []string, opts StreamOptions) (*dto.StreamResponse, error) {
	if opts.Num <= 0 {
		opts.Num = defaultStreamNum
	}
	byService, err := authorizationsByService(ctx, u.authzRepo, clientName, guids)
	if err != nil {
		return nil, err
	}

	resp := &dto.StreamResponse{Data: []model.StreamEvent{}}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for serviceName, authz := range byService {
		serviceName, authz := serviceName, authz
		g.Go(func() error {
			events, err := u.fetchOne(gctx, clientName, serviceName, authz, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				resp.Errors = append(resp.Errors, feedError(serviceName, err))
				return nil
			}
			resp.Data = append(resp.Data, events...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(resp.Data, func(i, j int) bool {
		return resp.Data[i].Metadata.Timestamp > resp.Data[j].Metadata.Timestamp
	})
	if len(resp.Data) > opts.Num {
		resp.Data = resp.Data[:opts.Num]
	}
	return resp, nil
}

func (u *streamUsecase) fetchOne(ctx context.Context, clientName, serviceName string, authz *model.Authorization, opts StreamOptions) ([]model.StreamEvent, error) {
	p, err := u.registry.Resolve(clientName, serviceName)
	if err != nil {
		return nil, err
	}

	if cached, ok := p.(provider.StreamCached); ok && cached.StreamCachedFeed() {
		return u.fetchCached(ctx, authz, opts)
	}

	fp, ok := p.(provider.FeedProvider)
	if !ok {
		return nil, apperror.Newf(apperror.NotFound, "%s has no feed", serviceName)
	}
	return u.fetchLive(ctx, p, fp, authz, opts)
}

func (u *streamUsecase) fetchCached(ctx context.Context, authz *model.Authorization, opts StreamOptions) ([]model.StreamEvent, error) {
	start, end := window(opts)
	rows, err := u.streamCache.RetrieveStreamCache(ctx, authz.GUID, start, end, opts.Num, opts.Forward)
	if err != nil {
		return nil, err
	}
	events := make([]model.StreamEvent, 0, len(rows))
	fctx := &provider.FeedContext{Authz: authz, Timestamp: opts.Timestamp, Forward: opts.Forward}
	for _, row := range rows {
		if keepEvent(row.Event, nil, fctx, opts) {
			events = append(events, row.Event)
		}
	}
	return events, nil
}

func (u *streamUsecase) fetchLive(ctx context.Context, p provider.Provider, fp provider.FeedProvider, authz *model.Authorization, opts StreamOptions) ([]model.StreamEvent, error) {
	fctx := &provider.FeedContext{Authz: authz, Timestamp: opts.Timestamp, Forward: opts.Forward}
	filter, _ := p.(provider.PostFilter)
	return collectFeed(ctx, u.engine, p, fp, authz, opts, func(event model.StreamEvent) bool {
		return keepEvent(event, filter, fctx, opts)
	})
}

// collectFeed pages a provider's feed into parsed events. A nil keep retains
// every parsed entry; the stream cache refresher uses that to store the raw
// window and leave filtering to read time.
func collectFeed(ctx context.Context, engine *request.Engine, p provider.Provider, fp provider.FeedProvider, authz *model.Authorization, opts StreamOptions, keep func(model.StreamEvent) bool) ([]model.StreamEvent, error) {
	base, path := fp.GetFeedURL(authz)
	query := url.Values{}
	mergeValues(query, fp.GetFeedArgs(authz))
	mergeValues(query, fp.GetFeedLimit(opts.Num))
	if opts.Timestamp > 0 {
		mergeValues(query, fp.GetFeedTimestamp(opts.Timestamp, opts.Forward))
	}

	args := &request.Args{
		Service:    p.Name(),
		BaseURL:    base,
		Path:       path,
		Query:      query,
		ParseError: p.ParseError,
		RateKey:    authz.GUID,
	}
	if signer, ok := p.(provider.FeedSigner); ok {
		args.Sign = signer.FeedSign(authz)
	}

	fctx := &provider.FeedContext{Authz: authz, Timestamp: opts.Timestamp, Forward: opts.Forward}

	var events []model.StreamEvent
	paging := fp.FeedPaging()
	paging.Stop = func() bool { return len(events) >= opts.Num }

	err := engine.RequestWithPaging(ctx, args, paging, func(items []interface{}) error {
		for _, item := range items {
			raw, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			event, err := fp.ParsePost(raw, fctx)
			if err != nil {
				logger.GetLogger().
					WithField("service", p.Name()).
					WithField("error", err).
					Warn("Dropping unparseable feed entry")
				continue
			}
			if keep == nil || keep(*event) {
				events = append(events, *event)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// keepEvent applies the privacy, echo, type, and provider filters.
func keepEvent(event model.StreamEvent, filter provider.PostFilter, fctx *provider.FeedContext, opts StreamOptions) bool {
	if event.Metadata.IsPrivate > opts.ShowPrivate {
		return false
	}
	if event.Metadata.IsEcho != nil && *event.Metadata.IsEcho > opts.Echo {
		return false
	}
	if opts.Type != "" && string(event.Activity.Type) != opts.Type {
		return false
	}
	if filter != nil && !filter.ShouldIncludePost(&event, fctx) {
		return false
	}
	return true
}

func window(opts StreamOptions) (int64, int64) {
	now := utils.Epoch(utils.GetCurrentTime())
	if opts.Timestamp == 0 {
		return 0, now
	}
	if opts.Forward {
		return opts.Timestamp, now
	}
	return 0, opts.Timestamp
}

func mergeValues(dst, src url.Values) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func feedError(serviceName string, err error) dto.ViewStepError {
	out := dto.ViewStepError{
		Service: serviceName,
		Method:  "stream",
		Code:    500,
		Message: err.Error(),
	}
	if appErr, ok := apperror.As(err); ok {
		out.Code = appErr.HTTPStatus()
		out.Message = appErr.Message
		out.RetryAt = appErr.RetryAt
	}
	return out
}

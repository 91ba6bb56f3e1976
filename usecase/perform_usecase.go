package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"social-gateway/domain/apperror"
	"social-gateway/domain/model"
	"social-gateway/domain/repository"
	"social-gateway/infrastructure/configuration"
	"social-gateway/infrastructure/logger"
	"social-gateway/infrastructure/request"
	"social-gateway/infrastructure/utils"
	"social-gateway/provider"
)

// Job classes the worker dispatches on. Collect jobs persist one method's
// observation; stream cache jobs repopulate a cached provider's feed.
const (
	JobClassCollect     = "collect"
	JobClassStreamCache = "stream_cache"
)

// streamCacheDepth bounds how many feed entries one refresh pulls.
const streamCacheDepth = 200

// IPerformUsecase runs one scheduled job and applies the error-driven
// re-enqueue policy.
type IPerformUsecase interface {
	Perform(ctx context.Context, job *model.Job) error

	// Enqueue schedules a job of the given class for guid/method after delta.
	Enqueue(ctx context.Context, class, guid, method string, delta time.Duration) error
}

type performUsecase struct {
	registry      *provider.Registry
	authzRepo     repository.IAuthorization
	datapointRepo repository.IDatapoint
	granularRepo  repository.IGranular
	streamCache   repository.IStreamCache
	jobQueue      repository.IJobQueue
	engine        *request.Engine
	authUsecase   IAuthUsecase
}

func NewPerformUsecase(
	registry *provider.Registry,
	authzRepo repository.IAuthorization,
	datapointRepo repository.IDatapoint,
	granularRepo repository.IGranular,
	streamCache repository.IStreamCache,
	jobQueue repository.IJobQueue,
	engine *request.Engine,
	authUsecase IAuthUsecase,
) IPerformUsecase {
	return &performUsecase{
		registry:      registry,
		authzRepo:     authzRepo,
		datapointRepo: datapointRepo,
		granularRepo:  granularRepo,
		streamCache:   streamCache,
		jobQueue:      jobQueue,
		engine:        engine,
		authUsecase:   authUsecase,
	}
}

func (u *performUsecase) Enqueue(ctx context.Context, class, guid, method string, delta time.Duration) error {
	job := &model.Job{
		Class:            class,
		GUID:             guid,
		Method:           method,
		EnqueueTimestamp: utils.Epoch(utils.GetCurrentTime()),
	}
	if delta <= 0 {
		return u.jobQueue.Push(ctx, job)
	}
	return u.jobQueue.PushDelayed(ctx, job, utils.GetCurrentTime().Add(delta))
}

// Perform runs one scheduled job. Policy on failure:
// rate-limited jobs come back at retry_at, invalid tokens write an expiration
// marker and stop, anything else retries after the method's enqueue delta.
// The returned error is always nil for policy-handled failures; the worker
// loop only sees datastore errors.
func (u *performUsecase) Perform(ctx context.Context, job *model.Job) error {
	log := logger.GetLogger().
		WithField("guid", job.GUID).
		WithField("method", job.Method)

	authz, err := u.authzRepo.GetToken(ctx, job.GUID)
	if err != nil {
		return err
	}
	if authz == nil {
		log.Warn("Dropping job for unknown authorization")
		return nil
	}

	p, err := u.registry.Resolve(authz.ClientName, authz.ServiceName)
	if err != nil {
		log.Warn("Dropping job for unknown service")
		return nil
	}

	switch job.Class {
	case JobClassCollect:
		return u.performCollect(ctx, job, authz, p, log)
	case JobClassStreamCache:
		return u.performStreamRefresh(ctx, job, authz, p, log)
	default:
		log.WithField("class", job.Class).Warn("Dropping job with unknown class")
		return nil
	}
}

func (u *performUsecase) performCollect(ctx context.Context, job *model.Job, authz *model.Authorization, p provider.Provider, log *logrus.Entry) error {
	descriptor, ok := provider.Method(p, job.Method)
	if !ok || !descriptor.Recurring {
		log.Warn("Dropping job for unknown recurring method")
		return nil
	}

	call := &provider.CallContext{
		Engine:      u.engine,
		Authz:       authz,
		ClientName:  authz.ClientName,
		Granular:    u.granularRepo,
		StreamCache: u.streamCache,
	}
	if _, refreshes := p.(provider.Refresher); refreshes && authz.RefreshToken != "" {
		guid := authz.GUID
		call.Refresh = func(ctx context.Context) (string, error) {
			return u.authUsecase.Refresh(ctx, guid)
		}
	}

	result, err := descriptor.Fn(ctx, call)
	if err != nil {
		return u.handleFailure(ctx, job, descriptor, err, log)
	}

	now := utils.Epoch(utils.GetCurrentTime())
	if err := u.datapointRepo.WriteValue(ctx, job.GUID, job.Method, now, encodeValue(result)); err != nil {
		return err
	}
	log.Info("Collection job succeeded")
	return u.Enqueue(ctx, job.Class, job.GUID, job.Method, enqueueDelta(descriptor))
}

// performStreamRefresh repopulates the daemon-side feed cache for providers
// whose /stream reads are served from it. The recent window is stored
// unfiltered; privacy, echo, and type filters apply at read time.
func (u *performUsecase) performStreamRefresh(ctx context.Context, job *model.Job, authz *model.Authorization, p provider.Provider, log *logrus.Entry) error {
	fp, ok := p.(provider.FeedProvider)
	if !ok {
		log.Warn("Dropping stream refresh for feedless provider")
		return nil
	}

	events, err := collectFeed(ctx, u.engine, p, fp, authz, StreamOptions{Num: streamCacheDepth}, nil)
	if err != nil {
		return u.handleFailure(ctx, job, provider.MethodDescriptor{}, err, log)
	}

	rows := make([]model.StreamCacheRow, 0, len(events))
	for _, event := range events {
		rows = append(rows, model.StreamCacheRow{
			GUID:      authz.GUID,
			ItemID:    event.Metadata.PostID,
			Timestamp: event.Metadata.Timestamp,
			Event:     event,
		})
	}
	if err := u.streamCache.UpdateStreamCache(ctx, rows); err != nil {
		return err
	}
	log.WithField("events", len(rows)).Info("Stream cache refreshed")
	return u.Enqueue(ctx, job.Class, job.GUID, job.Method, enqueueDelta(provider.MethodDescriptor{}))
}

func (u *performUsecase) handleFailure(ctx context.Context, job *model.Job, descriptor provider.MethodDescriptor, err error, log *logrus.Entry) error {
	appErr, ok := apperror.As(err)
	if !ok {
		log.WithField("error", err).Error("Collection job failed; re-enqueueing")
		return u.Enqueue(ctx, job.Class, job.GUID, job.Method, enqueueDelta(descriptor))
	}

	switch appErr.Kind {
	case apperror.RateLimited:
		retryAt := utils.FromEpoch(appErr.RetryAt)
		if appErr.RetryAt == 0 {
			retryAt = utils.GetCurrentTime().Add(enqueueDelta(descriptor))
		}
		log.WithField("retry_at", retryAt).Info("Rate limited; re-enqueueing at retry_at")
		return u.jobQueue.PushDelayed(ctx, &model.Job{
			Class:            job.Class,
			GUID:             job.GUID,
			Method:           job.Method,
			EnqueueTimestamp: utils.Epoch(utils.GetCurrentTime()),
		}, retryAt)

	case apperror.InvalidToken:
		log.Warn("Token invalid; writing expiration marker")
		now := utils.Epoch(utils.GetCurrentTime())
		if err := u.datapointRepo.WriteExpirationMarker(ctx, job.GUID, now); err != nil {
			return err
		}
		if err := u.authzRepo.ExpireToken(ctx, job.GUID, utils.GetCurrentTime()); err != nil {
			return err
		}
		return nil

	default:
		log.WithField("kind", appErr.Kind).WithField("error", appErr.Message).
			Warn("Collection job failed; re-enqueueing after delta")
		return u.Enqueue(ctx, job.Class, job.GUID, job.Method, enqueueDelta(descriptor))
	}
}

// enqueueDelta resolves a method's re-enqueue spacing, falling back to the
// configured default.
func enqueueDelta(descriptor provider.MethodDescriptor) time.Duration {
	if descriptor.EnqueueDelta > 0 {
		return descriptor.EnqueueDelta
	}
	minutes := configuration.C.Gateway.EnqueueDeltaMinutes
	if minutes <= 0 {
		minutes = 15
	}
	return time.Duration(minutes) * time.Minute
}

// encodeValue stores scalars in their decimal form and everything else as
// JSON, matching what reads expect to decode.
func encodeValue(result interface{}) string {
	switch v := result.(type) {
	case string:
		return v
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		encoded, _ := json.Marshal(v)
		return string(encoded)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

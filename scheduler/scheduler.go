// Package scheduler drives the background collection loop: a worker pool
// popping jobs from the queue, a promoter moving due delayed jobs onto the
// ready list, and a seeder that keeps every active authorization's recurring
// methods enqueued.
package scheduler

import (
	"context"
	"time"

	"social-gateway/domain/repository"
	"social-gateway/infrastructure/configuration"
	"social-gateway/infrastructure/logger"
	"social-gateway/infrastructure/request"
	"social-gateway/provider"
	"social-gateway/usecase"
)

const popTimeout = 5 * time.Second

type Scheduler struct {
	registry  *provider.Registry
	authzRepo repository.IAuthorization
	jobQueue  repository.IJobQueue
	perform   usecase.IPerformUsecase
	gate      *request.Gate
}

func New(
	registry *provider.Registry,
	authzRepo repository.IAuthorization,
	jobQueue repository.IJobQueue,
	perform usecase.IPerformUsecase,
) *Scheduler {
	maxJobs := configuration.C.Gateway.MaxJobs
	return &Scheduler{
		registry:  registry,
		authzRepo: authzRepo,
		jobQueue:  jobQueue,
		perform:   perform,
		gate:      request.NewGate(maxJobs),
	}
}

// RunWorker block-pops ready jobs until ctx is cancelled. Each job runs on its
// own goroutine behind the max_jobs gate, so a slow provider call never stalls
// the pop loop.
func (s *Scheduler) RunWorker(ctx context.Context) error {
	log := logger.GetLogger()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, err := s.jobQueue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithField("error", err).Error("Job pop failed")
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue // timeout, poll again
		}
		if err := s.gate.Acquire(ctx); err != nil {
			return err
		}
		go func() {
			defer s.gate.Release()
			if err := s.perform.Perform(ctx, job); err != nil {
				log.
					WithField("guid", job.GUID).
					WithField("method", job.Method).
					WithField("error", err).
					Error("Job execution failed")
			}
		}()
	}
}

// RunPromoter periodically moves due delayed jobs onto the ready list.
func (s *Scheduler) RunPromoter(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			moved, err := s.jobQueue.PromoteDelayed(ctx, now)
			if err != nil {
				logger.GetLogger().WithField("error", err).Error("Delayed job promotion failed")
				continue
			}
			if moved > 0 {
				logger.GetLogger().WithField("moved", moved).Debug("Promoted delayed jobs")
			}
		}
	}
}

// RunSeeder enqueues every recurring method for every active authorization on
// a period. Re-seeding a pair whose next run is already scheduled collapses
// onto the pending delayed entry, so repeated runs never multiply a chain.
func (s *Scheduler) RunSeeder(ctx context.Context, interval time.Duration) error {
	if err := s.SeedOnce(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Error("Initial seeding failed")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.SeedOnce(ctx); err != nil {
				logger.GetLogger().WithField("error", err).Error("Seeding failed")
			}
		}
	}
}

// SeedOnce walks the active authorizations and enqueues each one's recurring
// methods immediately, plus one stream refresh per cache-served feed.
func (s *Scheduler) SeedOnce(ctx context.Context) error {
	authzs, err := s.authzRepo.ListActiveTokens(ctx)
	if err != nil {
		return err
	}
	seeded := 0
	for _, authz := range authzs {
		p, err := s.registry.Resolve(authz.ClientName, authz.ServiceName)
		if err != nil {
			logger.GetLogger().
				WithField("guid", authz.GUID).
				WithField("service", authz.ServiceName).
				Warn("Skipping authorization for unknown service")
			continue
		}
		for _, descriptor := range p.Methods() {
			if !descriptor.Recurring {
				continue
			}
			if err := s.perform.Enqueue(ctx, usecase.JobClassCollect, authz.GUID, descriptor.Name, 0); err != nil {
				return err
			}
			seeded++
		}
		if cached, ok := p.(provider.StreamCached); ok && cached.StreamCachedFeed() {
			if _, feeds := p.(provider.FeedProvider); feeds {
				if err := s.perform.Enqueue(ctx, usecase.JobClassStreamCache, authz.GUID, "stream", 0); err != nil {
					return err
				}
				seeded++
			}
		}
	}
	logger.GetLogger().
		WithField("authorizations", len(authzs)).
		WithField("jobs", seeded).
		Info("Seeded collection jobs")
	return nil
}

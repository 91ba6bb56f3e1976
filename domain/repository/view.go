package repository

import (
	"context"

	"social-gateway/domain/model"
)

// IView is the persistence contract for named view plans.
type IView interface {
	GetViews(ctx context.Context) ([]string, error)
	GetView(ctx context.Context, name string) (*model.View, error)
	SetView(ctx context.Context, view *model.View) error
	DeleteView(ctx context.Context, name string) error
	ViewExists(ctx context.Context, name string) (bool, error)
}

// IStreamCache persists normalized events for providers whose feeds are
// pre-populated by the collection daemon.
type IStreamCache interface {
	// RetrieveStreamCache returns rows for guid within [start, end], newest
	// first when forward is false, capped at limit.
	RetrieveStreamCache(ctx context.Context, guid string, start, end int64, limit int, forward bool) ([]model.StreamCacheRow, error)
	UpdateStreamCache(ctx context.Context, entries []model.StreamCacheRow) error
}

package repository

import (
	"context"

	"social-gateway/domain/model"
)

// IDatapoint is the append-only time-series contract. Writes are idempotent on
// (guid, method, timestamp); the latest-by-timestamp row is the present value.
type IDatapoint interface {
	WriteValue(ctx context.Context, guid, method string, timestamp int64, value string) error

	// GetValue returns the datapoint with the maximum timestamp, nil when the
	// history is empty.
	GetValue(ctx context.Context, guid, method string) (*model.Datapoint, error)

	// GetValueRange returns datapoints with start <= timestamp <= end, ordered
	// ascending by timestamp.
	GetValueRange(ctx context.Context, guid, method string, start, end int64) ([]model.Datapoint, error)

	// GetValueBefore returns the latest datapoint strictly before ts, nil when
	// none exists. Feeds the synthetic carry-forward point of interval reads.
	GetValueBefore(ctx context.Context, guid, method string, ts int64) (*model.Datapoint, error)

	WriteExpirationMarker(ctx context.Context, guid string, expiredOn int64) error

	// GetExpirationMarkers returns markers with expired_on >= since, ascending.
	GetExpirationMarkers(ctx context.Context, guid string, since int64) ([]model.ExpirationMarker, error)

	// LatestExpirationMarker returns the newest marker, nil when none exists.
	LatestExpirationMarker(ctx context.Context, guid string) (*model.ExpirationMarker, error)
}

// IGranular stores deduplicated per-item observations.
type IGranular interface {
	WriteGranularDatum(ctx context.Context, datum model.GranularDatum) error

	// FindUnwrittenGranularData filters itemIDs down to the ones not yet
	// persisted for (guid, method).
	FindUnwrittenGranularData(ctx context.Context, guid, method string, itemIDs []string) ([]string, error)

	RetrieveGranularData(ctx context.Context, guid, method string, start, end int64) ([]model.GranularDatum, error)
	GetLastGranularTimestamp(ctx context.Context, guid, method string) (int64, error)
}

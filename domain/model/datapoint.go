package model

import "time"

// Datapoint is one observation in the (guid, method) time series. Value is the
// persisted UTF-8 text: a decimal for scalar methods, JSON for object methods.
type Datapoint struct {
	GUID      string `json:"guid"`
	Method    string `json:"method"`
	Timestamp int64  `json:"timestamp"`
	Value     string `json:"value"`
}

// ExpirationMarker records that the access token behind a guid was invalidated
// at a specific time. Interval queries attach it to the preceding datapoint.
type ExpirationMarker struct {
	GUID      string `json:"guid"`
	ExpiredOn int64  `json:"expired_on"`
}

// GranularDatum is a deduplicated per-item observation, e.g. one comment seen
// during a polling cycle. (GUID, Method, ItemID) is unique.
type GranularDatum struct {
	GUID      string `json:"guid"`
	Method    string `json:"method"`
	ItemID    string `json:"item_id"`
	ActorID   string `json:"actor_id"`
	Timestamp int64  `json:"timestamp"`
}

// View is a named ordered plan of {service, method} invocations.
type View struct {
	Name       string     `json:"name"`
	Definition []ViewStep `json:"definition"`
	CreatedAt  time.Time  `json:"created_at"`
}

type ViewStep struct {
	Service string `json:"service"`
	Method  string `json:"method"`
}

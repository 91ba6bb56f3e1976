package model

// Job is the unit the background scheduler moves through the queue. Class is
// the string tag enqueuers and workers agree on; it resolves to a perform
// function through the scheduler registry.
type Job struct {
	Class            string `json:"class"`
	GUID             string `json:"guid"`
	Method           string `json:"method"`
	EnqueueTimestamp int64  `json:"enqueue_timestamp,omitempty"`
}

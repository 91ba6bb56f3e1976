package jobqueue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-gateway/domain/model"
)

// The delayed zset dedupes on the member bytes, so two enqueues of the same
// (class, guid, method) must marshal identically no matter when they happened;
// otherwise every reschedule would stack a new self-perpetuating entry.
func TestDelayedMemberIdentifiesJobWithoutTimestamps(t *testing.T) {
	first := &model.Job{Class: "collect", GUID: "g-1", Method: "time", EnqueueTimestamp: 100}
	second := &model.Job{Class: "collect", GUID: "g-1", Method: "time", EnqueueTimestamp: 9999}

	rawFirst, err := json.Marshal(delayedMember(first))
	require.NoError(t, err)
	rawSecond, err := json.Marshal(delayedMember(second))
	require.NoError(t, err)
	assert.Equal(t, rawFirst, rawSecond)

	other := &model.Job{Class: "collect", GUID: "g-1", Method: "random"}
	rawOther, err := json.Marshal(delayedMember(other))
	require.NoError(t, err)
	assert.NotEqual(t, rawFirst, rawOther)
}

package apperror_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"social-gateway/domain/apperror"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[apperror.Kind]int{
		apperror.BadParameters:           400,
		apperror.DuplicatePost:           400,
		apperror.InvalidToken:            401,
		apperror.InsufficientPermissions: 403,
		apperror.NotFound:                404,
		apperror.InvalidRedirect:         406,
		apperror.RefreshToken:            408,
		apperror.OverCapacity:            502,
		apperror.RateLimited:             503,
		apperror.UnknownResponse:         502,
	}
	for kind, want := range cases {
		assert.Equal(t, want, apperror.New(kind, "x").HTTPStatus(), string(kind))
	}
	assert.Equal(t, 500, apperror.New(apperror.Kind("BOGUS"), "x").HTTPStatus())
}

func TestAsUnwrapsWrappedError(t *testing.T) {
	inner := apperror.New(apperror.RateLimited, "slow down").WithRetryAt(1700000000).WithService("twister")
	wrapped := fmt.Errorf("perform: %w", inner)

	appErr, ok := apperror.As(wrapped)
	require.True(t, ok)
	assert.Equal(t, apperror.RateLimited, appErr.Kind)
	assert.Equal(t, int64(1700000000), appErr.RetryAt)
	assert.Equal(t, "twister", appErr.Service)
	assert.True(t, apperror.IsKind(wrapped, apperror.RateLimited))
	assert.False(t, apperror.IsKind(wrapped, apperror.NotFound))
}

func TestJSONOmitsFalsyFields(t *testing.T) {
	b, err := json.Marshal(apperror.New(apperror.NotFound, "missing"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"missing"}`, string(b))

	b, err = json.Marshal(apperror.New(apperror.RateLimited, "wait").WithRetryAt(42).WithService("fb"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"wait","retry_at":42,"service":"fb"}`, string(b))
}

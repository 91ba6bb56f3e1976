package dto

import (
	"social-gateway/domain/apperror"
	"social-gateway/domain/model"
)

// ErrorBody is the wire form of a provider error: falsy fields are omitted.
type ErrorBody struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
	RetryAt int64  `json:"retry_at,omitempty"`
	Service string `json:"service,omitempty"`
}

// ErrorEnvelope wraps an ErrorBody the way every error response is rendered.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// NewErrorEnvelope renders an apperror with its mapped code.
func NewErrorEnvelope(err *apperror.Error) ErrorEnvelope {
	return ErrorEnvelope{Error: ErrorBody{
		Message: err.Message,
		Code:    err.HTTPStatus(),
		RetryAt: err.RetryAt,
		Service: err.Service,
	}}
}

// HandlerError is the plain envelope for boundary validation failures.
type HandlerError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewHandlerError(message string) HandlerError {
	var h HandlerError
	h.Error.Message = message
	return h
}

// ViewStepError tags a failed view step with its origin.
type ViewStepError struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	RetryAt int64  `json:"retry_at,omitempty"`
}

// ViewInvokeResponse carries the partial-failure result of a view execution.
type ViewInvokeResponse struct {
	Result []map[string]interface{} `json:"result"`
	Errors []ViewStepError          `json:"errors"`
}

// StreamResponse is the merged multi-provider feed.
type StreamResponse struct {
	Data   []model.StreamEvent `json:"data"`
	Errors []ViewStepError     `json:"errors,omitempty"`
}

// StatusEntry is one per-guid liveness answer for POST /status.
type StatusEntry struct {
	GUID          string  `json:"guid"`
	Code          int     `json:"code"`
	Message       string  `json:"message,omitempty"`
	ServiceName   *string `json:"service_name"`
	IsRefreshable *bool   `json:"is_refreshable"`
}

// StatusRequest is the POST /status body.
type StatusRequest struct {
	GUIDs []string `json:"guids"`
}

// StatusResponse wraps the per-guid results.
type StatusResponse struct {
	Result []StatusEntry `json:"result"`
}

// MethodInfo describes one provider method for discovery listings.
type MethodInfo struct {
	Name string `json:"name"`
	Doc  string `json:"doc"`
}

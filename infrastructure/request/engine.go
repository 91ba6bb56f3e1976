package request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"

	"social-gateway/domain/apperror"
	"social-gateway/infrastructure/logger"
	"social-gateway/infrastructure/utils"
)

// SignFunc decorates an outbound request with authorization material.
type SignFunc func(*http.Request) error

// RefreshFunc performs one token refresh and returns the signer bound to the
// new token.
type RefreshFunc func(context.Context) (SignFunc, error)

// ErrorParser converts a non-success response into a domain error.
type ErrorParser func(status int, url string, header http.Header, body []byte) error

// Args describes one outbound provider call.
type Args struct {
	Service string // canonical provider name, tags errors
	Verb    string // GET or POST

	BaseURL string
	Path    string
	FullURL string // overrides BaseURL+Path composition when set

	Query       url.Values
	QueryStruct interface{} // struct encoded via go-querystring, merged into Query
	Form        url.Values  // POST body, form-encoded
	Header      http.Header

	Success map[int]bool // default: 200, 201, 204
	RawBody bool         // skip JSON parsing
	WithSum string       // dotted path whose list length becomes {"num": n}

	Sign       SignFunc
	ParseError ErrorParser
	Refresh    RefreshFunc

	RateKey string // guid used for per-account rate limiting; empty bypasses
}

// Response is the engine's view of a provider reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Data       interface{} // parsed JSON unless RawBody
}

// Engine issues signed provider requests through the shared gate and per-key
// limiter, classifies failures, and retries once after a token refresh.
type Engine struct {
	client  *http.Client
	gate    *Gate
	limiter *KeyedLimiter
}

func NewEngine(client *http.Client, gate *Gate, limiter *KeyedLimiter) *Engine {
	if client == nil {
		client = http.DefaultClient
	}
	return &Engine{client: client, gate: gate, limiter: limiter}
}

var defaultSuccess = map[int]bool{200: true, 201: true, 204: true}

// DefaultStatusErrors is the baseline status classification providers overlay
// with their own maps.
var DefaultStatusErrors = map[int]apperror.Kind{
	400: apperror.BadParameters,
	401: apperror.InvalidToken,
	403: apperror.InsufficientPermissions,
	404: apperror.NotFound,
	429: apperror.RateLimited,
	500: apperror.OverCapacity,
	502: apperror.OverCapacity,
	503: apperror.OverCapacity,
}

// ClassifyStatus resolves a status through an overlay map, then the defaults,
// then UnknownResponse.
func ClassifyStatus(status int, overlay map[int]apperror.Kind) apperror.Kind {
	if overlay != nil {
		if kind, ok := overlay[status]; ok {
			return kind
		}
	}
	if kind, ok := DefaultStatusErrors[status]; ok {
		return kind
	}
	return apperror.UnknownResponse
}

// Request performs the call described by args. Exactly one refresh is
// attempted per request; a second RefreshToken failure propagates, so a retry
// storm is impossible.
func (e *Engine) Request(ctx context.Context, args *Args) (*Response, error) {
	if args.RateKey != "" && e.limiter != nil {
		var resp *Response
		err := e.limiter.Do(ctx, args.RateKey, func(ctx context.Context) error {
			var innerErr error
			resp, innerErr = e.request(ctx, args)
			return innerErr
		})
		return resp, err
	}
	return e.request(ctx, args)
}

func (e *Engine) request(ctx context.Context, args *Args) (*Response, error) {
	resp, err := e.issue(ctx, args, args.Sign)
	if err == nil || args.Refresh == nil {
		return resp, err
	}
	if !apperror.IsKind(err, apperror.RefreshToken) {
		return resp, err
	}

	logger.GetLogger().WithField("service", args.Service).Info("Access token stale; refreshing once")
	sign, refreshErr := args.Refresh(ctx)
	if refreshErr != nil {
		return nil, refreshErr
	}
	return e.issue(ctx, args, sign)
}

func (e *Engine) issue(ctx context.Context, args *Args, sign SignFunc) (*Response, error) {
	fullURL, err := e.composeURL(args)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(args.Form) > 0 {
		body = strings.NewReader(args.Form.Encode())
	}
	verb := args.Verb
	if verb == "" {
		verb = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, verb, fullURL, body)
	if err != nil {
		return nil, apperror.Newf(apperror.BadParameters, "invalid request: %v", err).WithService(args.Service)
	}
	if len(args.Form) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, vs := range args.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if sign != nil {
		if err := sign(req); err != nil {
			return nil, err
		}
	}

	if e.gate != nil {
		if err := e.gate.Acquire(ctx); err != nil {
			return nil, err
		}
		defer e.gate.Release()
	}

	httpResp, err := e.client.Do(req)
	if err != nil {
		return nil, apperror.Newf(apperror.UnknownResponse, "request failed: %v", err).WithService(args.Service)
	}
	raw, err := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	if err != nil {
		return nil, apperror.Newf(apperror.UnknownResponse, "reading response: %v", err).WithService(args.Service)
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: raw}

	success := args.Success
	if success == nil {
		success = defaultSuccess
	}
	if !success[httpResp.StatusCode] {
		if args.ParseError != nil {
			return resp, args.ParseError(httpResp.StatusCode, fullURL, httpResp.Header, raw)
		}
		kind := ClassifyStatus(httpResp.StatusCode, nil)
		return resp, apperror.Newf(kind, "unexpected status %d from %s", httpResp.StatusCode, fullURL).WithService(args.Service)
	}

	if !args.RawBody && len(raw) > 0 {
		var data interface{}
		if err := json.Unmarshal(raw, &data); err != nil {
			return resp, apperror.Newf(apperror.UnknownResponse, "invalid JSON from %s: %v", fullURL, err).WithService(args.Service)
		}
		resp.Data = data
	}

	if args.WithSum != "" {
		resp.Data = map[string]interface{}{"num": countAtPath(resp.Data, args.WithSum)}
	}
	return resp, nil
}

func (e *Engine) composeURL(args *Args) (string, error) {
	values := url.Values{}
	for k, vs := range args.Query {
		for _, v := range vs {
			values.Add(k, v)
		}
	}
	if args.QueryStruct != nil {
		encoded, err := query.Values(args.QueryStruct)
		if err != nil {
			return "", fmt.Errorf("encoding query struct: %w", err)
		}
		for k, vs := range encoded {
			for _, v := range vs {
				values.Add(k, v)
			}
		}
	}
	if args.FullURL != "" {
		if len(values) == 0 {
			return args.FullURL, nil
		}
		sep := "?"
		if strings.Contains(args.FullURL, "?") {
			sep = "&"
		}
		return args.FullURL + sep + values.Encode(), nil
	}
	return utils.ComposeURL(args.BaseURL, args.Path, values), nil
}

// DigPath walks a dotted path through nested JSON objects.
func DigPath(data interface{}, path string) interface{} {
	if path == "" {
		return data
	}
	current := data
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = obj[part]
	}
	return current
}

func countAtPath(data interface{}, path string) int {
	list, ok := DigPath(data, path).([]interface{})
	if !ok {
		return 0
	}
	return len(list)
}

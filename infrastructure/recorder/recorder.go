package recorder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"time"

	"social-gateway/infrastructure/logger"
)

// Mode selects the recorder behavior.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeRecord Mode = "record"
	ModeReplay Mode = "replay"
)

// strippedParams are nonce-like query parameters removed before keying so a
// replayed request matches the recording regardless of signatures and cursors.
var strippedParams = []string{
	"oauth_nonce",
	"oauth_signature",
	"oauth_timestamp",
	"access_token",
	"oauth_body_hash",
	"oauth_consumer_key",
	"oauth_token",
	"oauth_callback",
	"max_id",
	"since_id",
}

// Recorded is one persisted exchange.
type Recorded struct {
	Code        int         `json:"code"`
	Header      http.Header `json:"headers"`
	ContentType string      `json:"content_type"`
	Body        string      `json:"body"`
}

// Filter rewrites a replayed response, keyed by URL path.
type Filter func(rec *Recorded)

// FaultConfig injects simulated latency and failures during replay.
type FaultConfig struct {
	DelayMean        float64 // seconds
	DelayStdDev      float64
	ErrorProbability float64
	ErrorStatus      int
}

// Recorder wraps an http.RoundTripper with deterministic response
// substitution. The engine receives it as an injected transport; the core
// never references it directly.
type Recorder struct {
	mode      Mode
	base      http.RoundTripper
	indexPath string
	faults    FaultConfig

	mu      sync.RWMutex
	index   map[string]*Recorded
	filters map[string]Filter
}

func New(mode Mode, base http.RoundTripper, indexPath string) *Recorder {
	if base == nil {
		base = http.DefaultTransport
	}
	r := &Recorder{
		mode:      mode,
		base:      base,
		indexPath: indexPath,
		index:     map[string]*Recorded{},
		filters:   map[string]Filter{},
	}
	if mode == ModeReplay {
		if err := r.Load(); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Recorder index not loaded")
		}
	}
	return r
}

// IndexPath returns the file the index persists to.
func (r *Recorder) IndexPath() string {
	return r.indexPath
}

// SetFaults enables simulated latency and error substitution during replay.
func (r *Recorder) SetFaults(cfg FaultConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = cfg
}

// RegisterFilter installs a replay rewrite hook for a URL path.
func (r *Recorder) RegisterFilter(path string, f Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[path] = f
}

// Key strips nonce-like parameters and returns the deterministic lookup key.
func Key(method string, u *url.URL) string {
	q := u.Query()
	for _, p := range strippedParams {
		q.Del(p)
	}
	// Sort for stable encoding regardless of caller ordering.
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := url.Values{}
	for _, k := range keys {
		for _, v := range q[k] {
			ordered.Add(k, v)
		}
	}
	stripped := *u
	stripped.RawQuery = ordered.Encode()
	return method + " " + stripped.String()
}

func (r *Recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	switch r.mode {
	case ModeRecord:
		return r.record(req)
	case ModeReplay:
		return r.replay(req)
	default:
		return r.base.RoundTrip(req)
	}
}

func (r *Recorder) record(req *http.Request) (*http.Response, error) {
	resp, err := r.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	rec := &Recorded{
		Code:        resp.StatusCode,
		Header:      resp.Header.Clone(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        string(body),
	}
	key := Key(req.Method, req.URL)
	r.mu.Lock()
	r.index[key] = rec
	r.mu.Unlock()
	return resp, nil
}

func (r *Recorder) replay(req *http.Request) (*http.Response, error) {
	key := Key(req.Method, req.URL)
	r.mu.RLock()
	rec, ok := r.index[key]
	filter := r.filters[req.URL.Path]
	faults := r.faults
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("recorder: no recording for %q", key)
	}

	if faults.DelayMean > 0 {
		delay := rand.NormFloat64()*faults.DelayStdDev + faults.DelayMean
		if delay > 0 {
			time.Sleep(time.Duration(delay * float64(time.Second)))
		}
	}

	// Copy so filters and fault substitution never mutate the stored index.
	out := &Recorded{
		Code:        rec.Code,
		Header:      rec.Header.Clone(),
		ContentType: rec.ContentType,
		Body:        rec.Body,
	}
	if filter != nil {
		filter(out)
	}
	if faults.ErrorProbability > 0 && rand.Float64() < faults.ErrorProbability {
		out.Code = faults.ErrorStatus
	}

	header := out.Header
	if header == nil {
		header = http.Header{}
	}
	if out.ContentType != "" {
		header.Set("Content-Type", out.ContentType)
	}
	return &http.Response{
		StatusCode: out.Code,
		Status:     http.StatusText(out.Code),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(out.Body))),
		Request:    req,
	}, nil
}

// Save persists the index as a JSON file.
func (r *Recorder) Save() error {
	r.mu.RLock()
	raw, err := json.MarshalIndent(r.index, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(r.indexPath, raw, 0o644)
}

// Load reads a previously saved index.
func (r *Recorder) Load() error {
	raw, err := os.ReadFile(r.indexPath)
	if err != nil {
		return err
	}
	index := map[string]*Recorded{}
	if err := json.Unmarshal(raw, &index); err != nil {
		return err
	}
	r.mu.Lock()
	r.index = index
	r.mu.Unlock()
	return nil
}

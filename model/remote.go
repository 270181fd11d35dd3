package model

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// ============================================================================
// REMOTE — Out-of-process scoring service
// ============================================================================
// POST {endpoint}  {"instances": [[x0, x1, ...]]}
// 200              {"probabilities": [[p_stay, p_leave]]}
//
// Non-200 answers, malformed bodies and probability pairs that are out of
// range are errors. There is no retry and no fallback value.
// ============================================================================

// DefaultRemoteTimeout bounds one scoring call.
const DefaultRemoteTimeout = 10 * time.Second

// Remote calls a scoring service over HTTP.
type Remote struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	err      error
}

// RemoteOption configures a Remote client.
type RemoteOption func(*Remote)

// WithHTTPClient replaces the underlying HTTP client. A nil client keeps
// the default.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		if c != nil {
			r.client = c
		}
	}
}

// WithTimeout sets the per-call timeout. It applies to whichever client is
// in use once every option has run; the last positive timeout wins.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithTimeoutString sets the timeout from a duration string such as "5s".
func WithTimeoutString(s string) RemoteOption {
	return func(r *Remote) {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			r.err = errors.Errorf("invalid timeout %q", s)
			return
		}
		WithTimeout(d)(r)
	}
}

// NewRemote creates a client for the scoring endpoint.
func NewRemote(endpoint string, opts ...RemoteOption) (*Remote, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid endpoint %q", endpoint)
	}
	r := &Remote{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultRemoteTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.timeout > 0 {
		c := *r.client
		c.Timeout = r.timeout
		r.client = &c
	}
	return r, nil
}

type scoreRequest struct {
	Instances [][]float64 `json:"instances"`
}

type scoreResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
	Error         string      `json:"error,omitempty"`
}

func (r *Remote) PredictProba(ctx context.Context, input []float64) (Probabilities, error) {
	body, err := json.Marshal(scoreRequest{Instances: [][]float64{input}})
	if err != nil {
		return Probabilities{}, errors.Wrap(err, "marshal score request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return Probabilities{}, errors.Wrap(err, "build score request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Probabilities{}, errors.Wrap(err, "score request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Probabilities{}, errors.Wrap(err, "read score response")
	}
	if resp.StatusCode != http.StatusOK {
		return Probabilities{}, errors.Errorf("scoring service returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out scoreResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Probabilities{}, errors.Wrap(err, "parse score response")
	}
	if out.Error != "" {
		return Probabilities{}, errors.Errorf("scoring service error: %s", out.Error)
	}
	if len(out.Probabilities) != 1 || len(out.Probabilities[0]) != 2 {
		return Probabilities{}, errors.New("scoring service returned no probability pair")
	}

	p := Probabilities{Stay: out.Probabilities[0][0], Leave: out.Probabilities[0][1]}
	if !valid(p) {
		return Probabilities{}, errors.Errorf("scoring service returned invalid probabilities (%g, %g)", p.Stay, p.Leave)
	}
	return p, nil
}

// valid requires both values in [0,1] and a sum close to 1.
func valid(p Probabilities) bool {
	in := func(v float64) bool { return v >= 0 && v <= 1 && !math.IsNaN(v) }
	return in(p.Stay) && in(p.Leave) && math.Abs(p.Stay+p.Leave-1) < 1e-3
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

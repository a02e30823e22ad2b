package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"siteops/pkg/config"
	"siteops/pkg/logger"
	"siteops/pkg/metrics"
	"siteops/pkg/util"
)

type (
	// Sender is what the HTTP layer depends on
	Sender interface {
		Submit(context.Context, Submission) Result
	}

	// Submitter posts contact submissions to a Web3Forms-compatible relay
	Submitter struct {
		endpoint   string
		accessKey  string
		website    string
		httpClient *http.Client
		logger     *zap.Logger
	}

	// Option customizes a Submitter
	Option func(*Submitter)

	// RejectedError is the relay's own refusal of a submission
	RejectedError struct {
		Message string
	}

	relayResponse struct {
		success bool
		message string
	}
)

const (
	DefaultEndpoint = "https://api.web3forms.com/submit"
	DefaultWebsite  = "siteops"
)

var ErrInvalidResponse = errors.New("relay returned an invalid response")

var _ Sender = (*Submitter)(nil)

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return MsgRejected
	}
	return e.Message
}

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(s *Submitter) {
		s.httpClient = c
	}
}

func NewSubmitter(cfg config.RelayConfig, logger *zap.Logger, opts ...Option) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Submitter{
		endpoint:   cfg.Endpoint,
		accessKey:  cfg.AccessKey,
		website:    cfg.Website,
		httpClient: &http.Client{},
		logger:     logger,
	}
	if s.endpoint == "" {
		s.endpoint = DefaultEndpoint
	}
	if s.website == "" {
		s.website = DefaultWebsite
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit relays sub and reports the outcome. It never panics and never
// returns an error: every failure is folded into the returned Result.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (res Result) {
	log := logger.WithTrace(ctx, s.logger)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = Failed(fmt.Errorf("relay submission panicked: %v", r))
			log.Error("Relay submission panicked", zap.Any("panic", r))
		}
	}()

	resp, err := s.send(ctx, sub)
	res, kind := classify(resp, err)

	status := "success"
	if !res.Success {
		status = "failed"
	}
	metrics.RecordRelayCallLatency(status, time.Since(start))
	metrics.IncrementRelaySubmission(status, kind)

	if res.Success {
		log.Info("Contact submission relayed",
			zap.Int("fields", len(sub)),
			zap.Duration("duration", time.Since(start)),
		)
		return res
	}
	log.Warn("Contact submission failed",
		zap.String("kind", kind),
		zap.String("message", res.Message),
		zap.Error(err),
	)
	return res
}

// classify is the single place where a relay exchange becomes a Result
func classify(resp *relayResponse, err error) (Result, string) {
	if err == nil && resp.success {
		return Succeeded(), util.KindNone
	}
	if err == nil {
		return Failed(&RejectedError{Message: resp.message}), "rejected"
	}
	return Failed(err), util.ClassifyError(err)
}

func (s *Submitter) send(ctx context.Context, sub Submission) (*relayResponse, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(sub.payload(s.accessKey, s.website))
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.endpoint, bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read relay response: %w", err)
	}

	// The relay answers with a JSON verdict on 4xx as well as 2xx
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: HTTP %d", ErrInvalidResponse, resp.StatusCode)
	}
	parsed := gjson.ParseBytes(raw)
	return &relayResponse{
		success: truthy(parsed.Get("success")),
		message: parsed.Get("message").String(),
	}, nil
}

// truthy follows JavaScript truthiness; a missing field is false
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True, gjson.JSON:
		return true
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	default:
		return false
	}
}

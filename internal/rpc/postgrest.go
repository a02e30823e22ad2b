package rpc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"siteops/pkg/config"
	"siteops/pkg/logger"
	"siteops/pkg/trace"
)

// PostgRESTBackend calls database functions through the Supabase REST
// gateway at <base>/rest/v1/rpc/<name>
type PostgRESTBackend struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Backend = (*PostgRESTBackend)(nil)

const maxErrorBody = 64 << 10

func NewPostgRESTBackend(cfg config.BackendConfig, logger *zap.Logger) *PostgRESTBackend {
	return &PostgRESTBackend{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

func (b *PostgRESTBackend) Call(ctx context.Context, procedure string) error {
	endpoint := b.baseURL + "/rest/v1/rpc/" + url.PathEscape(procedure)

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, bytes.NewReader([]byte("{}")),
	)
	if err != nil {
		return fmt.Errorf("failed to build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", b.serviceKey)
	req.Header.Set("Authorization", "Bearer "+b.serviceKey)
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName, traceID)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return &CallError{Procedure: procedure, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	callErr := &CallError{Procedure: procedure, Status: resp.StatusCode}
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		callErr.Code = parsed.Get("code").String()
		callErr.Message = parsed.Get("message").String()
		callErr.Hint = parsed.Get("hint").String()
	}
	if callErr.Message == "" {
		callErr.Message = http.StatusText(resp.StatusCode)
	}

	logger.WithTrace(ctx, b.logger).Debug("PostgREST rpc rejected",
		zap.String("procedure", procedure),
		zap.Int("status", resp.StatusCode),
		zap.String("body", string(body)),
	)
	return callErr
}

func (b *PostgRESTBackend) Close() {
	b.httpClient.CloseIdleConnections()
}

package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"siteops/internal/httpserver"
	"siteops/internal/relay"
	"siteops/pkg/trace"
	"siteops/pkg/util"
)

type fakeSender struct {
	mu      sync.Mutex
	result  relay.Result
	got     []relay.Submission
	traceID string
}

func (f *fakeSender) Submit(ctx context.Context, sub relay.Submission) relay.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, sub)
	f.traceID = trace.FromContext(ctx)
	return f.result
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(
	sender relay.Sender, deduper *util.Deduper, checks map[string]httpserver.ReadinessCheck,
) *httpserver.Router {
	h := httpserver.NewContactHandler(sender, deduper, zap.NewNop())
	return httpserver.NewRouter(h, zap.NewNop(), checks)
}

func post(r *httpserver.Router, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) relay.Result {
	t.Helper()
	var res relay.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

const validBody = `{"name":"Ada","email":"ada@example.org","message":"Hi"}`

func TestContactSuccess(t *testing.T) {
	sender := &fakeSender{result: relay.Succeeded()}
	r := newRouter(sender, nil, nil)

	w := post(r, validBody, http.Header{trace.HeaderName: {"trace-42"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, relay.Succeeded(), decode(t, w))
	assert.Equal(t, "trace-42", w.Header().Get(trace.HeaderName))
	require.Len(t, sender.got, 1)
	assert.Equal(t, "Ada", sender.got[0]["name"])
	assert.Equal(t, "trace-42", sender.traceID)
}

func TestContactRelayFailure(t *testing.T) {
	sender := &fakeSender{result: relay.Failed(&relay.RejectedError{Message: "Invalid access key"})}
	r := newRouter(sender, nil, nil)

	w := post(r, validBody, nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	res := decode(t, w)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid access key", res.Message)
	assert.Equal(t, "*relay.RejectedError", res.Details["name"])
	assert.NotEmpty(t, w.Header().Get(trace.HeaderName))
}

func TestContactMalformed(t *testing.T) {
	sender := &fakeSender{}
	r := newRouter(sender, nil, nil)

	for _, body := range []string{"", "{", `{"name":42}`} {
		w := post(r, body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Invalid request.", decode(t, w).Message)
	}
	assert.Empty(t, sender.got)
}

func TestContactNameRequired(t *testing.T) {
	sender := &fakeSender{}
	r := newRouter(sender, nil, nil)

	w := post(r, `{"email":"ada@example.org"}`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Name is required.", decode(t, w).Message)
	assert.Empty(t, sender.got)
}

func TestContactDuplicate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	deduper := util.NewDeduper(rdb, time.Minute, zap.NewNop())
	sender := &fakeSender{result: relay.Succeeded()}
	r := newRouter(sender, deduper, nil)

	assert.Equal(t, http.StatusOK, post(r, validBody, nil).Code)

	w := post(r, validBody, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, relay.MsgDuplicate, decode(t, w).Message)
	assert.Len(t, sender.got, 1)
}

func TestContactDuplicateIgnoresName(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	deduper := util.NewDeduper(rdb, time.Minute, zap.NewNop())
	sender := &fakeSender{result: relay.Succeeded()}
	r := newRouter(sender, deduper, nil)

	assert.Equal(t, http.StatusOK, post(r, validBody, nil).Code)

	renamed := `{"name":"Ada Lovelace","email":"ada@example.org","message":"Hi"}`
	assert.Equal(t, http.StatusConflict, post(r, renamed, nil).Code)

	otherMessage := `{"name":"Ada","email":"ada@example.org","message":"Hello again"}`
	assert.Equal(t, http.StatusOK, post(r, otherMessage, nil).Code)
	assert.Len(t, sender.got, 2)
}

func TestContactFailureReleasesDedup(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	deduper := util.NewDeduper(rdb, time.Minute, zap.NewNop())
	sender := &fakeSender{result: relay.Failed(errors.New("quota"))}
	r := newRouter(sender, deduper, nil)

	assert.Equal(t, http.StatusBadGateway, post(r, validBody, nil).Code)
	assert.Equal(t, http.StatusBadGateway, post(r, validBody, nil).Code)
	assert.Len(t, sender.got, 2)
}

func TestHealthAndReady(t *testing.T) {
	ready := true
	r := newRouter(&fakeSender{}, nil, map[string]httpserver.ReadinessCheck{
		"redis": func(context.Context) error {
			if ready {
				return nil
			}
			return errors.New("connection refused")
		},
	})

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		w := httptest.NewRecorder()
		r.Engine.ServeHTTP(w, httptest.NewRequest(method, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	ready = false
	w = httptest.NewRecorder()
	r.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis_not_ready")
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(&fakeSender{result: relay.Succeeded()}, nil, nil)
	post(r, validBody, nil)

	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_request_duration_seconds")
}

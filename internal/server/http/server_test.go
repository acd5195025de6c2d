package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	cfgpkg "github.com/rzbill/zkq/internal/config"
	"github.com/rzbill/zkq/internal/coord/coordtest"
	"github.com/rzbill/zkq/internal/runtime"
	logpkg "github.com/rzbill/zkq/pkg/log"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.QueueRoot = "/queues"
	rt, err := runtime.Open(context.Background(), runtime.Options{
		Config: cfg,
		Conn:   coordtest.New(),
		NowMs:  func() int64 { return 1000 },
	})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	s := New(rt, logger)
	t.Cleanup(s.Close)
	return s
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestOfferAndPollHandlers(t *testing.T) {
	s := newTestServer(t)

	offerBody := `{"queue":"jobs","payload":"aGVsbG8="}`
	req := httptest.NewRequest(http.MethodPost, "/v1/bq/offer", strings.NewReader(offerBody))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("offer status: %d body=%s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/bq/poll?queue=jobs", nil)
	w = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("poll status: %d body=%s", w.Code, w.Body.String())
	}
	var resp payloadResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Found || string(resp.Payload) != "hello" {
		t.Fatalf("unexpected poll response: %+v", resp)
	}
}

func TestOfferAndWaitTimeoutHandler(t *testing.T) {
	s := newTestServer(t)

	body := `{"queue":"rpc","payload":"aGk=","timeoutMillis":10}`
	req := httptest.NewRequest(http.MethodPost, "/v1/rrq/offerAndWait", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", w.Code, w.Body.String())
	}
	var resp offerAndWaitResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.TimedOut {
		t.Fatalf("expected timeout, got %+v", resp)
	}
}

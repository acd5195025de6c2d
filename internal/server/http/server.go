package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rzbill/zkq/internal/coord"
	"github.com/rzbill/zkq/internal/queue/bq"
	"github.com/rzbill/zkq/internal/queue/rrq"
	"github.com/rzbill/zkq/internal/runtime"
	logpkg "github.com/rzbill/zkq/pkg/log"
)

// Server exposes queue operations over plain JSON HTTP, mirroring the
// admin-facing surface a cobra CLI client talks to.
type Server struct {
	rt     *runtime.Runtime
	log    logpkg.Logger
	srv    *http.Server
	lis    net.Listener
	accept bq.Accept

	mu   sync.Mutex
	bqs  map[string]*bq.Queue
	rrqs map[string]*rrq.RRQ
}

// New builds a Server wired to rt, logging through logger.
func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	accept := bq.AcceptAll
	if expr := rt.Config().Accept.CELExpression; expr != "" {
		if a, err := bq.CompileAccept(expr); err == nil {
			accept = a
		} else {
			logger.Warn("invalid accept expression, falling back to accept-all", logpkg.Str("expr", expr), logpkg.Err(err))
		}
	}

	mux := http.NewServeMux()
	s := &Server{
		rt:     rt,
		log:    logger,
		accept: accept,
		bqs:    make(map[string]*bq.Queue),
		rrqs:   make(map[string]*rrq.RRQ),
		srv:    &http.Server{Handler: cors(withRequestID(mux, logger))},
	}

	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/bq/offer", s.handleBQOffer)
	mux.HandleFunc("/v1/bq/peek", s.handleBQPeek)
	mux.HandleFunc("/v1/bq/poll", s.handleBQPoll)
	mux.HandleFunc("/v1/bq/take", s.handleBQTake)
	mux.HandleFunc("/v1/bq/remove", s.handleBQRemove)
	mux.HandleFunc("/v1/bq/removeMany", s.handleBQRemoveMany)
	mux.HandleFunc("/v1/bq/peekElements", s.handleBQPeekElements)
	mux.HandleFunc("/v1/rrq/offerAndWait", s.handleRRQOfferAndWait)
	mux.HandleFunc("/v1/rrq/removeWithResponse", s.handleRRQRemoveWithResponse)
	mux.HandleFunc("/v1/rrq/awaitPendingResponses", s.handleRRQAwaitPendingResponses)
	mux.HandleFunc("/v1/rrq/containsRequestWithId", s.handleRRQContainsRequestWithId)
	mux.HandleFunc("/v1/rrq/tailId", s.handleRRQTailId)
	return s
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases all opened queues and the listener.
func (s *Server) Close() {
	s.mu.Lock()
	for _, q := range s.bqs {
		q.Close()
	}
	for _, q := range s.rrqs {
		q.Close()
	}
	s.mu.Unlock()
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// withRequestID assigns a correlation ID to every inbound request,
// echoes it back via the X-Request-Id header, and scopes the logger
// used for the remainder of the request to that ID.
func withRequestID(next http.Handler, logger logpkg.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		reqLog := logger.WithField("request_id", id)
		ctx := withRequestLogger(r.Context(), reqLog)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestLoggerKey struct{}

func withRequestLogger(ctx context.Context, l logpkg.Logger) context.Context {
	return context.WithValue(ctx, requestLoggerKey{}, l)
}

func requestLogger(ctx context.Context, fallback logpkg.Logger) logpkg.Logger {
	if l, ok := ctx.Value(requestLoggerKey{}).(logpkg.Logger); ok {
		return l
	}
	return fallback
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) baseQueue(ctx context.Context, name string) (*bq.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.bqs[name]; ok {
		return q, nil
	}
	q, err := s.rt.OpenBaseQueue(ctx, name, 0)
	if err != nil {
		return nil, err
	}
	s.bqs[name] = q
	return q, nil
}

func (s *Server) requestResponseQueue(ctx context.Context, name string) (*rrq.RRQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.rrqs[name]; ok {
		return q, nil
	}
	q, err := s.rt.OpenRequestResponseQueue(ctx, name, 0)
	if err != nil {
		return nil, err
	}
	s.rrqs[name] = q
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, bq.ErrNoSuchElement):
		status = http.StatusNotFound
	case errors.Is(err, bq.ErrQueueFull):
		status = http.StatusConflict
	case errors.Is(err, coord.ErrNoNode):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		requestLogger(r.Context(), s.log).Error("request failed", logpkg.Err(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryName(r *http.Request) string { return r.URL.Query().Get("queue") }

func queryWaitMillis(r *http.Request) int64 {
	v := r.URL.Query().Get("waitMillis")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

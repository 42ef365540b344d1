// Package relay serves the inference wire over HTTP so that the companion
// can reach a command line model running on another machine.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/koscakluka/ema-pet/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultTimeout = 120 * time.Second

	requestIDHeader = "X-Request-ID"
	maxRequestBytes = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Server answers /ask and /monologue with an inference client.
type Server struct {
	addr      string
	ask       llms.InferenceClient
	monologue llms.InferenceClient
	timeout   time.Duration
	handler   http.Handler
}

type ServerOption func(*Server)

// WithMonologueClient answers /monologue with a different client, for
// example one without tools. /ask's client is used otherwise.
func WithMonologueClient(client llms.InferenceClient) ServerOption {
	return func(s *Server) { s.monologue = client }
}

func WithTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func NewServer(addr string, ask llms.InferenceClient, opts ...ServerOption) *Server {
	s := &Server{
		addr:    addr,
		ask:     ask,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.monologue == nil {
		s.monologue = s.ask
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)

	r.Get("/ping", s.handlePing)
	r.Post("/ask", s.handlePrompt("ask", func() llms.InferenceClient { return s.ask }))
	r.Post("/monologue", s.handlePrompt("monologue", func() llms.InferenceClient { return s.monologue }))

	s.handler = otelhttp.NewHandler(r, "relay")
	return s
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is done and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay listening", "addr", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown relay: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("pong"))
}

func (s *Server) handlePrompt(route string, client func() llms.InferenceClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "relay "+route)
		defer span.End()
		span.SetAttributes(attribute.String("relay.request_id", w.Header().Get(requestIDHeader)))

		var request llms.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid request body")
			writeJSON(w, http.StatusBadRequest, llms.Response{Error: "invalid request body: " + err.Error()})
			return
		}

		askedPrompts.Add(ctx, 1, metric.WithAttributes(attribute.String("relay.route", route)))
		writeJSON(w, http.StatusOK, llms.Response{Response: s.answer(ctx, client(), request.Prompt)})
	}
}

// answer never fails: errors are turned into text for the companion to
// show, as the wire has no separate error status for them.
func (s *Server) answer(ctx context.Context, client llms.InferenceClient, prompt string) string {
	if client == nil {
		return "Error: " + llms.ErrNotConfigured.Error()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := client.Ask(ctx, prompt)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, llms.ErrTimeout):
		logger.Warn("relay prompt timed out", "timeout", s.timeout)
		return fmt.Sprintf("Error: model timed out (%s)", s.timeout)
	case err != nil:
		logger.Error("relay prompt failed", "error", err)
		return "Error: " + err.Error()
	case response == "":
		return llms.EmptyReply
	default:
		return response
	}
}

func writeJSON(w http.ResponseWriter, status int, body llms.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to write relay response", "error", err)
	}
}

// requestID tags every request with an id, reusing the caller's when set.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

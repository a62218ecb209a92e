package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rickgao/notify-relay/internal/cache"
	"github.com/rickgao/notify-relay/internal/catchup"
	"github.com/rickgao/notify-relay/internal/model"
	"github.com/rickgao/notify-relay/internal/registry"
	"github.com/rickgao/notify-relay/internal/sse"
)

// NotificationStore is the store slice consumed by the read/write routes.
type NotificationStore interface {
	Insert(ctx context.Context, ownerID, message string) (model.NotificationRecord, error)
	FetchByID(ctx context.Context, id int64) (*model.NotificationRecord, error)
}

// EventPublisher publishes notification events after a write.
type EventPublisher interface {
	Publish(ctx context.Context, event model.NotificationEvent) error
}

// SubscriptionState reports broker subscription liveness for health checks.
type SubscriptionState interface {
	IsSubscribed() bool
}

// Deps holds the collaborators the HTTP surface delivers through.
type Deps struct {
	Registry  *registry.Registry
	Catchup   *catchup.Loader
	Store     NotificationStore
	Cache     cache.Store
	Publisher EventPublisher

	// Health probes; any of these may be nil and is then skipped.
	DB         *pgxpool.Pool
	Redis      *redis.Client
	Subscriber SubscriptionState
}

// Server serves the relay's HTTP routes.
type Server struct {
	logger   *slog.Logger
	deps     Deps
	pushCfg  sse.Config
	cacheTTL time.Duration
}

// New creates a Server.
func New(deps Deps, pushCfg sse.Config, cacheTTL time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL == 0 {
		cacheTTL = cache.DefaultTTL
	}
	return &Server{
		logger:   logger,
		deps:     deps,
		pushCfg:  pushCfg,
		cacheTTL: cacheTTL,
	}
}

// Handler builds the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /events/{uid}", s.handleEvents)
	mux.HandleFunc("GET /read/{id}", s.handleRead)
	mux.HandleFunc("POST /write/{key}/{value}/{uid}", s.handleWrite)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "notification relay",
		"routes": []string{
			"GET /events/{uid}",
			"GET /read/{id}",
			"POST /write/{key}/{value}/{uid}",
			"GET /healthz",
		},
	})
}

// handleEvents is the SSE push endpoint. The connection is registered first,
// then catch-up replays any records that arrived while the client was
// offline, then the serve loop drains live routed events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	conn := sse.NewConn(uid, s.pushCfg, s.logger)
	s.deps.Registry.Register(uid, conn)
	defer s.deps.Registry.Release(uid, conn)
	defer conn.Close()

	s.deps.Catchup.Run(r.Context(), uid, conn)

	err := conn.Serve(r.Context(), w, flusher)
	switch {
	case err == nil:
		s.logger.Info("push stream closed by client", "client", uid)
	case errors.Is(err, sse.ErrClosed):
		s.logger.Info("push stream superseded", "client", uid)
	default:
		s.logger.Warn("push stream ended with error", "client", uid, "error", err)
	}
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	recordID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id must be numeric"})
		return
	}

	opts := []cache.Option{cache.WithTTL(s.cacheTTL), cache.WithLogger(s.logger)}
	if r.URL.Query().Get("refresh") == "true" {
		opts = append(opts, cache.WithRefresh())
	}

	rec, err := cache.Cached(r.Context(), s.deps.Cache, cache.Key("notification", id),
		func(ctx context.Context) (*model.NotificationRecord, error) {
			return s.deps.Store.FetchByID(ctx, recordID)
		}, opts...)
	if err != nil {
		s.writeError(w, "read", err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value := r.PathValue("value")
	uid := r.PathValue("uid")

	message := fmt.Sprintf("Key '%s' was updated to '%s'", key, value)

	_, err := cache.Cached(r.Context(), s.deps.Cache, cache.Key("notification", key),
		func(ctx context.Context) (model.NotificationRecord, error) {
			return s.deps.Store.Insert(ctx, uid, message)
		}, cache.WithTTL(s.cacheTTL), cache.WithLogger(s.logger))
	if err != nil {
		s.writeError(w, "write", err)
		return
	}

	payload, err := json.Marshal(model.EventPayload{
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.writeError(w, "write", err)
		return
	}

	event := model.NotificationEvent{UserID: uid, Data: payload}
	if err := s.deps.Publisher.Publish(r.Context(), event); err != nil {
		s.writeError(w, "publish", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Components: make(map[string]any),
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}
	}

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
			health.Status = "unhealthy"
			health.Components["redis"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["redis"] = "connected"
		}
	}

	if s.deps.Subscriber != nil {
		subscribed := s.deps.Subscriber.IsSubscribed()
		health.Components["subscription"] = map[string]bool{"live": subscribed}
		if !subscribed && health.Status == "healthy" {
			health.Status = "degraded"
		}
	}

	health.Components["connections"] = s.deps.Registry.Len()

	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

// writeError maps an operational error to a response. Cache errors carry
// their own status code; anything else is a 500.
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	var sc cache.StatusCoder
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}

	s.logger.Error("request failed", "op", op, "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

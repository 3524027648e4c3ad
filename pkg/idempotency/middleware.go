package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
	"github.com/dmehra2102/restaurant-order-system/pkg/httpx"
)

const HeaderKey = "Idempotency-Key"

const inFlight = "in-flight"

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

// EventKey identifies a relayed outbox row regardless of which Kafka offset
// it was redelivered at.
func (s *Store) EventKey(outboxID string) string {
	return "idem:outbox:" + outboxID
}

func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}

	return !ok, nil
}

type storedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// Middleware replays the stored response for a repeated Idempotency-Key and
// answers 409 while the first request with that key is still running.
// Requests without the header pass through untouched. scope namespaces keys,
// usually by the authenticated caller.
func (s *Store) Middleware(log *slog.Logger, scope func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			redisKey := fmt.Sprintf("idem:http:%s:%s:%s", scope(r), r.URL.Path, key)
			ctx := r.Context()

			claimed, err := s.rdb.SetNX(ctx, redisKey, inFlight, s.ttl).Result()
			if err != nil {
				log.Error("idempotency check failed", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				s.replay(w, r, log, redisKey)
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				// let the client retry server-side failures
				_ = s.rdb.Del(context.WithoutCancel(ctx), redisKey).Err()
				return
			}
			raw, _ := json.Marshal(storedResponse{Status: rec.status, Body: rec.body.Bytes()})
			if err := s.rdb.Set(context.WithoutCancel(ctx), redisKey, raw, s.ttl).Err(); err != nil {
				log.Error("idempotency store failed", "key", key, "err", err)
			}
		})
	}
}

func (s *Store) replay(w http.ResponseWriter, r *http.Request, log *slog.Logger, redisKey string) {
	val, err := s.rdb.Get(r.Context(), redisKey).Result()
	if errors.Is(err, redis.Nil) || val == inFlight {
		httpx.WriteError(w, log, fmt.Errorf("request with this idempotency key is in progress: %w", apperr.ErrConflict))
		return
	}
	if err != nil {
		httpx.WriteError(w, log, fmt.Errorf("idempotency lookup: %w", err))
		return
	}
	var resp storedResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		httpx.WriteError(w, log, fmt.Errorf("decode stored response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

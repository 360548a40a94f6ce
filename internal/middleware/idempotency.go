package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// IdempotencyKeyHeader is the request header clients set to make a mutation safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

const idempotencyPending = "pending"

// IdempotencyStore remembers the outcome of mutating requests keyed by the
// caller-supplied Idempotency-Key.
type IdempotencyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewIdempotencyStore constructs the store. A nil client disables the middleware.
func NewIdempotencyStore(client redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl, prefix: "settlement:idem:"}
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// reserve claims the key. It returns the stored response when the key was already used.
func (s *IdempotencyStore) reserve(ctx context.Context, key string) (claimed bool, prior *storedResponse, err error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, idempotencyPending, s.ttl).Result()
	if err != nil {
		return false, nil, err
	}
	if ok {
		return true, nil, nil
	}
	raw, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET; treat as in flight so the client retries.
			return false, nil, nil
		}
		return false, nil, err
	}
	if raw == idempotencyPending {
		return false, nil, nil
	}
	var resp storedResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return false, nil, err
	}
	return false, &resp, nil
}

func (s *IdempotencyStore) complete(ctx context.Context, key string, resp storedResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, raw, s.ttl).Err()
}

func (s *IdempotencyStore) release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the first response for a repeated Idempotency-Key from the
// same user on the same route. Requests without the header pass through.
// Server errors release the key so the request can be retried.
func Idempotency(store *IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if store == nil || store.client == nil || key == "" {
			c.Next()
			return
		}
		logger := GetLoggerFromCtx(c.Request.Context())
		userID, _ := GetUserIDFromContext(c)
		scoped := userID + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		claimed, prior, err := store.reserve(c.Request.Context(), scoped)
		if err != nil {
			logger.Error("Idempotency store unavailable", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Idempotency store unavailable"})
			return
		}
		if prior != nil {
			logger.Info("Replaying idempotent response", slog.String("idempotency_key", key))
			c.Header("Idempotent-Replayed", "true")
			c.Data(prior.Status, prior.ContentType, prior.Body)
			c.Abort()
			return
		}
		if !claimed {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "A request with this Idempotency-Key is still in progress"})
			return
		}

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		// The request may be cancelled by now; the bookkeeping must still land.
		ctx := context.WithoutCancel(c.Request.Context())
		status := writer.Status()
		if status >= http.StatusInternalServerError {
			if err := store.release(ctx, scoped); err != nil {
				logger.Error("Failed to release idempotency key", slog.String("error", err.Error()))
			}
			return
		}
		resp := storedResponse{Status: status, ContentType: writer.Header().Get("Content-Type"), Body: writer.body.Bytes()}
		if err := store.complete(ctx, scoped, resp); err != nil {
			logger.Error("Failed to store idempotent response", slog.String("error", err.Error()))
		}
	}
}

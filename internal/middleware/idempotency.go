package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payledger/pkg/auth"
	"github.com/GlebRadaev/payledger/pkg/utils"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	idempotencyPrefix = "idempotency:v1:"
	inProgressMarker  = "__in_progress__"
	cacheTimeout      = 2 * time.Second
)

type storedResponse struct {
	Fingerprint string            `json:"fingerprint"`
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers"`
}

// responseRecorder passes the response through and keeps a copy of it.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated Idempotency-Key of
// the same account. A key sent again with another method, path or body is
// rejected with 409. Requests without the header, or without a cache, pass
// through; the payment service still deduplicates them by key. Server errors
// are not stored so the client can retry.
func Idempotency(cache redis.Cmdable, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if cache == nil || key == "" || !unsafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				utils.RespondWithErrorCode(w, http.StatusBadRequest, "invalid_request", "Can't read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := requestFingerprint(r.Method, r.URL.Path, body)

			cacheKey := idempotencyPrefix + accountScope(r.Context()) + ":" + key
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), cacheTimeout)
			defer cancel()

			cached, err := cache.Get(ctx, cacheKey).Result()
			switch {
			case err == nil:
				replay(w, cached, key, fingerprint)
				return
			case !errors.Is(err, redis.Nil):
				zap.L().Warn("idempotency lookup failed, passing through", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
			if err != nil {
				zap.L().Warn("idempotency reservation failed, passing through", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				utils.RespondWithErrorCode(w, http.StatusConflict, "request_in_progress", "A request with this Idempotency-Key is still being processed")
				return
			}

			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status == 0 || rec.status >= http.StatusInternalServerError {
				cache.Del(ctx, cacheKey)
				return
			}
			stored := storedResponse{
				Fingerprint: fingerprint,
				Status:      rec.status,
				Body:        rec.body.String(),
				Headers:     map[string]string{},
			}
			for name := range rec.Header() {
				if name == "Content-Length" {
					continue
				}
				stored.Headers[name] = rec.Header().Get(name)
			}
			payload, err := json.Marshal(stored)
			if err == nil {
				err = cache.Set(ctx, cacheKey, payload, ttl).Err()
			}
			if err != nil {
				zap.L().Error("can't store idempotent response", zap.String("key", key), zap.Error(err))
				cache.Del(ctx, cacheKey)
			}
		})
	}
}

func replay(w http.ResponseWriter, cached, key, fingerprint string) {
	if cached == inProgressMarker {
		utils.RespondWithErrorCode(w, http.StatusConflict, "request_in_progress", "A request with this Idempotency-Key is still being processed")
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		zap.L().Warn("can't decode stored idempotent response", zap.String("key", key), zap.Error(err))
		utils.RespondWithErrorCode(w, http.StatusConflict, "duplicate_request", "Duplicate request")
		return
	}
	if stored.Fingerprint != "" && stored.Fingerprint != fingerprint {
		utils.RespondWithErrorCode(w, http.StatusConflict, "idempotency_key_reused", "Idempotency-Key was used for a different request")
		return
	}
	for name, value := range stored.Headers {
		w.Header().Set(name, value)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(stored.Status)
	if _, err := w.Write([]byte(stored.Body)); err != nil {
		zap.L().Error("can't write replayed response", zap.Error(err))
	}
}

func requestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + "\n" + path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func accountScope(ctx context.Context) string {
	if id, ok := auth.AccountID(ctx); ok {
		return strconv.Itoa(id)
	}
	return "anon"
}

func unsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

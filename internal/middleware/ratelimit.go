package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payledger/pkg/utils"
)

const (
	rateLimitPrefix   = "rl:login:"
	rateLimitWindow   = time.Minute
	defaultLoginLimit = 5
	maxLoginBody      = 1 << 16
)

// LoginRateLimit allows perMinute login attempts per email, or per client IP
// when the body carries no email. Cache failures let the request through, and
// a counter found without a window gets one again.
func LoginRateLimit(cache redis.Cmdable, perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = defaultLoginLimit
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cache == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := rateLimitPrefix + loginSubject(r)
			ctx := r.Context()
			count, err := cache.Incr(ctx, key).Result()
			if err != nil {
				zap.L().Warn("rate limit check failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := cache.Expire(ctx, key, rateLimitWindow).Err(); err != nil {
					zap.L().Warn("can't set rate limit window", zap.Error(err))
					cache.Del(ctx, key)
					next.ServeHTTP(w, r)
					return
				}
			}
			if count > int64(perMinute) {
				retryAfter := rateLimitWindow
				ttl, err := cache.TTL(ctx, key).Result()
				switch {
				case err == nil && ttl > 0:
					retryAfter = ttl
				case err == nil:
					// Counter has no expiry, give it a window again.
					if err := cache.Expire(ctx, key, rateLimitWindow).Err(); err != nil {
						zap.L().Warn("can't restore rate limit window", zap.Error(err))
					}
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds()+0.5)))
				utils.RespondWithErrorCode(w, http.StatusTooManyRequests, "rate_limited", "Too many login attempts, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// loginSubject reads the email from the body and puts the body back.
func loginSubject(r *http.Request) string {
	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxLoginBody))
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err == nil {
			var req struct {
				Email string `json:"email"`
			}
			if json.Unmarshal(body, &req) == nil {
				if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
					return email
				}
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

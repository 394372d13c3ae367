package app

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"woorkroom-web/credential"
)

// Guard reports whether store grants access to protected routes. Any non-empty token
// does: it is neither parsed nor checked with the remote API.
func Guard(ctx context.Context, store credential.Store) bool {
	return credential.Present(ctx, store)
}

// GuardMiddleware lets requests through when the browser holds a token and redirects
// everybody else to the configured entry point.
func (a *App) GuardMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := a.Credentials.Open(w, r)
		if !Guard(r.Context(), store) {
			// The guarded page must not be replayed from cache after the redirect.
			w.Header().Set("Cache-Control", "no-store")
			http.Redirect(w, r, a.Options.Guard.EntryPoint, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLoggerMiddleware logs one line per request.
func (a *App) RequestLoggerMiddleware(next http.Handler) http.Handler {
	return requestLogger(a.Logger)(next)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("http request", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
		})
	}
}

// RateLimitMiddleware bounds form submissions per client IP.
func (a *App) RateLimitMiddleware(next http.Handler) http.Handler {
	if a.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.limiter.allow(clientIP(r)) {
			a.Logger.Warn("submission rate limited", zap.String("ip", r.RemoteAddr))
			http.Error(w, "Too many attempts. Please wait a moment and try again.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port chi's RealIP may have left in RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

const limiterClientTTL = 10 * time.Minute

type limitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps a token bucket per client IP. Idle buckets are swept lazily.
type ipLimiter struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	clients   map[string]*limitedClient
	lastSweep time.Time
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	if rps <= 0 {
		return nil
	}
	return &ipLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		clients:   make(map[string]*limitedClient),
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > limiterClientTTL {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > limiterClientTTL {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &limitedClient{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

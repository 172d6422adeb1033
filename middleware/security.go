package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"local-services-server/config"
)

const maxRequestBody = 10 * 1024 * 1024

// RateLimiter keeps one token bucket per key and forgets idle keys.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	mutex    sync.Mutex
	idleTTL  time.Duration
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		idleTTL:  time.Hour,
	}
}

// GetLimiterWithConfig returns the limiter for key, creating it with the given limits.
func (rl *RateLimiter) GetLimiterWithConfig(key string, limit rate.Limit, burst int) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(limit, burst)
		rl.limiters[key] = limiter
	}
	rl.lastSeen[key] = time.Now()
	return limiter
}

// Cleanup removes limiters idle for longer than the idle TTL.
func (rl *RateLimiter) Cleanup() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	removed := 0
	now := time.Now()
	for key, t := range rl.lastSeen {
		if now.Sub(t) > rl.idleTTL {
			delete(rl.limiters, key)
			delete(rl.lastSeen, key)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) Size() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.limiters)
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}

// limitsFor picks the bucket size per route.
func limitsFor(method, path string) (rate.Limit, int) {
	switch {
	case strings.HasPrefix(path, "/api/admin/auth/login"):
		return rate.Every(time.Minute / 5), 5
	case method == http.MethodPost && path == "/api/bookings":
		return rate.Every(time.Minute / 10), 10
	case strings.HasSuffix(path, "/photos"):
		return rate.Every(time.Minute / 10), 5
	case strings.HasPrefix(path, "/api/admin/ws"):
		return rate.Every(time.Second), 5
	default:
		return rate.Every(time.Second), 60
	}
}

// RateLimitMiddleware limits requests per client IP and route.
func RateLimitMiddleware(rl *RateLimiter, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		clientIP := c.ClientIP()
		lim, burst := limitsFor(c.Request.Method, path)
		key := c.Request.Method + " " + path + "|" + clientIP

		if !rl.GetLimiterWithConfig(key, lim, burst).Allow() {
			logger.Warn().Str("method", c.Request.Method).Str("path", path).Str("client_ip", clientIP).Msg("🚫 Rate limit exceeded")
			c.Header("Retry-After", "60")
			AbortWithError(c, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'; img-src 'self' data: https:; connect-src 'self' ws: wss:;")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}

// InputValidationMiddleware rejects oversized bodies and unexpected content types.
func InputValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxRequestBody {
			AbortWithError(c, http.StatusRequestEntityTooLarge, "Request body exceeds maximum size limit")
			return
		}

		method := c.Request.Method
		if (method == http.MethodPost || method == http.MethodPut) && c.Request.ContentLength != 0 {
			contentType := c.GetHeader("Content-Type")
			if !strings.Contains(contentType, "application/json") &&
				!strings.Contains(contentType, "multipart/form-data") &&
				!strings.Contains(contentType, "application/x-www-form-urlencoded") {
				AbortWithError(c, http.StatusUnsupportedMediaType, "Content-Type must be application/json or multipart/form-data")
				return
			}
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBody)
		}
		c.Next()
	}
}

// CORS builds the cors middleware from the server config. A "*" origin
// allows every origin without credentials.
func CORS(cfg config.ServerConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	allowAll := len(cfg.AllowedOrigins) == 0
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(corsConfig)
}

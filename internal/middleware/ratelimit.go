package middleware

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/okamura/project-management-api/internal/errors"
	"golang.org/x/time/rate"
)

// limiterStore keeps a token bucket per client key with periodic cleanup of
// idle entries.
type limiterStore struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(rps float64, burst int) *limiterStore {
	s := &limiterStore{
		entries: make(map[string]*limiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
	}
	go s.cleanupLoop(2 * time.Minute)
	return s
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		entry = &limiterEntry{lim: rate.NewLimiter(s.rps, s.burst)}
		s.entries[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.lim
}

func (s *limiterStore) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-s.idleTTL)
		s.mu.Lock()
		for key, entry := range s.entries {
			if entry.lastSeen.Before(cutoff) {
				delete(s.entries, key)
			}
		}
		s.mu.Unlock()
	}
}

// clientKey resolves the client IP, preferring the first X-Forwarded-For
// entry when present.
func clientKey(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(c.Request.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if c.Request.RemoteAddr != "" {
		return c.Request.RemoteAddr
	}
	return "unknown"
}

// RateLimit applies a per-IP token bucket at the API boundary. This is
// coarse backpressure, not per-user quota enforcement.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	store := newLimiterStore(rps, burst)

	return func(c *gin.Context) {
		if !store.get(clientKey(c)).Allow() {
			apierrors.Respond(c, apierrors.New(apierrors.ErrCodeRateLimited, "Too many requests"))
			c.Abort()
			return
		}
		c.Next()
	}
}

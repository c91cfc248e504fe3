package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Chin-mayyy/votebank/internal/models"
)

// LimitStore counts requests per client key over a one-minute window.
type LimitStore interface {
	Allow(ctx context.Context, key string, limit int) (remaining int, ok bool)
}

type slidingWindow struct {
	mu       sync.Mutex
	requests []time.Time
}

func (sw *slidingWindow) allow(now time.Time, limit int, window time.Duration) (int, bool) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	cutoff := now.Add(-window)
	valid := sw.requests[:0]
	for _, t := range sw.requests {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	sw.requests = valid

	if len(sw.requests) >= limit {
		return 0, false
	}
	sw.requests = append(sw.requests, now)
	return limit - len(sw.requests), true
}

func (sw *slidingWindow) idleSince(cutoff time.Time) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return len(sw.requests) == 0 || sw.requests[len(sw.requests)-1].Before(cutoff)
}

// MemoryStore keeps sliding windows in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	window  time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*slidingWindow), window: time.Minute}
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit int) (int, bool) {
	s.mu.Lock()
	sw, ok := s.windows[key]
	if !ok {
		sw = &slidingWindow{}
		s.windows[key] = sw
	}
	s.mu.Unlock()
	return sw.allow(time.Now(), limit, s.window)
}

// Sweep drops windows that have been idle for a full window.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-s.window)
	for key, sw := range s.windows {
		if sw.idleSince(cutoff) {
			delete(s.windows, key)
		}
	}
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// RedisStore shares fixed one-minute buckets between replicas. When Redis is
// unreachable requests are let through.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: "votebank:ratelimit:"}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int) (int, bool) {
	bucket := time.Now().Unix() / 60
	k := fmt.Sprintf("%s%s:%d", s.prefix, key, bucket)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Msg("rate limit store unavailable, allowing request")
		return limit, true
	}

	n := int(incr.Val())
	if n > limit {
		return 0, false
	}
	return limit - n, true
}

// clientKey identifies the caller: the API key Auth accepted, otherwise the
// remote host without its port.
func clientKey(r *http.Request) string {
	if key := AuthenticatedKey(r.Context()); key != "" {
		sum := sha256.Sum256([]byte(key))
		return "key:" + hex.EncodeToString(sum[:8])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// RateLimit rejects clients that exceed limitPerMinute. Mount it after Auth
// so that only validated keys get their own budget.
func RateLimit(store LimitStore, limitPerMinute int) func(http.Handler) http.Handler {
	limit := strconv.Itoa(limitPerMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			remaining, ok := store.Allow(r.Context(), key, limitPerMinute)

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !ok {
				w.Header().Set("Retry-After", "60")
				models.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

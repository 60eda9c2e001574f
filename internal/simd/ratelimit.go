package simd

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/inheritance-core/pkg/logger"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// ClientLimiter rate limits requests per client address using one token
// bucket per client. A nil *ClientLimiter allows everything.
type ClientLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu      sync.RWMutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter allows perSecond requests per client with the given burst.
// perSecond <= 0 disables limiting and returns nil.
func NewClientLimiter(perSecond float64, burst int) *ClientLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &ClientLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		clients: make(map[string]*clientBucket),
	}
}

// Allow reports whether client may make a request at now.
func (l *ClientLimiter) Allow(client string, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.RLock()
	b, ok := l.clients[client]
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		if b, ok = l.clients[client]; !ok {
			l.evictIdleLocked(now)
			b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
			l.clients[client] = b
		}
		l.mu.Unlock()
	}

	l.mu.Lock()
	b.lastSeen = now
	l.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// Clients returns the number of tracked clients.
func (l *ClientLimiter) Clients() int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.clients)
}

func (l *ClientLimiter) evictIdleLocked(now time.Time) {
	for key, b := range l.clients {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.clients, key)
		}
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limitedMethods are the gRPC methods that create or start work.
var limitedMethods = map[string]bool{
	"/" + SweepServiceName + "/CreateRun": true,
	"/" + SweepServiceName + "/StartRun":  true,
}

// UnaryRateLimitInterceptor applies l to CreateRun and StartRun calls, keyed
// by the peer address.
func UnaryRateLimitInterceptor(l *ClientLimiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !limitedMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		client := "unknown"
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			client = p.Addr.String()
			if host, _, err := net.SplitHostPort(client); err == nil {
				client = host
			}
		}
		if !l.Allow(client, time.Now()) {
			logger.Warn("request rate limited", "client", client, "method", info.FullMethod)
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

package simd

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func TestNilClientLimiterAllowsEverything(t *testing.T) {
	var l *ClientLimiter
	for i := 0; i < 100; i++ {
		if !l.Allow("10.0.0.1", time.Now()) {
			t.Fatal("nil limiter must allow")
		}
	}
	if NewClientLimiter(0, 5) != nil {
		t.Fatal("zero rate should disable limiting")
	}
}

func TestClientLimiterBurstAndRefill(t *testing.T) {
	l := NewClientLimiter(1, 2)
	now := time.Unix(1_700_000_000, 0)

	if !l.Allow("a", now) || !l.Allow("a", now) {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("a", now) {
		t.Fatal("third request in the same instant should be limited")
	}
	if !l.Allow("b", now) {
		t.Fatal("clients must have separate buckets")
	}
	if !l.Allow("a", now.Add(time.Second)) {
		t.Fatal("one token should refill after a second")
	}
}

func TestClientLimiterEvictsIdleClients(t *testing.T) {
	l := NewClientLimiter(5, 5)
	now := time.Unix(1_700_000_000, 0)

	l.Allow("a", now)
	l.Allow("b", now.Add(5*time.Minute))
	if l.Clients() != 2 {
		t.Fatalf("expected 2 clients, got %d", l.Clients())
	}

	l.Allow("c", now.Add(11*time.Minute))
	if l.Clients() != 2 {
		t.Fatalf("expected idle client to be evicted, got %d clients", l.Clients())
	}
}

func TestHTTPServerRateLimitsRunCreation(t *testing.T) {
	srv, _, _ := newTestHTTPServer()
	srv.SetRateLimiter(NewClientLimiter(0.001, 1))

	rr := doRequest(t, srv, http.MethodPost, "/v1/runs", createBody(t, "limited-1", smallSweepYAML, false))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, srv, http.MethodPost, "/v1/runs", createBody(t, "limited-2", smallSweepYAML, false))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	rr = doRequest(t, srv, http.MethodPost, "/v1/runs/limited-1:start", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected start to share the client budget, got %d", rr.Code)
	}

	rr = doRequest(t, srv, http.MethodGet, "/v1/runs/limited-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", rr.Code)
	}
}

func TestUnaryRateLimitInterceptor(t *testing.T) {
	intercept := UnaryRateLimitInterceptor(NewClientLimiter(0.001, 1))
	ctx := peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.7"), Port: 40000},
	})
	calls := 0
	handler := func(ctx context.Context, req any) (any, error) {
		calls++
		return "ok", nil
	}
	create := &grpc.UnaryServerInfo{FullMethod: "/" + SweepServiceName + "/CreateRun"}
	get := &grpc.UnaryServerInfo{FullMethod: "/" + SweepServiceName + "/GetRun"}

	if _, err := intercept(ctx, nil, create, handler); err != nil {
		t.Fatalf("first create should pass: %v", err)
	}
	_, err := intercept(ctx, nil, create, handler)
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := intercept(ctx, nil, get, handler); err != nil {
			t.Fatalf("GetRun must not be limited: %v", err)
		}
	}
	if calls != 4 {
		t.Fatalf("expected 4 handler calls, got %d", calls)
	}
}

package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func gatewayStub(t *testing.T, sendSuccess bool, hits *int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)

		switch r.URL.Path {
		case "/auth":
			var body struct {
				Login    string `json:"login"`
				Password string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode auth body: %v", err)
			}
			if body.Login != "acme" || body.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
		case "/send":
			if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
				t.Errorf("send auth header = %q", got)
			}
			_ = json.NewEncoder(w).Encode(map[string]bool{"success": sendSuccess})
		case "/balance":
			if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
				t.Errorf("balance auth header = %q", got)
			}
			_ = json.NewEncoder(w).Encode(map[string]float64{"balance": 142.5})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestGateway(baseURL string, live bool) *Gateway {
	return NewGateway(GatewayOpts{
		BaseURL:  baseURL,
		Login:    "acme",
		Password: "secret",
		Sender:   "ISP",
		Live:     live,
		Timeout:  time.Second,
	}, zap.NewNop())
}

func TestGatewaySend(t *testing.T) {
	t.Parallel()

	var hits int64
	srv := gatewayStub(t, true, &hits)
	defer srv.Close()

	g := newTestGateway(srv.URL, true)
	if !g.Send(context.Background(), []string{"+380501112233", "+380671112233"}, "hello") {
		t.Fatal("Send() = false, want true")
	}
	if hits != 2 { // auth + send
		t.Fatalf("gateway hits = %d, want 2", hits)
	}
}

func TestGatewaySendRejected(t *testing.T) {
	t.Parallel()

	var hits int64
	srv := gatewayStub(t, false, &hits)
	defer srv.Close()

	g := newTestGateway(srv.URL, true)
	if g.Send(context.Background(), []string{"+380501112233"}, "hello") {
		t.Fatal("Send() = true, want false on gateway rejection")
	}
}

func TestGatewaySendAuthFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL, true)
	if g.Send(context.Background(), []string{"+380501112233"}, "hello") {
		t.Fatal("Send() = true, want false on auth failure")
	}
}

func TestGatewaySendLiveDisabled(t *testing.T) {
	t.Parallel()

	var hits int64
	srv := gatewayStub(t, true, &hits)
	defer srv.Close()

	g := newTestGateway(srv.URL, false)
	if !g.Send(context.Background(), []string{"+380501112233"}, "hello") {
		t.Fatal("Send() = false, want no-op true when live is disabled")
	}
	if hits != 0 {
		t.Fatalf("gateway hits = %d, want 0 when live is disabled", hits)
	}
}

func TestGatewayBalance(t *testing.T) {
	t.Parallel()

	var hits int64
	srv := gatewayStub(t, true, &hits)
	defer srv.Close()

	g := newTestGateway(srv.URL, true)
	got, err := g.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if got != 142.5 {
		t.Fatalf("Balance() = %v, want 142.5", got)
	}
}

func TestGatewayBalanceError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL, true)
	if _, err := g.Balance(context.Background()); err == nil {
		t.Fatal("Balance() error = nil, want error to propagate")
	}
}

func TestGatewayNormalize(t *testing.T) {
	t.Parallel()

	g := newTestGateway("http://unused", true)

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0501112233", "+380501112233", true},
		{"380501112233", "+380501112233", true},
		{"00380501112233", "+380501112233", true},
		{"not-a-phone", "not-a-phone", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := g.Normalize(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVerifyConfirmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("bad form: %v", err)
		}
		if r.PostFormValue("user_id") != "u1" || r.PostFormValue("game_id") != "g1" {
			t.Errorf("unexpected form values: %v", r.PostForm)
		}
		w.Write([]byte(`{"verified": true}`))
	}))
	defer srv.Close()

	v := NewStripeVerifier(srv.URL, false)
	confirmed, err := v.Verify(context.Background(), "u1", "g1", "tok_abc")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !confirmed {
		t.Error("Verify() = false, want true")
	}
}

func TestVerifyDeclinedIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"verified": false, "reason": "card_declined"}`))
	}))
	defer srv.Close()

	v := NewStripeVerifier(srv.URL, false)
	confirmed, err := v.Verify(context.Background(), "u1", "g1", "tok_bad")
	if err != nil {
		t.Fatalf("Verify() error = %v, declined must not be an error", err)
	}
	if confirmed {
		t.Error("Verify() = true, want false")
	}
}

func TestVerifyGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewStripeVerifier(srv.URL, false)
	if _, err := v.Verify(context.Background(), "u1", "g1", "tok_abc"); err == nil {
		t.Fatal("Verify() error = nil, want transport error on 5xx")
	}
}

func TestVerifyTimeoutSurfacesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"verified": true}`))
	}))
	defer srv.Close()

	v := NewStripeVerifier(srv.URL, false)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := v.Verify(ctx, "u1", "g1", "tok_abc"); err == nil {
		t.Fatal("Verify() error = nil, want timeout error")
	}
}

func TestVerifyMockMode(t *testing.T) {
	v := NewStripeVerifier("", true)
	confirmed, err := v.Verify(context.Background(), "u1", "g1", "anything")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !confirmed {
		t.Error("mock mode must confirm")
	}
}

func TestMethodFromToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"tok_abc123", "card"},
		{"card_xyz", "card"},
		{"src_999", "source"},
		{"mystery", "card"},
	}
	for _, tc := range tests {
		if got := MethodFromToken(tc.token); got != tc.want {
			t.Errorf("MethodFromToken(%q) = %q, want %q", tc.token, got, tc.want)
		}
	}
}

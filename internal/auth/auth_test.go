package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sessionCookie(t *testing.T, userID uint) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	CreateSession(rr, userID)
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	c := sessionCookie(t, 42)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)

	uid, ok := ParseSession(req)
	if !ok || uid != 42 {
		t.Fatalf("ParseSession = (%d, %v), want (42, true)", uid, ok)
	}
}

func TestSessionTamperedSignature(t *testing.T) {
	c := sessionCookie(t, 42)
	// Flip the user id without re-signing.
	parts := strings.SplitN(c.Value, ".", 2)
	c.Value = "43." + parts[1]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	if _, ok := ParseSession(req); ok {
		t.Fatal("tampered session accepted")
	}
}

func TestRequireAuthWithoutSession(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/invoices", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestRequireAuthWithVerifier(t *testing.T) {
	SetUserVerifier(func(_ context.Context, uid uint) bool { return uid == 1 })
	t.Cleanup(func() { SetUserVerifier(nil) })

	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req = req.WithContext(WithUserID(req.Context(), 1))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("verified user: expected 200 got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req = req.WithContext(WithUserID(req.Context(), 7))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("stale user: expected 401 got %d", rr.Code)
	}
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nordform/catalog-admin/internal/catalog"
)

type fakeVerifier struct {
	identity *catalog.Identity
	err      error
	gotToken string
}

func (f *fakeVerifier) VerifyToken(_ context.Context, token string) (*catalog.Identity, error) {
	f.gotToken = token
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func TestMiddleware_ValidSession(t *testing.T) {
	verifier := &fakeVerifier{identity: &catalog.Identity{ID: 9, Role: "editor"}}

	var sawIdentity *catalog.Identity
	var sawToken string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawIdentity, _ = IdentityFrom(r.Context())
		sawToken = TokenFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rr := httptest.NewRecorder()

	Middleware(verifier)(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if verifier.gotToken != "tok-1" {
		t.Errorf("expected token tok-1 forwarded, got %q", verifier.gotToken)
	}
	if sawIdentity == nil || sawIdentity.ID != 9 {
		t.Errorf("expected identity in context, got %+v", sawIdentity)
	}
	if sawToken != "tok-1" {
		t.Errorf("expected raw token in context, got %q", sawToken)
	}
}

func TestMiddleware_MissingToken(t *testing.T) {
	verifier := &fakeVerifier{identity: &catalog.Identity{ID: 1}}
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run without a token")
	})

	for _, header := range []string{"", "Basic abc", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()

		Middleware(verifier)(next).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rr.Code)
		}
	}
}

func TestMiddleware_RejectedSession(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("expired")}
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run with a rejected session")
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rr := httptest.NewRecorder()

	Middleware(verifier)(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

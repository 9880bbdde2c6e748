package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/opensocial-be/internal/models"
)

type stubUsers map[string]models.User

func (s stubUsers) GetUser(_ context.Context, id string) (models.User, error) {
	u, ok := s[id]
	if !ok {
		return models.User{}, errors.New("not found")
	}
	return u, nil
}

func TestIssueAndVerify(t *testing.T) {
	svc := NewTokenService("secret", 0)
	token, err := svc.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := svc.Verify(token)
	if err != nil || id != "user-1" {
		t.Fatalf("verify: id=%q err=%v", id, err)
	}
}

func TestVerifyRejects(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	good, _ := svc.Issue("user-1")

	expired := NewTokenService("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Issue("user-1")

	otherKey, _ := NewTokenService("other", time.Hour).Issue("user-1")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]string{
		"expired":   old,
		"wrong key": otherKey,
		"alg none":  unsigned,
		"garbage":   "not-a-token",
		"tampered":  good[:len(good)-2] + "xx",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("got %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestGuard(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	users := stubUsers{"u1": {ID: "u1", Username: "alice", PasswordHash: "digest"}}
	valid, _ := svc.Issue("u1")
	orphan, _ := svc.Issue("ghost")

	var seen models.User
	h := Guard(svc, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, "Not authorized, no token"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Not authorized, no token"},
		{"invalid", "Bearer nope", http.StatusUnauthorized, `"Not authorized"`},
		{"unknown user", "Bearer " + orphan, http.StatusUnauthorized, `"Not authorized"`},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if tc.body != "" && !strings.Contains(rec.Body.String(), tc.body) {
				t.Fatalf("body = %s, want %s", rec.Body.String(), tc.body)
			}
		})
	}

	if seen.ID != "u1" || seen.PasswordHash != "" {
		t.Fatalf("context user = %+v", seen)
	}
}

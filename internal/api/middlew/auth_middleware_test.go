package middlew

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"gw-wallet-ledger/internal/custom_err"
)

type stubResolver struct {
	owner string
	err   error
}

func (s stubResolver) IssueToken(username string) (string, error) { return username, nil }

func (s stubResolver) ResolveOwner(token string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.owner, nil
}

func serveWithAuth(resolver stubResolver, header string) (*httptest.ResponseRecorder, string) {
	var seen string
	h := RequireAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetOwner(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireAuth_StoresOwner(t *testing.T) {
	rec, owner := serveWithAuth(stubResolver{owner: "test_user1"}, "bearer test_user1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test_user1", owner)
}

func TestRequireAuth_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		resolver   stubResolver
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "no token", header: "Bearer", wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "invalid token", resolver: stubResolver{err: custom_err.ErrInvalidToken}, header: "Bearer x", wantStatus: http.StatusUnauthorized, wantCode: "invalid_token"},
		{name: "expired token", resolver: stubResolver{err: custom_err.ErrTokenExpired}, header: "Bearer x", wantStatus: http.StatusUnauthorized, wantCode: "token_expired"},
		{name: "resolver failure", resolver: stubResolver{err: errors.New("boom")}, header: "Bearer x", wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, owner := serveWithAuth(tt.resolver, tt.header)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error":"`+tt.wantCode+`"`)
			assert.Empty(t, owner)
		})
	}
}

func TestGetOwner_PanicsWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Panics(t, func() { GetOwner(req.Context()) })
	assert.Equal(t, "alice", GetOwner(WithOwner(req.Context(), "alice")))
}

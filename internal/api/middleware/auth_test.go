package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/nutritrack-api/internal/api/shared"
	"github.com/phrazzld/nutritrack-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ownerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := shared.GetOwnerID(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(ownerID))
	})
}

func TestAuthenticate_ValidToken(t *testing.T) {
	t.Parallel()

	svc := testutils.NewTestJWTService(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/t-1", nil)
	req.Header.Set("Authorization", testutils.AuthHeader(t, svc, "u1"))
	rec := httptest.NewRecorder()

	NewAuthMiddleware(svc).Authenticate(ownerEcho()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
}

func TestAuthenticate_SchemeIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	svc := testutils.NewTestJWTService(t, nil)
	token := strings.TrimPrefix(testutils.AuthHeader(t, svc, "u1"), "Bearer ")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()

	NewAuthMiddleware(svc).Authenticate(ownerEcho()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_Rejections(t *testing.T) {
	t.Parallel()

	svc := testutils.NewTestJWTService(t, nil)

	past := time.Now().Add(-3 * time.Hour)
	expiredIssuer := testutils.NewTestJWTService(t, func() time.Time { return past })
	expired := strings.TrimPrefix(testutils.AuthHeader(t, expiredIssuer, "u1"), "Bearer ")

	tests := []struct {
		name      string
		header    string
		wantError string
	}{
		{"missing header", "", "Authorization header required"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "Invalid authorization format"},
		{"no token", "Bearer ", "Invalid authorization format"},
		{"garbage token", "Bearer not-a-jwt", "Invalid token"},
		{"expired token", "Bearer " + expired, "Token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			NewAuthMiddleware(svc).Authenticate(ownerEcho()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var resp shared.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

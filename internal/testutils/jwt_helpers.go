package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/nutritrack-api/internal/config"
	"github.com/phrazzld/nutritrack-api/internal/service/auth"
	"github.com/stretchr/testify/require"
)

// TestJWTSecret is a dedicated test-only secret for signing JWTs.
// This must never be used in production.
const TestJWTSecret = "test-jwt-secret-that-is-32-chars-long"

// TestAuthConfig returns an auth configuration signed with TestJWTSecret.
func TestAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            TestJWTSecret,
		TokenLifetimeMinutes: 60,
	}
}

// NewTestJWTService creates a real JWT service signed with TestJWTSecret.
// now, when non-nil, fixes the service clock.
func NewTestJWTService(t *testing.T, now func() time.Time) *auth.HMACJWTService {
	t.Helper()

	var opts []auth.Option
	if now != nil {
		opts = append(opts, auth.WithTimeFunc(now))
	}
	svc, err := auth.NewJWTService(TestAuthConfig(), opts...)
	require.NoError(t, err, "failed to create test JWT service")
	return svc
}

// AuthHeader mints a token for ownerID and returns it as a Bearer header value.
func AuthHeader(t *testing.T, svc auth.JWTService, ownerID string) string {
	t.Helper()

	token, err := svc.GenerateToken(context.Background(), ownerID)
	require.NoError(t, err, "failed to generate test token")
	return "Bearer " + token
}

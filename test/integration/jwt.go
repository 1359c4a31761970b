package integration

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// TestClaims describes the identity a scenario wants to act as.
type TestClaims struct {
	SubjectID string
	Roles     []string
}

// GenerateToken mints an HS256 token the harness server accepts.
func (h *TestHarness) GenerateToken(claims TestClaims) string {
	return signToken(h.t, claims, time.Now().Add(time.Hour))
}

// GenerateExpiredToken mints a token whose expiry is already in the past.
func (h *TestHarness) GenerateExpiredToken(claims TestClaims) string {
	return signToken(h.t, claims, time.Now().Add(-time.Hour))
}

func signToken(t *testing.T, claims TestClaims, expiry time.Time) string {
	t.Helper()

	roles := make([]any, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		roles = append(roles, r)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   testIssuer,
		"aud":   testAudience,
		"sub":   claims.SubjectID,
		"iat":   time.Now().Add(-time.Minute).Unix(),
		"exp":   expiry.Unix(),
		"roles": roles,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

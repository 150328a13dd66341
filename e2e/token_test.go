//go:build e2e
// +build e2e

package e2e

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sow2grow/ms-go-bestowals/app/auth"
)

const defaultBestowalsAuthSecret = "bestowals-e2e-secret"

// bestowalsAuthSecret must match the APP_AUTH_SECRET the service under test
// was started with.
func bestowalsAuthSecret() string {
	if value := strings.TrimSpace(os.Getenv("BESTOWALS_AUTH_SECRET")); value != "" {
		return value
	}
	return defaultBestowalsAuthSecret
}

func signBearerToken(t *testing.T, userID, role string) string {
	t.Helper()
	verifier := auth.NewVerifier(bestowalsAuthSecret())
	token, err := verifier.Sign(&auth.Claims{
		UserID:    userID,
		Role:      role,
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return token
}

// Package testutil starts the containers used by the store integration
// tests. Containers are shared per test binary and only started when
// PLANO_INTEGRATION is set.
package testutil

import (
	"os"
	"testing"
)

// IntegrationEnv enables container backed tests when set to a non-empty value.
const IntegrationEnv = "PLANO_INTEGRATION"

// RequireIntegration skips t unless integration tests are enabled.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if os.Getenv(IntegrationEnv) == "" {
		t.Skipf("set %s=1 to run container backed tests", IntegrationEnv)
	}
}

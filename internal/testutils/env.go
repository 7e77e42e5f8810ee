package testutils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Environment variables naming external services for integration tests.
const (
	DatabaseURLEnv = "TASKENGINE_TEST_DATABASE_URL"
	AMQPURLEnv     = "TASKENGINE_TEST_AMQP_URL"
)

// SetupEnv sets environment variables for the duration of the test.
// An empty value unsets the variable. Original values are restored when
// the test ends.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    testutils.SetupEnv(t, map[string]string{
//	        "TASKENGINE_SERVER_PORT": "9090",
//	        "TASKENGINE_DATABASE_URL": "",
//	    })
//	    // Test code that depends on environment variables
//	}
func SetupEnv(t *testing.T, envVars map[string]string) {
	t.Helper()
	for name, value := range envVars {
		if value != "" {
			t.Setenv(name, value)
			continue
		}

		original, ok := os.LookupEnv(name)
		require.NoError(t, os.Unsetenv(name), "Failed to unset environment variable %s", name)
		if ok {
			t.Cleanup(func() {
				if err := os.Setenv(name, original); err != nil {
					t.Logf("Warning: Failed to restore env var %s: %v", name, err)
				}
			})
		}
	}
}

// RequireEnvOrSkip returns the value of name, skipping the test when it is unset.
func RequireEnvOrSkip(t *testing.T, name string) string {
	t.Helper()
	value := os.Getenv(name)
	if value == "" {
		t.Skipf("%s not set", name)
	}
	return value
}

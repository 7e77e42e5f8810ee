package testutils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupEnv(t *testing.T) {
	const setName = "TASKENGINE_TESTUTILS_SET"
	const unsetName = "TASKENGINE_TESTUTILS_UNSET"

	t.Run("sets and unsets", func(t *testing.T) {
		t.Setenv(unsetName, "present")

		SetupEnv(t, map[string]string{
			setName:   "value",
			unsetName: "",
		})

		assert.Equal(t, "value", os.Getenv(setName))
		_, ok := os.LookupEnv(unsetName)
		assert.False(t, ok)
	})

	_, ok := os.LookupEnv(setName)
	assert.False(t, ok, "set variables are removed after the subtest")
}

func TestRequireEnvOrSkip(t *testing.T) {
	t.Setenv("TASKENGINE_TESTUTILS_URL", "amqp://localhost")
	assert.Equal(t, "amqp://localhost", RequireEnvOrSkip(t, "TASKENGINE_TESTUTILS_URL"))

	skipped := t.Run("skips when unset", func(t *testing.T) {
		SetupEnv(t, map[string]string{"TASKENGINE_TESTUTILS_URL": ""})
		RequireEnvOrSkip(t, "TASKENGINE_TESTUTILS_URL")
		t.Error("RequireEnvOrSkip did not skip")
	})
	assert.True(t, skipped, "a skipped subtest reports success")
}

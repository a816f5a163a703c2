package utils

import (
	"os"
	"strings"
	"testing"
)

// ClearTestEnvironment removes every env var from the test environment, so
// custom-setter tests are independent of the host's local environment.
func ClearTestEnvironment(t *testing.T) {
	for _, env := range os.Environ() {
		key := env[:strings.Index(env, "=")]
		t.Setenv(key, "")
	}
}

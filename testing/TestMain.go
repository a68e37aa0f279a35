// Package testing pins environment defaults for suites that import it.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

// defaults apply only where the environment leaves a variable unset.
var defaults = map[string]string{
	"GOTENBERG_URL": "http://127.0.0.1:0",
	"MARKET_SEED":   "1",
	"CACHE_ENABLED": "false",
}

var once sync.Once

func pinEnvironment() {
	once.Do(func() {
		_ = os.Setenv("FANMETRICS_TEST_MODE", "1")
		for key, value := range defaults {
			if _, set := os.LookupEnv(key); !set {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	pinEnvironment()
}

// TestMain runs m with the pinned environment.
func TestMain(m *stdtesting.M) {
	pinEnvironment()
	os.Exit(m.Run())
}

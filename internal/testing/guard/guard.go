// Package guard puts binaries into test mode. Tests of main packages import
// it for its side effect so main returns before dialing Redis or binding a
// port.
package guard

import "os"

// EnvVar is the switch read by app.InTestMode.
const EnvVar = "FANMETRICS_TEST_MODE"

func init() {
	if _, set := os.LookupEnv(EnvVar); !set {
		_ = os.Setenv(EnvVar, "1")
	}
}

package metadata // import "github.com/xuuxu-xu/stripe-integration/metadata"

import (
	"os"
	"strings"
	"sync"
)

// An AppEnvironment represents either localdev (i.e. an engineer's development
// machine), dev, staging, or prod.
type AppEnvironment string

// Constants for the various AppEnvironments. DO NOT CHANGE THESE without
// understanding how any consumers of GetAppEnvironment() are using them!
const (
	EnvLocalDev AppEnvironment = "localdev"
	EnvDev      AppEnvironment = "dev"
	EnvStaging  AppEnvironment = "staging"
	EnvProd     AppEnvironment = "prod"
)

// Variable for hash of last Git commit --- filled in by linker
var gitCommit string

// GetGitCommit returns the git commit hash of this build.
func GetGitCommit() string {
	return gitCommit
}

// GetAppEnvironment returns the AppEnvironment of the current instance. It is
// a variable so tests can patch it for the duration of a single test.
var GetAppEnvironment = memoizeAppEnvironment(func() AppEnvironment {
	return parseAppEnvironment(os.Getenv("APP_ENV"))
})

// memoizeAppEnvironment calls `unmemoized` once, on the first call of the
// returned function, and caches the result for all future calls. It is safe
// for concurrent use.
func memoizeAppEnvironment(unmemoized func() AppEnvironment) func() AppEnvironment {
	var once sync.Once
	var cache AppEnvironment

	return func() AppEnvironment {
		once.Do(func() {
			cache = unmemoized()
		})
		return cache
	}
}

// parseAppEnvironment maps the raw value of APP_ENV to an AppEnvironment.
// Anything unrecognized is treated as local development.
func parseAppEnvironment(raw string) AppEnvironment {
	switch strings.ToLower(raw) {
	case "development", "dev":
		return EnvDev
	case "staging":
		return EnvStaging
	case "production", "prod":
		return EnvProd
	default:
		return EnvLocalDev
	}
}

// IsLocalEnv returns true if the service is running locally for development.
func IsLocalEnv() bool {
	return GetAppEnvironment() == EnvLocalDev
}

// IsRunningInCI returns true if the service is running in continuous
// integration (i.e. for tests), and false otherwise.
func IsRunningInCI() bool {
	strCI := strings.ToLower(os.Getenv("CI"))
	switch strCI {
	case "1", "yes", "true", "on", "yep":
		return true
	default:
		return false
	}
}

// Package config provides functions for loading the configuration values of
// the checkout service when it starts and for reading those values while the
// service is running. Values are layered, from lowest to highest priority:
// built-in defaults, an optional TOML file, an optional dotenv file (.env),
// environment variables, and explicitly set command line flags.
// config.Initialize() should be called as close as possible to the top of the
// main function.
package config

import (
	"context"
	"sync"
	"time"
)

// serviceConfig stores service-global configuration values.
type serviceConfig struct {
	// stripeSecretKey is the secret key used to authenticate calls to the
	// Stripe API. It has no default and is required.
	stripeSecretKey string

	// port is the TCP port the HTTP server listens on.
	port int

	// requestTimeout bounds the Stripe calls made on behalf of a single
	// request.
	requestTimeout time.Duration

	// rateInterval and rateBurst configure the token bucket that throttles
	// the payment endpoints: one token every rateInterval, up to rateBurst.
	rateInterval time.Duration
	rateBurst    int

	// inflightLimit is the maximum number of payment requests handled at the
	// same time.
	inflightLimit int64

	// shutdownTimeout bounds the graceful shutdown of the HTTP server.
	shutdownTimeout time.Duration
}

// config is a singleton that stores service-global configuration values.
var config serviceConfig

// rw sychronizes access to the configuration singleton.
var rw sync.RWMutex

// Initialize populates the configuration singleton. `args` are the command
// line arguments without the program name (i.e. os.Args[1:]).
func Initialize(ctx context.Context, args []string) error {
	cfg, err := load(args)
	if err != nil {
		return err
	}

	rw.Lock()
	defer rw.Unlock()

	config = cfg
	return nil
}

// GetStripeSecretKey returns the secret key for the Stripe API.
func GetStripeSecretKey() string {
	rw.RLock()
	defer rw.RUnlock()

	return config.stripeSecretKey
}

// GetPort returns the port the HTTP server should listen on.
func GetPort() int {
	rw.RLock()
	defer rw.RUnlock()

	return config.port
}

// GetRequestTimeout returns the deadline applied to the Stripe calls of a
// single request.
func GetRequestTimeout() time.Duration {
	rw.RLock()
	defer rw.RUnlock()

	return config.requestTimeout
}

// GetRateLimit returns the refill interval and burst size of the request
// throttle.
func GetRateLimit() (time.Duration, int) {
	rw.RLock()
	defer rw.RUnlock()

	return config.rateInterval, config.rateBurst
}

// GetInflightLimit returns the maximum number of concurrent payment requests.
func GetInflightLimit() int64 {
	rw.RLock()
	defer rw.RUnlock()

	return config.inflightLimit
}

// GetShutdownTimeout returns how long the server waits for in-flight requests
// when shutting down.
func GetShutdownTimeout() time.Duration {
	rw.RLock()
	defer rw.RUnlock()

	return config.shutdownTimeout
}

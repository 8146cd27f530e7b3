package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// envKeys maps the environment variables we read to their koanf key.
var envKeys = map[string]string{
	"STRIPE_SECRET_KEY":         "stripe.secret.key",
	"PORT":                      "port",
	"CHECKOUT_REQUEST_TIMEOUT":  "request.timeout",
	"CHECKOUT_RATE_INTERVAL":    "rate.interval",
	"CHECKOUT_RATE_BURST":       "rate.burst",
	"CHECKOUT_INFLIGHT_LIMIT":   "inflight.limit",
	"CHECKOUT_SHUTDOWN_TIMEOUT": "shutdown.timeout",
}

// defaults are the lowest-priority configuration values. There is no
// default for the Stripe secret key.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":             3000,
		"request.timeout":  "30s",
		"rate.interval":    "100ms",
		"rate.burst":       20,
		"inflight.limit":   64,
		"shutdown.timeout": "15s",
	}
}

// load assembles a serviceConfig from every configuration source and
// validates it.
func load(args []string) (serviceConfig, error) {
	var k = koanf.New(".")

	f, err := setFlags(args)
	if err != nil {
		return serviceConfig{}, fmt.Errorf("error parsing flags: %w", err)
	}

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return serviceConfig{}, fmt.Errorf("error loading default config: %w", err)
	}

	if path := f.Lookup("config").Value.String(); path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return serviceConfig{}, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}

	envFile := f.Lookup("env-file")
	if err := loadDotEnv(k, envFile.Value.String(), isFlagSet(f, "env-file")); err != nil {
		return serviceConfig{}, err
	}

	err = k.Load(env.ProviderWithValue("", ".", envValue), nil)
	if err != nil {
		return serviceConfig{}, fmt.Errorf("error loading environment to config: %w", err)
	}

	// Only flags that were explicitly passed override the other sources.
	explicitFlags := make(map[string]interface{})
	f.Visit(func(fl *flag.Flag) {
		if fl.Name != "config" && fl.Name != "env-file" {
			explicitFlags[fl.Name] = fl.Value.String()
		}
	})
	if err := k.Load(confmap.Provider(explicitFlags, "."), nil); err != nil {
		return serviceConfig{}, fmt.Errorf("error loading flags to config: %w", err)
	}

	cfg := serviceConfig{
		stripeSecretKey: k.String("stripe.secret.key"),
		port:            k.Int("port"),
		requestTimeout:  k.Duration("request.timeout"),
		rateInterval:    k.Duration("rate.interval"),
		rateBurst:       k.Int("rate.burst"),
		inflightLimit:   k.Int64("inflight.limit"),
		shutdownTimeout: k.Duration("shutdown.timeout"),
	}

	return cfg, validate(cfg)
}

// envValue maps an environment variable to its koanf key. Returning an empty
// key makes koanf skip the variable, which we do for unknown names and empty
// values so that `PORT=` still falls back to the default.
func envValue(name, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	return envKeys[name], value
}

// loadDotEnv loads the variables of the dotenv file at `path` into `k`, with
// the same names and precedence rules as the process environment. A missing
// file is only an error when it was asked for explicitly.
func loadDotEnv(k *koanf.Koanf, path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("error reading env file %s: %w", path, err)
	}

	dk := koanf.New(".")
	if err := dk.Load(file.Provider(path), dotenv.Parser()); err != nil {
		return fmt.Errorf("error loading env file %s: %w", path, err)
	}

	vars := make(map[string]interface{})
	for name, v := range dk.All() {
		if key, value := envValue(name, fmt.Sprint(v)); key != "" {
			vars[key] = value
		}
	}

	if err := k.Load(confmap.Provider(vars, "."), nil); err != nil {
		return fmt.Errorf("error loading env file %s to config: %w", path, err)
	}
	return nil
}

// isFlagSet reports whether the flag `name` was passed on the command line.
func isFlagSet(f *flag.FlagSet, name string) bool {
	set := false
	f.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}

// validate collects every problem with the configuration instead of stopping
// at the first one.
func validate(cfg serviceConfig) error {
	var result *multierror.Error

	if cfg.stripeSecretKey == "" {
		result = multierror.Append(result, fmt.Errorf("STRIPE_SECRET_KEY is required"))
	}
	if cfg.port <= 0 || cfg.port > 65535 {
		result = multierror.Append(result, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port))
	}
	if cfg.requestTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("request timeout must be positive, got %s", cfg.requestTimeout))
	}
	if cfg.rateInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("rate interval must be positive, got %s", cfg.rateInterval))
	}
	if cfg.rateBurst <= 0 {
		result = multierror.Append(result, fmt.Errorf("rate burst must be positive, got %d", cfg.rateBurst))
	}
	if cfg.inflightLimit <= 0 {
		result = multierror.Append(result, fmt.Errorf("inflight limit must be positive, got %d", cfg.inflightLimit))
	}
	if cfg.shutdownTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("shutdown timeout must be positive, got %s", cfg.shutdownTimeout))
	}

	return result.ErrorOrNil()
}

func setFlags(args []string) (*flag.FlagSet, error) {
	f := flag.NewFlagSet("config", flag.ContinueOnError)
	f.SetOutput(io.Discard)

	f.String("config", "", "Path to an optional TOML configuration file.")
	f.String("env-file", ".env", "Path to an optional dotenv file, read before the process environment.")
	f.Int("port", 3000, "Port the HTTP server listens on. Overrides the PORT env var.")
	f.Duration("request.timeout", 30*time.Second, "Deadline for the Stripe calls made by a single request.")
	f.Duration("rate.interval", 100*time.Millisecond, "Interval at which the request throttle refills one token.")
	f.Int("rate.burst", 20, "Maximum burst of requests accepted by the throttle.")
	f.Int64("inflight.limit", 64, "Maximum number of payment requests handled concurrently.")
	f.Duration("shutdown.timeout", 15*time.Second, "Time allowed for in-flight requests when shutting down.")

	err := f.Parse(args)
	if err != nil {
		return nil, err
	}

	return f, nil
}

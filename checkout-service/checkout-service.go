/*
The checkout service fronts the Stripe API for the matchmaking app. It creates
checkout sessions for the applicant and the reviewer of a match, and captures
the applicant's payment once it has been authorized.

All payment state lives in Stripe, so the service is stateless and can be
restarted or scaled out freely.
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/xuuxu-xu/stripe-integration/checkout-service/config"
	"github.com/xuuxu-xu/stripe-integration/checkout-service/payments"
	"github.com/xuuxu-xu/stripe-integration/logger"
	"github.com/xuuxu-xu/stripe-integration/metadata"
)

func main() {
	// We create a global context (i.e. for the entire checkout service) that
	// can be cancelled if the entire program needs to terminate. We also
	// create a WaitGroup for all goroutines to tell us when they've stopped.
	globalCtx, globalCancel := context.WithCancel(context.Background())
	goroutineTracker := &sync.WaitGroup{}
	defer func() {
		r := recover()
		if r != nil {
			logger.Infof("Shutting down checkout service after caught panic in main(): %v", r)
		} else {
			logger.Infof("Beginning checkout service shutdown procedure...")
		}

		// Cancel the global context, if it hasn't already been cancelled.
		globalCancel()

		// Wait for the HTTP server to drain before flushing the logs.
		waitWithTimeout(goroutineTracker, config.GetShutdownTimeout()+5*time.Second)

		logger.Info("Finished checkout service shutdown procedure. Finally exiting...")
		logger.Sync()

		if r != nil {
			os.Exit(1)
		}
	}()

	logger.Infof("Checkout Service Version: %s, environment: %s", metadata.GetGitCommit(), metadata.GetAppEnvironment())

	// Without a valid configuration (most notably the Stripe secret key)
	// there is nothing to serve, so we fail fast.
	if err := config.Initialize(globalCtx, os.Args[1:]); err != nil {
		logger.Errorf("Failed to initialize configuration. Err: %v", err)
		logger.Sync()
		os.Exit(1)
	}

	stripeClient := payments.NewStripeClient(config.GetStripeSecretKey())
	paymentsClient := payments.NewPaymentsClient(stripeClient)

	StartHTTPServer(globalCtx, globalCancel, goroutineTracker, paymentsClient)

	// Register a signal handler for Ctrl-C so that we cleanup if Ctrl-C is pressed.
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Wait for either the global context to get cancelled by a worker goroutine,
	// or for us to receive an interrupt. This needs to be the end of main().
	select {
	case sig := <-sigChan:
		logger.Infof("Got signal %s", sig)
	case <-globalCtx.Done():
		logger.Infof("Global context cancelled!")
	}
}

// waitWithTimeout waits for `wg` but gives up after `timeout`.
func waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warningf("Timed out after %s waiting for goroutines to stop", timeout)
	}
}

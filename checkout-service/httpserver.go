package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xuuxu-xu/stripe-integration/checkout-service/config"
	"github.com/xuuxu-xu/stripe-integration/checkout-service/metrics"
	"github.com/xuuxu-xu/stripe-integration/checkout-service/payments"
	"github.com/xuuxu-xu/stripe-integration/httputils"
	"github.com/xuuxu-xu/stripe-integration/logger"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Routes served by the checkout service.
const (
	applicantCheckoutPath = "/create-applicant-checkout"
	reviewerCheckoutPath  = "/create-reviewer-checkout"
	capturePaymentPath    = "/capture-payment"
	metricsPath           = "/metrics"
)

// Plain text bodies of the capture endpoint.
const (
	paymentCapturedMessage = "Payment captured successfully"
	internalErrorMessage   = "Internal Server Error"
)

// requestIDHeader carries the id used to correlate a request with its logs.
const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// requestIDFromContext returns the id assigned to the request by
// requestIDMiddleware, or an empty string.
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// serverOptions holds the protective limits applied to the payment
// endpoints.
type serverOptions struct {
	requestTimeout time.Duration
	rateInterval   time.Duration
	rateBurst      int
	inflightLimit  int64
}

// optionsFromConfig reads the server options from the config singleton.
func optionsFromConfig() serverOptions {
	interval, burst := config.GetRateLimit()

	return serverOptions{
		requestTimeout: config.GetRequestTimeout(),
		rateInterval:   interval,
		rateBurst:      burst,
		inflightLimit:  config.GetInflightLimit(),
	}
}

// checkoutHandler creates a checkout session for `role` and answers with the
// URL of the hosted payment page.
func checkoutHandler(w http.ResponseWriter, r *http.Request, role payments.Role, ph payments.PaymentsHandler, timeout time.Duration) {
	if err := httputils.VerifyRequestType(w, r, http.MethodPost); err != nil {
		return
	}

	var req payments.CheckoutRequest
	if err := httputils.ParseRequest(w, r, &req); err != nil {
		logger.Warningf("Error parsing %s checkout request. Err: %v", role, err)
		return
	}

	ctx, cancel := withRequestTimeout(r.Context(), timeout)
	defer cancel()

	url, err := ph.CreateCheckout(ctx, role, req)
	if err != nil {
		logger.Errorw("Failed to create "+role.String()+" checkout",
			"error", err,
			"request_id", requestIDFromContext(r.Context()),
		)
		httputils.SendText(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	httputils.SendJSON(w, http.StatusOK, payments.CheckoutResult{URL: url})
}

// capturePaymentHandler captures the payment authorized through an earlier
// checkout session.
func capturePaymentHandler(w http.ResponseWriter, r *http.Request, ph payments.PaymentsHandler, timeout time.Duration) {
	if err := httputils.VerifyRequestType(w, r, http.MethodPost); err != nil {
		return
	}

	var req payments.CaptureRequest
	if err := httputils.ParseRequest(w, r, &req); err != nil {
		logger.Warningf("Error parsing capture request. Err: %v", err)
		return
	}

	ctx, cancel := withRequestTimeout(r.Context(), timeout)
	defer cancel()

	err := ph.CapturePayment(ctx, req.SessionID)
	switch {
	case err == nil:
		httputils.SendText(w, http.StatusOK, paymentCapturedMessage)
	case errors.Is(err, payments.ErrPaymentIntentNotFound):
		httputils.SendText(w, http.StatusBadRequest, payments.ErrPaymentIntentNotFound.Error())
	default:
		logger.Errorw("Failed to capture payment",
			"error", err,
			"session_id", req.SessionID,
			"request_id", requestIDFromContext(r.Context()),
		)
		httputils.SendText(w, http.StatusInternalServerError, internalErrorMessage)
	}
}

// withRequestTimeout bounds `ctx` by `timeout`. A non-positive timeout leaves
// the context as is.
func withRequestTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// requestIDMiddleware makes sure every request carries an id, reusing the one
// sent by the client when present. The id is echoed in the response headers.
func requestIDMiddleware(f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		f(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	}
}

// metricsMiddleware records the status code and duration of every request
// under the `endpoint` label.
func metricsMiddleware(endpoint string, f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := httputils.NewStatusRecorder(w)

		f(rec, r)

		metrics.ObserveRequest(endpoint, rec.Status, time.Since(start))
	}
}

// throttleMiddleware will limit requests on the endpoint using the provided rate limiter.
// It uses a token bucket algorithm, so that every interval of time the "bucket" will refill
// and continue to serve tokens up to a maximum defined by the burst capacity. In case the
// limit is exceeded, return a http 429 error (too many requests).
func throttleMiddleware(limiter *rate.Limiter, f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			logger.Warningw("Throttled request", "path", r.URL.Path, "request_id", requestIDFromContext(r.Context()))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		f(w, r)
	}
}

// inflightMiddleware rejects requests with a 503 while `sem` is fully
// acquired, so a slow upstream cannot pile up an unbounded number of
// goroutines.
func inflightMiddleware(sem *semaphore.Weighted, f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !sem.TryAcquire(1) {
			logger.Warningw("Too many requests in flight", "path", r.URL.Path, "request_id", requestIDFromContext(r.Context()))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		defer sem.Release(1)

		f(w, r)
	}
}

// newServeMux wires the payment handlers and their middleware. The rate
// limiter and the in-flight semaphore are shared by all payment endpoints.
func newServeMux(ph payments.PaymentsHandler, opts serverOptions) *http.ServeMux {
	// Start a new rate limiter. This will limit requests on the payment
	// endpoints to one every `interval` with a burst of up to `burst`
	// requests.
	limiter := rate.NewLimiter(rate.Every(opts.rateInterval), opts.rateBurst)
	inflight := semaphore.NewWeighted(opts.inflightLimit)

	createHandler := func(endpoint string, f func(http.ResponseWriter, *http.Request, payments.PaymentsHandler, time.Duration)) http.HandlerFunc {
		handler := func(w http.ResponseWriter, r *http.Request) {
			f(w, r, ph, opts.requestTimeout)
		}

		return httputils.EnableCORS(
			requestIDMiddleware(
				metricsMiddleware(endpoint,
					throttleMiddleware(limiter,
						inflightMiddleware(inflight, handler)))))
	}

	checkoutFor := func(role payments.Role) func(http.ResponseWriter, *http.Request, payments.PaymentsHandler, time.Duration) {
		return func(w http.ResponseWriter, r *http.Request, ph payments.PaymentsHandler, timeout time.Duration) {
			checkoutHandler(w, r, role, ph, timeout)
		}
	}

	// Create a custom HTTP Request Multiplexer
	mux := http.NewServeMux()
	mux.Handle("/", http.NotFoundHandler())
	mux.HandleFunc(applicantCheckoutPath, createHandler(applicantCheckoutPath, checkoutFor(payments.RoleApplicant)))
	mux.HandleFunc(reviewerCheckoutPath, createHandler(reviewerCheckoutPath, checkoutFor(payments.RoleReviewer)))
	mux.HandleFunc(capturePaymentPath, createHandler(capturePaymentPath, capturePaymentHandler))
	mux.Handle(metricsPath, metrics.Handler())

	return mux
}

// StartHTTPServer starts serving the payment endpoints on the configured
// port. The server is shut down gracefully once `globalCtx` is cancelled. If
// it fails to listen, `globalCancel` is called.
func StartHTTPServer(globalCtx context.Context, globalCancel context.CancelFunc, goroutineTracker *sync.WaitGroup, ph payments.PaymentsHandler) {
	logger.Infof("Starting HTTP server on port %d...", config.GetPort())

	opts := optionsFromConfig()

	// Add timeouts to help mitigate potential rogue clients. Responses can
	// take as long as the Stripe calls behind them, so the write timeout
	// leaves room for the request timeout.
	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", config.GetPort()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      opts.requestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		Handler:           newServeMux(ph, opts),
	}

	goroutineTracker.Add(1)
	go func() {
		defer goroutineTracker.Done()

		// Start goroutine that actually listens for requests
		goroutineTracker.Add(1)
		go func() {
			defer goroutineTracker.Done()

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Panicf(globalCancel, "Error listening and serving in httpserver: %s", err)
			}
		}()

		// Listen for global context cancellation
		<-globalCtx.Done()

		logger.Infof("Shutting down httpserver...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.GetShutdownTimeout())
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Shut down httpserver with error %s", err)
		} else {
			logger.Info("Gracefully shut down httpserver.")
		}
	}()
}

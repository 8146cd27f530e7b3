package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	counter := RequestsTotal.WithLabelValues("/test-endpoint", "200")
	before := testutil.ToFloat64(counter)

	ObserveRequest("/test-endpoint", http.StatusOK, 120*time.Millisecond)
	ObserveRequest("/test-endpoint", http.StatusOK, 80*time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("expected counter to increase by 2, got %v", got)
	}
}

func TestObserveStripeCall(t *testing.T) {
	var tests = []struct {
		name    string
		err     error
		outcome string
	}{
		{"success", nil, OutcomeSuccess},
		{"error", errors.New("card_declined"), OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := StripeCallsTotal.WithLabelValues("test_operation", tt.outcome)
			before := testutil.ToFloat64(counter)

			ObserveStripeCall("test_operation", tt.err)

			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("expected %s counter to increase by 1, got %v", tt.outcome, got)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	ObserveStripeCall("handler_test", nil)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(string(body), `checkout_stripe_calls_total{operation="handler_test",outcome="success"}`) {
		t.Errorf("expected exposition to contain the stripe call counter, got:\n%s", body)
	}
}

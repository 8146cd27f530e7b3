package payments

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
)

// failingTransport fails every request as a dropped connection would, and
// counts the attempts that reached it.
type failingTransport struct {
	attempts int32
}

func (ft *failingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddInt32(&ft.attempts, 1)
	return nil, errors.New("connection reset by peer")
}

// TestStripeClientDoesNotRetry makes sure a network failure reaches the
// caller after a single attempt.
func TestStripeClientDoesNotRetry(t *testing.T) {
	tests := []struct {
		name string
		call func(sc StripeClient) error
	}{
		{"create customer", func(sc StripeClient) error {
			_, err := sc.CreateCustomer(context.Background(), testCheckoutRequest.Metadata())
			return err
		}},
		{"create checkout session", func(sc StripeClient) error {
			params := newCheckoutSessionParams(RoleApplicant, "cus_test", testCheckoutRequest.Metadata())
			_, err := sc.CreateCheckoutSession(context.Background(), params)
			return err
		}},
		{"get checkout session", func(sc StripeClient) error {
			_, err := sc.GetCheckoutSession(context.Background(), "cs_1")
			return err
		}},
		{"capture payment intent", func(sc StripeClient) error {
			_, err := sc.CapturePaymentIntent(context.Background(), "pi_1")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &failingTransport{}
			sc := newStripeClient("sk_test_x", &http.Client{Transport: ft})

			if err := tt.call(sc); err == nil {
				t.Fatal("expected the network failure to be returned, got nil")
			}
			if got := atomic.LoadInt32(&ft.attempts); got != 1 {
				t.Errorf("expected exactly one upstream attempt, got %d", got)
			}
		})
	}
}

// TestCreateCheckoutNetworkFailure goes through PaymentsClient with the real
// Stripe client: the customer call fails once and no session is attempted.
func TestCreateCheckoutNetworkFailure(t *testing.T) {
	ft := &failingTransport{}
	pc := NewPaymentsClient(newStripeClient("sk_test_x", &http.Client{Transport: ft}))

	url, err := pc.CreateCheckout(context.Background(), RoleApplicant, testCheckoutRequest)
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if url != "" {
		t.Errorf("expected no url on failure, got %q", url)
	}
	if got := atomic.LoadInt32(&ft.attempts); got != 1 {
		t.Errorf("expected exactly one upstream attempt, got %d", got)
	}
}

func TestGetCheckoutSessionEmptyID(t *testing.T) {
	ft := &failingTransport{}
	sc := newStripeClient("sk_test_x", &http.Client{Transport: ft})

	if _, err := sc.GetCheckoutSession(context.Background(), ""); err == nil {
		t.Error("expected an error for an empty session id")
	}
	if got := atomic.LoadInt32(&ft.attempts); got != 0 {
		t.Errorf("expected no upstream call, got %d", got)
	}
}

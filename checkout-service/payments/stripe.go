package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// StripeClient is the subset of the Stripe API used by the checkout service.
// Every call is bound to the given context, so cancelling the request
// cancels the call.
type StripeClient interface {
	CreateCustomer(ctx context.Context, metadata map[string]string) (*stripe.Customer, error)
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	CapturePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

// stripeAPIClient implements StripeClient, and interacts directly
// with the official Stripe client.
type stripeAPIClient struct {
	api *client.API // Client authenticated with the secret key
}

// NewStripeClient returns a StripeClient authenticated with the given secret
// key. The client is not bound to the global `stripe.Key`, so several keys can
// coexist in one process.
func NewStripeClient(secretKey string) StripeClient {
	return newStripeClient(secretKey, nil)
}

// newStripeClient builds the client on top of `httpClient`, or the default
// Stripe HTTP client when nil. Failed calls are never retried: every
// operation reaches Stripe at most once.
func newStripeClient(secretKey string, httpClient *http.Client) StripeClient {
	backend := func(t stripe.SupportedBackend) stripe.Backend {
		return stripe.GetBackendWithConfig(t, &stripe.BackendConfig{
			HTTPClient:        httpClient,
			MaxNetworkRetries: stripe.Int64(0),
		})
	}

	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{
		API:     backend(stripe.APIBackend),
		Connect: backend(stripe.ConnectBackend),
		Uploads: backend(stripe.UploadsBackend),
	})

	return &stripeAPIClient{api: api}
}

// CreateCustomer creates a Stripe customer annotated with `metadata`.
func (sc *stripeAPIClient) CreateCustomer(ctx context.Context, metadata map[string]string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	return sc.api.Customers.New(params)
}

// CreateCheckoutSession creates a Stripe checkout session from `params`.
func (sc *stripeAPIClient) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx

	return sc.api.CheckoutSessions.New(params)
}

// GetCheckoutSession retrieves an existing checkout session.
func (sc *stripeAPIClient) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	// An empty id would turn the retrieve call into a list call.
	if id == "" {
		return nil, errors.New("checkout session id is empty")
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	return sc.api.CheckoutSessions.Get(id, params)
}

// CapturePaymentIntent captures the funds of an authorized payment intent.
func (sc *stripeAPIClient) CapturePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	return sc.api.PaymentIntents.Capture(id, params)
}

// newCheckoutSessionParams builds the parameters of a checkout session for a
// single match fee, paid by `customerID` in the capture mode of `role`.
func newCheckoutSessionParams(role Role, customerID string, metadata map[string]string) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{PaymentMethodType}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(ProductName),
					},
					UnitAmount: stripe.Int64(UnitAmount),
				},
				Quantity: stripe.Int64(Quantity),
			},
		},
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			CaptureMethod: stripe.String(string(role.CaptureMode())),
		},
		SuccessURL: stripe.String(SuccessURL),
		CancelURL:  stripe.String(CancelURL),
		Customer:   stripe.String(customerID),
	}

	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	return params
}

// stripeErrorFields extracts the interesting fields of a Stripe API error as
// alternating keys and values for structured logging.
func stripeErrorFields(err error) []interface{} {
	fields := []interface{}{"error", err.Error()}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		fields = append(fields,
			"stripe_type", string(stripeErr.Type),
			"stripe_code", string(stripeErr.Code),
			"stripe_status", stripeErr.HTTPStatusCode,
			"stripe_request_id", stripeErr.RequestID,
		)
	}

	return fields
}

// wrapStripeError annotates an error returned by Stripe with the failed
// operation.
func wrapStripeError(operation string, err error) error {
	return fmt.Errorf("stripe %s failed: %w", operation, err)
}

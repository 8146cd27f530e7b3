// Package payments creates Stripe checkout sessions for the two parties of a
// match and captures the payments that were only authorized. All payment
// state lives in Stripe; this package keeps none.
package payments

import (
	"context"
	"errors"

	"github.com/xuuxu-xu/stripe-integration/checkout-service/metrics"
	"github.com/xuuxu-xu/stripe-integration/logger"
)

// ErrPaymentIntentNotFound is returned when a checkout session has no payment
// intent to capture, e.g. because the customer never completed the payment.
var ErrPaymentIntentNotFound = errors.New("PaymentIntent not found")

// Names of the Stripe operations, as reported in logs and metrics.
const (
	opCreateCustomer        = "create_customer"
	opCreateCheckoutSession = "create_checkout_session"
	opGetCheckoutSession    = "get_checkout_session"
	opCapturePaymentIntent  = "capture_payment_intent"
)

// PaymentsHandler is an abstraction of the payment operations exposed over
// HTTP.
type PaymentsHandler interface {
	CreateCheckout(ctx context.Context, role Role, req CheckoutRequest) (string, error)
	CapturePayment(ctx context.Context, sessionID string) error
}

// PaymentsClient implements PaymentsHandler on top of a StripeClient.
type PaymentsClient struct {
	stripeClient StripeClient
}

// NewPaymentsClient returns a PaymentsClient backed by `sc`.
func NewPaymentsClient(sc StripeClient) *PaymentsClient {
	return &PaymentsClient{stripeClient: sc}
}

// CreateCheckout creates a Stripe customer and a checkout session for the
// match fee, both tagged with the identifiers of `req`, and returns the URL of
// the hosted payment page. The capture mode of the session depends on `role`.
// If the session cannot be created, the customer created before is left in
// place.
func (pc *PaymentsClient) CreateCheckout(ctx context.Context, role Role, req CheckoutRequest) (string, error) {
	metadata := req.Metadata()

	customer, err := pc.stripeClient.CreateCustomer(ctx, metadata)
	metrics.ObserveStripeCall(opCreateCustomer, err)
	if err != nil {
		logger.Errorw("Error creating "+role.String()+" customer", stripeErrorFields(err)...)
		return "", wrapStripeError(opCreateCustomer, err)
	}

	params := newCheckoutSessionParams(role, customer.ID, metadata)
	session, err := pc.stripeClient.CreateCheckoutSession(ctx, params)
	metrics.ObserveStripeCall(opCreateCheckoutSession, err)
	if err != nil {
		logger.Errorw("Error creating "+role.String()+" checkout session",
			append(stripeErrorFields(err), "customer_id", customer.ID)...)
		return "", wrapStripeError(opCreateCheckoutSession, err)
	}

	logger.Infow("Created "+role.String()+" checkout session",
		"session_id", session.ID,
		"customer_id", customer.ID,
		"capture_method", string(role.CaptureMode()),
		MetadataFriendRequestID, req.FriendRequestID,
	)

	return session.URL, nil
}

// CapturePayment captures the payment intent of the checkout session
// `sessionID`. It returns ErrPaymentIntentNotFound, without calling the
// capture endpoint, when the session has no payment intent.
func (pc *PaymentsClient) CapturePayment(ctx context.Context, sessionID string) error {
	session, err := pc.stripeClient.GetCheckoutSession(ctx, sessionID)
	metrics.ObserveStripeCall(opGetCheckoutSession, err)
	if err != nil {
		logger.Errorw("Error retrieving checkout session",
			append(stripeErrorFields(err), "session_id", sessionID)...)
		return wrapStripeError(opGetCheckoutSession, err)
	}

	if session == nil || session.PaymentIntent == nil || session.PaymentIntent.ID == "" {
		logger.Warningw("Checkout session has no payment intent", "session_id", sessionID)
		return ErrPaymentIntentNotFound
	}
	paymentIntentID := session.PaymentIntent.ID

	_, err = pc.stripeClient.CapturePaymentIntent(ctx, paymentIntentID)
	metrics.ObserveStripeCall(opCapturePaymentIntent, err)
	if err != nil {
		logger.Errorw("Error capturing payment",
			append(stripeErrorFields(err), "session_id", sessionID, "payment_intent_id", paymentIntentID)...)
		return wrapStripeError(opCapturePaymentIntent, err)
	}

	logger.Infow("Captured payment", "session_id", sessionID, "payment_intent_id", paymentIntentID)
	return nil
}

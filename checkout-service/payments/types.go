package payments

import (
	"github.com/stripe/stripe-go/v72"
)

// A Role is the party of a match a checkout session is created for.
type Role int

const (
	RoleApplicant Role = iota
	RoleReviewer
)

// String returns the lowercase name of the role, used in logs and errors.
func (r Role) String() string {
	switch r {
	case RoleApplicant:
		return "applicant"
	case RoleReviewer:
		return "reviewer"
	default:
		return "unknown"
	}
}

// A CaptureMode decides when the funds of an authorized payment are moved.
type CaptureMode string

const (
	// CaptureModeManual only authorizes the payment. The funds are moved by a
	// later call to CapturePayment.
	CaptureModeManual = CaptureMode(stripe.PaymentIntentCaptureMethodManual)
	// CaptureModeAutomatic captures the funds as soon as the payment is
	// authorized.
	CaptureModeAutomatic = CaptureMode(stripe.PaymentIntentCaptureMethodAutomatic)
)

// CaptureMode returns the capture mode of the checkout sessions created for
// the role. Applicant payments are held until the match is reviewed, while
// reviewers are charged immediately.
func (r Role) CaptureMode() CaptureMode {
	if r == RoleApplicant {
		return CaptureModeManual
	}
	return CaptureModeAutomatic
}

// CheckoutRequest carries the identifiers of a match. They are opaque to this
// service and forwarded to Stripe as metadata without validation.
type CheckoutRequest struct {
	ApplicantID     string `json:"applicantId"`
	FriendRequestID string `json:"friendRequestId"`
	ReviewerID      string `json:"reviewerId"`
	PayerID         string `json:"payerId"`
}

// Metadata returns the identifiers keyed the way they are stored in Stripe.
func (c CheckoutRequest) Metadata() map[string]string {
	return map[string]string{
		MetadataApplicantID:     c.ApplicantID,
		MetadataFriendRequestID: c.FriendRequestID,
		MetadataReviewerID:      c.ReviewerID,
		MetadataPayerID:         c.PayerID,
	}
}

// CheckoutResult is returned to the client after a checkout session is
// created.
type CheckoutResult struct {
	URL string `json:"url"`
}

// CaptureRequest references a previously created checkout session.
type CaptureRequest struct {
	SessionID string `json:"sessionId"`
}

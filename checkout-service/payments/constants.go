package payments

// Fixed parameters of every checkout session. All matches cost the same,
// whichever party pays.
const (
	// Currency is the ISO 4217 code of the checkout line item.
	Currency = "jpy"
	// ProductName is the name shown on the hosted payment page.
	ProductName = "マッチング費用"
	// UnitAmount is expressed in the smallest currency unit. JPY has no
	// minor unit, so this is 300 yen.
	UnitAmount int64 = 300
	// Quantity of the single line item.
	Quantity int64 = 1
	// PaymentMethodType is the only payment method offered.
	PaymentMethodType = "card"

	SuccessURL = "https://pipeline.jpn.com/version-live/payment-success"
	CancelURL  = "https://pipeline.jpn.com/version-live/payment-cancel"
)

// Metadata keys attached to both the Stripe customer and the checkout
// session, so the caller can reconcile them later.
const (
	MetadataApplicantID     = "applicantId"
	MetadataFriendRequestID = "friendRequestId"
	MetadataReviewerID      = "reviewerId"
	MetadataPayerID         = "payerId"
)

// AngelaMos | 2026
// provider.go

package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotConfigured        = errors.New("billing not configured")
	ErrSignatureMissing     = errors.New("missing webhook signature")
	ErrWebhookSecretMissing = errors.New("webhook secret not configured")
	ErrSignatureInvalid     = errors.New("invalid webhook signature")
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrInvalidInterval      = errors.New("invalid interval")
	ErrPriceNotConfigured   = errors.New("price not configured")
	ErrUnattributed         = errors.New("event has no user attribution")
	ErrMalformedEvent       = errors.New("malformed event")
	ErrUnknownEvent         = errors.New("unrecognized event kind")
)

// Provider is the payment provider as seen by checkout and the webhook
// receiver. A nil Provider means billing is not configured.
type Provider interface {
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	CreateCheckoutSession(
		ctx context.Context,
		input CheckoutSessionInput,
	) (*CheckoutSession, error)
	// ConstructEvent verifies signature over the exact payload bytes before
	// decoding the envelope.
	ConstructEvent(payload []byte, signature string) (*Event, error)
}

type CheckoutSessionInput struct {
	UserID     string
	CustomerID string
	PriceID    string
	Plan       string
	Interval   Interval
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified provider event envelope. Object is the still
// undecoded data.object payload.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	Object  json.RawMessage
}

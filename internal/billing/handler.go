// AngelaMos | 2026
// handler.go

package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/middleware"
)

const maxWebhookBytes = 64 << 10

type CheckoutRequest struct {
	Plan     string `json:"plan"     validate:"required,oneof=pro enterprise"`
	Interval string `json:"interval" validate:"omitempty,oneof=monthly yearly"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type Handler struct {
	checkout  *CheckoutService
	receiver  *Receiver
	validator *validator.Validate
}

func NewHandler(checkout *CheckoutService, receiver *Receiver) *Handler {
	return &Handler{
		checkout:  checkout,
		receiver:  receiver,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/stripe", func(r chi.Router) {
		r.Post("/webhook", h.Webhook)
		r.With(authenticator).Post("/checkout", h.Checkout)
	})
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	url, err := h.checkout.CreateSession(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPlan),
			errors.Is(err, ErrInvalidInterval):
			core.BadRequest(w, err.Error())
		case errors.Is(err, ErrPriceNotConfigured):
			core.BadRequest(w, "no price is configured for this plan and interval")
		case errors.Is(err, ErrNotConfigured):
			core.ServiceUnavailable(w, "billing is not configured")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, CheckoutResponse{URL: url})
}

// Webhook reads the body as raw bytes and hands it to the receiver
// unparsed; nothing is decoded before the signature checks out.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		core.BadRequest(w, "unreadable or oversized body")
		return
	}

	err = h.receiver.Handle(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotConfigured):
			core.ServiceUnavailable(w, "billing is not configured")
		case errors.Is(err, ErrSignatureMissing):
			core.BadRequest(w, "missing stripe-signature header")
		case errors.Is(err, ErrWebhookSecretMissing):
			core.BadRequest(w, "webhook secret not configured")
		case errors.Is(err, ErrSignatureInvalid):
			core.BadRequest(w, "invalid signature")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, WebhookResponse{Received: true})
}

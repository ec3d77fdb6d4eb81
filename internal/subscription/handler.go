// AngelaMos | 2026
// handler.go

package subscription

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/middleware"
)

type SubscriptionResponse struct {
	Plan               Plan       `json:"plan"`
	Status             Status     `json:"status"`
	CurrentPeriodStart *time.Time `json:"currentPeriodStart"`
	CurrentPeriodEnd   *time.Time `json:"currentPeriodEnd"`
	CancelAtPeriodEnd  bool       `json:"cancelAtPeriodEnd"`
	Paid               bool       `json:"paid"`
	HasBillingAccount  bool       `json:"hasBillingAccount"`
	Features           []string   `json:"features"`
}

type PlanResponse struct {
	Plan        Plan     `json:"plan"`
	Features    []string `json:"features"`
	Purchasable bool     `json:"purchasable"`
}

type Handler struct {
	gate     *Gate
	features FeatureTable
}

func NewHandler(gate *Gate, features FeatureTable) *Handler {
	return &Handler{gate: gate, features: features}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Get("/plans", h.ListPlans)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/subscription", h.GetCurrent)
	})
}

func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sub, err := h.gate.Current(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	all, err := h.features.All(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	features := all[sub.Plan]
	if features == nil {
		features = []string{}
	}

	core.OK(w, SubscriptionResponse{
		Plan:               sub.Plan,
		Status:             sub.Status,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		Paid:               sub.IsPaid(),
		HasBillingAccount:  sub.StripeCustomerID != nil,
		Features:           features,
	})
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	all, err := h.features.All(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	plans := make([]PlanResponse, 0, len(AllPlans))
	for _, p := range AllPlans {
		features := all[p]
		if features == nil {
			features = []string{}
		}
		plans = append(plans, PlanResponse{
			Plan:        p,
			Features:    features,
			Purchasable: p.Purchasable(),
		})
	}

	core.OK(w, plans)
}

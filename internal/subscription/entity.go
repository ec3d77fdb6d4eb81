// AngelaMos | 2026
// entity.go

package subscription

import (
	"time"
)

type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// AllPlans is ordered from cheapest to most expensive.
var AllPlans = []Plan{PlanFree, PlanBasic, PlanPro, PlanEnterprise}

func (p Plan) Rank() int {
	for i, plan := range AllPlans {
		if plan == p {
			return i
		}
	}
	return -1
}

func (p Plan) Valid() bool {
	return p.Rank() >= 0
}

// Purchasable reports whether the plan can be bought through checkout.
func (p Plan) Purchasable() bool {
	return p == PlanPro || p == PlanEnterprise
}

func ParsePlan(s string) (Plan, bool) {
	p := Plan(s)
	return p, p.Valid()
}

// Status mirrors the payment provider's subscription status. Values other
// than the constants below are stored verbatim.
type Status string

const (
	StatusActive     Status = "active"
	StatusTrialing   Status = "trialing"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusIncomplete Status = "incomplete"
	StatusUnpaid     Status = "unpaid"

	// StatusIncompleteExpired ends a subscription whose first payment was
	// never completed.
	StatusIncompleteExpired Status = "incomplete_expired"
)

// Terminal reports whether the provider subscription is gone for good.
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusIncompleteExpired
}

type Subscription struct {
	UserID               string     `db:"user_id"`
	Plan                 Plan       `db:"plan"`
	Status               Status     `db:"status"`
	StripeCustomerID     *string    `db:"stripe_customer_id"`
	StripeSubscriptionID *string    `db:"stripe_subscription_id"`
	CurrentPeriodStart   *time.Time `db:"current_period_start"`
	CurrentPeriodEnd     *time.Time `db:"current_period_end"`
	CancelAtPeriodEnd    bool       `db:"cancel_at_period_end"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

// Implicit is the subscription a user without a row is treated as having.
func Implicit(userID string) *Subscription {
	return &Subscription{
		UserID: userID,
		Plan:   PlanFree,
		Status: StatusActive,
	}
}

// provisionalPeriod is how long checkout completion unlocks a plan for
// until the provider's subscription event supplies the real period.
const provisionalPeriod = 30 * 24 * time.Hour

// ActivateFromCheckout unblocks the user as soon as checkout completes.
// The period written here is provisional.
func (s *Subscription) ActivateFromCheckout(
	plan Plan,
	customerID, subscriptionID string,
	now time.Time,
) {
	start := now.UTC()
	end := start.Add(provisionalPeriod)

	s.Plan = plan
	s.Status = StatusActive
	s.StripeCustomerID = optional(customerID)
	s.StripeSubscriptionID = optional(subscriptionID)
	s.CurrentPeriodStart = &start
	s.CurrentPeriodEnd = &end
	s.CancelAtPeriodEnd = false
	s.Normalize()
}

type ProviderState struct {
	Plan               Plan
	Status             Status
	CustomerID         string
	SubscriptionID     string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
}

// SyncFromProvider overwrites every state field with what the provider
// reported. It is last-write-wins: applying the same state twice is a
// no-op, but an older state delivered late replaces a newer one.
func (s *Subscription) SyncFromProvider(state ProviderState) {
	s.Plan = state.Plan
	s.Status = state.Status
	s.StripeCustomerID = optional(state.CustomerID)
	s.StripeSubscriptionID = optional(state.SubscriptionID)
	s.CurrentPeriodStart = utcPtr(state.CurrentPeriodStart)
	s.CurrentPeriodEnd = utcPtr(state.CurrentPeriodEnd)
	s.CancelAtPeriodEnd = state.CancelAtPeriodEnd
	s.Normalize()
}

func (s *Subscription) Cancel() {
	s.Status = StatusCanceled
	s.Normalize()
}

// Normalize enforces the row invariants: a subscription in a terminal
// status is always on the free plan with no provider subscription or
// period attached.
func (s *Subscription) Normalize() {
	if s.Status.Terminal() {
		s.Plan = PlanFree
		s.StripeSubscriptionID = nil
		s.CurrentPeriodStart = nil
		s.CurrentPeriodEnd = nil
		s.CancelAtPeriodEnd = false
	}
	if !s.Plan.Valid() {
		s.Plan = PlanFree
	}
}

func (s *Subscription) IsPaid() bool {
	return s.Plan != PlanFree &&
		(s.Status == StatusActive ||
			s.Status == StatusTrialing ||
			s.Status == StatusPastDue)
}

func (s *Subscription) CustomerID() string {
	if s.StripeCustomerID == nil {
		return ""
	}
	return *s.StripeCustomerID
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

type PlanStatusCount struct {
	Plan   Plan   `db:"plan"   json:"plan"`
	Status Status `db:"status" json:"status"`
	Count  int    `db:"count"  json:"count"`
}

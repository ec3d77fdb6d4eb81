// AngelaMos | 2026
// events.go

package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/carterperez-dev/ledger-backend/internal/subscription"
)

const (
	KindCheckoutCompleted   = "checkout.session.completed"
	KindSubscriptionCreated = "customer.subscription.created"
	KindSubscriptionUpdated = "customer.subscription.updated"
	KindSubscriptionDeleted = "customer.subscription.deleted"
	KindInvoicePaid         = "invoice.payment_succeeded"
	KindInvoiceFailed       = "invoice.payment_failed"
)

// ParsedEvent is one of CheckoutCompleted, SubscriptionChanged,
// SubscriptionDeleted, InvoicePaid or InvoiceFailed.
type ParsedEvent interface {
	Kind() string
	User() string
}

type CheckoutCompleted struct {
	UserID         string
	Plan           subscription.Plan
	CustomerID     string
	SubscriptionID string
}

type SubscriptionChanged struct {
	UserID string
	State  subscription.ProviderState
}

type SubscriptionDeleted struct {
	UserID         string
	CustomerID     string
	SubscriptionID string
}

type InvoicePaid struct {
	UserID         string
	InvoiceID      string
	CustomerID     string
	SubscriptionID string
	AmountPaid     int64
	Currency       string
}

type InvoiceFailed struct {
	UserID         string
	InvoiceID      string
	CustomerID     string
	SubscriptionID string
	AmountDue      int64
	Currency       string
	AttemptCount   int64
}

func (CheckoutCompleted) Kind() string     { return KindCheckoutCompleted }
func (SubscriptionChanged) Kind() string   { return KindSubscriptionUpdated }
func (SubscriptionDeleted) Kind() string   { return KindSubscriptionDeleted }
func (InvoicePaid) Kind() string           { return KindInvoicePaid }
func (InvoiceFailed) Kind() string         { return KindInvoiceFailed }

func (e CheckoutCompleted) User() string   { return e.UserID }
func (e SubscriptionChanged) User() string { return e.UserID }
func (e SubscriptionDeleted) User() string { return e.UserID }
func (e InvoicePaid) User() string         { return e.UserID }
func (e InvoiceFailed) User() string       { return e.UserID }

// legacyFields holds values that API versions before 2025-03-31 send at
// the top level of subscriptions and invoices. stripe-go v82 models only
// the newer layout, so they are decoded from the same payload separately.
type legacyFields struct {
	CurrentPeriodStart  int64                `json:"current_period_start"`
	CurrentPeriodEnd    int64                `json:"current_period_end"`
	Subscription        *stripe.Subscription `json:"subscription"`
	SubscriptionDetails *struct {
		Metadata map[string]string `json:"metadata"`
	} `json:"subscription_details"`
}

// decodeObject unmarshals raw into every dst; any failure is malformed.
func decodeObject(raw json.RawMessage, object string, dst ...any) error {
	for _, d := range dst {
		if err := json.Unmarshal(raw, d); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformedEvent, object, err)
		}
	}
	return nil
}

// ParseEvent decodes a verified event object by kind. Subscription and
// checkout events without user_id metadata fail with ErrUnattributed;
// unknown kinds fail with ErrUnknownEvent.
func ParseEvent(
	kind string,
	raw json.RawMessage,
	prices *PriceCatalog,
) (ParsedEvent, error) {
	switch kind {
	case KindCheckoutCompleted:
		return parseCheckoutCompleted(raw)
	case KindSubscriptionCreated, KindSubscriptionUpdated:
		return parseSubscriptionChanged(raw, prices)
	case KindSubscriptionDeleted:
		return parseSubscriptionDeleted(raw)
	case KindInvoicePaid:
		inv, err := decodeInvoice(raw)
		if err != nil {
			return nil, err
		}
		return InvoicePaid{
			UserID:         inv.userID(),
			InvoiceID:      inv.ID,
			CustomerID:     customerID(inv.Customer),
			SubscriptionID: inv.subscriptionID(),
			AmountPaid:     inv.AmountPaid,
			Currency:       string(inv.Currency),
		}, nil
	case KindInvoiceFailed:
		inv, err := decodeInvoice(raw)
		if err != nil {
			return nil, err
		}
		return InvoiceFailed{
			UserID:         inv.userID(),
			InvoiceID:      inv.ID,
			CustomerID:     customerID(inv.Customer),
			SubscriptionID: inv.subscriptionID(),
			AmountDue:      inv.AmountDue,
			Currency:       string(inv.Currency),
			AttemptCount:   inv.AttemptCount,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, kind)
}

func parseCheckoutCompleted(raw json.RawMessage) (ParsedEvent, error) {
	var sess stripe.CheckoutSession
	if err := decodeObject(raw, "checkout session", &sess); err != nil {
		return nil, err
	}

	userID := sess.Metadata[metaUserID]
	if userID == "" {
		return nil, fmt.Errorf("checkout session %s: %w", sess.ID, ErrUnattributed)
	}

	plan, ok := subscription.ParsePlan(sess.Metadata[metaPlan])
	if !ok || !plan.Purchasable() {
		return nil, fmt.Errorf(
			"%w: checkout session %s has plan %q",
			ErrMalformedEvent, sess.ID, sess.Metadata[metaPlan],
		)
	}

	return CheckoutCompleted{
		UserID:         userID,
		Plan:           plan,
		CustomerID:     customerID(sess.Customer),
		SubscriptionID: subscriptionRef(sess.Subscription),
	}, nil
}

func parseSubscriptionChanged(
	raw json.RawMessage,
	prices *PriceCatalog,
) (ParsedEvent, error) {
	var (
		sub    stripe.Subscription
		legacy legacyFields
	)
	if err := decodeObject(raw, "subscription", &sub, &legacy); err != nil {
		return nil, err
	}

	userID := sub.Metadata[metaUserID]
	if userID == "" {
		return nil, fmt.Errorf("subscription %s: %w", sub.ID, ErrUnattributed)
	}
	if sub.Status == "" {
		return nil, fmt.Errorf("%w: subscription %s has no status", ErrMalformedEvent, sub.ID)
	}

	plan, ok := subscription.ParsePlan(sub.Metadata[metaPlan])
	if !ok {
		plan, ok = planFromPrice(&sub, prices)
	}
	if !ok {
		return nil, fmt.Errorf(
			"%w: subscription %s has no resolvable plan",
			ErrMalformedEvent, sub.ID,
		)
	}

	start, end := period(&sub, legacy)

	return SubscriptionChanged{
		UserID: userID,
		State: subscription.ProviderState{
			Plan:               plan,
			Status:             subscription.Status(sub.Status),
			CustomerID:         customerID(sub.Customer),
			SubscriptionID:     sub.ID,
			CurrentPeriodStart: start,
			CurrentPeriodEnd:   end,
			CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		},
	}, nil
}

func parseSubscriptionDeleted(raw json.RawMessage) (ParsedEvent, error) {
	var sub stripe.Subscription
	if err := decodeObject(raw, "subscription", &sub); err != nil {
		return nil, err
	}

	userID := sub.Metadata[metaUserID]
	if userID == "" {
		return nil, fmt.Errorf("subscription %s: %w", sub.ID, ErrUnattributed)
	}

	return SubscriptionDeleted{
		UserID:         userID,
		CustomerID:     customerID(sub.Customer),
		SubscriptionID: sub.ID,
	}, nil
}

func subscriptionItems(sub *stripe.Subscription) []*stripe.SubscriptionItem {
	if sub.Items == nil {
		return nil
	}
	return sub.Items.Data
}

func planFromPrice(sub *stripe.Subscription, prices *PriceCatalog) (subscription.Plan, bool) {
	if prices == nil {
		return "", false
	}
	for _, item := range subscriptionItems(sub) {
		if item == nil || item.Price == nil {
			continue
		}
		if plan, ok := prices.PlanForPrice(item.Price.ID); ok {
			return plan, true
		}
	}
	return "", false
}

// period prefers the legacy top-level fields and falls back to the first
// item, where newer API versions report them.
func period(sub *stripe.Subscription, legacy legacyFields) (*time.Time, *time.Time) {
	start, end := legacy.CurrentPeriodStart, legacy.CurrentPeriodEnd
	if items := subscriptionItems(sub); (start == 0 || end == 0) && len(items) > 0 && items[0] != nil {
		start, end = items[0].CurrentPeriodStart, items[0].CurrentPeriodEnd
	}
	return unixPtr(start), unixPtr(end)
}

type invoice struct {
	*stripe.Invoice
	legacy legacyFields
}

func decodeInvoice(raw json.RawMessage) (*invoice, error) {
	inv := &invoice{Invoice: &stripe.Invoice{}}
	if err := decodeObject(raw, "invoice", inv.Invoice, &inv.legacy); err != nil {
		return nil, err
	}
	return inv, nil
}

func (i *invoice) parentDetails() *stripe.InvoiceParentSubscriptionDetails {
	if i.Parent == nil {
		return nil
	}
	return i.Parent.SubscriptionDetails
}

func (i *invoice) userID() string {
	if d := i.parentDetails(); d != nil && d.Metadata[metaUserID] != "" {
		return d.Metadata[metaUserID]
	}
	if d := i.legacy.SubscriptionDetails; d != nil && d.Metadata[metaUserID] != "" {
		return d.Metadata[metaUserID]
	}
	return i.Metadata[metaUserID]
}

func (i *invoice) subscriptionID() string {
	if id := subscriptionRef(i.legacy.Subscription); id != "" {
		return id
	}
	if d := i.parentDetails(); d != nil {
		return subscriptionRef(d.Subscription)
	}
	return ""
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func subscriptionRef(s *stripe.Subscription) string {
	if s == nil {
		return ""
	}
	return s.ID
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

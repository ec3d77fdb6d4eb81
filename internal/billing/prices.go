// AngelaMos | 2026
// prices.go

package billing

import (
	"github.com/carterperez-dev/ledger-backend/internal/subscription"
)

type Interval string

const (
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

// ParseInterval defaults an empty interval to monthly.
func ParseInterval(s string) (Interval, bool) {
	switch Interval(s) {
	case "":
		return IntervalMonthly, true
	case IntervalMonthly, IntervalYearly:
		return Interval(s), true
	}
	return "", false
}

// PriceCatalog maps (plan, interval) to provider price ids and back.
type PriceCatalog struct {
	prices map[subscription.Plan]map[Interval]string
	plans  map[string]subscription.Plan
}

func NewPriceCatalog(prices map[string]map[string]string) *PriceCatalog {
	c := &PriceCatalog{
		prices: make(map[subscription.Plan]map[Interval]string),
		plans:  make(map[string]subscription.Plan),
	}

	for name, byInterval := range prices {
		plan, ok := subscription.ParsePlan(name)
		if !ok {
			continue
		}
		for iv, priceID := range byInterval {
			if priceID == "" {
				continue
			}
			if c.prices[plan] == nil {
				c.prices[plan] = make(map[Interval]string)
			}
			c.prices[plan][Interval(iv)] = priceID
			c.plans[priceID] = plan
		}
	}

	return c
}

func (c *PriceCatalog) PriceID(plan subscription.Plan, interval Interval) (string, bool) {
	id, ok := c.prices[plan][interval]
	return id, ok
}

func (c *PriceCatalog) PlanForPrice(priceID string) (subscription.Plan, bool) {
	plan, ok := c.plans[priceID]
	return plan, ok
}

// AngelaMos | 2026
// dto.go

package admin

import "github.com/carterperez-dev/ledger-backend/internal/subscription"

type OverviewResponse struct {
	Infrastructure InfrastructureStatus `json:"infrastructure"`
	Subscriptions  SubscriptionSummary  `json:"subscriptions"`
	Ledger         LedgerTotals         `json:"ledger"`
}

type InfrastructureStatus struct {
	Database PoolStatus   `json:"database"`
	Redis    PoolStatus   `json:"redis"`
	Runtime  RuntimeStats `json:"runtime"`
}

// PoolStatus pairs a ping result with pool counters. Stats is nil when
// the pool is not wired.
type PoolStatus struct {
	Healthy bool       `json:"healthy"`
	Stats   *PoolStats `json:"stats,omitempty"`
}

type PoolStats struct {
	Open    int    `json:"open"`
	InUse   int    `json:"in_use"`
	Idle    int    `json:"idle"`
	Waits   int64  `json:"waits"`
	WaitFor string `json:"wait_for,omitempty"`
	Misses  uint32 `json:"misses,omitempty"`
	Timeout uint32 `json:"timeouts,omitempty"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	HeapAlloc    uint64 `json:"heap_alloc_bytes"`
	NumGC        uint32 `json:"num_gc"`
}

// SubscriptionSummary folds the plan/status breakdown into the totals the
// admin page shows. Users with no row are on the implicit free plan and
// are not counted here.
type SubscriptionSummary struct {
	Paying   int                            `json:"paying"`
	ByPlan   map[subscription.Plan]int      `json:"by_plan"`
	ByStatus map[subscription.Status]int    `json:"by_status"`
	Rows     []subscription.PlanStatusCount `json:"rows"`
}

type LedgerTotals struct {
	Users        int `json:"users"        db:"users"`
	Onboarded    int `json:"onboarded"    db:"onboarded"`
	Customers    int `json:"customers"    db:"customers"`
	Transactions int `json:"transactions" db:"transactions"`
}

// Summarize counts a row as paying when it is on a paid plan and its
// status still grants that plan.
func Summarize(rows []subscription.PlanStatusCount) SubscriptionSummary {
	s := SubscriptionSummary{
		ByPlan:   make(map[subscription.Plan]int),
		ByStatus: make(map[subscription.Status]int),
		Rows:     rows,
	}
	if s.Rows == nil {
		s.Rows = []subscription.PlanStatusCount{}
	}

	for _, row := range rows {
		s.ByPlan[row.Plan] += row.Count
		s.ByStatus[row.Status] += row.Count
		if row.Plan != subscription.PlanFree &&
			(row.Status == subscription.StatusActive || row.Status == subscription.StatusPastDue) {
			s.Paying += row.Count
		}
	}

	return s
}

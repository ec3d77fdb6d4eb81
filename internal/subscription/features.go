// AngelaMos | 2026
// features.go

package subscription

import (
	"context"
	"fmt"
	"slices"

	"github.com/carterperez-dev/ledger-backend/internal/core"
)

const (
	FeatureCustomers    = "customers"
	FeatureTransactions = "transactions"
	FeatureDashboard    = "dashboard"
	FeatureExport       = "export"
	FeatureCustomFields = "custom_fields"
	FeatureAPIAccess    = "api_access"
)

// FeatureTable answers which plans enable a feature.
type FeatureTable interface {
	PlansWithFeature(ctx context.Context, feature string) ([]Plan, error)
	All(ctx context.Context) (map[Plan][]string, error)
}

type StaticFeatureTable struct {
	features map[Plan][]string
}

// NewStaticFeatureTable builds a table from plan name to enabled features.
// Unknown plan names are ignored.
func NewStaticFeatureTable(byPlan map[string][]string) *StaticFeatureTable {
	features := make(map[Plan][]string, len(byPlan))
	for name, list := range byPlan {
		plan, ok := ParsePlan(name)
		if !ok {
			continue
		}
		features[plan] = slices.Clone(list)
	}
	return &StaticFeatureTable{features: features}
}

func (t *StaticFeatureTable) PlansWithFeature(
	_ context.Context,
	feature string,
) ([]Plan, error) {
	var plans []Plan
	for _, plan := range AllPlans {
		if slices.Contains(t.features[plan], feature) {
			plans = append(plans, plan)
		}
	}
	return plans, nil
}

func (t *StaticFeatureTable) All(_ context.Context) (map[Plan][]string, error) {
	out := make(map[Plan][]string, len(t.features))
	for plan, list := range t.features {
		out[plan] = slices.Clone(list)
	}
	return out, nil
}

type featureRepository struct {
	db core.DBTX
}

// NewFeatureRepository reads the plan_features table.
func NewFeatureRepository(db core.DBTX) FeatureTable {
	return &featureRepository{db: db}
}

func (r *featureRepository) PlansWithFeature(
	ctx context.Context,
	feature string,
) ([]Plan, error) {
	query := `
		SELECT plan
		FROM plan_features
		WHERE feature = $1 AND enabled = TRUE`

	var plans []Plan
	if err := r.db.SelectContext(ctx, &plans, query, feature); err != nil {
		return nil, fmt.Errorf("plans with feature: %w", err)
	}

	slices.SortFunc(plans, func(a, b Plan) int { return a.Rank() - b.Rank() })
	return plans, nil
}

func (r *featureRepository) All(ctx context.Context) (map[Plan][]string, error) {
	query := `
		SELECT plan, feature
		FROM plan_features
		WHERE enabled = TRUE
		ORDER BY plan, feature`

	var rows []struct {
		Plan    Plan   `db:"plan"`
		Feature string `db:"feature"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list plan features: %w", err)
	}

	out := make(map[Plan][]string)
	for _, row := range rows {
		out[row.Plan] = append(out[row.Plan], row.Feature)
	}
	return out, nil
}

// AngelaMos | 2026
// gate.go

package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/middleware"
)

type Reader interface {
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)
}

// Decision is the outcome of a feature check. UpgradeRequired is empty when
// the feature is allowed or when no higher plan enables it.
type Decision struct {
	Allowed         bool
	Subscription    *Subscription
	UpgradeRequired Plan
}

// Gate decides whether a user's current plan includes a feature. It reads
// the committed subscription row on every call.
type Gate struct {
	subs     Reader
	features FeatureTable
}

func NewGate(subs Reader, features FeatureTable) *Gate {
	return &Gate{subs: subs, features: features}
}

func (g *Gate) Current(ctx context.Context, userID string) (*Subscription, error) {
	sub, err := g.subs.GetByUserID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return Implicit(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (g *Gate) RequireFeature(
	ctx context.Context,
	userID string,
	feature string,
) (*Decision, error) {
	sub, err := g.Current(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("require feature %s: %w", feature, err)
	}

	plans, err := g.features.PlansWithFeature(ctx, feature)
	if err != nil {
		return nil, fmt.Errorf("require feature %s: %w", feature, err)
	}

	decision := &Decision{
		Allowed:      slices.Contains(plans, sub.Plan),
		Subscription: sub,
	}
	if !decision.Allowed {
		decision.UpgradeRequired = lowestAbove(plans, sub.Plan)
	}

	return decision, nil
}

func lowestAbove(plans []Plan, current Plan) Plan {
	var best Plan
	for _, p := range plans {
		if p.Rank() <= current.Rank() {
			continue
		}
		if best == "" || p.Rank() < best.Rank() {
			best = p
		}
	}
	return best
}

// FeatureError renders a denied decision as 403 with the upgrade hint.
func FeatureError(feature string, decision *Decision) *core.AppError {
	appErr := core.ForbiddenError(feature + " is not available on your plan")
	appErr.Code = "UPGRADE_REQUIRED"
	if decision != nil && decision.UpgradeRequired != "" {
		appErr.WithDetail("upgradeRequired", decision.UpgradeRequired)
	}
	return appErr
}

// Middleware must run after middleware.Authenticator.
func (g *Gate) Middleware(feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := middleware.GetUserID(r.Context())
			if userID == "" {
				core.Unauthorized(w, "")
				return
			}

			decision, err := g.RequireFeature(r.Context(), userID, feature)
			if err != nil {
				core.InternalServerError(w, err)
				return
			}
			if !decision.Allowed {
				core.JSONError(w, FeatureError(feature, decision))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

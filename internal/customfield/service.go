// AngelaMos | 2026
// service.go

package customfield

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/subscription"
)

const (
	maxTextLength = 1000
	dateLayout    = "2006-01-02"
)

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

type FeatureGate interface {
	RequireFeature(ctx context.Context, userID, feature string) (*subscription.Decision, error)
}

type Service struct {
	repo Repository
	gate FeatureGate
}

func NewService(repo Repository, gate FeatureGate) *Service {
	return &Service{repo: repo, gate: gate}
}

func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Definition, error) {
	key := strings.TrimSpace(req.Key)
	if !keyPattern.MatchString(key) {
		return nil, core.BadRequestError(
			"key must start with a letter and contain only lowercase letters, digits and underscores",
		)
	}

	def := &Definition{
		ID:     uuid.New().String(),
		UserID: userID,
		Entity: Entity(req.Entity),
		Key:    key,
		Label:  strings.TrimSpace(req.Label),
		Type:   FieldType(req.Type),
	}
	if err := setOptions(def, req.Options); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, def); err != nil {
		return nil, err
	}

	return def, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Definition, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, userID string, entity Entity) ([]Definition, error) {
	if entity != "" && !entity.Valid() {
		return nil, core.BadRequestError("entity must be customer or transaction")
	}
	return s.repo.List(ctx, userID, entity)
}

func (s *Service) Update(
	ctx context.Context,
	userID, id string,
	req UpdateRequest,
) (*Definition, error) {
	def, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		def.Label = strings.TrimSpace(*req.Label)
	}
	if req.Options != nil {
		if err := setOptions(def, req.Options); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, def); err != nil {
		return nil, err
	}

	return def, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, id, userID)
}

func setOptions(def *Definition, options []string) error {
	if def.Type != TypeSelect {
		if len(options) > 0 {
			return core.BadRequestError("options are only allowed on select fields")
		}
		def.Options = nil
		return nil
	}

	cleaned := make(StringList, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o != "" && !slices.Contains(cleaned, o) {
			cleaned = append(cleaned, o)
		}
	}
	if len(cleaned) == 0 {
		return core.BadRequestError("select fields need at least one option")
	}

	def.Options = cleaned
	return nil
}

// ValuesForWrite checks that the user's plan includes custom fields and
// validates values against the user's definitions for entity. Empty input
// needs no feature and yields nil.
func (s *Service) ValuesForWrite(
	ctx context.Context,
	userID string,
	entity Entity,
	values map[string]any,
) (Values, error) {
	if len(values) == 0 {
		return nil, nil
	}

	decision, err := s.gate.RequireFeature(ctx, userID, subscription.FeatureCustomFields)
	if err != nil {
		return nil, fmt.Errorf("custom values: %w", err)
	}
	if !decision.Allowed {
		return nil, subscription.FeatureError(subscription.FeatureCustomFields, decision)
	}

	defs, err := s.repo.List(ctx, userID, entity)
	if err != nil {
		return nil, err
	}

	return Validate(defs, values)
}

// Validate normalizes values against defs. Null values are dropped.
func Validate(defs []Definition, values map[string]any) (Values, error) {
	byKey := make(map[string]*Definition, len(defs))
	for i := range defs {
		byKey[defs[i].Key] = &defs[i]
	}

	out := make(Values, len(values))
	for key, raw := range values {
		def, ok := byKey[key]
		if !ok {
			return nil, core.BadRequestError("unknown custom field: " + key)
		}
		if raw == nil {
			continue
		}

		v, err := normalize(def, raw)
		if err != nil {
			return nil, core.BadRequestError(fmt.Sprintf("custom field %s: %v", key, err))
		}
		out[key] = v
	}

	return out, nil
}

func normalize(def *Definition, raw any) (any, error) {
	switch def.Type {
	case TypeText:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		if len(s) > maxTextLength {
			return nil, fmt.Errorf("must be at most %d characters", maxTextLength)
		}
		return s, nil

	case TypeNumber:
		var d decimal.Decimal
		var err error
		switch n := raw.(type) {
		case float64:
			d = decimal.NewFromFloat(n)
		case json.Number:
			d, err = decimal.NewFromString(n.String())
		case string:
			d, err = decimal.NewFromString(strings.TrimSpace(n))
		default:
			err = fmt.Errorf("unsupported type %T", raw)
		}
		if err != nil {
			return nil, fmt.Errorf("must be a number")
		}
		return json.Number(d.String()), nil

	case TypeDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a date (YYYY-MM-DD)")
		}
		if _, err := time.Parse(dateLayout, s); err != nil {
			return nil, fmt.Errorf("must be a date (YYYY-MM-DD)")
		}
		return s, nil

	case TypeSelect:
		s, ok := raw.(string)
		if !ok || !slices.Contains(def.Options, s) {
			return nil, fmt.Errorf("must be one of: %s", strings.Join(def.Options, ", "))
		}
		return s, nil
	}

	return nil, fmt.Errorf("unsupported field type %q", def.Type)
}

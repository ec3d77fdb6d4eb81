// AngelaMos | 2026
// dto.go

package customfield

import (
	"time"
)

type CreateRequest struct {
	Entity  string   `json:"entity"  validate:"required,oneof=customer transaction"`
	Key     string   `json:"key"     validate:"required,min=1,max=64"`
	Label   string   `json:"label"   validate:"required,min=1,max=100"`
	Type    string   `json:"type"    validate:"required,oneof=text number date select"`
	Options []string `json:"options" validate:"omitempty,max=50,dive,required,max=100"`
}

// UpdateRequest cannot change entity, key or type; existing values would
// no longer match the definition.
type UpdateRequest struct {
	Label   *string  `json:"label,omitempty" validate:"omitempty,min=1,max=100"`
	Options []string `json:"options"         validate:"omitempty,max=50,dive,required,max=100"`
}

type Response struct {
	ID        string    `json:"id"`
	Entity    Entity    `json:"entity"`
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Type      FieldType `json:"type"`
	Options   []string  `json:"options"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListResponse struct {
	Fields []Response `json:"fields"`
}

func ToResponse(d *Definition) Response {
	options := []string(d.Options)
	if options == nil {
		options = []string{}
	}
	return Response{
		ID:        d.ID,
		Entity:    d.Entity,
		Key:       d.Key,
		Label:     d.Label,
		Type:      d.Type,
		Options:   options,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func ToResponseList(defs []Definition) []Response {
	out := make([]Response, 0, len(defs))
	for i := range defs {
		out = append(out, ToResponse(&defs[i]))
	}
	return out
}

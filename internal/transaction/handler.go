// AngelaMos | 2026
// handler.go

package transaction

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/middleware"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, requireFeature func(http.Handler) http.Handler,
) {
	r.Route("/transactions", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(requireFeature)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{transactionID}", h.Get)
		r.Put("/{transactionID}", h.Update)
		r.Delete("/{transactionID}", h.Delete)
	})
}

// ParseFilter reads customer_id, type, from and to. Dates are
// YYYY-MM-DD or RFC 3339; a bare "to" date includes that whole day.
func ParseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var f Filter

	if raw := q.Get("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, core.BadRequestError("customer_id must be a UUID")
		}
		f.CustomerID = id.String()
	}

	if raw := q.Get("type"); raw != "" {
		f.Type = Type(raw)
		if !f.Type.Valid() {
			return f, core.BadRequestError("type must be credit or payment")
		}
	}

	from, err := parseTime(q.Get("from"), false)
	if err != nil {
		return f, core.BadRequestError("from must be a date")
	}
	to, err := parseTime(q.Get("to"), true)
	if err != nil {
		return f, core.BadRequestError("to must be a date")
	}
	if from != nil && to != nil && !from.Before(*to) {
		return f, core.BadRequestError("from must be before to")
	}
	f.From, f.To = from, to

	return f, nil
}

func parseTime(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	filter, err := ParseFilter(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	params := ListParams{
		Filter:   filter,
		Page:     core.QueryInt(r, "page", 1),
		PageSize: core.QueryInt(r, "page_size", 20),
	}
	params.Normalize()

	txs, total, err := h.service.List(r.Context(), userID, params)
	if err != nil {
		core.ServiceError(w, err, "transaction")
		return
	}

	core.Paginated(w, ToResponseList(txs), params.Page, params.PageSize, total)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	t, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		core.ServiceError(w, err, "transaction")
		return
	}

	core.Created(w, ToResponse(t))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, ok := core.URLID(r, "transactionID")
	if !ok {
		core.NotFound(w, "transaction")
		return
	}

	t, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		core.ServiceError(w, err, "transaction")
		return
	}

	core.OK(w, ToResponse(t))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, ok := core.URLID(r, "transactionID")
	if !ok {
		core.NotFound(w, "transaction")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	t, err := h.service.Update(r.Context(), userID, id, req)
	if err != nil {
		core.ServiceError(w, err, "transaction")
		return
	}

	core.OK(w, ToResponse(t))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, ok := core.URLID(r, "transactionID")
	if !ok {
		core.NotFound(w, "transaction")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		core.ServiceError(w, err, "transaction")
		return
	}

	core.NoContent(w)
}

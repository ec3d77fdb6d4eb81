// AngelaMos | 2026
// handler.go

package customer

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/middleware"
)

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
	r.Route("/customers", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(requireFeature)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{customerID}", h.Get)
		r.Put("/{customerID}", h.Update)
		r.Delete("/{customerID}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	params := ListParams{
		Page:     core.QueryInt(r, "page", 1),
		PageSize: core.QueryInt(r, "page_size", 20),
		Search:   strings.TrimSpace(r.URL.Query().Get("search")),
	}
	params.Normalize()

	customers, total, err := h.service.List(r.Context(), userID, params)
	if err != nil {
		core.ServiceError(w, err, "customer")
		return
	}

	core.Paginated(w, ToResponseList(customers), params.Page, params.PageSize, total)
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

	c, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		core.ServiceError(w, err, "customer")
		return
	}

	core.Created(w, ToResponse(c))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, ok := core.URLID(r, "customerID")
	if !ok {
		core.NotFound(w, "customer")
		return
	}

	c, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		core.ServiceError(w, err, "customer")
		return
	}

	core.OK(w, ToResponse(c))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, ok := core.URLID(r, "customerID")
	if !ok {
		core.NotFound(w, "customer")
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

	c, err := h.service.Update(r.Context(), userID, id, req)
	if err != nil {
		core.ServiceError(w, err, "customer")
		return
	}

	core.OK(w, ToResponse(c))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, ok := core.URLID(r, "customerID")
	if !ok {
		core.NotFound(w, "customer")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		core.ServiceError(w, err, "customer")
		return
	}

	core.NoContent(w)
}

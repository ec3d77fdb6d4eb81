// AngelaMos | 2026
// handler.go

package customfield

import (
	"encoding/json"
	"net/http"

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

// RegisterRoutes mounts /custom-fields behind the custom_fields feature.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, requireFeature func(http.Handler) http.Handler,
) {
	r.Route("/custom-fields", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(requireFeature)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{fieldID}", h.Get)
		r.Put("/{fieldID}", h.Update)
		r.Delete("/{fieldID}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	entity := Entity(r.URL.Query().Get("entity"))

	defs, err := h.service.List(r.Context(), userID, entity)
	if err != nil {
		core.ServiceError(w, err, "custom field")
		return
	}

	core.OK(w, ListResponse{Fields: ToResponseList(defs)})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	def, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		core.ServiceError(w, err, "custom field")
		return
	}

	core.Created(w, ToResponse(def))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, ok := core.URLID(r, "fieldID")
	if !ok {
		core.NotFound(w, "custom field")
		return
	}

	def, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		core.ServiceError(w, err, "custom field")
		return
	}

	core.OK(w, ToResponse(def))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, ok := core.URLID(r, "fieldID")
	if !ok {
		core.NotFound(w, "custom field")
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

	def, err := h.service.Update(r.Context(), userID, id, req)
	if err != nil {
		core.ServiceError(w, err, "custom field")
		return
	}

	core.OK(w, ToResponse(def))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, ok := core.URLID(r, "fieldID")
	if !ok {
		core.NotFound(w, "custom field")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		core.ServiceError(w, err, "custom field")
		return
	}

	core.NoContent(w)
}

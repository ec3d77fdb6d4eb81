// AngelaMos | 2026
// handler.go

package export

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/middleware"
	"github.com/carterperez-dev/ledger-backend/internal/transaction"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, requireFeature func(http.Handler) http.Handler,
) {
	r.Route("/export", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(requireFeature)

		r.Get("/customers", h.Customers)
		r.Get("/transactions", h.Transactions)
	})
}

func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	job, err := h.service.Customers(r.Context(), userID, format)
	if err != nil {
		core.ServiceError(w, err, "export")
		return
	}

	stream(w, r, job)
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	filter, err := transaction.ParseFilter(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	job, err := h.service.Transactions(r.Context(), userID, filter, format)
	if err != nil {
		core.ServiceError(w, err, "export")
		return
	}

	stream(w, r, job)
}

// stream commits the 200 before the body is produced, so a failure
// midway can only be logged and the download is truncated.
func stream(w http.ResponseWriter, r *http.Request, job *Job) {
	w.Header().Set("Content-Type", job.Format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename=\""+job.Filename+"\"")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if err := job.Run(w); err != nil {
		slog.ErrorContext(r.Context(), "export failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillmatrix/skillmatrix-backend/internal/ingestion/service"
	"github.com/skillmatrix/skillmatrix-backend/pkg/httputil"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
)

// IngestionHandler handles bulk employee upload endpoints
type IngestionHandler struct {
	service *service.IngestionService
	logger  *logger.Logger
}

// NewIngestionHandler creates a new ingestion handler
func NewIngestionHandler(svc *service.IngestionService, log *logger.Logger) *IngestionHandler {
	return &IngestionHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the ingestion routes
func (h *IngestionHandler) Routes(r chi.Router) {
	r.Post("/employees/upload-employee-data", h.Upload)
}

// UploadRequest carries a batch of parsed employee records
type UploadRequest struct {
	Records []service.EmployeeRecord `json:"records" validate:"required,min=1,dive"`
}

// Upload ingests a batch of parsed employee records
func (h *IngestionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req UploadRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Ingest(r.Context(), req.Records)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

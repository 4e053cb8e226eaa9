// Package httpapi is the thin HTTP layer. Handlers delegate to domain
// services and keep transport concerns out of business code.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aftersales/internal/platform/middleware"
	"aftersales/internal/warranty"
	"aftersales/pkg/dates"
)

// WarrantyService defines the lifecycle operations the API exposes.
type WarrantyService interface {
	Register(ctx context.Context, reg warranty.Registration) (warranty.Record, error)
	Get(ctx context.Context, id uuid.UUID) (warranty.Record, error)
	GetBySerial(ctx context.Context, serial string) (warranty.Record, error)
	Transition(ctx context.Context, id uuid.UUID, next warranty.Status) error
}

// WarrantyHandler wires warranty endpoints to the lifecycle service.
type WarrantyHandler struct {
	service WarrantyService
	logger  *slog.Logger
}

func NewWarrantyHandler(service WarrantyService, logger *slog.Logger) *WarrantyHandler {
	return &WarrantyHandler{service: service, logger: logger}
}

// Register mounts warranty endpoints on the router.
func (h *WarrantyHandler) Register(r chi.Router) {
	r.Post("/warranties", h.HandleRegister)
	r.Get("/warranties/{id}", h.HandleGet)
	r.Get("/warranties/serial/{serial}", h.HandleGetBySerial)
	r.Patch("/warranties/{id}/status", h.HandleTransition)
}

type registerRequest struct {
	ProductID      string `json:"product_id"`
	UserID         string `json:"user_id"`
	OrderID        string `json:"order_id"`
	SerialNumber   string `json:"serial_number"`
	InvoiceNumber  string `json:"invoice_number"`
	WarrantyType   string `json:"warranty_type"`
	DurationMonths int    `json:"duration_months"`
	StartDate      string `json:"start_date"`
}

type recordResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	UserID         string `json:"user_id"`
	OrderID        string `json:"order_id,omitempty"`
	SerialNumber   string `json:"serial_number,omitempty"`
	InvoiceNumber  string `json:"invoice_number,omitempty"`
	WarrantyType   string `json:"warranty_type"`
	DurationMonths int    `json:"duration_months"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

func toResponse(rec warranty.Record) recordResponse {
	return recordResponse{
		ID:             rec.ID.String(),
		ProductID:      rec.ProductID,
		UserID:         rec.UserID,
		OrderID:        rec.OrderID,
		SerialNumber:   rec.SerialNumber,
		InvoiceNumber:  rec.InvoiceNumber,
		WarrantyType:   rec.WarrantyType,
		DurationMonths: rec.DurationMonths,
		StartDate:      dates.DayBucket(rec.StartDate),
		EndDate:        dates.DayBucket(rec.EndDate),
		Status:         string(rec.Status),
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// HandleRegister handles POST /warranties.
func (h *WarrantyHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	reg := warranty.Registration{
		ProductID:      req.ProductID,
		UserID:         req.UserID,
		OrderID:        req.OrderID,
		SerialNumber:   req.SerialNumber,
		InvoiceNumber:  req.InvoiceNumber,
		WarrantyType:   req.WarrantyType,
		DurationMonths: req.DurationMonths,
	}
	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "start_date must be YYYY-MM-DD"})
			return
		}
		reg.StartDate = start
	}

	record, err := h.service.Register(ctx, reg)
	if err != nil {
		h.logger.ErrorContext(ctx, "warranty registration failed",
			"request_id", middleware.GetRequestID(ctx),
			"product_id", req.ProductID,
			"error", err,
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(record))
}

// HandleGet handles GET /warranties/{id}.
func (h *WarrantyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid warranty id"})
		return
	}

	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(record))
}

// HandleGetBySerial handles GET /warranties/serial/{serial}.
func (h *WarrantyHandler) HandleGetBySerial(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	record, err := h.service.GetBySerial(r.Context(), serial)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(record))
}

type transitionRequest struct {
	Status string `json:"status"`
}

// HandleTransition handles PATCH /warranties/{id}/status.
func (h *WarrantyHandler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid warranty id"})
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	next := warranty.Status(req.Status)
	if !next.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "unknown status"})
		return
	}

	if err := h.service.Transition(ctx, id, next); err != nil {
		h.logger.ErrorContext(ctx, "warranty transition failed",
			"request_id", middleware.GetRequestID(ctx),
			"warranty_id", id,
			"next_status", next,
			"error", err,
		)
		writeError(w, err)
		return
	}

	record, err := h.service.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(record))
}

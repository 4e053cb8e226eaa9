package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"aftersales/internal/platform/middleware"
	"aftersales/internal/report"
	"aftersales/internal/warranty"
)

// ReportService generates on-demand report summaries.
type ReportService interface {
	Generate(ctx context.Context, now time.Time) (report.Summary, error)
}

// ConnectionChecker probes the configured external integrations.
type ConnectionChecker interface {
	CheckConnections(ctx context.Context) map[string]bool
}

// AdminHandler serves the operator endpoints.
type AdminHandler struct {
	reports      ReportService
	reportStore  report.Store
	integrations ConnectionChecker
	logger       *slog.Logger
	clock        func() time.Time
}

func NewAdminHandler(reports ReportService, reportStore report.Store, integrations ConnectionChecker, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		reports:      reports,
		reportStore:  reportStore,
		integrations: integrations,
		logger:       logger,
		clock:        time.Now,
	}
}

// Register mounts admin endpoints on the router.
func (h *AdminHandler) Register(r chi.Router) {
	r.Get("/reports/summary", h.HandleReportSummary)
	r.Get("/reports", h.HandleListReports)
	r.Get("/integrations/status", h.HandleIntegrationStatus)
}

type summaryResponse struct {
	ID               string         `json:"id"`
	GeneratedAt      string         `json:"generated_at"`
	CountsByStatus   map[string]int `json:"counts_by_status"`
	ExpiringSoon     int            `json:"expiring_soon"`
	FailedDeliveries int            `json:"failed_deliveries"`
}

func toSummaryResponse(s report.Summary) summaryResponse {
	counts := make(map[string]int, len(s.CountsByStatus))
	for status, n := range s.CountsByStatus {
		counts[string(status)] = n
	}
	for _, status := range []warranty.Status{warranty.StatusPending, warranty.StatusActive, warranty.StatusExpired, warranty.StatusRevoked} {
		if _, ok := counts[string(status)]; !ok {
			counts[string(status)] = 0
		}
	}
	return summaryResponse{
		ID:               s.ID.String(),
		GeneratedAt:      s.GeneratedAt.UTC().Format(time.RFC3339),
		CountsByStatus:   counts,
		ExpiringSoon:     s.ExpiringSoon,
		FailedDeliveries: s.FailedDeliveries,
	}
}

// HandleReportSummary handles GET /admin/reports/summary. It generates a
// fresh summary rather than serving the last archived one.
func (h *AdminHandler) HandleReportSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.reports.Generate(ctx, h.clock())
	if err != nil {
		h.logger.ErrorContext(ctx, "report generation failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

// HandleListReports handles GET /admin/reports.
func (h *AdminHandler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.reportStore.ListRecent(r.Context(), 20)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toSummaryResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleIntegrationStatus handles GET /admin/integrations/status.
func (h *AdminHandler) HandleIntegrationStatus(w http.ResponseWriter, r *http.Request) {
	if h.integrations == nil {
		writeJSON(w, http.StatusOK, map[string]bool{})
		return
	}
	writeJSON(w, http.StatusOK, h.integrations.CheckConnections(r.Context()))
}

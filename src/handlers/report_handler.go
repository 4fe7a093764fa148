package handlers

import (
	"net/http"
	"time"

	"github.com/avinm/ledgerdesk/src/services"
	"github.com/avinm/ledgerdesk/src/utils"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reportService}
}

// monthOrCurrent defaults the month query param to the current month.
func monthOrCurrent(r *http.Request) string {
	if month := r.URL.Query().Get("month"); month != "" {
		return month
	}
	return time.Now().Format("2006-01")
}

func (h *ReportHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.reports.Dashboard(r.Context(), monthOrCurrent(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, dashboard, http.StatusOK)
}

func (h *ReportHandler) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Monthly(r.Context(), monthOrCurrent(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, report, http.StatusOK)
}

func (h *ReportHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	days, err := h.reports.Calendar(r.Context(), monthOrCurrent(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, days, http.StatusOK)
}

package http

import (
	"net/http"
	"time"

	"github.com/stafftrack/attendance-backend-go/internal/domain/performance"
	"github.com/stafftrack/attendance-backend-go/internal/handler/http/response"
)

type PerformanceHandler interface {
	GetLeaderboard(w http.ResponseWriter, r *http.Request)
	GetSnapshots(w http.ResponseWriter, r *http.Request)
	RunSnapshot(w http.ResponseWriter, r *http.Request)
}

type performanceHandlerImpl struct {
	performanceService performance.Service
}

func NewPerformanceHandler(performanceService performance.Service) PerformanceHandler {
	return &performanceHandlerImpl{
		performanceService: performanceService,
	}
}

// GetLeaderboard implements PerformanceHandler.
func (h *performanceHandlerImpl) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	result, err := h.performanceService.GetLeaderboard(r.Context(), getCompanyIDFromContext(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetSnapshots implements PerformanceHandler. The date defaults to today
// when the query parameter is absent or malformed.
func (h *performanceHandlerImpl) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.BadRequest(w, "Invalid date, expected YYYY-MM-DD", nil)
			return
		}
		date = parsed
	}

	result, err := h.performanceService.GetSnapshots(r.Context(), getCompanyIDFromContext(r), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// RunSnapshot implements PerformanceHandler. Admin-triggered immediate
// aggregation outside the nightly schedule.
func (h *performanceHandlerImpl) RunSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.performanceService.SnapshotCompany(r.Context(), getCompanyIDFromContext(r)); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Snapshot completed", nil)
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/stafftrack/attendance-backend-go/internal/domain/attendance"
	"github.com/stafftrack/attendance-backend-go/internal/handler/http/response"
)

type AttendanceHandler interface {
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	GetMyAttendance(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.Service
}

func NewAttendanceHandler(attendanceService attendance.Service) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// CheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req attendance.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	req.UserID = getUserIDFromContext(r)
	req.CompanyID = getCompanyIDFromContext(r)
	req.Method = attendance.MethodManual

	result, err := h.attendanceService.CheckIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clock in successful", result)
}

// CheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req attendance.CheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	req.UserID = getUserIDFromContext(r)
	req.CompanyID = getCompanyIDFromContext(r)
	req.Method = attendance.MethodManual

	result, err := h.attendanceService.CheckOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clock out successful", result)
}

// StartBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	req := attendance.BreakRequest{
		UserID:    getUserIDFromContext(r),
		CompanyID: getCompanyIDFromContext(r),
	}

	result, err := h.attendanceService.StartBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Break started", result)
}

// EndBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	req := attendance.BreakRequest{
		UserID:    getUserIDFromContext(r),
		CompanyID: getCompanyIDFromContext(r),
	}

	result, err := h.attendanceService.EndBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break ended", result)
}

// List implements AttendanceHandler. Admin view over the whole company.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := attendance.ListFilter{
		Page:  getIntQueryParam(r, "page", 1),
		Limit: getIntQueryParam(r, "limit", 20),
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := r.URL.Query().Get("start_date"); v != "" {
		filter.StartDate = &v
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		filter.EndDate = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	result, err := h.attendanceService.ListAttendance(r.Context(), filter, getCompanyIDFromContext(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Records, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// GetMyAttendance implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetMyAttendance(w http.ResponseWriter, r *http.Request) {
	filter := attendance.ListFilter{
		Page:  getIntQueryParam(r, "page", 1),
		Limit: getIntQueryParam(r, "limit", 20),
	}
	if v := r.URL.Query().Get("start_date"); v != "" {
		filter.StartDate = &v
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		filter.EndDate = &v
	}

	result, err := h.attendanceService.GetMyAttendance(r.Context(), getUserIDFromContext(r), getCompanyIDFromContext(r), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Records, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

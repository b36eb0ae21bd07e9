package http

import (
	"encoding/json"
	"net/http"

	"github.com/stafftrack/attendance-backend-go/internal/domain/device"
	"github.com/stafftrack/attendance-backend-go/internal/handler/http/response"
)

type DeviceHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Ping(w http.ResponseWriter, r *http.Request)
}

type deviceHandlerImpl struct {
	deviceService device.Service
}

func NewDeviceHandler(deviceService device.Service) DeviceHandler {
	return &deviceHandlerImpl{
		deviceService: deviceService,
	}
}

// Register implements DeviceHandler.
func (h *deviceHandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	var req device.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	req.UserID = getUserIDFromContext(r)
	req.CompanyID = getCompanyIDFromContext(r)

	result, err := h.deviceService.RegisterDevice(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Device registered. Store the device key now; it is not shown again.", result)
}

// Ping implements DeviceHandler. The device key in the body is the only
// authentication; no JWT is involved.
func (h *deviceHandlerImpl) Ping(w http.ResponseWriter, r *http.Request) {
	var req device.PingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.deviceService.IngestPing(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Ping recorded", result)
}

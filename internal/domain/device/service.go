package device

import (
	"context"
)

type Service interface {
	// RegisterDevice enrolls a tracking device for the calling employee and
	// returns the plaintext device key exactly once.
	RegisterDevice(ctx context.Context, req RegisterRequest) (RegisterResponse, error)

	// IngestPing authenticates a device key and stores the location sample.
	IngestPing(ctx context.Context, req PingRequest) (PingResponse, error)
}

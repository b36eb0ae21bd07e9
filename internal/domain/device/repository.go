package device

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, d Device) (Device, error)
	GetByID(ctx context.Context, id string) (Device, error)
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}

package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stafftrack/attendance-backend-go/internal/domain/device"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/database"
)

type deviceRepository struct {
	db *database.DB
}

func NewDeviceRepository(db *database.DB) device.Repository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) Create(ctx context.Context, d device.Device) (device.Device, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO devices (company_id, user_id, name, key_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := q.QueryRow(ctx, query, d.CompanyID, d.UserID, d.Name, d.KeyHash).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return device.Device{}, fmt.Errorf("failed to create device: %w", err)
	}

	return d, nil
}

func (r *deviceRepository) GetByID(ctx context.Context, id string) (device.Device, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, user_id, name, key_hash, last_seen_at, created_at
		FROM devices
		WHERE id = $1`

	var d device.Device
	err := q.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.CompanyID, &d.UserID, &d.Name, &d.KeyHash, &d.LastSeenAt, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return device.Device{}, device.ErrDeviceNotFound
		}
		return device.Device{}, fmt.Errorf("failed to get device: %w", err)
	}

	return d, nil
}

func (r *deviceRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `UPDATE devices SET last_seen_at = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("failed to touch device: %w", err)
	}
	return nil
}

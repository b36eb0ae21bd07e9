package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stafftrack/attendance-backend-go/internal/domain/company"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/database"
)

type companyRepository struct {
	db *database.DB
}

func NewCompanyRepository(db *database.DB) company.PolicyRepository {
	return &companyRepository{db: db}
}

const policyColumns = `
	c.id, c.name, c.timezone, c.working_days,
	c.work_start_time, c.work_end_time,
	c.grace_period_minutes, c.early_departure_threshold_minutes,
	c.office_latitude, c.office_longitude, c.geofence_radius_meters,
	c.require_geofence_for_clock_in, c.allow_remote_clock_in,
	c.allow_remote_clock_in_on_non_working_days, c.biometrics_required,
	c.auto_clock_in_enabled, c.auto_clock_out_enabled, c.breaks_enabled,
	c.notify_late_arrival, c.notify_early_departure,
	c.attendance_weight, c.task_completion_weight,
	c.created_at, c.updated_at`

func scanPolicy(row pgx.Row) (company.Policy, error) {
	var p company.Policy
	err := row.Scan(
		&p.CompanyID, &p.Name, &p.Timezone, &p.WorkingDays,
		&p.WorkStartTime, &p.WorkEndTime,
		&p.GracePeriodMinutes, &p.EarlyDepartureThresholdMinutes,
		&p.OfficeLatitude, &p.OfficeLongitude, &p.GeofenceRadiusMeters,
		&p.RequireGeofenceForClockIn, &p.AllowRemoteClockIn,
		&p.AllowRemoteClockInOnNonWorkingDays, &p.BiometricsRequired,
		&p.AutoClockInEnabled, &p.AutoClockOutEnabled, &p.BreaksEnabled,
		&p.NotifyLateArrival, &p.NotifyEarlyDeparture,
		&p.AttendanceWeight, &p.TaskCompletionWeight,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// GetPolicy implements company.PolicyRepository. The policy and its active
// named locations load in two fixed queries.
func (c *companyRepository) GetPolicy(ctx context.Context, companyID string) (company.Policy, error) {
	q := GetQuerier(ctx, c.db)

	query := `SELECT` + policyColumns + ` FROM companies c WHERE c.id = $1`

	policy, err := scanPolicy(q.QueryRow(ctx, query, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return company.Policy{}, company.ErrCompanyNotFound
		}
		return company.Policy{}, fmt.Errorf("failed to get company policy: %w", err)
	}

	locations, err := c.listLocations(ctx, companyID)
	if err != nil {
		return company.Policy{}, err
	}
	policy.Locations = locations

	return policy, nil
}

func (c *companyRepository) listLocations(ctx context.Context, companyID string) ([]company.Location, error) {
	q := GetQuerier(ctx, c.db)

	query := `
		SELECT id, company_id, name, latitude, longitude, radius_meters, is_active,
			   created_at, updated_at
		FROM company_locations
		WHERE company_id = $1 AND is_active = TRUE
		ORDER BY name`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list company locations: %w", err)
	}
	defer rows.Close()

	var locations []company.Location
	for rows.Next() {
		var l company.Location
		err := rows.Scan(&l.ID, &l.CompanyID, &l.Name, &l.Latitude, &l.Longitude,
			&l.RadiusMeters, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// ListAutoClockCompanies implements company.PolicyRepository.
func (c *companyRepository) ListAutoClockCompanies(ctx context.Context) ([]company.Policy, error) {
	q := GetQuerier(ctx, c.db)

	query := `SELECT` + policyColumns + `
		FROM companies c
		WHERE c.auto_clock_in_enabled = TRUE OR c.auto_clock_out_enabled = TRUE`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-clock companies: %w", err)
	}
	defer rows.Close()

	var policies []company.Policy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company policy: %w", err)
		}
		policies = append(policies, policy)
	}
	return policies, rows.Err()
}

// ListCompanyIDs implements company.PolicyRepository.
func (c *companyRepository) ListCompanyIDs(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, c.db)

	rows, err := q.Query(ctx, `SELECT id FROM companies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list company ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stafftrack/attendance-backend-go/internal/domain/employee"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/database"
)

type employeeRepository struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.Repository {
	return &employeeRepository{db: db}
}

const employeeColumns = `
	id, company_id, user_id, full_name, email, role, is_active,
	deleted_at, created_at, updated_at`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(
		&e.ID, &e.CompanyID, &e.UserID, &e.FullName, &e.Email, &e.Role, &e.IsActive,
		&e.DeletedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// GetActiveByUserID implements employee.Repository.
func (r *employeeRepository) GetActiveByUserID(ctx context.Context, userID, companyID string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + employeeColumns + `
		FROM employees
		WHERE user_id = $1 AND company_id = $2
		  AND is_active = TRUE AND deleted_at IS NULL`

	emp, err := scanEmployee(q.QueryRow(ctx, query, userID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrInvalidUser
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}

	return emp, nil
}

// GetSettings implements employee.Repository. A missing row yields zero-value
// settings; per-employee settings are optional overlays.
func (r *employeeRepository) GetSettings(ctx context.Context, employeeID, companyID string) (employee.AttendanceSettings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, company_id, allow_remote_clock_in, remote_work_days,
			   allow_multi_location_clock_in, allow_multiple_clock_ins_per_day,
			   last_location_verified_at, updated_at
		FROM employee_attendance_settings
		WHERE employee_id = $1 AND company_id = $2`

	var s employee.AttendanceSettings
	err := q.QueryRow(ctx, query, employeeID, companyID).Scan(
		&s.EmployeeID, &s.CompanyID, &s.AllowRemoteClockIn, &s.RemoteWorkDays,
		&s.AllowMultiLocationClockIn, &s.AllowMultipleClockInsPerDay,
		&s.LastLocationVerifiedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.AttendanceSettings{EmployeeID: employeeID, CompanyID: companyID}, nil
		}
		return employee.AttendanceSettings{}, fmt.Errorf("failed to get attendance settings: %w", err)
	}

	return s, nil
}

// ListActiveByCompany implements employee.Repository.
func (r *employeeRepository) ListActiveByCompany(ctx context.Context, companyID string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + employeeColumns + `
		FROM employees
		WHERE company_id = $1 AND is_active = TRUE AND deleted_at IS NULL
		ORDER BY full_name`

	return r.queryEmployees(ctx, q, query, companyID)
}

// ListAdmins implements employee.Repository.
func (r *employeeRepository) ListAdmins(ctx context.Context, companyID string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + employeeColumns + `
		FROM employees
		WHERE company_id = $1 AND role IN ('admin', 'owner')
		  AND is_active = TRUE AND deleted_at IS NULL`

	return r.queryEmployees(ctx, q, query, companyID)
}

func (r *employeeRepository) queryEmployees(ctx context.Context, q database.Querier, query string, args ...interface{}) ([]employee.Employee, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

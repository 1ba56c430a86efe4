package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pinky-hr/attendance-engine/internal/domain/employee"
	"github.com/pinky-hr/attendance-engine/internal/pkg/database"
)

const employeeColumns = `id, device_user_id, employee_code, first_name, last_name, full_name,
	schedule_id, status, created_at, updated_at`

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var (
		emp      employee.Employee
		deviceID *string
	)
	err := row.Scan(
		&emp.ID, &deviceID, &emp.EmployeeCode, &emp.FirstName, &emp.LastName, &emp.FullName,
		&emp.ScheduleID, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if deviceID != nil {
		emp.DeviceUserID = *deviceID
	}
	return emp, err
}

func (e *employeeRepositoryImpl) list(ctx context.Context, where string, args ...any) ([]employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE ` + where + ` ORDER BY device_user_id`
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return employees, nil
}

// ListLinked implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListLinked(ctx context.Context) ([]employee.Employee, error) {
	return e.list(ctx, `device_user_id IS NOT NULL`)
}

// ListActive implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListActive(ctx context.Context) ([]employee.Employee, error) {
	return e.list(ctx, `device_user_id IS NOT NULL AND status = $1`, employee.StatusActive)
}

// Create implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) Create(ctx context.Context, newEmployee employee.Employee) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		INSERT INTO employees (device_user_id, employee_code, first_name, last_name, full_name, schedule_id, status)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5, $6, $7)
		RETURNING ` + employeeColumns

	created, err := scanEmployee(q.QueryRow(ctx, query,
		newEmployee.DeviceUserID, newEmployee.EmployeeCode, newEmployee.FirstName, newEmployee.LastName,
		newEmployee.FullName, newEmployee.ScheduleID, newEmployee.Status,
	))
	if err != nil {
		if database.IsUniqueViolation(err, "employees_device_user_id_key") {
			return employee.Employee{}, fmt.Errorf("device user %s: %w", newEmployee.DeviceUserID, employee.ErrDeviceUserExists)
		}
		return employee.Employee{}, fmt.Errorf("failed to create employee: %w", err)
	}
	return created, nil
}

// Update implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) Update(ctx context.Context, emp employee.Employee) error {
	q := GetQuerier(ctx, e.db)

	query := `
		UPDATE employees
		SET employee_code = $2, first_name = $3, last_name = $4, full_name = $5,
			schedule_id = $6, status = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var updatedID string
	err := q.QueryRow(ctx, query,
		emp.ID, emp.EmployeeCode, emp.FirstName, emp.LastName, emp.FullName, emp.ScheduleID, emp.Status,
	).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("employee with id %s: %w", emp.ID, employee.ErrEmployeeNotFound)
		}
		return fmt.Errorf("failed to update employee with id %s: %w", emp.ID, err)
	}
	return nil
}

// MarkMissingInactive implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) MarkMissingInactive(ctx context.Context, seen []string) (int, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		UPDATE employees
		SET status = $1, updated_at = NOW()
		WHERE status = $2
		  AND device_user_id IS NOT NULL
		  AND NOT (device_user_id = ANY($3))
	`

	if seen == nil {
		seen = []string{}
	}
	tag, err := q.Exec(ctx, query, employee.StatusInactive, employee.StatusActive, seen)
	if err != nil {
		return 0, fmt.Errorf("failed to mark missing employees inactive: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

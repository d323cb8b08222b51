package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	// Database drivers: sqlite for development and tests, pgx for production.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Config holds database connection configuration.
type Config struct {
	Driver string // "sqlite" or "pgx"
	DSN    string
}

// Store is the SQL-backed employee directory.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database, applies driver-specific setup and ensures
// the schema exists. Queries are written with ? placeholders and rebound per
// driver by sqlx.
func Open(cfg Config) (*Store, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		for _, pragma := range []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA foreign_keys = ON",
		} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to execute pragma: %w", err)
			}
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS employees (
id TEXT PRIMARY KEY,
email TEXT NOT NULL UNIQUE,
name TEXT NOT NULL,
dob TEXT
)`,
		`CREATE TABLE IF NOT EXISTS some_accounts (
id TEXT PRIMARY KEY,
employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
network TEXT NOT NULL,
network_instance TEXT NOT NULL DEFAULT '',
subject TEXT,
name TEXT,
nick TEXT,
url TEXT,
avatar TEXT
)`,
		`CREATE INDEX IF NOT EXISTS idx_some_accounts_employee ON some_accounts(employee_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Employees lists all employees ordered by name.
func (s *Store) Employees(ctx context.Context) ([]Employee, error) {
	var employees []Employee
	err := s.db.SelectContext(ctx, &employees,
		`SELECT id, email, name, dob FROM employees ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

// EmployeeByID fetches one employee.
func (s *Store) EmployeeByID(ctx context.Context, id string) (Employee, error) {
	return s.employeeWhere(ctx, "id = ?", id)
}

// EmployeeByName fetches an employee by display name.
func (s *Store) EmployeeByName(ctx context.Context, name string) (Employee, error) {
	return s.employeeWhere(ctx, "name = ?", name)
}

// EmployeeByEmail fetches an employee by email.
func (s *Store) EmployeeByEmail(ctx context.Context, email string) (Employee, error) {
	return s.employeeWhere(ctx, "email = ?", email)
}

func (s *Store) employeeWhere(ctx context.Context, where string, arg any) (Employee, error) {
	var e Employee
	query := s.db.Rebind("SELECT id, email, name, dob FROM employees WHERE " + where)
	err := s.db.GetContext(ctx, &e, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

// InsertEmployee creates an employee and returns it.
func (s *Store) InsertEmployee(ctx context.Context, email, name string, dob *Date) (Employee, error) {
	e := Employee{
		ID:    uuid.NewString(),
		Email: email,
		Name:  name,
		DOB:   dob,
	}
	query := s.db.Rebind(`INSERT INTO employees (id, email, name, dob) VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, e.ID, e.Email, e.Name, e.DOB); err != nil {
		return Employee{}, fmt.Errorf("insert employee: %w", err)
	}
	return e, nil
}

// UpdateEmployee updates the mutable fields of an employee.
func (s *Store) UpdateEmployee(ctx context.Context, e Employee) error {
	query := s.db.Rebind(`UPDATE employees SET email = ?, name = ?, dob = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, e.Email, e.Name, e.DOB, e.ID)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddAccount links an external account to an employee.
func (s *Store) AddAccount(ctx context.Context, a Account) (Account, error) {
	a.ID = uuid.NewString()
	query := s.db.Rebind(`INSERT INTO some_accounts
(id, employee_id, network, network_instance, subject, name, nick, url, avatar)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.EmployeeID, a.Network, a.NetworkInstance, a.Subject, a.Name, a.Nick, a.URL, a.Avatar)
	if err != nil {
		return Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

// AccountsByEmployee lists an employee's linked accounts.
func (s *Store) AccountsByEmployee(ctx context.Context, employeeID string) ([]Account, error) {
	var accounts []Account
	query := s.db.Rebind(`SELECT id, employee_id, network, network_instance, subject, name, nick, url, avatar
FROM some_accounts WHERE employee_id = ? ORDER BY network, network_instance`)
	if err := s.db.SelectContext(ctx, &accounts, query, employeeID); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// AccountForNetwork fetches the employee's account on a network instance,
// e.g. their Slack identity within one workspace.
func (s *Store) AccountForNetwork(ctx context.Context, employeeID, network, networkInstance string) (Account, error) {
	var a Account
	query := s.db.Rebind(`SELECT id, employee_id, network, network_instance, subject, name, nick, url, avatar
FROM some_accounts WHERE employee_id = ? AND network = ? AND network_instance = ?`)
	err := s.db.GetContext(ctx, &a, query, employeeID, network, networkInstance)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

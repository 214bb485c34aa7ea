// Package seed provisions the demo employees dataset. The first ten
// rows are fixed so example questions return recognizable answers; the
// remainder is generated with a seeded faker so every environment gets
// the same data.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/jaswdr/faker"

	"github.com/querydesk/querydesk/internal/store"
)

const employeesDDL = `
CREATE TABLE IF NOT EXISTS employees (
    employee_id INTEGER PRIMARY KEY,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    salary DOUBLE PRECISION,
    hire_date TEXT,
    department_id INTEGER,
    department TEXT,
    residence_city TEXT,
    age INTEGER,
    job_level TEXT
)`

type employee struct {
	ID           int
	FirstName    string
	LastName     string
	Salary       float64
	HireDate     string
	DepartmentID int
	Department   string
	City         string
	Age          int
	JobLevel     string
}

// canonicalEmployees anchor the dataset; generated rows append after
// them.
var canonicalEmployees = []employee{
	{1, "Jessika", "Hulcoop", 127518.76, "2010-09-16", 5, "IT", "Babushkin", 44, "Mid Level"},
	{2, "Donni", "Alps", 100688.92, "2020-12-05", 3, "Marketing", "Ukmerge", 26, "Executive"},
	{3, "Pat", "Frick", 96735.41, "2001-03-14", 2, "IT", "Kiruru", 42, "Entry Level"},
	{4, "Raddie", "Gostick", 149368.40, "2017-11-16", 1, "IT", "São Félix do Xingu", 46, "Entry Level"},
	{5, "Sidonnie", "Oganesian", 90661.82, "2010-11-05", 1, "Finance", "Bayt Liqyā", 41, "Entry Level"},
	{6, "Burnard", "Roote", 104105.49, "2020-08-09", 2, "Marketing", "Weishanzhuang", 40, "Executive"},
	{7, "Stanley", "Jennens", 116501.50, "2007-06-29", 4, "IT", "Taznakht", 37, "Executive"},
	{8, "Bunnie", "Dorricott", 123178.12, "2021-01-24", 5, "Sales", "Sharkawshchyna", 42, "Entry Level"},
	{9, "Izak", "Burwin", 31391.41, "2011-07-03", 3, "Marketing", "Nkoteng", 31, "Mid Level"},
	{10, "Barton", "Leguey", 70522.72, "2017-06-18", 1, "IT", "Yanzhao", 33, "Executive"},
}

var departments = []string{"IT", "Marketing", "Sales", "Finance", "HR"}

var jobLevels = []string{"Entry Level", "Mid Level", "Senior", "Executive"}

const fakerSeed = 42

type Seeder struct {
	db      *sql.DB
	dialect store.Dialect
	rows    int
	logger  *slog.Logger
}

// NewSeeder targets rows total employees, canonical rows included.
func NewSeeder(db *sql.DB, dialect store.Dialect, rows int, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if rows < len(canonicalEmployees) {
		rows = len(canonicalEmployees)
	}
	return &Seeder{db: db, dialect: dialect, rows: rows, logger: logger}
}

// Ensure creates the employees table and fills it when empty. Existing
// data is left alone so rerunning the seeder is safe.
func (s *Seeder) Ensure(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, employeesDDL); err != nil {
		return fmt.Errorf("create employees table: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM employees").Scan(&count); err != nil {
		return fmt.Errorf("count employees: %w", err)
	}
	if count > 0 {
		s.logger.Info("employees table already populated", slog.Int("rows", count))
		return nil
	}

	employees := append([]employee{}, canonicalEmployees...)
	employees = append(employees, s.generate(s.rows-len(canonicalEmployees))...)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := s.insertStatement()
	for _, e := range employees {
		if _, err := tx.ExecContext(ctx, insert,
			e.ID, e.FirstName, e.LastName, e.Salary, e.HireDate,
			e.DepartmentID, e.Department, e.City, e.Age, e.JobLevel,
		); err != nil {
			return fmt.Errorf("insert employee %d: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	s.logger.Info("employees table seeded", slog.Int("rows", len(employees)))
	return nil
}

func (s *Seeder) insertStatement() string {
	if s.dialect == store.DialectPostgres {
		return "INSERT INTO employees (employee_id, first_name, last_name, salary, hire_date, department_id, department, residence_city, age, job_level) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"
	}
	return "INSERT INTO employees (employee_id, first_name, last_name, salary, hire_date, department_id, department, residence_city, age, job_level) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
}

func (s *Seeder) generate(n int) []employee {
	if n <= 0 {
		return nil
	}

	fake := faker.NewWithSeed(rand.NewSource(fakerSeed))
	employees := make([]employee, 0, n)
	nextID := len(canonicalEmployees) + 1
	for i := 0; i < n; i++ {
		departmentID := fake.IntBetween(1, len(departments))
		hireYear := fake.IntBetween(2000, 2023)
		hireMonth := fake.IntBetween(1, 12)
		hireDay := fake.IntBetween(1, 28)
		employees = append(employees, employee{
			ID:           nextID + i,
			FirstName:    fake.Person().FirstName(),
			LastName:     fake.Person().LastName(),
			Salary:       float64(fake.IntBetween(30000, 160000)) + float64(fake.IntBetween(0, 99))/100,
			HireDate:     fmt.Sprintf("%04d-%02d-%02d", hireYear, hireMonth, hireDay),
			DepartmentID: departmentID,
			Department:   departments[departmentID-1],
			City:         fake.Address().City(),
			Age:          fake.IntBetween(22, 65),
			JobLevel:     jobLevels[fake.IntBetween(0, len(jobLevels)-1)],
		})
	}
	return employees
}

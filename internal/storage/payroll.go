package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

const employeeColumns = `id, user_id, name, role, base_salary, email, joined_date`

func scanEmployee(s rowScanner) (core.Employee, error) {
	var e core.Employee
	err := s.Scan(&e.ID, &e.UserID, &e.Name, &e.Role, &e.BaseSalary, &e.Email, &e.JoinedDate)
	return e, err
}

// CreateEmployee stores e. JoinedDate defaults to today.
func (r *SQLiteRepository) CreateEmployee(ctx context.Context, e core.Employee) (core.Employee, error) {
	if e.JoinedDate.IsZero() {
		e.JoinedDate = core.DateOf(r.now())
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO employees (user_id, name, role, base_salary, email, joined_date) VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Name, e.Role, amountArg(e.BaseSalary), e.Email, e.JoinedDate)
	if err != nil {
		return core.Employee{}, fmt.Errorf("insert employee: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Employee{}, fmt.Errorf("employee id: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) GetEmployee(ctx context.Context, userID, id int64) (core.Employee, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEmployee(row)
	if err != nil {
		return core.Employee{}, fmt.Errorf("get employee %d: %w", id, notFound(err))
	}
	return e, nil
}

func (r *SQLiteRepository) ListEmployees(ctx context.Context, userID int64) ([]core.Employee, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	out := []core.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateEmployee leaves joined_date untouched.
func (r *SQLiteRepository) UpdateEmployee(ctx context.Context, e core.Employee) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE employees SET name = ?, role = ?, base_salary = ?, email = ? WHERE id = ? AND user_id = ?`,
		e.Name, e.Role, amountArg(e.BaseSalary), e.Email, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update employee %d: %w", e.ID, err)
	}
	return expectOne(res)
}

// DeleteEmployee also removes the employee's salary payments. Their derived
// expenses stay in the ledger.
func (r *SQLiteRepository) DeleteEmployee(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM employees WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete employee %d: %w", id, err)
	}
	return expectOne(res)
}

const salaryPaymentSelect = `
	SELECT sp.id, sp.employee_id, e.name, e.role, sp.amount, sp.payment_date, sp.title
	FROM salary_payments sp
	JOIN employees e ON e.id = sp.employee_id`

func scanSalaryPayment(s rowScanner) (core.SalaryPayment, error) {
	var p core.SalaryPayment
	err := s.Scan(&p.ID, &p.EmployeeID, &p.EmployeeName, &p.EmployeeRole, &p.Amount, &p.PaymentDate, &p.Title)
	return p, err
}

// CreateSalaryPayment inserts p. Ownership of the employee is checked by the
// caller inside the same transaction.
func (r *SQLiteRepository) CreateSalaryPayment(ctx context.Context, p core.SalaryPayment) (core.SalaryPayment, error) {
	if p.Title == "" {
		p.Title = core.DefaultSalaryTitle
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO salary_payments (employee_id, amount, payment_date, title) VALUES (?, ?, ?, ?)`,
		p.EmployeeID, amountArg(p.Amount), p.PaymentDate, p.Title)
	if err != nil {
		return core.SalaryPayment{}, fmt.Errorf("insert salary payment: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return core.SalaryPayment{}, fmt.Errorf("salary payment id: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetSalaryPayment(ctx context.Context, userID, id int64) (core.SalaryPayment, error) {
	row := r.q.QueryRowContext(ctx, salaryPaymentSelect+` WHERE sp.id = ? AND e.user_id = ?`, id, userID)
	p, err := scanSalaryPayment(row)
	if err != nil {
		return core.SalaryPayment{}, fmt.Errorf("get salary payment %d: %w", id, notFound(err))
	}
	return p, nil
}

// ListSalaryPayments returns payments newest first. employeeID 0 means all.
func (r *SQLiteRepository) ListSalaryPayments(ctx context.Context, userID, employeeID int64) ([]core.SalaryPayment, error) {
	query := salaryPaymentSelect + ` WHERE e.user_id = ?`
	args := []any{userID}
	if employeeID > 0 {
		query += ` AND sp.employee_id = ?`
		args = append(args, employeeID)
	}
	query += ` ORDER BY sp.payment_date DESC, sp.id DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list salary payments: %w", err)
	}
	defer rows.Close()

	out := []core.SalaryPayment{}
	for rows.Next() {
		p, err := scanSalaryPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan salary payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateSalaryPayment edits the payment row only; its ledger expense is not
// touched. Both the current and the new employee must belong to userID.
func (r *SQLiteRepository) UpdateSalaryPayment(ctx context.Context, userID int64, p core.SalaryPayment) error {
	if p.Title == "" {
		p.Title = core.DefaultSalaryTitle
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE salary_payments SET employee_id = ?, amount = ?, payment_date = ?, title = ?
		 WHERE id = ?
		   AND employee_id IN (SELECT id FROM employees WHERE user_id = ?)
		   AND EXISTS (SELECT 1 FROM employees WHERE id = ? AND user_id = ?)`,
		p.EmployeeID, amountArg(p.Amount), p.PaymentDate, p.Title,
		p.ID, userID, p.EmployeeID, userID)
	if err != nil {
		return fmt.Errorf("update salary payment %d: %w", p.ID, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) DeleteSalaryPayment(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM salary_payments WHERE id = ? AND employee_id IN (SELECT id FROM employees WHERE user_id = ?)`,
		id, userID)
	if err != nil {
		return fmt.Errorf("delete salary payment %d: %w", id, err)
	}
	return expectOne(res)
}

package storage

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const customerColumns = `id, user_id, name, project_name, domain_name, description, total_amount,
	advance_amount, is_payment_confirmed, is_project_delivered, delivery_date, created_at`

func scanCustomer(s rowScanner) (core.Customer, error) {
	var (
		c        core.Customer
		delivery sql.NullString
		created  int64
	)
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.ProjectName, &c.DomainName, &c.Description, &c.TotalAmount,
		&c.AdvanceAmount, &c.IsPaymentConfirmed, &c.IsProjectDelivered, &delivery, &created)
	if err != nil {
		return core.Customer{}, err
	}
	if c.DeliveryDate, err = optionalDate(delivery); err != nil {
		return core.Customer{}, err
	}
	c.CreatedAt = fromUnix(created)
	c.PaymentsTotal = decimal.Zero
	return c, nil
}

func (r *SQLiteRepository) CreateCustomer(ctx context.Context, c core.Customer) (core.Customer, error) {
	created := r.nowUnix()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO customers (user_id, name, project_name, domain_name, description, total_amount,
			advance_amount, is_payment_confirmed, is_project_delivered, delivery_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.ProjectName, c.DomainName, c.Description, amountArg(c.TotalAmount),
		amountArg(c.AdvanceAmount), boolArg(c.IsPaymentConfirmed), boolArg(c.IsProjectDelivered),
		optionalDateArg(c.DeliveryDate), created)
	if err != nil {
		return core.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.Customer{}, fmt.Errorf("customer id: %w", err)
	}
	c.CreatedAt = fromUnix(created)
	c.PaymentsTotal = decimal.Zero
	return c, nil
}

// GetCustomer loads a customer together with the sum of its payments.
func (r *SQLiteRepository) GetCustomer(ctx context.Context, userID, id int64) (core.Customer, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCustomer(row)
	if err != nil {
		return core.Customer{}, fmt.Errorf("get customer %d: %w", id, notFound(err))
	}
	totals, err := r.paymentTotals(ctx, `WHERE cp.customer_id = ?`, id)
	if err != nil {
		return core.Customer{}, err
	}
	if t, ok := totals[c.ID]; ok {
		c.PaymentsTotal = t
	}
	return c, nil
}

func (r *SQLiteRepository) ListCustomers(ctx context.Context, userID int64) ([]core.Customer, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := []core.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	totals, err := r.paymentTotals(ctx, `JOIN customers c ON c.id = cp.customer_id WHERE c.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if t, ok := totals[out[i].ID]; ok {
			out[i].PaymentsTotal = t
		}
	}
	return out, nil
}

// paymentTotals sums payment amounts per customer in Go so the decimal
// text columns never pass through SQLite's floating point SUM.
func (r *SQLiteRepository) paymentTotals(ctx context.Context, where string, args ...any) (map[int64]decimal.Decimal, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT cp.customer_id, cp.amount FROM customer_payments cp `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("customer payment totals: %w", err)
	}
	defer rows.Close()

	totals := map[int64]decimal.Decimal{}
	for rows.Next() {
		var (
			id     int64
			amount decimal.Decimal
		)
		if err := rows.Scan(&id, &amount); err != nil {
			return nil, fmt.Errorf("scan payment amount: %w", err)
		}
		totals[id] = totals[id].Add(amount)
	}
	return totals, rows.Err()
}

func (r *SQLiteRepository) UpdateCustomer(ctx context.Context, c core.Customer) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE customers SET name = ?, project_name = ?, domain_name = ?, description = ?, total_amount = ?,
			advance_amount = ?, is_payment_confirmed = ?, is_project_delivered = ?, delivery_date = ?
		 WHERE id = ? AND user_id = ?`,
		c.Name, c.ProjectName, c.DomainName, c.Description, amountArg(c.TotalAmount),
		amountArg(c.AdvanceAmount), boolArg(c.IsPaymentConfirmed), boolArg(c.IsProjectDelivered),
		optionalDateArg(c.DeliveryDate), c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update customer %d: %w", c.ID, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) DeleteCustomer(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM customers WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete customer %d: %w", id, err)
	}
	return expectOne(res)
}

const customerPaymentSelect = `
	SELECT cp.id, cp.customer_id, cp.amount, cp.date, cp.note, cp.created_at
	FROM customer_payments cp
	JOIN customers c ON c.id = cp.customer_id`

func scanCustomerPayment(s rowScanner) (core.CustomerPayment, error) {
	var (
		p       core.CustomerPayment
		created int64
	)
	if err := s.Scan(&p.ID, &p.CustomerID, &p.Amount, &p.Date, &p.Note, &created); err != nil {
		return core.CustomerPayment{}, err
	}
	p.CreatedAt = fromUnix(created)
	return p, nil
}

// CreateCustomerPayment inserts p. Ownership of the customer is checked by
// the caller inside the same transaction.
func (r *SQLiteRepository) CreateCustomerPayment(ctx context.Context, p core.CustomerPayment) (core.CustomerPayment, error) {
	created := r.nowUnix()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO customer_payments (customer_id, amount, date, note, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.CustomerID, amountArg(p.Amount), p.Date, p.Note, created)
	if err != nil {
		return core.CustomerPayment{}, fmt.Errorf("insert customer payment: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return core.CustomerPayment{}, fmt.Errorf("customer payment id: %w", err)
	}
	p.CreatedAt = fromUnix(created)
	return p, nil
}

func (r *SQLiteRepository) GetCustomerPayment(ctx context.Context, userID, id int64) (core.CustomerPayment, error) {
	row := r.q.QueryRowContext(ctx, customerPaymentSelect+` WHERE cp.id = ? AND c.user_id = ?`, id, userID)
	p, err := scanCustomerPayment(row)
	if err != nil {
		return core.CustomerPayment{}, fmt.Errorf("get customer payment %d: %w", id, notFound(err))
	}
	return p, nil
}

// ListCustomerPayments returns payments newest first. customerID 0 means all.
func (r *SQLiteRepository) ListCustomerPayments(ctx context.Context, userID, customerID int64) ([]core.CustomerPayment, error) {
	query := customerPaymentSelect + ` WHERE c.user_id = ?`
	args := []any{userID}
	if customerID > 0 {
		query += ` AND cp.customer_id = ?`
		args = append(args, customerID)
	}
	query += ` ORDER BY cp.date DESC, cp.id DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customer payments: %w", err)
	}
	defer rows.Close()

	out := []core.CustomerPayment{}
	for rows.Next() {
		p, err := scanCustomerPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateCustomerPayment edits the payment row only; its ledger income is not
// touched. Both the current and the new customer must belong to userID.
func (r *SQLiteRepository) UpdateCustomerPayment(ctx context.Context, userID int64, p core.CustomerPayment) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE customer_payments SET customer_id = ?, amount = ?, date = ?, note = ?
		 WHERE id = ?
		   AND customer_id IN (SELECT id FROM customers WHERE user_id = ?)
		   AND EXISTS (SELECT 1 FROM customers WHERE id = ? AND user_id = ?)`,
		p.CustomerID, amountArg(p.Amount), p.Date, p.Note,
		p.ID, userID, p.CustomerID, userID)
	if err != nil {
		return fmt.Errorf("update customer payment %d: %w", p.ID, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) DeleteCustomerPayment(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM customer_payments WHERE id = ? AND customer_id IN (SELECT id FROM customers WHERE user_id = ?)`,
		id, userID)
	if err != nil {
		return fmt.Errorf("delete customer payment %d: %w", id, err)
	}
	return expectOne(res)
}

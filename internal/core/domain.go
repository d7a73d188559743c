package core

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

// Expense categories. Liability and Salary are also written by the posting
// operations.
const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryUtilities     Category = "Utilities"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealthcare    Category = "Healthcare"
	CategoryEducation     Category = "Education"
	CategoryHousing       Category = "Housing"
	CategorySalary        Category = "Salary"
	CategoryLiability     Category = "Liability"
	CategoryOther         Category = "Other"
)

// DefaultSalaryTitle is used when a salary payment is created without a title.
const DefaultSalaryTitle = "Salary Payment"

type (
	Category string

	// Date is a calendar day in UTC. Time of day is always midnight.
	Date struct {
		time.Time
	}

	User struct {
		ID           int64     `json:"id"`
		Username     string    `json:"username"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"created_at"`
	}

	Income struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"user"`
		Source      string          `json:"source"`
		Amount      decimal.Decimal `json:"amount"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Expense struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"user"`
		Category    Category        `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Employee struct {
		ID         int64           `json:"id"`
		UserID     int64           `json:"user"`
		Name       string          `json:"name"`
		Role       string          `json:"role"`
		BaseSalary decimal.Decimal `json:"base_salary"`
		Email      string          `json:"email"`
		JoinedDate Date            `json:"joined_date"`
	}

	SalaryPayment struct {
		ID           int64           `json:"id"`
		EmployeeID   int64           `json:"employee"`
		EmployeeName string          `json:"employee_name"`
		EmployeeRole string          `json:"employee_role"`
		Amount       decimal.Decimal `json:"amount"`
		PaymentDate  Date            `json:"payment_date"`
		Title        string          `json:"title"`
	}

	CustomerPayment struct {
		ID         int64           `json:"id"`
		CustomerID int64           `json:"customer"`
		Amount     decimal.Decimal `json:"amount"`
		Date       Date            `json:"date"`
		Note       string          `json:"note"`
		CreatedAt  time.Time       `json:"created_at"`
	}
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmountFormat = errors.New("invalid amount format")
	ErrNonPositiveAmount   = errors.New("amount must be greater than 0")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrExceedsRemaining    = errors.New("amount exceeds remaining debt")
	ErrInvalidCategory     = errors.New("invalid expense category")
	ErrInvalidDate         = errors.New("invalid date, expected YYYY-MM-DD")
	ErrConcurrentUpdate    = errors.New("record was modified by another request, retry")
	ErrUsernameTaken       = errors.New("username already taken")
)

var validationErrors = []error{
	ErrInvalidAmountFormat,
	ErrNonPositiveAmount,
	ErrNegativeAmount,
	ErrExceedsRemaining,
	ErrInvalidCategory,
	ErrInvalidDate,
}

// FieldError reports a missing or malformed input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func required(field string) error {
	return &FieldError{Field: field, Message: "this field is required"}
}

// IsValidation reports whether err is caused by bad caller input.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return true
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Categories lists every valid expense category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryHealthcare,
	CategoryEducation,
	CategoryHousing,
	CategorySalary,
	CategoryLiability,
	CategoryOther,
}

// ParseCategory matches s against the category enumeration, ignoring case.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Label returns the human readable name of the category.
func (c Category) Label() string {
	if c == CategoryLiability {
		return "Debt Repayment"
	}
	return string(c)
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping t's own year/month/day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the day as YYYY-MM-DD text.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case time.Time:
		*d = DateOf(v)
		return nil
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("unsupported date column type %T", src)
	}
}

func (d *Date) scanString(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("scan date %q: %w", s, err)
	}
	*d = parsed
	return nil
}

func (u User) Validate() error {
	name := strings.TrimSpace(u.Username)
	if name == "" {
		return required("username")
	}
	if len(name) > 150 {
		return &FieldError{Field: "username", Message: "at most 150 characters"}
	}
	return nil
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.Source) == "" {
		return required("source")
	}
	if len(i.Source) > 255 {
		return &FieldError{Field: "source", Message: "at most 255 characters"}
	}
	if err := requireNonNegative(i.Amount); err != nil {
		return err
	}
	return i.Date.Validate()
}

func (e Expense) Validate() error {
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Category)
	}
	if err := requireNonNegative(e.Amount); err != nil {
		return err
	}
	return e.Date.Validate()
}

func (e Employee) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return required("name")
	}
	if strings.TrimSpace(e.Role) == "" {
		return required("role")
	}
	if err := requireNonNegative(e.BaseSalary); err != nil {
		return err
	}
	if e.Email != "" {
		if _, err := mail.ParseAddress(e.Email); err != nil {
			return &FieldError{Field: "email", Message: "enter a valid email address"}
		}
	}
	return nil
}

func (p SalaryPayment) Validate() error {
	if p.EmployeeID <= 0 {
		return required("employee")
	}
	if err := requirePositive(p.Amount); err != nil {
		return err
	}
	return p.PaymentDate.Validate()
}

func (p CustomerPayment) Validate() error {
	if p.CustomerID <= 0 {
		return required("customer")
	}
	if err := requirePositive(p.Amount); err != nil {
		return err
	}
	return p.Date.Validate()
}

func requirePositive(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}

func requireNonNegative(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// maxBodyBytes caps request bodies. Every payload is a small JSON object.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decodeJSON reads a single JSON object from the body into dst. Unknown
// fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("request body too large or unreadable")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("request body is empty")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		if errors.Is(err, core.ErrInvalidDate) {
			return core.ErrInvalidDate
		}
		return badRequest("malformed JSON body")
	}
	return nil
}

// pathID reads the {id} wildcard. Anything but a positive integer is a 404,
// as no such record can exist.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// queryID reads an optional numeric filter such as ?employee=3. Absent means 0.
func queryID(r *http.Request, key string) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("%s must be a positive integer", key)
	}
	return id, nil
}

// Amount is a money value as sent by clients: a JSON number or a numeric
// string. It keeps the raw text so parsing goes through core.ParseAmount.
type Amount struct {
	raw   string
	isSet bool
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		// Unset for Required and Optional, but Raw keeps the literal so a
		// null pay-down amount fails to parse instead of counting as zero.
		*a = Amount{raw: s}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	*a = Amount{raw: s, isSet: true}
	return nil
}

// Raw returns the text the client sent, "null" for an explicit null, or ""
// when the field was absent.
func (a Amount) Raw() string {
	return a.raw
}

// Required parses the amount, reporting field as missing when absent.
func (a Amount) Required(field string) (decimal.Decimal, error) {
	if !a.isSet || strings.TrimSpace(a.raw) == "" {
		return decimal.Zero, &core.FieldError{Field: field, Message: "this field is required"}
	}
	return a.parse(field)
}

// Optional parses the amount, returning zero when absent.
func (a Amount) Optional(field string) (decimal.Decimal, error) {
	if !a.isSet || strings.TrimSpace(a.raw) == "" {
		return decimal.Zero, nil
	}
	return a.parse(field)
}

func (a Amount) parse(field string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(a.raw)
	if err != nil {
		return decimal.Zero, &core.FieldError{Field: field, Message: core.ErrInvalidAmountFormat.Error()}
	}
	return d, nil
}

// requiredDate reports a missing date as a field error.
func requiredDate(d core.Date, field string) error {
	if d.IsZero() {
		return &core.FieldError{Field: field, Message: "this field is required"}
	}
	return nil
}

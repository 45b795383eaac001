package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Quantity is a non-negative number that may be unknown.
// Degraded input (null, non-numeric strings, negative or non-finite values)
// decodes to an unknown quantity instead of failing the whole document.
type Quantity struct {
	value float64
	known bool
}

// QuantityOf returns a known quantity, or an unknown one if v is not a valid amount.
func QuantityOf(v float64) Quantity {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Quantity{}
	}
	return Quantity{value: v, known: true}
}

// Get returns the value and whether it is known.
func (q Quantity) Get() (float64, bool) { return q.value, q.known }

// IsKnown reports whether the quantity carries a value.
func (q Quantity) IsKnown() bool { return q.known }

// Or returns the value, or def when unknown.
func (q Quantity) Or(def float64) float64 {
	if !q.known {
		return def
	}
	return q.value
}

func (q Quantity) String() string {
	if !q.known {
		return "unknown"
	}
	return strconv.FormatFloat(q.value, 'f', -1, 64)
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.known {
		return []byte("null"), nil
	}
	return json.Marshal(q.value)
}

func (q *Quantity) UnmarshalJSON(b []byte) error {
	*q = parseQuantity(b)
	return nil
}

func parseQuantity(b []byte) Quantity {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return Quantity{}
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return Quantity{}
		}
		return parseQuantityString(s)
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return Quantity{}
	}
	return QuantityOf(v)
}

func parseQuantityString(s string) Quantity {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimLeft(s, "£$€")
	if s == "" {
		return Quantity{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Quantity{}
	}
	return QuantityOf(v)
}

// Value implements driver.Valuer; unknown quantities are stored as NULL.
func (q Quantity) Value() (driver.Value, error) {
	if !q.known {
		return nil, nil
	}
	return q.value, nil
}

// Scan implements sql.Scanner.
func (q *Quantity) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*q = Quantity{}
	case float64:
		*q = QuantityOf(v)
	case int64:
		*q = QuantityOf(float64(v))
	case []byte:
		*q = parseQuantityString(string(v))
	case string:
		*q = parseQuantityString(v)
	default:
		return fmt.Errorf("scan quantity: unsupported type %T", src)
	}
	return nil
}

// Tristate models an optional yes/no answer where "not answered" differs from "no".
type Tristate int8

const (
	Unset Tristate = iota
	Yes
	No
)

// TristateOf converts a plain bool into an explicit answer.
func TristateOf(b bool) Tristate {
	if b {
		return Yes
	}
	return No
}

// IsSet reports whether the answer was given, true or false.
func (t Tristate) IsSet() bool { return t == Yes || t == No }

// Bool returns the answer and whether it was given.
func (t Tristate) Bool() (bool, bool) {
	switch t {
	case Yes:
		return true, true
	case No:
		return false, true
	default:
		return false, false
	}
}

func (t Tristate) String() string {
	switch t {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unset"
	}
}

func (t Tristate) MarshalJSON() ([]byte, error) {
	switch t {
	case Yes:
		return []byte("true"), nil
	case No:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (t *Tristate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "true":
		*t = Yes
		return nil
	case "false":
		*t = No
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*t = Unset
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		*t = Yes
	case "false", "no", "n", "0":
		*t = No
	default:
		*t = Unset
	}
	return nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// Date is a point in time that may be unknown (zero).
type Date struct {
	time.Time
}

// DateOf wraps t.
func DateOf(t time.Time) Date { return Date{Time: t.UTC()} }

// ParseDate parses s with the accepted layouts; malformed input yields an unknown date.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t)
		}
	}
	return Date{}
}

// IsKnown reports whether the date was set.
func (d Date) IsKnown() bool { return !d.IsZero() }

// Unix returns seconds since the epoch, or 0 when unknown.
func (d Date) Unix() int64 {
	if d.IsZero() {
		return 0
	}
	return d.Time.Unix()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	if b[0] != '"' {
		secs, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil || secs <= 0 {
			*d = Date{}
			return nil
		}
		*d = DateOf(time.Unix(secs, 0))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*d = Date{}
		return nil
	}
	*d = ParseDate(s)
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time.Format(time.RFC3339), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = DateOf(v)
	case string:
		*d = ParseDate(v)
	case []byte:
		*d = ParseDate(string(v))
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
	return nil
}

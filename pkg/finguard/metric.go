package finguard

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Metric is a numeric analysis value (CAGR, volatility, sentiment score).
// Arithmetic stays in float64; display and JSON go through decimal rounding
// so binary float noise never reaches a user.
type Metric float64

// Float64 returns the raw value.
func (m Metric) Float64() float64 {
	return float64(m)
}

// Fixed2 formats the value with exactly two decimals.
func (m Metric) Fixed2() string {
	return decimal.NewFromFloat(float64(m)).StringFixed(2)
}

// MarshalJSON outputs a JSON number rounded to four decimals.
func (m Metric) MarshalJSON() ([]byte, error) {
	f, _ := decimal.NewFromFloat(float64(m)).Round(4).Float64()
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings.
func (m *Metric) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	f, _ := d.Float64()
	*m = Metric(f)
	return nil
}

// Scan implements sql.Scanner, reading SQLite REAL columns.
func (m *Metric) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = 0
	case float64:
		*m = Metric(v)
	case int64:
		*m = Metric(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*m = Metric(f)
	default:
		return fmt.Errorf("unsupported metric type %T", src)
	}
	return nil
}

// Value implements driver.Valuer for database writes.
func (m Metric) Value() (driver.Value, error) {
	return float64(m), nil
}

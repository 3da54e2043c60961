package model

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/ericlagergren/decimal"
	"github.com/ericlagergren/decimal/sql/postgres"
	"gitlab.com/kuberbook/settlement_api/conv"
)

// Amount is a money column stored as decimal(36,18) and rendered as a JSON string
type Amount struct {
	postgres.Decimal
}

// NewAmount wraps the given value, nil is treated as zero
func NewAmount(v *decimal.Big) Amount {
	if v == nil {
		v = conv.NewDecimalWithPrecision()
	}
	return Amount{Decimal: postgres.Decimal{V: conv.CloneToPrecision(v)}}
}

// Big returns the underlying value, never nil
func (a Amount) Big() *decimal.Big {
	if a.V == nil {
		return conv.NewDecimalWithPrecision()
	}
	return a.V
}

// Equal compares two amounts by value
func (a Amount) Equal(b Amount) bool {
	return a.Big().Cmp(b.Big()) == 0
}

func (a Amount) String() string {
	return conv.CloneToPrecision(a.Big()).String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		// accept bare numbers as well
		raw = string(data)
	}
	v, err := conv.ParseAmount(raw)
	if err != nil {
		return err
	}
	a.Decimal = postgres.Decimal{V: v}
	return nil
}

// Value implements driver.Valuer, a nil value is stored as zero
func (a Amount) Value() (driver.Value, error) {
	d := a.Decimal
	if d.V == nil {
		d.V = conv.NewDecimalWithPrecision()
	}
	return d.Value()
}

// Scan implements sql.Scanner, NULL scans as zero
func (a *Amount) Scan(src interface{}) error {
	if src == nil {
		a.Decimal = postgres.Decimal{V: conv.NewDecimalWithPrecision()}
		return nil
	}
	return a.Decimal.Scan(src)
}

package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrAmountPrecision возвращается, если сумма содержит больше двух знаков после запятой.
var ErrAmountPrecision = errors.New("amount has more than two decimal places")

// ErrAmountRange возвращается, если сумма не помещается в int64 сотых долей.
var ErrAmountRange = errors.New("amount is out of range")

var hundred = decimal.NewFromInt(100)

// Amount: денежная сумма в сотых долях валюты.
type Amount int64

// Units возвращает сумму, равную целому числу единиц валюты.
func Units(n int64) Amount {
	return Amount(n * 100)
}

// ParseAmount разбирает десятичную запись суммы, например "1500.00".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return AmountFromDecimal(d)
}

// AmountFromDecimal переводит десятичное значение в сотые доли.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, ErrAmountPrecision
	}
	if !cents.BigInt().IsInt64() {
		return 0, ErrAmountRange
	}
	return Amount(cents.IntPart()), nil
}

// Decimal возвращает сумму в виде десятичного числа.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// MarshalJSON кодирует сумму числом с двумя знаками после запятой.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON принимает сумму в виде числа или строки.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// UnmarshalText используется при чтении сумм из переменных окружения.
func (a *Amount) UnmarshalText(b []byte) error {
	v, err := ParseAmount(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Rate: процентная ставка в сотых долях процента (500 = 5.00 %).
type Rate int64

// ParseRate разбирает запись процента, например "5.00".
func ParseRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse rate %q: %w", s, err)
	}
	bp := d.Shift(2)
	if !bp.IsInteger() {
		return 0, fmt.Errorf("parse rate %q: too many decimal places", s)
	}
	if bp.IsNegative() || bp.GreaterThan(decimal.NewFromInt(10000)) {
		return 0, fmt.Errorf("parse rate %q: out of range", s)
	}
	return Rate(bp.IntPart()), nil
}

// Percent возвращает ставку в процентах.
func (r Rate) Percent() decimal.Decimal {
	return decimal.New(int64(r), -2)
}

func (r Rate) String() string {
	return r.Percent().StringFixed(2)
}

// Of вычисляет долю суммы по ставке с округлением до сотых.
func (r Rate) Of(a Amount) Amount {
	part := a.Decimal().Mul(r.Percent()).Div(hundred).Round(2)
	return Amount(part.Shift(2).IntPart())
}

// MarshalJSON кодирует ставку числом с двумя знаками после запятой.
func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalJSON принимает ставку в виде числа или строки.
func (r *Rate) UnmarshalJSON(b []byte) error {
	v, err := ParseRate(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// UnmarshalText используется при чтении ставок из переменных окружения.
func (r *Rate) UnmarshalText(b []byte) error {
	v, err := ParseRate(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

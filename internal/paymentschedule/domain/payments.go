package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AmountSum totals payments, letting a recorded paid amount override the
// scheduled one.
func AmountSum(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.EffectiveAmount())
	}
	return sum
}

// StrictAmountSum totals the scheduled amounts only, ignoring paid
// overrides. Used where fidelity to the plan matters.
func StrictAmountSum(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// MonthlyAmount is one calendar-month bucket of payment totals.
type MonthlyAmount struct {
	Month  string          `json:"date_month"`
	Amount decimal.Decimal `json:"amount"`
}

// GroupByMonthlyAmounts buckets payments by the calendar month of their
// effective date, summing effective amounts. Months come back ascending and
// only months with at least one payment appear.
func GroupByMonthlyAmounts(payments []Payment) []MonthlyAmount {
	totals := make(map[string]decimal.Decimal)
	for _, p := range payments {
		month := p.EffectiveDate().Format("2006-01")
		totals[month] = totals[month].Add(p.EffectiveAmount())
	}

	months := make([]string, 0, len(totals))
	for month := range totals {
		months = append(months, month)
	}
	sort.Strings(months)

	out := make([]MonthlyAmount, 0, len(months))
	for _, month := range months {
		out = append(out, MonthlyAmount{Month: month, Amount: totals[month]})
	}
	return out
}

// InYear keeps payments whose effective date falls in the given calendar
// year.
func InYear(payments []Payment, year int) []Payment {
	var out []Payment
	for _, p := range payments {
		if p.EffectiveDate().Year() == year {
			out = append(out, p)
		}
	}
	return out
}

// EffectiveDateGte keeps payments whose effective date is on or after d.
func EffectiveDateGte(payments []Payment, d time.Time) []Payment {
	var out []Payment
	for _, p := range payments {
		if !p.EffectiveDate().Before(d) {
			out = append(out, p)
		}
	}
	return out
}

// EffectiveDateLte keeps payments whose effective date is on or before d.
func EffectiveDateLte(payments []Payment, d time.Time) []Payment {
	var out []Payment
	for _, p := range payments {
		if !p.EffectiveDate().After(d) {
			out = append(out, p)
		}
	}
	return out
}

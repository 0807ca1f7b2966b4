package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// GrandTotalBrand marks the synthetic row that carries the sum of all
	// quantities in a table, file or snapshot.
	GrandTotalBrand = "grand total"

	// UnknownValue replaces blank categorical values after cleaning.
	UnknownValue = "unknown"
)

// Record is one cleaned sales/inventory line. Text fields are lowercased and
// trimmed; Week and Month are derived from Date.
type Record struct {
	Brand       string
	Category    string
	Size        string
	MRP         decimal.Decimal
	Color       string
	SalesQty    int64
	PurchaseQty int64
	Date        time.Time
	Week        string
	Month       string
}

// RecordID is the identity used for grouping and canonical merges.
// Two records with the same RecordID describe the same item in the same month.
func (r Record) RecordID() string {
	return strings.Join([]string{r.Brand, r.Category, r.Size, r.Color, r.Month}, "|")
}

// IsTotal reports whether r is a grand-total row.
func (r Record) IsTotal() bool {
	return r.Brand == GrandTotalBrand
}

// Stamp sets Date, Week and Month from at.
func (r *Record) Stamp(at time.Time) {
	r.Date = at
	r.Week = WeekKey(at)
	r.Month = MonthKey(at)
}

// NewTotal builds a grand-total row summing the non-total records.
// Week and Month follow at.
func NewTotal(records []Record, at time.Time) Record {
	sales, purchases := Totals(records)
	return Record{
		Brand:       GrandTotalBrand,
		MRP:         decimal.Zero,
		SalesQty:    sales,
		PurchaseQty: purchases,
		Date:        at,
		Week:        WeekKey(at),
		Month:       MonthKey(at),
	}
}

// Totals sums quantities across non-total records.
func Totals(records []Record) (sales, purchases int64) {
	for _, r := range records {
		if r.IsTotal() {
			continue
		}
		sales += r.SalesQty
		purchases += r.PurchaseQty
	}
	return sales, purchases
}

// WithoutTotals returns the records that are not grand-total rows.
func WithoutTotals(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.IsTotal() {
			out = append(out, r)
		}
	}
	return out
}

// WithTotal returns records with any existing total rows removed and a fresh
// total computed at at placed first.
func WithTotal(records []Record, at time.Time) []Record {
	facts := WithoutTotals(records)
	out := make([]Record, 0, len(facts)+1)
	out = append(out, NewTotal(facts, at))
	return append(out, facts...)
}

package inventory

import "sort"

// DateMode selects which Date survives when records are merged.
type DateMode int

const (
	// KeepFirstDate keeps the Date of the first record seen for an identity.
	KeepFirstDate DateMode = iota
	// KeepMaxDate keeps the latest Date among the merged records.
	KeepMaxDate
)

// GroupByRecordID merges records sharing a RecordID. Quantities are summed,
// scalar fields come from the first occurrence and output order follows the
// first occurrence of each identity. Total rows are dropped. The second return
// value is the number of records folded into an earlier one.
func GroupByRecordID(records []Record, mode DateMode) ([]Record, int) {
	index := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	merged := 0

	for _, r := range records {
		if r.IsTotal() {
			continue
		}
		id := r.RecordID()
		i, ok := index[id]
		if !ok {
			index[id] = len(out)
			out = append(out, r)
			continue
		}
		merged++
		out[i].SalesQty += r.SalesQty
		out[i].PurchaseQty += r.PurchaseQty
		if mode == KeepMaxDate && r.Date.After(out[i].Date) {
			out[i].Date = r.Date
		}
	}
	return out, merged
}

// SortByDateDesc orders records newest first, keeping the relative order of
// records with equal dates.
func SortByDateDesc(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
}

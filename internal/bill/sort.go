package bill

import "slices"

// SortByDate returns a copy of bills ordered by date, most recent first.
// Bills sharing a date keep their input order.
func SortByDate(bills []Bill) []Bill {
	sorted := slices.Clone(bills)
	slices.SortStableFunc(sorted, func(a, b Bill) int {
		return b.Date.Compare(a.Date.Time)
	})
	return sorted
}

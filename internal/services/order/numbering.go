package order

import (
	"fmt"
	"time"
)

// FormatOrderNumber builds a day-scoped order number in the format
// ORD-YYYYMMDD-NNNN, where the date is the UTC calendar date and the sequence
// is the 1-based count of orders created that day. The sequence itself is
// allocated by the store, atomically with the order insert, so two orders can
// never share a number.
func FormatOrderNumber(date time.Time, sequence int) string {
	return fmt.Sprintf("ORD-%s-%04d", date.UTC().Format("20060102"), sequence)
}

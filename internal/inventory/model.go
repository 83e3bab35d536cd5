package inventory

import "time"

// Record is the per-product stock ledger entry. Stock never goes below
// zero in strict mode; Sold only ever grows, an approved return restocks
// without rewriting sales history.
type Record struct {
	ProductID string
	Stock     int
	Sold      int
	UpdatedAt time.Time
}

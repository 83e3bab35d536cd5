package reward

import (
	"time"

	"tradehub-be/internal/money"
)

// Account is the per-buyer reward ledger: points earned on completed
// payments plus a wallet balance used for refunds. Both stay >= 0.
type Account struct {
	BuyerID   uint
	Points    int64
	Balance   money.Money
	UpdatedAt time.Time
}

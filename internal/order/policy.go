package order

import "time"

// ReturnWindow is how long after delivery a buyer may request a return.
const ReturnWindow = 24 * time.Hour

// ReturnEligible reports whether a return request at now falls inside the
// window around deliveredAt. The check is on the absolute difference, so a
// request timestamped before the recorded delivery (clock skew between the
// delivery scanner and the API) still passes.
func ReturnEligible(deliveredAt, now time.Time) bool {
	diff := now.Sub(deliveredAt)
	if diff < 0 {
		diff = -diff
	}
	return diff <= ReturnWindow
}

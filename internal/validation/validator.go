package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with struct-level validation for the
// checkout payload registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// items_price must equal the sum of unit_price * quantity so the
	// persisted snapshot cannot drift from the claimed total.
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})

	return v
}

func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	var sum int64
	for _, it := range req.Items {
		sum += int64(it.Quantity) * it.UnitPrice
	}

	if sum != req.ItemsPrice {
		sl.ReportError(req.ItemsPrice, "items_price", "ItemsPrice", "items_price_match", "")
	}
}

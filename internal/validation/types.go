package validation

// ItemInput is a single line item of a checkout request. Prices are in
// minor units.
type ItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	UnitPrice int64  `json:"unit_price" validate:"min=0"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type ShippingAddressInput struct {
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	Items           []ItemInput          `json:"items" validate:"required,min=1,dive"`
	ShippingAddress ShippingAddressInput `json:"shipping_address" validate:"required"`
	PaymentMethod   string               `json:"payment_method" validate:"required"`
	ItemsPrice      int64                `json:"items_price" validate:"min=0"`
	ShippingPrice   int64                `json:"shipping_price" validate:"min=0"`
	TaxPrice        int64                `json:"tax_price" validate:"min=0"`
}

// ConfirmPaymentRequest carries the provider receipt for PUT /orders/:id/pay.
type ConfirmPaymentRequest struct {
	ID         string `json:"id" validate:"required"`
	Status     string `json:"status" validate:"required"`
	UpdateTime string `json:"update_time"`
	PayerEmail string `json:"payer_email"`
}

// RequestReturnRequest is the payload for PUT /orders/:id/return.
type RequestReturnRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// DecideReturnRequest is the payload for PUT /orders/:id/return/decision.
type DecideReturnRequest struct {
	Decision     string `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	RejectReason string `json:"reject_reason" validate:"required_if=Decision REJECT"`
}

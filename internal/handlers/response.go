package handlers

import (
	"time"

	"tradehub-be/internal/order"
)

type itemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type shippingAddressResponse struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type paymentResultResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	UpdateTime string `json:"update_time,omitempty"`
	PayerEmail string `json:"payer_email,omitempty"`
}

type returnRequestResponse struct {
	Reason       string    `json:"reason"`
	Status       string    `json:"status"`
	RequestedAt  time.Time `json:"requested_at"`
	RejectReason *string   `json:"reject_reason,omitempty"`
}

type orderResponse struct {
	ID              string                  `json:"id"`
	BuyerID         uint                    `json:"buyer_id"`
	Items           []itemResponse          `json:"items"`
	ShippingAddress shippingAddressResponse `json:"shipping_address"`
	PaymentMethod   string                  `json:"payment_method"`
	ItemsPrice      int64                   `json:"items_price"`
	ShippingPrice   int64                   `json:"shipping_price"`
	TaxPrice        int64                   `json:"tax_price"`
	PlatformFee     int64                   `json:"platform_fee"`
	TotalPrice      int64                   `json:"total_price"`
	Status          string                  `json:"status"`
	PaymentResult   *paymentResultResponse  `json:"payment_result,omitempty"`
	PaidAt          *time.Time              `json:"paid_at,omitempty"`
	ShippedAt       *time.Time              `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time              `json:"delivered_at,omitempty"`
	RefundedAt      *time.Time              `json:"refunded_at,omitempty"`
	ReturnRequest   *returnRequestResponse  `json:"return_request,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:      o.ID.String(),
		BuyerID: o.BuyerID,
		ShippingAddress: shippingAddressResponse{
			Address:    o.ShippingAddress.Address,
			City:       o.ShippingAddress.City,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		PaymentMethod: o.PaymentMethod,
		ItemsPrice:    int64(o.ItemsPrice),
		ShippingPrice: int64(o.ShippingPrice),
		TaxPrice:      int64(o.TaxPrice),
		PlatformFee:   int64(o.PlatformFee),
		TotalPrice:    int64(o.TotalPrice),
		Status:        string(o.Status),
		PaidAt:        o.PaidAt,
		ShippedAt:     o.ShippedAt,
		DeliveredAt:   o.DeliveredAt,
		RefundedAt:    o.RefundedAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}

	for _, item := range o.Items {
		resp.Items = append(resp.Items, itemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: int64(item.UnitPrice),
			Quantity:  item.Quantity,
		})
	}

	if o.PaymentResult != nil {
		resp.PaymentResult = &paymentResultResponse{
			ID:         o.PaymentResult.ID,
			Status:     o.PaymentResult.Status,
			UpdateTime: o.PaymentResult.UpdateTime,
			PayerEmail: o.PaymentResult.PayerEmail,
		}
	}
	if o.ReturnRequest != nil {
		resp.ReturnRequest = &returnRequestResponse{
			Reason:       o.ReturnRequest.Reason,
			Status:       string(o.ReturnRequest.Status),
			RequestedAt:  o.ReturnRequest.RequestedAt,
			RejectReason: o.ReturnRequest.RejectReason,
		}
	}

	return resp
}

func toOrderListResponse(orders []*order.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

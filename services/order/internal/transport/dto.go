package transport

type CreateOrderItem struct {
	ListingID string `json:"listing_id"`
	Quantity  int    `json:"quantity"`
}

type DeliveryRequest struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	PaymentMethod string `json:"payment_method"`
}

// CreateOrderRequest carries no prices; the service prices every listing itself.
type CreateOrderRequest struct {
	Items    []CreateOrderItem `json:"items"`
	Delivery DeliveryRequest   `json:"delivery"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

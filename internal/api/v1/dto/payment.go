package dto

// SubscriptionOrderDTO starts a Razorpay checkout for a plan
type SubscriptionOrderDTO struct {
	Plan string `json:"plan" validate:"required,oneof=Basic Standard Premium"`
}

// SubscriptionOrderResponseDTO is returned with the order the frontend
// hands to the Razorpay checkout widget
type SubscriptionOrderResponseDTO struct {
	OrderID     string `json:"order_id"`
	AmountPaise int    `json:"amount_paise"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
}

// SubscriptionVerifyDTO carries the checkout callback fields for
// signature verification
type SubscriptionVerifyDTO struct {
	Plan      string `json:"plan" validate:"required,oneof=Basic Standard Premium"`
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

package domain

// PaymentMethod is resolved from the wider application for validation only.
type PaymentMethod struct {
	PaymentMethodID string `json:"paymentMethodID"`
	Name            string `json:"name"`
	IsActive        bool   `json:"isActive"`
}

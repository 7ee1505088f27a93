package transport

// JobRef identifies the job on gateway return and cancel redirects.
type JobRef struct {
	JobID int64 `form:"job" validate:"required,gt=0"`
}

// CheckoutResponse carries a signed checkout link.
type CheckoutResponse struct {
	JobID      int64  `json:"jobId"`
	PaymentURL string `json:"paymentUrl"`
}

// LandingResponse is shown after the client leaves the gateway.
type LandingResponse struct {
	JobID         int64  `json:"jobId"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	Message       string `json:"message"`
}

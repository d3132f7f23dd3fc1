package types

// ErrorBody is the failure shape of every JSON endpoint except webhooks.
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// ReceivedBody acknowledges a provider webhook delivery.
type ReceivedBody struct {
	Received bool   `json:"received"`
	Error    string `json:"error,omitempty"`
}

package responses

// SuccessEnvelope wraps every 2xx payload as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorBody is the public part of a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every failure as {"error": {...}}.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
